package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/smartsql-client/internal/models"
	"github.com/noah-isme/smartsql-client/internal/repository"
	"github.com/noah-isme/smartsql-client/pkg/response"
)

// SubmissionRecorder counts graded submissions.
type SubmissionRecorder interface {
	RecordSubmission(correct bool)
}

// LearningHandler serves the student side: enrolled courses, the exercise
// tree, submissions, enrollment and progress.
type LearningHandler struct {
	store     *repository.LMSStore
	validator *validator.Validate
	recorder  SubmissionRecorder
	logger    *zap.Logger
}

// NewLearningHandler constructs the student-side handler. recorder may be nil.
func NewLearningHandler(store *repository.LMSStore, validate *validator.Validate, recorder SubmissionRecorder, logger *zap.Logger) *LearningHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LearningHandler{store: store, validator: validate, recorder: recorder, logger: logger}
}

// Courses godoc
// @Summary List the caller's enrolled courses
// @Tags Student
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /student/courses/ [get]
func (h *LearningHandler) Courses(c *gin.Context) {
	response.Keyed(c, "courses", h.store.StudentCourses(currentUserID(c)))
}

// Modules godoc
// @Summary List the modules of an enrolled course
// @Tags Student
// @Produce json
// @Param id path int true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /student/courses/{id}/modules/ [get]
func (h *LearningHandler) Modules(c *gin.Context) {
	modules, err := h.store.StudentModules(currentUserID(c), pathID(c, "id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Keyed(c, "modules", modules)
}

// Exercises godoc
// @Summary List the exercises of a module
// @Tags Student
// @Produce json
// @Param id path int true "Course ID"
// @Param module_id path int true "Module ID"
// @Success 200 {object} response.Envelope
// @Router /student/courses/{id}/modules/{module_id}/exercises/ [get]
func (h *LearningHandler) Exercises(c *gin.Context) {
	exercises, err := h.store.StudentExercises(currentUserID(c), pathID(c, "id"), pathID(c, "module_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Keyed(c, "exercises", exercises)
}

// exerciseDetailWire sends the table schema as a JSON-encoded string, the
// way the production backend stores it.
type exerciseDetailWire struct {
	models.ExerciseDetail
	TableSchema string `json:"table_schema"`
}

// Exercise godoc
// @Summary Get an exercise with the caller's last submission
// @Tags Student
// @Produce json
// @Param id path int true "Exercise ID"
// @Success 200 {object} response.Envelope
// @Router /student/exercises/{id}/ [get]
func (h *LearningHandler) Exercise(c *gin.Context) {
	detail, err := h.store.ExerciseDetail(currentUserID(c), pathID(c, "id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	schema, err := json.Marshal(detail.TableSchema)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, exerciseDetailWire{ExerciseDetail: detail, TableSchema: string(schema)})
}

// Submit godoc
// @Summary Submit an answer
// @Tags Student
// @Accept json
// @Produce json
// @Param id path int true "Exercise ID"
// @Param payload body models.SubmissionRequest true "Answer"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /student/exercises/{id}/submit/ [post]
func (h *LearningHandler) Submit(c *gin.Context) {
	var req models.SubmissionRequest
	if !bindAndValidate(c, h.validator, &req, "Answer is required.") {
		return
	}
	result, err := h.store.Submit(currentUserID(c), pathID(c, "id"), req.Answer)
	if err != nil {
		response.Error(c, err)
		return
	}
	if h.recorder != nil {
		h.recorder.RecordSubmission(result.IsCorrect)
	}
	h.logger.Debug("submission graded",
		zap.String("exercise_id", c.Param("id")),
		zap.Bool("correct", result.IsCorrect),
	)
	response.JSON(c, http.StatusOK, result, result.Message)
}

// Browse godoc
// @Summary Browse active courses
// @Tags Student
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /student/browse-courses/ [get]
func (h *LearningHandler) Browse(c *gin.Context) {
	response.Keyed(c, "courses", h.store.BrowseCourses(currentUserID(c)))
}

// Enroll godoc
// @Summary Enroll in a course
// @Tags Student
// @Produce json
// @Param id path int true "Course ID"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /student/courses/{id}/enroll/ [post]
func (h *LearningHandler) Enroll(c *gin.Context) {
	if err := h.store.Enroll(currentUserID(c), pathID(c, "id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, nil, "Successfully enrolled in the course.")
}

// Progress lists per-course progress of the caller.
func (h *LearningHandler) Progress(c *gin.Context) {
	response.Keyed(c, "progress", h.store.Progress(currentUserID(c)))
}

// KnowledgeGraph lists the caller's weak areas.
func (h *LearningHandler) KnowledgeGraph(c *gin.Context) {
	response.Keyed(c, "knowledge_graphs", h.store.KnowledgeGraphs(currentUserID(c)))
}

// ErrorLogs lists the caller's recorded mistakes with a per-type count.
func (h *LearningHandler) ErrorLogs(c *gin.Context) {
	logs, summary := h.store.ErrorLogs(currentUserID(c))
	response.Payload(c, gin.H{"error_logs": logs, "error_summary": summary})
}

// Dashboard godoc
// @Summary Student landing summary
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /student/dashboard/ [get]
func (h *LearningHandler) Dashboard(c *gin.Context) {
	dashboard, err := h.store.StudentDashboard(currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dashboard)
}

// Inbox lists private messages and announcements addressed to the caller.
func (h *LearningHandler) Inbox(c *gin.Context) {
	messages := h.store.StudentMessages(currentUserID(c))
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		filtered := messages[:0]
		for _, m := range messages {
			if strings.Contains(strings.ToLower(m.Content), strings.ToLower(search)) {
				filtered = append(filtered, m)
			}
		}
		messages = filtered
	}
	response.Keyed(c, "messages", messages)
}
