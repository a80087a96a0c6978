package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/smartsql-client/internal/models"
	"github.com/noah-isme/smartsql-client/internal/repository"
	"github.com/noah-isme/smartsql-client/pkg/response"
)

// StudentHandler serves the instructor's view of students: the roster,
// per-student learning analytics and grades.
type StudentHandler struct {
	store     *repository.LMSStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentHandler constructs a student handler.
func NewStudentHandler(store *repository.LMSStore, validate *validator.Validate, logger *zap.Logger) *StudentHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentHandler{store: store, validator: validate, logger: logger}
}

// List godoc
// @Summary List students enrolled in the instructor's courses
// @Tags Students
// @Produce json
// @Param course_id query int false "Filter by course"
// @Param student_id query int false "Only this student"
// @Param search query string false "Search name, username or email"
// @Success 200 {object} response.Envelope
// @Router /instructor/students/ [get]
func (h *StudentHandler) List(c *gin.Context) {
	response.Keyed(c, "students", h.store.Students(currentUserID(c), repository.StudentFilter{
		CourseID:  queryID(c, "course_id"),
		StudentID: queryID(c, "student_id"),
		Search:    c.Query("search"),
	}))
}

// teaches aborts with 403/404 unless the caller teaches the path student.
func (h *StudentHandler) teaches(c *gin.Context) (models.ID, bool) {
	studentID := pathID(c, "id")
	if err := h.store.EnsureTeaches(currentUserID(c), studentID); err != nil {
		response.Error(c, err)
		return "", false
	}
	return studentID, true
}

// Progress godoc
// @Summary Progress of one student
// @Tags Students
// @Produce json
// @Param id path int true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /instructor/students/{id}/progress/ [get]
func (h *StudentHandler) Progress(c *gin.Context) {
	studentID, ok := h.teaches(c)
	if !ok {
		return
	}
	response.Keyed(c, "progress", h.store.Progress(studentID))
}

// KnowledgeGraph lists one student's weak areas.
func (h *StudentHandler) KnowledgeGraph(c *gin.Context) {
	studentID, ok := h.teaches(c)
	if !ok {
		return
	}
	response.Keyed(c, "knowledge_graphs", h.store.KnowledgeGraphs(studentID))
}

// ErrorLogs lists one student's mistakes with a per-type count.
func (h *StudentHandler) ErrorLogs(c *gin.Context) {
	studentID, ok := h.teaches(c)
	if !ok {
		return
	}
	logs, summary := h.store.ErrorLogs(studentID)
	response.Payload(c, gin.H{"error_logs": logs, "error_summary": summary})
}

// UpdateGrade godoc
// @Summary Update an enrollment grade
// @Tags Students
// @Accept json
// @Produce json
// @Param payload body models.GradeUpdate true "Grade payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /instructor/scores/update/ [put]
func (h *StudentHandler) UpdateGrade(c *gin.Context) {
	var req models.GradeUpdate
	if !bindAndValidate(c, h.validator, &req, "Grade could not be updated.") {
		return
	}
	enrollment, err := h.store.UpdateGrade(currentUserID(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.logger.Info("grade updated",
		zap.String("student_id", req.StudentID.String()),
		zap.String("course_id", req.CourseID.String()),
		zap.Float64("grade", req.Grade),
	)
	response.JSON(c, http.StatusOK, enrollment, "Grade updated successfully.")
}

// Dashboard godoc
// @Summary Instructor landing summary
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /instructor/dashboard/ [get]
func (h *StudentHandler) Dashboard(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.store.InstructorDashboard(currentUserID(c)))
}
