package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/smartsql-client/internal/models"
	"github.com/noah-isme/smartsql-client/internal/repository"
	"github.com/noah-isme/smartsql-client/pkg/response"
)

// ExerciseHandler handles the instructor's exercise endpoints.
type ExerciseHandler struct {
	store     *repository.LMSStore
	validator *validator.Validate
}

// NewExerciseHandler constructs an exercise handler.
func NewExerciseHandler(store *repository.LMSStore, validate *validator.Validate) *ExerciseHandler {
	return &ExerciseHandler{store: store, validator: validate}
}

// List godoc
// @Summary List exercises
// @Tags Exercises
// @Produce json
// @Param module_id query int false "Filter by module"
// @Param course_id query int false "Filter by course"
// @Param difficulty query string false "Easy, Medium or Hard"
// @Param search query string false "Search keyword"
// @Param sort query string false "title, -title or difficulty"
// @Success 200 {object} response.Envelope
// @Router /instructor/exercises/ [get]
func (h *ExerciseHandler) List(c *gin.Context) {
	exercises, err := h.store.InstructorExercises(currentUserID(c), repository.CatalogFilter{
		ModuleID:   queryID(c, "module_id"),
		CourseID:   queryID(c, "course_id"),
		Difficulty: models.Difficulty(c.Query("difficulty")),
		Search:     c.Query("search"),
		Sort:       c.Query("sort"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Keyed(c, "exercises", exercises)
}

// Get godoc
// @Summary Get exercise by id, including the expected answer
// @Tags Exercises
// @Produce json
// @Param id path int true "Exercise ID"
// @Success 200 {object} response.Envelope
// @Router /instructor/exercises/{id}/ [get]
func (h *ExerciseHandler) Get(c *gin.Context) {
	exercise, err := h.store.InstructorExercise(currentUserID(c), pathID(c, "id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, exercise)
}

// Create godoc
// @Summary Create exercise
// @Tags Exercises
// @Accept json
// @Produce json
// @Param payload body models.Exercise true "Exercise payload"
// @Success 201 {object} response.Envelope
// @Router /instructor/exercises/ [post]
func (h *ExerciseHandler) Create(c *gin.Context) {
	var req models.Exercise
	if !bindAndValidate(c, h.validator, &req, "Exercise could not be created.") {
		return
	}
	exercise, err := h.store.CreateExercise(currentUserID(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, exercise, "Exercise created successfully.")
}

// Update godoc
// @Summary Update exercise
// @Tags Exercises
// @Accept json
// @Produce json
// @Param id path int true "Exercise ID"
// @Param payload body models.Exercise true "Exercise payload"
// @Success 200 {object} response.Envelope
// @Router /instructor/exercises/{id}/ [put]
func (h *ExerciseHandler) Update(c *gin.Context) {
	var req models.Exercise
	if !bindAndValidate(c, h.validator, &req, "Exercise could not be updated.") {
		return
	}
	exercise, err := h.store.UpdateExercise(currentUserID(c), pathID(c, "id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, exercise, "Exercise updated successfully.")
}

// Delete godoc
// @Summary Delete exercise
// @Tags Exercises
// @Produce json
// @Param id path int true "Exercise ID"
// @Success 200 {object} response.Envelope
// @Router /instructor/exercises/{id}/ [delete]
func (h *ExerciseHandler) Delete(c *gin.Context) {
	if err := h.store.DeleteExercise(currentUserID(c), pathID(c, "id")); err != nil {
		writeMutationError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, nil, "Exercise deleted successfully.")
}
