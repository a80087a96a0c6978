package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/smartsql-client/internal/models"
	"github.com/noah-isme/smartsql-client/internal/repository"
	appErrors "github.com/noah-isme/smartsql-client/pkg/errors"
	"github.com/noah-isme/smartsql-client/pkg/response"
)

// CourseHandler handles the instructor's course endpoints.
type CourseHandler struct {
	store     *repository.LMSStore
	validator *validator.Validate
}

// NewCourseHandler constructs a course handler.
func NewCourseHandler(store *repository.LMSStore, validate *validator.Validate) *CourseHandler {
	return &CourseHandler{store: store, validator: validate}
}

// List godoc
// @Summary List the instructor's courses
// @Tags Courses
// @Produce json
// @Param search query string false "Search keyword"
// @Param sort query string false "name, -name, year or -year"
// @Success 200 {object} response.Envelope
// @Router /instructor/courses/ [get]
func (h *CourseHandler) List(c *gin.Context) {
	filter := repository.CatalogFilter{Search: c.Query("search"), Sort: c.Query("sort")}
	response.Keyed(c, "courses", h.store.InstructorCourses(currentUserID(c), filter))
}

// Get godoc
// @Summary Get course by id
// @Tags Courses
// @Produce json
// @Param id path int true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /instructor/courses/{id}/ [get]
func (h *CourseHandler) Get(c *gin.Context) {
	course, err := h.store.InstructorCourse(currentUserID(c), pathID(c, "id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course)
}

// Create godoc
// @Summary Create course
// @Tags Courses
// @Accept json
// @Produce json
// @Param payload body models.Course true "Course payload"
// @Success 201 {object} response.Envelope
// @Router /instructor/courses/insert/ [post]
func (h *CourseHandler) Create(c *gin.Context) {
	var req models.Course
	if !bindAndValidate(c, h.validator, &req, "Course could not be created.") {
		return
	}
	course, err := h.store.CreateCourse(currentUserID(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, course, "Course created successfully.")
}

// Update godoc
// @Summary Update course
// @Tags Courses
// @Accept json
// @Produce json
// @Param course_id query int true "Course ID"
// @Param payload body models.Course true "Course payload"
// @Success 200 {object} response.Envelope
// @Router /instructor/courses/update/ [put]
func (h *CourseHandler) Update(c *gin.Context) {
	id := queryID(c, "course_id")
	if id.Empty() {
		response.Error(c, appErrors.Validation("course_id is required", map[string]string{"course_id": "is required"}))
		return
	}
	var req models.Course
	if !bindAndValidate(c, h.validator, &req, "Course could not be updated.") {
		return
	}
	course, err := h.store.UpdateCourse(currentUserID(c), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, "Course updated successfully.")
}

// Delete godoc
// @Summary Delete course
// @Description Courses that still have enrolled students are refused with status "error"
// @Tags Courses
// @Produce json
// @Param course_id query int true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /instructor/courses/delete/ [delete]
func (h *CourseHandler) Delete(c *gin.Context) {
	id := queryID(c, "course_id")
	if id.Empty() {
		response.Error(c, appErrors.Validation("course_id is required", map[string]string{"course_id": "is required"}))
		return
	}
	if err := h.store.DeleteCourse(currentUserID(c), id); err != nil {
		writeMutationError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, nil, "Course deleted successfully.")
}

// Modules lists the modules of one owned course.
func (h *CourseHandler) Modules(c *gin.Context) {
	modules, err := h.store.InstructorModules(currentUserID(c), repository.CatalogFilter{CourseID: pathID(c, "id")})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Keyed(c, "modules", modules)
}
