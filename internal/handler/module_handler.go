package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/smartsql-client/internal/models"
	"github.com/noah-isme/smartsql-client/internal/repository"
	"github.com/noah-isme/smartsql-client/pkg/response"
)

// ModuleHandler handles the instructor's module endpoints.
type ModuleHandler struct {
	store     *repository.LMSStore
	validator *validator.Validate
}

// NewModuleHandler constructs a module handler.
func NewModuleHandler(store *repository.LMSStore, validate *validator.Validate) *ModuleHandler {
	return &ModuleHandler{store: store, validator: validate}
}

// List godoc
// @Summary List modules
// @Tags Modules
// @Produce json
// @Param course_id query int false "Filter by course"
// @Param search query string false "Search keyword"
// @Success 200 {object} response.Envelope
// @Router /instructor/modules/ [get]
func (h *ModuleHandler) List(c *gin.Context) {
	modules, err := h.store.InstructorModules(currentUserID(c), repository.CatalogFilter{
		CourseID: queryID(c, "course_id"),
		Search:   c.Query("search"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Keyed(c, "modules", modules)
}

// Get godoc
// @Summary Get module by id
// @Tags Modules
// @Produce json
// @Param id path int true "Module ID"
// @Success 200 {object} response.Envelope
// @Router /instructor/modules/{id}/ [get]
func (h *ModuleHandler) Get(c *gin.Context) {
	module, err := h.store.InstructorModule(currentUserID(c), pathID(c, "id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, module)
}

// Create godoc
// @Summary Create module
// @Tags Modules
// @Accept json
// @Produce json
// @Param payload body models.Module true "Module payload"
// @Success 201 {object} response.Envelope
// @Router /instructor/modules/ [post]
func (h *ModuleHandler) Create(c *gin.Context) {
	var req models.Module
	if !bindAndValidate(c, h.validator, &req, "Module could not be created.") {
		return
	}
	module, err := h.store.CreateModule(currentUserID(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, module, "Module created successfully.")
}

// Update godoc
// @Summary Update module
// @Tags Modules
// @Accept json
// @Produce json
// @Param id path int true "Module ID"
// @Param payload body models.Module true "Module payload"
// @Success 200 {object} response.Envelope
// @Router /instructor/modules/{id}/ [put]
func (h *ModuleHandler) Update(c *gin.Context) {
	var req models.Module
	if !bindAndValidate(c, h.validator, &req, "Module could not be updated.") {
		return
	}
	module, err := h.store.UpdateModule(currentUserID(c), pathID(c, "id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, module, "Module updated successfully.")
}

// Delete godoc
// @Summary Delete module
// @Description Modules that still have exercises are refused with status "error"
// @Tags Modules
// @Produce json
// @Param id path int true "Module ID"
// @Success 200 {object} response.Envelope
// @Router /instructor/modules/{id}/ [delete]
func (h *ModuleHandler) Delete(c *gin.Context) {
	if err := h.store.DeleteModule(currentUserID(c), pathID(c, "id")); err != nil {
		writeMutationError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, nil, "Module deleted successfully.")
}

// Exercises lists the exercises of one owned module.
func (h *ModuleHandler) Exercises(c *gin.Context) {
	exercises, err := h.store.InstructorExercises(currentUserID(c), repository.CatalogFilter{ModuleID: pathID(c, "id")})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Keyed(c, "exercises", exercises)
}
