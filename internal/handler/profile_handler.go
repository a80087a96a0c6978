package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/smartsql-client/internal/models"
	"github.com/noah-isme/smartsql-client/internal/repository"
	"github.com/noah-isme/smartsql-client/pkg/response"
)

// ProfileHandler serves user profiles.
type ProfileHandler struct {
	store     *repository.LMSStore
	validator *validator.Validate
}

// NewProfileHandler constructs a profile handler.
func NewProfileHandler(store *repository.LMSStore, validate *validator.Validate) *ProfileHandler {
	return &ProfileHandler{store: store, validator: validate}
}

// Get godoc
// @Summary Get a profile
// @Tags Profile
// @Produce json
// @Param user_id query int false "User ID, defaults to the caller"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /users/profile/ [get]
func (h *ProfileHandler) Get(c *gin.Context) {
	userID := queryID(c, "user_id")
	if userID.Empty() {
		userID = currentUserID(c)
	}
	profile, err := h.store.Profile(userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile)
}

// Update godoc
// @Summary Update the caller's profile
// @Tags Profile
// @Accept json
// @Produce json
// @Param payload body models.ProfileUpdate true "Profile payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /users/profile/update/ [put]
func (h *ProfileHandler) Update(c *gin.Context) {
	var req models.ProfileUpdate
	if !bindAndValidate(c, h.validator, &req, "Profile could not be updated.") {
		return
	}
	profile, err := h.store.UpdateProfile(currentUserID(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile, "Profile updated successfully.")
}
