package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/smartsql-client/internal/models"
	"github.com/noah-isme/smartsql-client/internal/repository"
	"github.com/noah-isme/smartsql-client/internal/service"
	"github.com/noah-isme/smartsql-client/pkg/response"
)

// AuthHandler serves login and signup.
type AuthHandler struct {
	store     *repository.LMSStore
	tokens    *service.TokenService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(store *repository.LMSStore, tokens *service.TokenService, validate *validator.Validate, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{store: store, tokens: tokens, validator: validate, logger: logger}
}

// Login godoc
// @Summary Authenticate user
// @Description Exchange a username and password for an access/refresh token pair
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /login/ [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if !bindAndValidate(c, h.validator, &req, "Missing field") {
		return
	}

	profile, err := h.store.Authenticate(req.Username, req.Password)
	if err != nil {
		h.logger.Info("login rejected", zap.String("username", req.Username))
		response.Error(c, err)
		return
	}
	pair, err := h.tokens.Issue(profile.UserID, profile.Username, profile.Role)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, models.LoginData{
		Access:   pair.Access,
		Refresh:  pair.Refresh,
		UserID:   profile.UserID,
		Username: profile.Username,
		Role:     profile.Role,
	}, "Login successful")
}

// Signup godoc
// @Summary Register a student account
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.SignupRequest true "Signup payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /signup/ [post]
func (h *AuthHandler) Signup(c *gin.Context) {
	var req models.SignupRequest
	if !bindAndValidate(c, h.validator, &req, "Registration failed.") {
		return
	}
	role := models.RoleStudent
	if strings.EqualFold(req.UserType, string(models.RoleInstructor)) {
		role = models.RoleInstructor
	}
	profile, err := h.store.CreateUser(req, role)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.logger.Info("user registered", zap.String("user_id", profile.UserID.String()), zap.String("role", string(role)))
	response.Created(c, profile, "Registration successful.")
}
