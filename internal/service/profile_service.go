package service

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/smartsql-client/internal/gateway"
	"github.com/noah-isme/smartsql-client/internal/models"
	appErrors "github.com/noah-isme/smartsql-client/pkg/errors"
)

type profileAPI interface {
	Get(ctx context.Context, path string, query url.Values, out interface{}) error
	Put(ctx context.Context, path string, query url.Values, body, out interface{}) error
}

// ProfileService reads and edits user profiles.
type ProfileService struct {
	api       profileAPI
	validator *validator.Validate
	logger    *zap.Logger
}

// NewProfileService constructs ProfileService.
func NewProfileService(api profileAPI, validate *validator.Validate, logger *zap.Logger) *ProfileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	return &ProfileService{api: api, validator: validate, logger: logger}
}

// Get returns the profile of userID.
func (s *ProfileService) Get(ctx context.Context, userID models.ID) (models.Profile, error) {
	if userID.Empty() {
		return models.Profile{}, appErrors.Clone(appErrors.ErrValidation, "user id is required")
	}
	var raw json.RawMessage
	if err := s.api.Get(ctx, "/users/profile/", url.Values{"user_id": {userID.String()}}, &raw); err != nil {
		return models.Profile{}, err
	}
	var profile models.Profile
	if err := gateway.DecodeData(raw, &profile); err != nil {
		return models.Profile{}, err
	}
	if profile.UserID.Empty() {
		profile.UserID = userID
	}
	return profile, nil
}

// Update saves the caller's editable profile fields.
func (s *ProfileService) Update(ctx context.Context, form models.ProfileUpdate) error {
	form.Email = strings.TrimSpace(form.Email)
	form.FirstName = strings.TrimSpace(form.FirstName)
	form.LastName = strings.TrimSpace(form.LastName)
	if err := s.validator.Struct(form); err != nil {
		return ValidationError(err, "please correct the highlighted fields")
	}
	if err := s.api.Put(ctx, "/users/profile/update/", nil, form, nil); err != nil {
		s.logger.Info("profile update failed", zap.Error(err))
		return err
	}
	return nil
}
