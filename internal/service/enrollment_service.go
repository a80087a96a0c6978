package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"go.uber.org/zap"

	"github.com/noah-isme/smartsql-client/internal/gateway"
	"github.com/noah-isme/smartsql-client/internal/models"
	appErrors "github.com/noah-isme/smartsql-client/pkg/errors"
)

type enrollmentAPI interface {
	Get(ctx context.Context, path string, query url.Values, out interface{}) error
	Post(ctx context.Context, path string, body, out interface{}) error
}

// EnrollmentService covers the student side of course enrollment.
type EnrollmentService struct {
	api    enrollmentAPI
	logger *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(api enrollmentAPI, logger *zap.Logger) *EnrollmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{api: api, logger: logger}
}

// Browse lists the course catalogue with the caller's enrollment flag.
func (s *EnrollmentService) Browse(ctx context.Context) ([]models.BrowseCourse, error) {
	var raw json.RawMessage
	if err := s.api.Get(ctx, "/student/browse-courses/", nil, &raw); err != nil {
		return nil, err
	}
	var courses []models.BrowseCourse
	if err := gateway.DecodeCollection(raw, "courses", &courses); err != nil {
		return nil, err
	}
	return courses, nil
}

// Enroll joins the caller to courseID. Server rejections such as an
// existing enrollment are returned verbatim.
func (s *EnrollmentService) Enroll(ctx context.Context, courseID models.ID) error {
	if courseID.Empty() {
		return appErrors.Validation("choose a course to enroll in", map[string]string{"course_id": "is required"})
	}
	path := fmt.Sprintf("/student/courses/%s/enroll/", url.PathEscape(courseID.String()))
	if err := s.api.Post(ctx, path, struct{}{}, nil); err != nil {
		s.logger.Info("enrollment rejected", zap.String("course_id", courseID.String()), zap.Error(err))
		return err
	}
	s.logger.Info("enrolled", zap.String("course_id", courseID.String()))
	return nil
}

// Dashboard returns the student landing summary.
func (s *EnrollmentService) Dashboard(ctx context.Context) (models.StudentDashboard, error) {
	var raw json.RawMessage
	if err := s.api.Get(ctx, "/student/dashboard/", nil, &raw); err != nil {
		return models.StudentDashboard{}, err
	}
	var dashboard models.StudentDashboard
	if err := gateway.DecodeData(raw, &dashboard); err != nil {
		return models.StudentDashboard{}, err
	}
	return dashboard, nil
}

// InstructorDashboard returns the instructor landing summary as sent.
func (s *EnrollmentService) InstructorDashboard(ctx context.Context) (map[string]interface{}, error) {
	var raw json.RawMessage
	if err := s.api.Get(ctx, "/instructor/dashboard/", nil, &raw); err != nil {
		return nil, err
	}
	dashboard := map[string]interface{}{}
	if err := gateway.DecodeData(raw, &dashboard); err != nil {
		return nil, err
	}
	return dashboard, nil
}
