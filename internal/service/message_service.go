package service

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/smartsql-client/internal/gateway"
	"github.com/noah-isme/smartsql-client/internal/models"
)

// MessageService sends announcements and direct messages and reads inboxes.
// The instructor's own message list is a ListController over
// InstructorMessageResource.
type MessageService struct {
	api       restAPI
	validator *validator.Validate
	logger    *zap.Logger
}

// NewMessageService constructs MessageService.
func NewMessageService(api restAPI, validate *validator.Validate, logger *zap.Logger) *MessageService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	return &MessageService{api: api, validator: validate, logger: logger}
}

// Recipients lists the students and courses an instructor can address.
func (s *MessageService) Recipients(ctx context.Context) (models.Recipients, error) {
	var raw json.RawMessage
	if err := s.api.Get(ctx, "/instructor/recipients/", nil, &raw); err != nil {
		return models.Recipients{}, err
	}
	var recipients models.Recipients
	if err := gateway.DecodeData(raw, &recipients); err != nil {
		return models.Recipients{}, err
	}
	return recipients, nil
}

// Drafts returns an edit controller for instructor messages. list, when
// set, is refreshed after each message is sent.
func (s *MessageService) Drafts(list Refresher) *EditController[models.MessageDraft, models.MessageDraft] {
	return NewEditController[models.MessageDraft, models.MessageDraft](s.api, MessageDraftResource(), MessageDraftForm(), list, s.validator, s.logger)
}

// Send posts an instructor message. A private message needs a receiver; an
// announcement without a course goes to every course.
func (s *MessageService) Send(ctx context.Context, draft models.MessageDraft) error {
	drafts := s.Drafts(nil)
	drafts.OpenCreate()
	if err := drafts.Submit(ctx, draft); err != nil {
		s.logger.Info("message not sent", zap.String("type", string(draft.Type)), zap.Error(err))
		return err
	}
	return nil
}

// Inbox lists messages addressed to the student, announcements included.
func (s *MessageService) Inbox(ctx context.Context) ([]models.Message, error) {
	var raw json.RawMessage
	if err := s.api.Get(ctx, StudentMessageResource().ListPath, nil, &raw); err != nil {
		return nil, err
	}
	var messages []models.Message
	if err := gateway.DecodeCollection(raw, "messages", &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// Direct sends a message from a profile page to any user.
func (s *MessageService) Direct(ctx context.Context, msg models.DirectMessage) error {
	msg.Content = strings.TrimSpace(msg.Content)
	if err := s.validator.Struct(msg); err != nil {
		return ValidationError(err, "please correct the message")
	}
	return s.api.Post(ctx, "/messages/", msg, nil)
}
