package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/smartsql-client/internal/models"
	"github.com/noah-isme/smartsql-client/pkg/storage"
)

// SessionFileName is the document holding the persisted session.
const SessionFileName = "session.json"

// SessionFileRepository persists the session as an owner-only JSON document.
type SessionFileRepository struct {
	store  *storage.LocalStorage
	logger *zap.Logger
}

// NewSessionFileRepository constructs a file-backed session repository.
func NewSessionFileRepository(store *storage.LocalStorage, logger *zap.Logger) *SessionFileRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionFileRepository{store: store, logger: logger}
}

// Load returns the stored session. A missing or unreadable document yields an
// empty session.
func (r *SessionFileRepository) Load(ctx context.Context) (models.Session, error) {
	raw, err := r.store.Read(SessionFileName)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.Session{}, nil
		}
		return models.Session{}, fmt.Errorf("load session: %w", err)
	}

	var session models.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		r.logger.Warn("discarding corrupt session file", zap.String("path", r.store.Path(SessionFileName)), zap.Error(err))
		return models.Session{}, nil
	}
	return session, nil
}

// Save replaces the stored session.
func (r *SessionFileRepository) Save(ctx context.Context, session models.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := r.store.SavePrivate(SessionFileName, payload); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Clear removes the stored session.
func (r *SessionFileRepository) Clear(ctx context.Context) error {
	if err := r.store.Delete(SessionFileName); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
