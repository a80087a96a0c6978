package repository

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/smartsql-client/internal/models"
)

// Session hash fields.
const (
	sessionFieldAccess   = "access"
	sessionFieldRefresh  = "refresh"
	sessionFieldUserID   = "user_id"
	sessionFieldUsername = "username"
	sessionFieldRole     = "role"
)

// SessionHashClient is the subset of the Redis API the repository needs.
type SessionHashClient interface {
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// SessionRedisRepository stores the session in a Redis hash so several
// terminals can share one login.
type SessionRedisRepository struct {
	client SessionHashClient
	key    string
	logger *zap.Logger
}

// NewSessionRedisRepository constructs a Redis-backed session repository.
func NewSessionRedisRepository(client SessionHashClient, key string, logger *zap.Logger) *SessionRedisRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	if key == "" {
		key = "smartsql:session"
	}
	return &SessionRedisRepository{client: client, key: key, logger: logger}
}

// Load reads the session hash. A missing key yields an empty session.
func (r *SessionRedisRepository) Load(ctx context.Context) (models.Session, error) {
	if r.client == nil {
		return models.Session{}, nil
	}
	values, err := r.client.HGetAll(ctx, r.key).Result()
	if err != nil {
		if err == redis.Nil {
			return models.Session{}, nil
		}
		return models.Session{}, fmt.Errorf("redis hgetall %s: %w", r.key, err)
	}
	return models.Session{
		Token:        values[sessionFieldAccess],
		RefreshToken: values[sessionFieldRefresh],
		UserID:       values[sessionFieldUserID],
		Username:     values[sessionFieldUsername],
		Role:         models.Role(values[sessionFieldRole]),
	}, nil
}

// Save replaces the session hash.
func (r *SessionRedisRepository) Save(ctx context.Context, session models.Session) error {
	if r.client == nil {
		return nil
	}
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("redis delete %s: %w", r.key, err)
	}
	err := r.client.HSet(ctx, r.key,
		sessionFieldAccess, session.Token,
		sessionFieldRefresh, session.RefreshToken,
		sessionFieldUserID, session.UserID,
		sessionFieldUsername, session.Username,
		sessionFieldRole, string(session.Role),
	).Err()
	if err != nil {
		return fmt.Errorf("redis hset %s: %w", r.key, err)
	}
	return nil
}

// Clear deletes the session hash.
func (r *SessionRedisRepository) Clear(ctx context.Context) error {
	if r.client == nil {
		return nil
	}
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("redis delete %s: %w", r.key, err)
	}
	return nil
}
