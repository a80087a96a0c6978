package service

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/noah-isme/smartsql-client/internal/gateway"
	"github.com/noah-isme/smartsql-client/internal/models"
	appErrors "github.com/noah-isme/smartsql-client/pkg/errors"
)

// Authentication endpoints.
const (
	loginPath  = "/login/"
	signupPath = "/signup/"
)

// SessionRepository persists the session between runs.
type SessionRepository interface {
	Load(ctx context.Context) (models.Session, error)
	Save(ctx context.Context, session models.Session) error
	Clear(ctx context.Context) error
}

type authAPI interface {
	Post(ctx context.Context, path string, body, out interface{}) error
}

// AuthService owns the session. It is the only writer of session state;
// everything else reads copies through Current or a subscription.
type AuthService struct {
	repo      SessionRepository
	api       authAPI
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time

	mu      sync.RWMutex
	session models.Session

	subMu       sync.Mutex
	subscribers map[int]func(models.Session)
	nextSubID   int
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(repo SessionRepository, api authAPI, validate *validator.Validate, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	return &AuthService{
		repo:        repo,
		api:         api,
		validator:   validate,
		logger:      logger,
		now:         time.Now,
		subscribers: make(map[int]func(models.Session)),
	}
}

// Restore loads the durable session into memory.
func (s *AuthService) Restore(ctx context.Context) (models.Session, error) {
	stored, err := s.repo.Load(ctx)
	if err != nil {
		return models.Session{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	stored.ExpiresAt = tokenExpiry(stored.Token)
	s.mu.Lock()
	s.session = stored
	s.mu.Unlock()
	return stored, nil
}

// Current returns a copy of the in-memory session.
func (s *AuthService) Current() models.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

// Token implements gateway.TokenSource.
func (s *AuthService) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.Token
}

// Active reports whether the current session is authenticated and unexpired.
func (s *AuthService) Active() bool {
	current := s.Current()
	return current.Authenticated() && !current.Expired(s.now())
}

// Subscribe registers fn to be called after every session change. The
// returned function removes the subscription.
func (s *AuthService) Subscribe(fn func(models.Session)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	return func() {
		s.subMu.Lock()
		delete(s.subscribers, id)
		s.subMu.Unlock()
	}
}

// Login authenticates against the backend. Storage and memory change only
// after a complete success response; on failure the previous session stays
// in place. Returns the landing route for the new identity.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (string, error) {
	req.Username = strings.TrimSpace(req.Username)
	if err := s.validator.Struct(req); err != nil {
		return "", ValidationError(err, "invalid login payload")
	}

	var raw json.RawMessage
	if err := s.api.Post(ctx, loginPath, req, &raw); err != nil {
		s.logger.Info("login failed", zap.String("username", req.Username), zap.Error(err))
		return "", err
	}

	session, err := sessionFromLogin(raw)
	if err != nil {
		return "", err
	}
	session.ExpiresAt = tokenExpiry(session.Token)

	if err := s.repo.Save(ctx, session); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist session")
	}
	s.replace(session)
	s.logger.Info("login succeeded", zap.String("user_id", session.UserID), zap.String("role", string(session.Role)))
	return LandingRoute(session.Identity()), nil
}

func sessionFromLogin(raw json.RawMessage) (models.Session, error) {
	var env struct {
		Status  string            `json:"status"`
		Message string            `json:"message"`
		Data    *models.LoginData `json:"data"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return models.Session{}, appErrors.Wrap(err, appErrors.CodeHTTP, appErrors.ErrHTTP.Status, "unexpected response from server")
	}
	if !strings.EqualFold(env.Status, "success") || env.Data == nil {
		msg := strings.TrimSpace(env.Message)
		if msg == "" {
			msg = appErrors.ErrInvalidCredentials.Message
		}
		return models.Session{}, appErrors.Clone(appErrors.ErrInvalidCredentials, msg)
	}
	session := models.Session{
		Token:        env.Data.Access,
		RefreshToken: env.Data.Refresh,
		UserID:       env.Data.UserID.String(),
		Username:     env.Data.Username,
		Role:         models.Role(strings.ToLower(string(env.Data.Role))),
	}
	if !session.Authenticated() {
		return models.Session{}, appErrors.Clone(appErrors.ErrHTTP, "incomplete login response")
	}
	return session, nil
}

// Logout clears storage and memory and returns the login route. The
// in-memory session is cleared even if storage fails.
func (s *AuthService) Logout(ctx context.Context) (string, error) {
	err := s.repo.Clear(ctx)
	s.replace(models.Session{})
	if err != nil {
		return RouteLogin, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear session")
	}
	return RouteLogin, nil
}

// Reconcile re-reads durable storage and adopts it when another process
// changed it. Reports whether the in-memory session changed.
func (s *AuthService) Reconcile(ctx context.Context) (bool, error) {
	stored, err := s.repo.Load(ctx)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	if stored.Equal(s.Current()) {
		return false, nil
	}
	stored.ExpiresAt = tokenExpiry(stored.Token)
	s.replace(stored)
	s.logger.Debug("session changed in storage", zap.String("user_id", stored.UserID))
	return true, nil
}

// Watch reconciles on every tick until ctx is done.
func (s *AuthService) Watch(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Reconcile(ctx); err != nil {
				s.logger.Warn("session reconcile failed", zap.Error(err))
			}
		}
	}
}

// Signup registers a student account. Field errors reported by the server
// come back as a validation error keyed by field name.
func (s *AuthService) Signup(ctx context.Context, req models.SignupRequest) error {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	req.UserType = "Student"
	if err := s.validator.Struct(req); err != nil {
		return ValidationError(err, "invalid signup payload")
	}
	if err := s.api.Post(ctx, signupPath, req, nil); err != nil {
		if e := appErrors.FromError(err); len(e.Fields) > 0 {
			return appErrors.Validation(e.Message, e.Fields)
		}
		return err
	}
	return nil
}

func (s *AuthService) replace(session models.Session) {
	s.mu.Lock()
	s.session = session
	s.mu.Unlock()
	s.notify(session)
}

func (s *AuthService) notify(session models.Session) {
	s.subMu.Lock()
	subs := make([]func(models.Session), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	s.subMu.Unlock()
	for _, fn := range subs {
		fn(session)
	}
}

// tokenExpiry reads the exp claim without verifying the signature; the
// backend remains the authority on validity. Opaque tokens never expire.
func tokenExpiry(token string) time.Time {
	if token == "" {
		return time.Time{}
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

var _ gateway.TokenSource = (*AuthService)(nil)
