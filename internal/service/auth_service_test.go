package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/smartsql-client/internal/models"
	appErrors "github.com/noah-isme/smartsql-client/pkg/errors"
)

type memorySessionRepo struct {
	mu      sync.Mutex
	session models.Session
	saves   int
	clears  int
	loadErr error
}

func (m *memorySessionRepo) Load(ctx context.Context) (models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return models.Session{}, m.loadErr
	}
	return m.session, nil
}

func (m *memorySessionRepo) Save(ctx context.Context, session models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	m.session = session
	return nil
}

func (m *memorySessionRepo) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clears++
	m.session = models.Session{}
	return nil
}

func (m *memorySessionRepo) set(session models.Session) {
	m.mu.Lock()
	m.session = session
	m.mu.Unlock()
}

type stubAuthAPI struct {
	body  string
	err   error
	calls []string
	sent  []interface{}
}

func (s *stubAuthAPI) Post(ctx context.Context, path string, body, out interface{}) error {
	s.calls = append(s.calls, path)
	s.sent = append(s.sent, body)
	if s.err != nil {
		return s.err
	}
	if raw, ok := out.(*json.RawMessage); ok {
		*raw = json.RawMessage(s.body)
	}
	return nil
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "1", "exp": exp.Unix()})
	signed, err := token.SignedString([]byte("k"))
	require.NoError(t, err)
	return signed
}

func TestAuthServiceLoginInstructor(t *testing.T) {
	repo := &memorySessionRepo{}
	token := signedToken(t, time.Now().Add(time.Hour))
	api := &stubAuthAPI{body: `{"status":"success","data":{"access":"` + token + `","refresh":"r1","user_id":3,"username":"prof","role":"instructor"}}`}
	svc := NewAuthService(repo, api, nil, nil)

	var notified []models.Session
	svc.Subscribe(func(s models.Session) { notified = append(notified, s) })

	route, err := svc.Login(context.Background(), models.LoginRequest{Username: "prof", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, RouteInstructorHome, route)

	current := svc.Current()
	assert.Equal(t, models.RoleInstructor, current.Role)
	assert.Equal(t, token, current.Token)
	assert.Equal(t, "3", current.UserID)
	assert.False(t, current.ExpiresAt.IsZero())
	assert.True(t, svc.Active())
	assert.Equal(t, token, svc.Token())
	assert.IsType(t, models.Instructor{}, current.Identity())

	assert.Equal(t, 1, repo.saves)
	assert.True(t, current.Equal(repo.session))
	require.Len(t, notified, 1)
	assert.Equal(t, models.RoleInstructor, notified[0].Role)
}

func TestAuthServiceLoginFailureLeavesSessionUnchanged(t *testing.T) {
	previous := models.Session{Token: "old", UserID: "9", Username: "stu", Role: models.RoleStudent}
	cases := map[string]*stubAuthAPI{
		"http error":     {err: appErrors.HTTPStatus(http.StatusUnauthorized, "Invalid credentials")},
		"status failed":  {body: `{"status":"failed","message":"Invalid credentials"}`},
		"missing role":   {body: `{"status":"success","data":{"access":"a","user_id":1,"username":"x"}}`},
		"missing data":   {body: `{"status":"success"}`},
		"malformed body": {body: `<html>`},
	}
	for name, api := range cases {
		api := api
		t.Run(name, func(t *testing.T) {
			repo := &memorySessionRepo{session: previous}
			svc := NewAuthService(repo, api, nil, nil)
			_, err := svc.Restore(context.Background())
			require.NoError(t, err)
			notified := 0
			svc.Subscribe(func(models.Session) { notified++ })

			route, err := svc.Login(context.Background(), models.LoginRequest{Username: "stu", Password: "wrong"})
			require.Error(t, err)
			assert.Empty(t, route)
			assert.NotEmpty(t, appErrors.UserMessage(err))
			assert.True(t, previous.Equal(svc.Current()))
			assert.Equal(t, 0, repo.saves)
			assert.Equal(t, 0, notified)
		})
	}
}

func TestAuthServiceLoginFailureFromAnonymousStaysAnonymous(t *testing.T) {
	svc := NewAuthService(&memorySessionRepo{}, &stubAuthAPI{body: `{"status":"error","message":"Invalid credentials"}`}, nil, nil)
	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "a", Password: "b"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)
	assert.Equal(t, "Invalid credentials", appErrors.UserMessage(err))
	assert.Empty(t, svc.Current().Token)
	assert.IsType(t, models.Anonymous{}, svc.Current().Identity())
}

func TestAuthServiceLoginValidatesBeforeNetwork(t *testing.T) {
	api := &stubAuthAPI{}
	svc := NewAuthService(&memorySessionRepo{}, api, nil, nil)
	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "  "})
	require.Error(t, err)
	assert.True(t, appErrors.IsValidation(err))
	fields := appErrors.FromError(err).Fields
	assert.Equal(t, "is required", fields["username"])
	assert.Equal(t, "is required", fields["password"])
	assert.Empty(t, api.calls)
}

func TestAuthServiceLogout(t *testing.T) {
	repo := &memorySessionRepo{session: studentSession()}
	svc := NewAuthService(repo, &stubAuthAPI{}, nil, nil)
	_, err := svc.Restore(context.Background())
	require.NoError(t, err)

	var last *models.Session
	svc.Subscribe(func(s models.Session) { last = &s })

	route, err := svc.Logout(context.Background())
	require.NoError(t, err)
	assert.Equal(t, RouteLogin, route)
	assert.Equal(t, 1, repo.clears)
	assert.False(t, svc.Current().Authenticated())
	require.NotNil(t, last)
	assert.Empty(t, last.Token)
}

func TestAuthServiceReconcileAdoptsExternalChange(t *testing.T) {
	repo := &memorySessionRepo{session: studentSession()}
	svc := NewAuthService(repo, &stubAuthAPI{}, nil, nil)
	_, err := svc.Restore(context.Background())
	require.NoError(t, err)

	notified := 0
	unsubscribe := svc.Subscribe(func(models.Session) { notified++ })

	changed, err := svc.Reconcile(context.Background())
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, 0, notified)

	repo.set(models.Session{})
	changed, err = svc.Reconcile(context.Background())
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 1, notified)
	assert.False(t, svc.Current().Authenticated())

	unsubscribe()
	repo.set(instructorSession())
	changed, err = svc.Reconcile(context.Background())
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 1, notified)
}

func TestAuthServiceReconcileLoadError(t *testing.T) {
	repo := &memorySessionRepo{loadErr: errors.New("disk gone")}
	svc := NewAuthService(repo, &stubAuthAPI{}, nil, nil)
	_, err := svc.Reconcile(context.Background())
	assert.Error(t, err)
}

func TestAuthServiceWatchPicksUpExternalLogout(t *testing.T) {
	repo := &memorySessionRepo{session: studentSession()}
	svc := NewAuthService(repo, &stubAuthAPI{}, nil, nil)
	_, err := svc.Restore(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Watch(ctx, 5*time.Millisecond)
		close(done)
	}()

	repo.set(models.Session{})
	assert.Eventually(t, func() bool { return !svc.Current().Authenticated() }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestAuthServiceExpiredTokenIsInactive(t *testing.T) {
	session := studentSession()
	session.Token = signedToken(t, time.Now().Add(-time.Minute))
	svc := NewAuthService(&memorySessionRepo{session: session}, &stubAuthAPI{}, nil, nil)
	restored, err := svc.Restore(context.Background())
	require.NoError(t, err)
	assert.True(t, restored.Authenticated())
	assert.False(t, svc.Active())
}

func TestAuthServiceSignupMapsServerFieldErrors(t *testing.T) {
	rejection := appErrors.Rejection("Registration failed")
	rejection.Fields = map[string]string{"username": "A user with that username already exists."}
	api := &stubAuthAPI{err: rejection}
	svc := NewAuthService(&memorySessionRepo{}, api, nil, nil)

	err := svc.Signup(context.Background(), models.SignupRequest{Username: "alice", Password: "secret1", Email: "a@example.com"})
	require.Error(t, err)
	assert.True(t, appErrors.IsValidation(err))
	assert.Equal(t, "A user with that username already exists.", appErrors.FromError(err).Fields["username"])

	require.Len(t, api.sent, 1)
	assert.Equal(t, "Student", api.sent[0].(models.SignupRequest).UserType)
}

func TestAuthServiceSignupLocalValidation(t *testing.T) {
	api := &stubAuthAPI{}
	svc := NewAuthService(&memorySessionRepo{}, api, nil, nil)
	err := svc.Signup(context.Background(), models.SignupRequest{Username: "al", Password: "123", Email: "nope"})
	require.Error(t, err)
	fields := appErrors.FromError(err).Fields
	assert.Contains(t, fields, "username")
	assert.Contains(t, fields, "password")
	assert.Equal(t, "must be a valid email address", fields["email"])
	assert.Empty(t, api.calls)
}
