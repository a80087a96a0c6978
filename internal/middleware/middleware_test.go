package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/smartsql-client/internal/models"
	appErrors "github.com/noah-isme/smartsql-client/pkg/errors"
)

type staticVerifier map[string]*models.AccessClaims

func (v staticVerifier) Verify(token string) (*models.AccessClaims, error) {
	if claims, ok := v[token]; ok {
		return claims, nil
	}
	return nil, appErrors.Clone(appErrors.ErrUnauthorized, "Given token not valid for any token type")
}

type recordedRequest struct {
	method, path string
	status       int
}

type fakeObserver struct{ seen []recordedRequest }

func (f *fakeObserver) ObserveHTTPRequest(method, path string, status int, _ time.Duration) {
	f.seen = append(f.seen, recordedRequest{method, path, status})
}

func newRouter(obs *fakeObserver, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	verifier := staticVerifier{
		"student-token":    {UserID: "3", Username: "ana", Role: models.RoleStudent},
		"instructor-token": {UserID: "1", Username: "prof", Role: models.RoleInstructor},
	}
	r := gin.New()
	r.Use(Metrics(obs))
	api := r.Group("/api", JWT(verifier))
	api.GET("/student/courses/", RequireRoles(models.RoleStudent), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": CurrentUser(c).Username})
	})
	api.POST("/instructor/courses/insert/", RequireRoles(models.RoleInstructor), Audit(logger, "create", "course"), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})
	return r
}

func serve(r *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestJWTRejectsMissingAndInvalidTokens(t *testing.T) {
	r := newRouter(&fakeObserver{}, nil)

	rec := serve(r, http.MethodGet, "/api/student/courses/", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Authentication credentials were not provided.")

	rec = serve(r, http.MethodGet, "/api/student/courses/", "forged")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"error"`)
}

func TestRequireRoles(t *testing.T) {
	r := newRouter(&fakeObserver{}, nil)

	rec := serve(r, http.MethodGet, "/api/student/courses/", "student-token")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user":"ana"}`, rec.Body.String())

	rec = serve(r, http.MethodGet, "/api/student/courses/", "instructor-token")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "only available to students")
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	obs := &fakeObserver{}
	r := newRouter(obs, nil)

	serve(r, http.MethodGet, "/api/student/courses/", "student-token")
	serve(r, http.MethodGet, "/api/nowhere/", "student-token")

	require.Len(t, obs.seen, 2)
	assert.Equal(t, recordedRequest{http.MethodGet, "/api/student/courses/", http.StatusOK}, obs.seen[0])
	assert.Equal(t, "unmatched", obs.seen[1].path)
	assert.Equal(t, http.StatusNotFound, obs.seen[1].status)
}

func TestAuditLogsSuccessfulMutations(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := newRouter(&fakeObserver{}, zap.New(core))

	serve(r, http.MethodPost, "/api/instructor/courses/insert/", "instructor-token")
	serve(r, http.MethodPost, "/api/instructor/courses/insert/", "student-token")

	entries := logs.FilterMessage("audit").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "create", fields["action"])
	assert.Equal(t, "course", fields["resource"])
	assert.Equal(t, "1", fields["user_id"])
}

func TestMetricsSkipsScrapes(t *testing.T) {
	obs := &fakeObserver{}
	r := newRouter(obs, nil)
	r.GET("/metrics", func(c *gin.Context) { c.Status(http.StatusOK) })

	serve(r, http.MethodGet, "/metrics", "")
	assert.Empty(t, obs.seen)
}
