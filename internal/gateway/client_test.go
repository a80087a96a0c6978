package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/smartsql-client/pkg/errors"
)

type recordedObservation struct {
	method string
	path   string
	status int
}

type fakeObserver struct {
	calls []recordedObservation
}

func (f *fakeObserver) ObserveHTTPRequest(method, path string, status int, _ time.Duration) {
	f.calls = append(f.calls, recordedObservation{method: method, path: path, status: status})
}

func newTestClient(t *testing.T, srv *httptest.Server, token string, timeout time.Duration) (*Client, *fakeObserver) {
	t.Helper()
	obs := &fakeObserver{}
	c, err := New(Options{
		BaseURL: srv.URL + "/api/",
		Timeout: timeout,
		Tokens:  TokenFunc(func() string { return token }),
		Metrics: obs,
	})
	require.NoError(t, err)
	return c, obs
}

func TestClientAttachesBearerAndResolvesBaseURL(t *testing.T) {
	var gotAuth, gotPath, gotQuery, gotReqID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotReqID = r.Header.Get("X-Request-ID")
		_, _ = w.Write([]byte(`{"courses":[]}`))
	}))
	defer srv.Close()

	c, obs := newTestClient(t, srv, "tok-123", time.Second)
	var out map[string]interface{}
	err := c.Get(context.Background(), "instructor/courses/", url.Values{"search": {"sql"}}, &out)
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok-123", gotAuth)
	assert.Equal(t, "/api/instructor/courses/", gotPath)
	assert.Equal(t, "search=sql", gotQuery)
	assert.NotEmpty(t, gotReqID)
	require.Len(t, obs.calls, 1)
	assert.Equal(t, http.StatusOK, obs.calls[0].status)
}

func TestClientOmitsAuthorizationWhenAnonymous(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv, "", time.Second)
	require.NoError(t, c.Get(context.Background(), "/student/courses/", nil, nil))
	assert.Empty(t, gotAuth)
}

func TestClientNon2xxBecomesHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"status":"error","message":"not enrolled in this course"}`))
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv, "tok", time.Second)
	err := c.Get(context.Background(), "/student/exercises/4/", nil, nil)
	require.Error(t, err)
	assert.True(t, appErrors.IsHTTP(err))
	assert.Equal(t, http.StatusForbidden, appErrors.StatusOf(err))
	assert.Equal(t, "not enrolled in this course", appErrors.UserMessage(err))
}

func TestClientErrorFieldAndDetailAreServerMessages(t *testing.T) {
	bodies := map[string]string{
		`{"error":"Failed to load messages."}`:  "Failed to load messages.",
		`{"detail":"Authentication required"}`:  "Authentication required",
		`{"error":{"message":"bad recipient"}}`: "bad recipient",
		`not-json`:                              http.StatusText(http.StatusBadRequest),
	}
	for body, want := range bodies {
		body, want := body, want
		t.Run(want, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(body))
			}))
			defer srv.Close()
			c, _ := newTestClient(t, srv, "", time.Second)
			err := c.Post(context.Background(), "/instructor/messages/", map[string]string{"content": "x"}, nil)
			assert.Equal(t, want, appErrors.UserMessage(err))
		})
	}
}

func TestClient2xxWithErrorStatusIsDomainRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"error","message":"cannot delete course with enrolled students"}`))
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv, "tok", time.Second)
	err := c.Delete(context.Background(), "/instructor/courses/delete/", url.Values{"course_id": {"3"}}, nil)
	require.Error(t, err)
	assert.True(t, appErrors.IsDomainRejection(err))
	assert.Equal(t, "cannot delete course with enrolled students", appErrors.UserMessage(err))
}

func TestClientStatusFalseIsDomainRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":false,"message":"already enrolled"}`))
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv, "tok", time.Second)
	err := c.Post(context.Background(), "/student/courses/1/enroll/", nil, nil)
	assert.True(t, appErrors.IsDomainRejection(err))
}

func TestClientTimeoutSurfacesNetworkTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c, _ := newTestClient(t, srv, "", 30*time.Millisecond)
	err := c.Get(context.Background(), "/student/courses/", nil, nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.CodeTimeout, appErrors.FromError(err).Code)
}

func TestClientCallerCancellationIsDistinguishable(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c, _ := newTestClient(t, srv, "", time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	err := c.Get(ctx, "/student/courses/", nil, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClientRawMessageOutput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"success","data":{"x":1}}`))
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv, "", time.Second)
	var raw json.RawMessage
	require.NoError(t, c.Get(context.Background(), "/x/", nil, &raw))
	var out struct {
		X int `json:"x"`
	}
	require.NoError(t, DecodeData(raw, &out))
	assert.Equal(t, 1, out.X)
}

func TestPathTemplate(t *testing.T) {
	assert.Equal(t, "/student/courses/:id/modules/:id/exercises/", PathTemplate("/student/courses/12/modules/7/exercises/"))
	assert.Equal(t, "/instructor/courses/delete/", PathTemplate("/instructor/courses/delete/?course_id=3"))
	assert.Equal(t, "/a/:id/:id", PathTemplate("/a/1/2"))
	assert.Equal(t, "/messages/:id/", PathTemplate("/messages/3f2b8c1e-9d4a-4e6b-8f0a-1c2d3e4f5a6b/"))
	assert.Equal(t, "/student/browse-courses/", PathTemplate("/student/browse-courses/"))
}

func TestNewRequiresBaseURL(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}

func TestClientCarriesFieldErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"error","message":"signup failed","errors":{"username":["already taken"],"email":"invalid"}}`))
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv, "", time.Second)
	err := c.Post(context.Background(), "/signup/", map[string]string{"username": "a"}, nil)
	require.Error(t, err)
	fields := appErrors.FromError(err).Fields
	assert.Equal(t, "already taken", fields["username"])
	assert.Equal(t, "invalid", fields["email"])
}
