package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/smartsql-client/pkg/errors"
)

func testContext() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, rec
}

func TestErrorRendersFieldLists(t *testing.T) {
	c, rec := testContext()
	Error(c, appErrors.Validation("invalid signup", map[string]string{"username": "is required"}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, StatusError, env.Status)
	assert.Equal(t, "invalid signup", env.Message)
	assert.Equal(t, []string{"is required"}, env.Errors["username"])
}

func TestErrorWithoutStatusIsInternal(t *testing.T) {
	c, rec := testContext()
	Error(c, errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	c, rec = testContext()
	Error(c, appErrors.ErrNetwork)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRejectIsOKWithErrorStatus(t *testing.T) {
	c, rec := testContext()
	Reject(c, "Cannot delete a course with enrolled students.")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"error","message":"Cannot delete a course with enrolled students."}`, rec.Body.String())
}

func TestKeyed(t *testing.T) {
	c, rec := testContext()
	Keyed(c, "courses", []int{1, 2})
	assert.JSONEq(t, `{"status":"success","courses":[1,2]}`, rec.Body.String())
}
