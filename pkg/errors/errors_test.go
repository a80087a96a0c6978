package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneMatchesTemplateByCode(t *testing.T) {
	err := Clone(ErrForbidden, "only instructors")
	assert.True(t, errors.Is(err, ErrForbidden))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "forbidden", ErrForbidden.Message)

	wrapped := fmt.Errorf("loading: %w", err)
	assert.True(t, errors.Is(wrapped, ErrForbidden))
	assert.Equal(t, http.StatusForbidden, StatusOf(wrapped))
}

func TestTaxonomy(t *testing.T) {
	v := Validation("invalid exercise", map[string]string{"title": "is required"})
	assert.True(t, IsValidation(v))
	assert.False(t, IsHTTP(v))

	r := Rejection("You are already enrolled in this course.")
	assert.True(t, IsDomainRejection(r))
	assert.False(t, IsHTTP(r))

	h := HTTPStatus(http.StatusNotFound, "")
	assert.True(t, IsHTTP(h))
	assert.Equal(t, "Not Found", h.Message)
	assert.True(t, IsHTTP(Clone(ErrTimeout, "")))
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "", UserMessage(nil))
	assert.Equal(t, "Course not found.", UserMessage(HTTPStatus(http.StatusNotFound, "Course not found.")))
	assert.Equal(t, "invalid (email: must be a valid email; title: is required)",
		UserMessage(Validation("invalid", map[string]string{"title": "is required", "email": "must be a valid email"})))
	assert.Equal(t, "boom", UserMessage(errors.New("boom")))
}
