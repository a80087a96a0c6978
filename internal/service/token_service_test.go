package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/smartsql-client/internal/models"
	appErrors "github.com/noah-isme/smartsql-client/pkg/errors"
)

func TestTokenServiceRoundTrip(t *testing.T) {
	svc := NewTokenService("secret", time.Hour)
	pair, err := svc.Issue("3", "ana", models.RoleStudent)
	require.NoError(t, err)

	claims, err := svc.Verify(pair.Access)
	require.NoError(t, err)
	assert.Equal(t, models.ID("3"), claims.UserID)
	assert.Equal(t, models.RoleStudent, claims.Role)
	assert.NotEmpty(t, claims.ID)

	assert.WithinDuration(t, pair.ExpiresAt, tokenExpiry(pair.Access), time.Second)
}

func TestTokenServiceRejectsRefreshAndForeignTokens(t *testing.T) {
	svc := NewTokenService("secret", time.Hour)
	pair, err := svc.Issue("1", "prof", models.RoleInstructor)
	require.NoError(t, err)

	_, err = svc.Verify(pair.Refresh)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	other := NewTokenService("another-secret", time.Hour)
	_, err = other.Verify(pair.Access)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestTokenServiceRejectsExpired(t *testing.T) {
	svc := NewTokenService("secret", time.Minute)
	issued := time.Now().Add(-time.Hour)
	svc.now = func() time.Time { return issued }
	pair, err := svc.Issue("3", "ana", models.RoleStudent)
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.Verify(pair.Access)
	require.Error(t, err)
	assert.Equal(t, "Token is expired", appErrors.FromError(err).Message)
}
