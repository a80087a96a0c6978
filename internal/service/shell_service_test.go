package service

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/smartsql-client/internal/models"
	appErrors "github.com/noah-isme/smartsql-client/pkg/errors"
)

func instructorSession() models.Session {
	return models.Session{Token: "t", UserID: "1", Username: "prof", Role: models.RoleInstructor}
}

func studentSession() models.Session {
	return models.Session{Token: "t", UserID: "2", Username: "stu", Role: models.RoleStudent}
}

func TestShellAnonymousRedirectsBeforeFetch(t *testing.T) {
	shell := NewShell()
	fetched := false

	decision, err := shell.Guard(models.Session{}, "/teacher/courses", func() error {
		fetched = true
		return nil
	})
	assert.ErrorIs(t, err, appErrors.ErrNotAuthenticated)
	assert.False(t, fetched)
	assert.Equal(t, RouteLogin, decision.Redirect)
	assert.Empty(t, decision.Menu)
}

func TestShellExpiredTokenIsAnonymous(t *testing.T) {
	shell := NewShell()
	session := studentSession()
	session.ExpiresAt = time.Now().Add(-time.Minute)

	decision := shell.Resolve(session, "/student/courses")
	assert.False(t, decision.Allowed)
	assert.Equal(t, RouteLogin, decision.Redirect)
}

func TestShellInstructorMenuAndSubtree(t *testing.T) {
	shell := NewShell()
	decision := shell.Resolve(instructorSession(), "/teacher/courses/")
	require.True(t, decision.Allowed)
	assert.IsType(t, models.Instructor{}, decision.Identity)
	assert.Equal(t, RouteInstructorHome, decision.Home)
	assert.Equal(t, "Dashboard", decision.Menu[0].Label)
	assert.Len(t, decision.Menu, len(instructorMenu))

	decision = shell.Resolve(instructorSession(), "/student/sql")
	assert.False(t, decision.Allowed)
	assert.Equal(t, RouteInstructorHome, decision.Redirect)
}

func TestShellStudentCannotReachInstructorSubtree(t *testing.T) {
	shell := NewShell()
	fetched := false
	decision, err := shell.Guard(studentSession(), "/teacher/students", func() error {
		fetched = true
		return nil
	})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
	assert.False(t, fetched)
	assert.Equal(t, RouteStudentHome, decision.Redirect)
	assert.Equal(t, "AI Assistant", decision.Menu[0].Label)
}

func TestShellGuardPropagatesFetchError(t *testing.T) {
	shell := NewShell()
	boom := errors.New("boom")
	_, err := shell.Guard(studentSession(), "/student", func() error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestLandingRoute(t *testing.T) {
	assert.Equal(t, RouteInstructorHome, LandingRoute(instructorSession().Identity()))
	assert.Equal(t, RouteStudentHome, LandingRoute(studentSession().Identity()))
	assert.Equal(t, RouteLogin, LandingRoute(models.Session{}.Identity()))
}
