package service

import (
	"strings"
	"time"

	"github.com/noah-isme/smartsql-client/internal/models"
	appErrors "github.com/noah-isme/smartsql-client/pkg/errors"
)

// Routes shared by the shell and the session lifecycle.
const (
	RouteLogin          = "/login"
	RouteSignup         = "/signup"
	RouteInstructorHome = "/teacher"
	RouteStudentHome    = "/student"
)

// MenuItem is one navigation entry.
type MenuItem struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Route string `json:"route"`
}

var instructorMenu = []MenuItem{
	{Key: "dashboard", Label: "Dashboard", Route: RouteInstructorHome},
	{Key: "students", Label: "Student Management", Route: RouteInstructorHome + "/students"},
	{Key: "courses", Label: "Course Management", Route: RouteInstructorHome + "/courses"},
	{Key: "modules", Label: "Module Management", Route: RouteInstructorHome + "/modules"},
	{Key: "exercises", Label: "SQL Exercises", Route: RouteInstructorHome + "/sql-exercises"},
	{Key: "messages", Label: "Messages", Route: RouteInstructorHome + "/messages"},
	{Key: "assistant", Label: "AI Assistant", Route: RouteInstructorHome + "/ai-assistant"},
	{Key: "profile", Label: "Profile", Route: RouteInstructorHome + "/profile"},
}

var studentMenu = []MenuItem{
	{Key: "assistant", Label: "AI Assistant", Route: RouteStudentHome},
	{Key: "courses", Label: "My Courses", Route: RouteStudentHome + "/courses"},
	{Key: "browse", Label: "Browse Courses", Route: RouteStudentHome + "/browse"},
	{Key: "exercises", Label: "Exercises", Route: RouteStudentHome + "/sql"},
	{Key: "messages", Label: "Messages", Route: RouteStudentHome + "/messages"},
	{Key: "profile", Label: "Profile", Route: RouteStudentHome + "/profile"},
}

// Decision is the shell's verdict for one route.
type Decision struct {
	Allowed  bool
	Redirect string
	Identity models.Identity
	Home     string
	Menu     []MenuItem
}

// Shell maps the session's identity onto a menu and route subtree. It is
// the one place where behavior branches on role.
type Shell struct {
	now func() time.Time
}

// NewShell constructs a Shell.
func NewShell() *Shell {
	return &Shell{now: time.Now}
}

// LandingRoute returns the home route for an identity.
func LandingRoute(id models.Identity) string {
	switch id.(type) {
	case models.Instructor:
		return RouteInstructorHome
	case models.Student:
		return RouteStudentHome
	default:
		return RouteLogin
	}
}

// Resolve decides whether path may render for session. Expired tokens count
// as anonymous.
func (s *Shell) Resolve(session models.Session, path string) Decision {
	id := session.Identity()
	if session.Expired(s.now()) {
		id = models.Anonymous{}
	}
	path = cleanRoute(path)

	switch v := id.(type) {
	case models.Anonymous:
		if isPublicRoute(path) {
			return Decision{Allowed: true, Identity: v}
		}
		return Decision{Redirect: RouteLogin, Identity: v}
	case models.Instructor:
		return roleDecision(v, path, RouteInstructorHome, instructorMenu)
	case models.Student:
		return roleDecision(v, path, RouteStudentHome, studentMenu)
	default:
		return Decision{Redirect: RouteLogin, Identity: models.Anonymous{}}
	}
}

// Guard calls fetch only when path is allowed. A redirect returns
// ErrNotAuthenticated or ErrForbidden without touching the network.
func (s *Shell) Guard(session models.Session, path string, fetch func() error) (Decision, error) {
	decision := s.Resolve(session, path)
	if !decision.Allowed {
		if _, anonymous := decision.Identity.(models.Anonymous); anonymous {
			return decision, appErrors.ErrNotAuthenticated
		}
		return decision, appErrors.Clone(appErrors.ErrForbidden, "this page is not available for your role")
	}
	if fetch == nil {
		return decision, nil
	}
	return decision, fetch()
}

func roleDecision(id models.Identity, path, home string, menu []MenuItem) Decision {
	items := make([]MenuItem, len(menu))
	copy(items, menu)
	d := Decision{Identity: id, Home: home, Menu: items}
	switch {
	case path == home || strings.HasPrefix(path, home+"/"):
		d.Allowed = true
	case isPublicRoute(path):
		d.Allowed = true
	default:
		d.Redirect = home
	}
	return d
}

func isPublicRoute(path string) bool {
	return path == "/" || path == RouteLogin || path == RouteSignup
}

func cleanRoute(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	return path
}
