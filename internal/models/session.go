package models

import "time"

// Role is the authenticated user's role as reported by the backend.
type Role string

const (
	RoleStudent    Role = "student"
	RoleInstructor Role = "instructor"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleInstructor
}

// Session is the persisted authentication state. Field names follow the
// durable storage keys.
type Session struct {
	Token        string    `json:"access,omitempty"`
	RefreshToken string    `json:"refresh,omitempty"`
	UserID       string    `json:"user_id,omitempty"`
	Username     string    `json:"username,omitempty"`
	Role         Role      `json:"role,omitempty"`
	ExpiresAt    time.Time `json:"-"`
}

// Authenticated reports whether the session carries a complete identity.
func (s Session) Authenticated() bool {
	return s.Token != "" && s.UserID != "" && s.Role.Valid()
}

// Expired reports whether the access token's exp claim has passed.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Equal compares the persisted fields.
func (s Session) Equal(o Session) bool {
	return s.Token == o.Token && s.RefreshToken == o.RefreshToken && s.UserID == o.UserID &&
		s.Username == o.Username && s.Role == o.Role
}

// Identity is the tagged view of a session: Anonymous, Student or Instructor.
type Identity interface {
	identity()
}

// Anonymous is an unauthenticated caller.
type Anonymous struct{}

// Student is an authenticated learner.
type Student struct {
	UserID   string
	Username string
}

// Instructor is an authenticated course owner.
type Instructor struct {
	UserID   string
	Username string
}

func (Anonymous) identity()  {}
func (Student) identity()    {}
func (Instructor) identity() {}

// Identity derives the tagged variant. Incomplete sessions are anonymous.
func (s Session) Identity() Identity {
	if !s.Authenticated() {
		return Anonymous{}
	}
	switch s.Role {
	case RoleInstructor:
		return Instructor{UserID: s.UserID, Username: s.Username}
	default:
		return Student{UserID: s.UserID, Username: s.Username}
	}
}

// LoginRequest holds credentials for /login/.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginData is the data block of a successful login.
type LoginData struct {
	Access   string `json:"access"`
	Refresh  string `json:"refresh"`
	UserID   ID     `json:"user_id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

// SignupRequest registers a new student account.
type SignupRequest struct {
	Username  string `json:"username" validate:"required,min=3,max=50"`
	Password  string `json:"password" validate:"required,min=6"`
	Email     string `json:"email" validate:"required,email"`
	FirstName string `json:"first_name" validate:"max=50"`
	LastName  string `json:"last_name" validate:"max=50"`
	UserType  string `json:"user_type"`
}
