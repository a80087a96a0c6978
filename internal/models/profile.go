package models

// Profile is a user's public profile.
type Profile struct {
	UserID    ID     `json:"user_id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Bio       string `json:"bio,omitempty"`
	Role      Role   `json:"role,omitempty"`
}

// ProfileUpdate is the editable subset of a profile.
type ProfileUpdate struct {
	Email     string `json:"email" validate:"required,email"`
	FirstName string `json:"first_name" validate:"max=50"`
	LastName  string `json:"last_name" validate:"max=50"`
	Bio       string `json:"bio" validate:"max=500"`
}
