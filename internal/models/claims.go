package models

import "github.com/golang-jwt/jwt/v5"

// Token types carried in the token_type claim.
const (
	TokenAccess  = "access"
	TokenRefresh = "refresh"
)

// AccessClaims is the JWT payload issued by the development backend.
type AccessClaims struct {
	UserID    ID     `json:"user_id"`
	Username  string `json:"username"`
	Role      Role   `json:"role"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}
