package service

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/noah-isme/smartsql-client/internal/models"
	appErrors "github.com/noah-isme/smartsql-client/pkg/errors"
)

const refreshTokenTTL = 7 * 24 * time.Hour

// TokenPair is a freshly issued access/refresh pair.
type TokenPair struct {
	Access    string
	Refresh   string
	ExpiresAt time.Time
}

// TokenService issues and verifies HS256 tokens for the development backend.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// NewTokenService constructs a TokenService. A non-positive ttl defaults to one hour.
func NewTokenService(secret string, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TokenService{secret: []byte(secret), ttl: ttl, issuer: "smartsql-mock", now: time.Now}
}

// Issue signs an access and a refresh token for the user.
func (s *TokenService) Issue(userID models.ID, username string, role models.Role) (TokenPair, error) {
	now := s.now().UTC()
	access, err := s.sign(userID, username, role, models.TokenAccess, now, now.Add(s.ttl))
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.sign(userID, username, role, models.TokenRefresh, now, now.Add(refreshTokenTTL))
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{Access: access, Refresh: refresh, ExpiresAt: now.Add(s.ttl)}, nil
}

func (s *TokenService) sign(userID models.ID, username string, role models.Role, kind string, now, exp time.Time) (string, error) {
	claims := models.AccessClaims{
		UserID:    userID,
		Username:  username,
		Role:      role,
		TokenType: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign token")
	}
	return token, nil
}

// Verify parses an access token. Refresh tokens, expired tokens and tokens
// signed with another key are rejected as unauthorized.
func (s *TokenService) Verify(token string) (*models.AccessClaims, error) {
	claims := &models.AccessClaims{}
	parsed, err := jwt.ParseWithClaims(strings.TrimSpace(token), claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		msg := "Given token not valid for any token type"
		if errors.Is(err, jwt.ErrTokenExpired) {
			msg = "Token is expired"
		}
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, msg)
	}
	if claims.TokenType != models.TokenAccess {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "Given token not valid for any token type")
	}
	return claims, nil
}
