package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/kidsstudy/kidsstudy/internal/model"
)

// ErrInvalidToken is returned for any session token that fails validation.
var ErrInvalidToken = errors.New("invalid session token")

// SessionClaims are the Supabase Auth access-token claims the service reads.
type SessionClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// SessionVerifier validates Supabase-issued access tokens (HS256).
type SessionVerifier struct {
	secret   []byte
	audience string
	leeway   time.Duration
}

// NewSessionVerifier creates a verifier for the project JWT secret.
// An empty audience disables the audience check.
func NewSessionVerifier(secret, audience string) *SessionVerifier {
	return &SessionVerifier{
		secret:   []byte(secret),
		audience: audience,
		leeway:   30 * time.Second,
	}
}

// Verify parses the token and returns the authenticated user.
func (v *SessionVerifier) Verify(token string) (*model.User, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	claims := &SessionClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if _, err := uuid.Parse(claims.Subject); err != nil {
		return nil, fmt.Errorf("%w: subject is not a user id", ErrInvalidToken)
	}

	return &model.User{
		ID:    claims.Subject,
		Email: strings.TrimSpace(claims.Email),
	}, nil
}

// SignSession issues a token in the same shape Supabase does. Used by tests and local tooling.
func SignSession(secret, audience string, user model.User, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		Email: user.Email,
		Role:  "authenticated",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if audience != "" {
		claims.Audience = jwt.ClaimStrings{audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
