// Package jwt issues and checks the bearer tokens of the API, and carries
// the caller's claims through the request context.
package jwt

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrSigningKeyTooShort = errors.New("jwt: HS512 key must be at least 64 bytes")
	ErrTokenExpired       = errors.New("jwt: token expired")
	ErrInvalidToken       = errors.New("jwt: invalid token")
)

type JWT interface {
	Generate(sub Subject) (string, error)
	Verify(token string) (Claims, error)
}

// Subject is who a token is issued to.
type Subject struct {
	UserID string
	Email  string
	Role   string
}

type Config struct {
	Secret    []byte
	Issuer    string
	Audiences []string
	// TTLMinutes is already a duration; the name follows the config key.
	TTLMinutes time.Duration
	Clock      interface{ Now() time.Time }
	UUID       interface{ Generate() string }
}

type Claims struct {
	jwt.RegisteredClaims
	UserID    string `json:"user_id"`
	UserEmail string `json:"user_email"`
	Role      string `json:"role,omitempty"`
}

type authKey struct{}

// SetAuth stores the verified claims of the caller.
func SetAuth(ctx context.Context, clm Claims) context.Context {
	return context.WithValue(ctx, authKey{}, clm)
}

// GetAuth returns the caller's claims, or nil on an anonymous request.
func GetAuth(ctx context.Context) *Claims {
	clm, ok := ctx.Value(authKey{}).(Claims)
	if !ok {
		return nil
	}
	return &clm
}
