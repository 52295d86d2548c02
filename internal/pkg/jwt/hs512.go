package jwt

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

const minHS512Key = 64

// HS512 signs with a shared secret. Tokens are bound to the configured
// issuer and audiences and must carry an expiry.
type HS512 struct {
	cfg    Config
	parser *jwt.Parser
}

func NewHS512(cfg Config) (*HS512, error) {
	if len(cfg.Secret) < minHS512Key {
		return nil, ErrSigningKeyTooShort
	}

	return &HS512{
		cfg: cfg,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
			jwt.WithIssuer(cfg.Issuer),
			jwt.WithAudience(cfg.Audiences...),
			jwt.WithIssuedAt(),
			jwt.WithExpirationRequired(),
		),
	}, nil
}

func (h *HS512) Generate(sub Subject) (string, error) {
	now := h.cfg.Clock.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        h.cfg.UUID.Generate(),
			Subject:   sub.UserID,
			Issuer:    h.cfg.Issuer,
			Audience:  h.cfg.Audiences,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(h.cfg.TTLMinutes)),
		},
		UserID:    sub.UserID,
		UserEmail: sub.Email,
		Role:      sub.Role,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(h.cfg.Secret)
	if err != nil {
		return "", fmt.Errorf("jwt: sign: %w", err)
	}
	return signed, nil
}

func (h *HS512) Verify(token string) (Claims, error) {
	var claims Claims
	parsed, err := h.parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return h.cfg.Secret, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return Claims{}, ErrTokenExpired
	case err != nil:
		return Claims{}, errors.Join(ErrInvalidToken, err)
	case !parsed.Valid:
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}
