package util

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// TokenClaims holds what the gateway reads from a seller token issued by the
// Marché241 API. The gateway does not hold the signing key; signatures are
// checked by the API on every forwarded call.
type TokenClaims struct {
	Subject   string
	Role      string
	ExpiresAt time.Time
}

type apiClaims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// ReadTokenClaims decodes token without verifying its signature and rejects
// it once expired relative to now.
func ReadTokenClaims(token string, now time.Time) (*TokenClaims, error) {
	claims := &apiClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	out := &TokenClaims{Role: claims.Role}
	if sub, err := claims.GetSubject(); err == nil {
		out.Subject = sub
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
		if !now.Before(out.ExpiresAt) {
			return out, ErrExpiredToken
		}
	}
	return out, nil
}

// Lifetime is how long a cookie carrying the token should live. Tokens
// without an expiry fall back to fallback.
func (c *TokenClaims) Lifetime(now time.Time, fallback time.Duration) time.Duration {
	if c.ExpiresAt.IsZero() {
		return fallback
	}
	return c.ExpiresAt.Sub(now)
}
