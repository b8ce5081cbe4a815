package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNotJWT is returned when a bearer token is opaque rather than a JWT.
var ErrNotJWT = errors.New("bearer token is not a jwt")

// InspectToken decodes the claims of an upstream-issued bearer token without
// verifying its signature. The storefront API remains the authority on validity;
// the gateway only reads expiry and role to gate requests early.
func InspectToken(tokenString string) (*TokenClaims, error) {
	trimmed := strings.TrimSpace(tokenString)
	if trimmed == "" {
		return nil, fmt.Errorf("bearer token is required")
	}
	if strings.Count(trimmed, ".") != 2 {
		return nil, ErrNotJWT
	}

	claims := &TokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(trimmed, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotJWT, err)
	}
	return claims, nil
}

// ExpiresAt returns the token's exp claim, or the zero time for opaque or exp-less tokens.
func ExpiresAt(tokenString string) time.Time {
	claims, err := InspectToken(tokenString)
	if err != nil || claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}

// Expired reports whether expiresAt has passed now, allowing leeway for clock skew.
// A zero expiresAt never expires.
func Expired(expiresAt, now time.Time, leeway time.Duration) bool {
	if expiresAt.IsZero() {
		return false
	}
	return now.After(expiresAt.Add(leeway))
}
