package auth

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims is the subset of the storefront API's bearer token the gateway reads.
type TokenClaims struct {
	ID     string `json:"id,omitempty"`
	UserID string `json:"userId,omitempty"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Principal returns the best available user identifier.
func (c *TokenClaims) Principal() string {
	for _, candidate := range []string{c.UserID, c.ID, c.Subject} {
		if trimmed := strings.TrimSpace(candidate); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
