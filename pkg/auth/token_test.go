package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signTestToken(t *testing.T, claims TokenClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("upstream-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestInspectTokenReadsClaims(t *testing.T) {
	exp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	token := signTestToken(t, TokenClaims{
		ID:   "user-42",
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})

	claims, err := InspectToken(token)
	if err != nil {
		t.Fatalf("inspect token: %v", err)
	}
	if claims.Principal() != "user-42" {
		t.Fatalf("unexpected principal %q", claims.Principal())
	}
	if claims.Role != "admin" {
		t.Fatalf("unexpected role %q", claims.Role)
	}
	if !ExpiresAt(token).Equal(exp) {
		t.Fatalf("unexpected expiry %v", ExpiresAt(token))
	}
}

func TestInspectTokenIgnoresExpiry(t *testing.T) {
	token := signTestToken(t, TokenClaims{
		UserID: "u1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})
	claims, err := InspectToken(token)
	if err != nil {
		t.Fatalf("expected expired token to still be inspectable: %v", err)
	}
	if claims.Principal() != "u1" {
		t.Fatalf("unexpected principal %q", claims.Principal())
	}
}

func TestInspectOpaqueToken(t *testing.T) {
	if _, err := InspectToken("opaque-session-token"); !errors.Is(err, ErrNotJWT) {
		t.Fatalf("expected ErrNotJWT, got %v", err)
	}
	if !ExpiresAt("opaque-session-token").IsZero() {
		t.Fatalf("opaque token should have no expiry")
	}
	if _, err := InspectToken(" "); err == nil {
		t.Fatalf("expected empty token to fail")
	}
}

func TestExpired(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	if Expired(time.Time{}, now, 0) {
		t.Fatalf("zero expiry should never expire")
	}
	if !Expired(now.Add(-time.Minute), now, 30*time.Second) {
		t.Fatalf("expected token past leeway to be expired")
	}
	if Expired(now.Add(-10*time.Second), now, 30*time.Second) {
		t.Fatalf("expected token within leeway to be valid")
	}
}
