package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/angelmondragon/storefront-gateway/api/middleware"
	"github.com/angelmondragon/storefront-gateway/internal/otp"
	"github.com/angelmondragon/storefront-gateway/internal/session"
	"github.com/angelmondragon/storefront-gateway/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-gateway/pkg/errors"
	"github.com/angelmondragon/storefront-gateway/pkg/shopapi"
)

type stubOTP struct {
	sentTo string
	code   string
	err    error
}

func (s *stubOTP) Send(_ context.Context, _ string, email string) (*otp.Status, error) {
	s.sentTo = email
	if s.err != nil {
		return nil, s.err
	}
	return &otp.Status{Email: email, RemainingSeconds: 60}, nil
}

func (s *stubOTP) Resend(context.Context, string) (*otp.Status, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &otp.Status{RemainingSeconds: 60}, nil
}

func (s *stubOTP) Verify(_ context.Context, _ string, code string) (*session.Identity, error) {
	s.code = code
	if s.err != nil {
		return nil, s.err
	}
	return &session.Identity{Kind: enums.IdentityKindUser, UserID: "u1", Email: "asha@example.com", Token: "secret-token"}, nil
}

func (s *stubOTP) Status(context.Context, string) (*otp.Status, error) {
	return &otp.Status{CanResend: true}, nil
}

type stubSessions struct {
	current    *session.Identity
	signedOut  enums.IdentityKind
	adminEmail string
}

func (s *stubSessions) SignIn(context.Context, string, enums.IdentityKind, *shopapi.LoginResponse) (*session.Identity, error) {
	return nil, nil
}

func (s *stubSessions) Current(context.Context, string, enums.IdentityKind) (*session.Identity, error) {
	return s.current, nil
}

func (s *stubSessions) Require(context.Context, string, enums.IdentityKind) (*session.Identity, error) {
	return s.current, nil
}

func (s *stubSessions) SignOut(_ context.Context, _ string, kind enums.IdentityKind) error {
	s.signedOut = kind
	return nil
}

func (s *stubSessions) AdminLogin(_ context.Context, _ string, email, _ string) (*session.Identity, error) {
	s.adminEmail = email
	return &session.Identity{Kind: enums.IdentityKindAdmin, UserID: "a1", Role: "admin", Token: "admin-token"}, nil
}

func (s *stubSessions) AdminLogout(_ context.Context, _ string) error {
	s.signedOut = enums.IdentityKindAdmin
	return nil
}

func clientRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	return req.WithContext(middleware.WithClientID(req.Context(), testClientID))
}

func TestOTPSendValidatesEmail(t *testing.T) {
	svc := &stubOTP{}
	resp := httptest.NewRecorder()

	OTPSend(svc, nil).ServeHTTP(resp, clientRequest(http.MethodPost, "/api/v1/auth/otp/send", `{"email":"not-an-email"}`))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if svc.sentTo != "" {
		t.Fatalf("service should not be called")
	}
}

func TestOTPSendReturnsCountdown(t *testing.T) {
	svc := &stubOTP{}
	resp := httptest.NewRecorder()

	OTPSend(svc, nil).ServeHTTP(resp, clientRequest(http.MethodPost, "/api/v1/auth/otp/send", `{"email":"asha@example.com"}`))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data otp.Status `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.RemainingSeconds != 60 {
		t.Fatalf("unexpected countdown %d", envelope.Data.RemainingSeconds)
	}
}

func TestOTPResendSurfacesRateLimit(t *testing.T) {
	svc := &stubOTP{err: pkgerrors.New(pkgerrors.CodeRateLimit, "wait before requesting another code")}
	resp := httptest.NewRecorder()

	OTPResend(svc, nil).ServeHTTP(resp, clientRequest(http.MethodPost, "/api/v1/auth/otp/resend", ""))

	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 got %d", resp.Code)
	}
}

func TestOTPVerifyOmitsToken(t *testing.T) {
	svc := &stubOTP{}
	resp := httptest.NewRecorder()

	OTPVerify(svc, nil).ServeHTTP(resp, clientRequest(http.MethodPost, "/api/v1/auth/otp/verify", `{"code":"123456"}`))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.code != "123456" {
		t.Fatalf("unexpected code %q", svc.code)
	}
	if strings.Contains(resp.Body.String(), "secret-token") {
		t.Fatalf("token must not be returned to the client: %s", resp.Body.String())
	}
}

func TestAuthMeRequiresIdentity(t *testing.T) {
	resp := httptest.NewRecorder()

	AuthMe(&stubSessions{}, nil).ServeHTTP(resp, clientRequest(http.MethodGet, "/api/v1/auth/me", ""))

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthLogoutClearsShopper(t *testing.T) {
	sessions := &stubSessions{}
	resp := httptest.NewRecorder()

	AuthLogout(sessions, nil).ServeHTTP(resp, clientRequest(http.MethodPost, "/api/v1/auth/logout", ""))

	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204 got %d", resp.Code)
	}
	if sessions.signedOut != enums.IdentityKindUser {
		t.Fatalf("expected shopper slot cleared, got %q", sessions.signedOut)
	}
}

func TestAdminAuthLogin(t *testing.T) {
	sessions := &stubSessions{}
	resp := httptest.NewRecorder()

	AdminAuthLogin(sessions, nil).ServeHTTP(resp, clientRequest(http.MethodPost, "/api/admin/v1/auth/login", `{"email":"ops@example.com","password":"pw"}`))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if sessions.adminEmail != "ops@example.com" {
		t.Fatalf("unexpected email %q", sessions.adminEmail)
	}
	if strings.Contains(resp.Body.String(), "admin-token") {
		t.Fatalf("token must not be returned to the client")
	}
}
