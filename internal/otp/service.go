// Package otp drives the email verification flow: sending a code, gating
// resends behind a fixed countdown and exchanging a code for a shopper identity.
package otp

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-gateway/internal/session"
	"github.com/angelmondragon/storefront-gateway/internal/storage"
	"github.com/angelmondragon/storefront-gateway/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-gateway/pkg/errors"
	"github.com/angelmondragon/storefront-gateway/pkg/shopapi"
)

const (
	// Countdown is how long a client waits before a code may be resent.
	Countdown  = 60 * time.Second
	CodeLength = 6

	// Slot is the state-store slot holding the pending verification.
	Slot = "otp"

	pendingTTL = 15 * time.Minute
)

type otpAPI interface {
	SendOTP(ctx context.Context, req shopapi.SendOTPRequest) error
	VerifyOTP(ctx context.Context, req shopapi.VerifyOTPRequest) (*shopapi.LoginResponse, error)
}

type identitySigner interface {
	SignIn(ctx context.Context, clientID string, kind enums.IdentityKind, login *shopapi.LoginResponse) (*session.Identity, error)
}

type pending struct {
	Email  string    `json:"email"`
	SentAt time.Time `json:"sentAt"`
}

// Status is the countdown view for one client.
type Status struct {
	Email            string `json:"email,omitempty"`
	RemainingSeconds int    `json:"remainingSeconds"`
	CanResend        bool   `json:"canResend"`
}

type Service interface {
	Send(ctx context.Context, clientID, email string) (*Status, error)
	Resend(ctx context.Context, clientID string) (*Status, error)
	Verify(ctx context.Context, clientID, code string) (*session.Identity, error)
	Status(ctx context.Context, clientID string) (*Status, error)
}

type service struct {
	api      otpAPI
	sessions identitySigner
	store    storage.Store
	now      func() time.Time
}

func NewService(api otpAPI, sessions identitySigner, store storage.Store, now func() time.Time) (Service, error) {
	if api == nil {
		return nil, fmt.Errorf("storefront api client required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session service required")
	}
	if store == nil {
		return nil, fmt.Errorf("state store required")
	}
	if now == nil {
		now = time.Now
	}
	return &service{api: api, sessions: sessions, store: store, now: now}, nil
}

// ValidCode reports whether code is exactly six ASCII digits.
func ValidCode(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}

// Remaining returns the whole seconds left on a countdown started at sentAt.
func Remaining(sentAt, now time.Time) int {
	left := Countdown - now.Sub(sentAt)
	if left <= 0 {
		return 0
	}
	return int(math.Ceil(left.Seconds()))
}

// Send requests a code for email. While any code sent to this client is still
// counting down, a new send is refused whatever the address.
func (s *service) Send(ctx context.Context, clientID, email string) (*Status, error) {
	if err := requireClient(clientID); err != nil {
		return nil, err
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}

	current, err := s.load(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if current != nil {
		if err := s.gate(current); err != nil {
			return nil, err
		}
	}
	return s.send(ctx, clientID, email)
}

func (s *service) Resend(ctx context.Context, clientID string) (*Status, error) {
	if err := requireClient(clientID); err != nil {
		return nil, err
	}
	current, err := s.load(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no verification in progress")
	}
	if err := s.gate(current); err != nil {
		return nil, err
	}
	return s.send(ctx, clientID, current.Email)
}

// Verify rejects malformed codes locally, then exchanges the code for a shopper identity.
func (s *service) Verify(ctx context.Context, clientID, code string) (*session.Identity, error) {
	if err := requireClient(clientID); err != nil {
		return nil, err
	}
	code = strings.TrimSpace(code)
	if !ValidCode(code) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("code must be %d digits", CodeLength))
	}
	current, err := s.load(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "request a code first")
	}

	login, err := s.api.VerifyOTP(ctx, shopapi.VerifyOTPRequest{Email: current.Email, OTP: code})
	if err != nil {
		return nil, err
	}
	if login.Profile.Email == "" {
		login.Profile.Email = current.Email
	}
	identity, err := s.sessions.SignIn(ctx, clientID, enums.IdentityKindUser, login)
	if err != nil {
		return nil, err
	}
	if err := s.store.Delete(ctx, storage.ClientKey(clientID, Slot)); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear verification state")
	}
	return identity, nil
}

func (s *service) Status(ctx context.Context, clientID string) (*Status, error) {
	if err := requireClient(clientID); err != nil {
		return nil, err
	}
	current, err := s.load(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return &Status{CanResend: true}, nil
	}
	return s.status(current), nil
}

func (s *service) send(ctx context.Context, clientID, email string) (*Status, error) {
	if err := s.api.SendOTP(ctx, shopapi.SendOTPRequest{Email: email}); err != nil {
		return nil, err
	}
	record := &pending{Email: email, SentAt: s.now().UTC()}
	if err := storage.SetJSON(ctx, s.store, storage.ClientKey(clientID, Slot), record, pendingTTL); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist verification state")
	}
	return s.status(record), nil
}

func (s *service) gate(current *pending) error {
	remaining := Remaining(current.SentAt, s.now())
	if remaining == 0 {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeRateLimit, "resend is not available yet").WithDetails(map[string]any{
		"retryAfterSeconds": remaining,
	})
}

func (s *service) status(current *pending) *Status {
	remaining := Remaining(current.SentAt, s.now())
	return &Status{Email: current.Email, RemainingSeconds: remaining, CanResend: remaining == 0}
}

func (s *service) load(ctx context.Context, clientID string) (*pending, error) {
	var record pending
	if err := storage.GetJSON(ctx, s.store, storage.ClientKey(clientID, Slot), &record); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load verification state")
	}
	return &record, nil
}

func requireClient(clientID string) error {
	if strings.TrimSpace(clientID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "client id required")
	}
	return nil
}
