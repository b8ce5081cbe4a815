package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-gateway/internal/storage"
	"github.com/angelmondragon/storefront-gateway/pkg/auth"
	"github.com/angelmondragon/storefront-gateway/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-gateway/pkg/errors"
	"github.com/angelmondragon/storefront-gateway/pkg/logger"
	"github.com/angelmondragon/storefront-gateway/pkg/shopapi"
)

// Identity is the signed-in principal persisted for one client and slot.
type Identity struct {
	Kind       enums.IdentityKind `json:"kind"`
	UserID     string             `json:"userId"`
	Name       string             `json:"name,omitempty"`
	Email      string             `json:"email,omitempty"`
	Role       string             `json:"role,omitempty"`
	Token      string             `json:"token"`
	ExpiresAt  time.Time          `json:"expiresAt,omitempty"`
	SignedInAt time.Time          `json:"signedInAt"`
}

// Public strips the bearer token for responses.
func (i Identity) Public() Identity {
	i.Token = ""
	return i
}

type adminAPI interface {
	AdminLogin(ctx context.Context, req shopapi.AdminLoginRequest) (*shopapi.LoginResponse, error)
	AdminLogout(ctx context.Context) error
}

// Service holds shopper and administrator identities per client.
type Service interface {
	SignIn(ctx context.Context, clientID string, kind enums.IdentityKind, login *shopapi.LoginResponse) (*Identity, error)
	Current(ctx context.Context, clientID string, kind enums.IdentityKind) (*Identity, error)
	Require(ctx context.Context, clientID string, kind enums.IdentityKind) (*Identity, error)
	SignOut(ctx context.Context, clientID string, kind enums.IdentityKind) error
	AdminLogin(ctx context.Context, clientID, email, password string) (*Identity, error)
	AdminLogout(ctx context.Context, clientID string) error
}

// Options tunes identity persistence.
type Options struct {
	TTL       time.Duration
	Leeway    time.Duration
	AdminRole string
	Now       func() time.Time
}

type service struct {
	store storage.Store
	api   adminAPI
	logg  *logger.Logger
	opts  Options
}

// NewService builds the identity holder.
func NewService(store storage.Store, api adminAPI, logg *logger.Logger, opts Options) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("state store required")
	}
	if api == nil {
		return nil, fmt.Errorf("storefront api client required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if opts.TTL <= 0 {
		opts.TTL = 7 * 24 * time.Hour
	}
	if opts.AdminRole == "" {
		opts.AdminRole = "admin"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &service{store: store, api: api, logg: logg, opts: opts}, nil
}

func (s *service) SignIn(ctx context.Context, clientID string, kind enums.IdentityKind, login *shopapi.LoginResponse) (*Identity, error) {
	if err := validateSlot(clientID, kind); err != nil {
		return nil, err
	}
	if login == nil || strings.TrimSpace(login.Token) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "token is required")
	}

	identity := Identity{
		Kind:       kind,
		UserID:     login.Profile.ID,
		Name:       login.Profile.Name,
		Email:      login.Profile.Email,
		Role:       login.Profile.Role,
		Token:      login.Token,
		SignedInAt: s.opts.Now().UTC(),
	}
	if claims, err := auth.InspectToken(login.Token); err == nil {
		if identity.UserID == "" {
			identity.UserID = claims.Principal()
		}
		if identity.Role == "" {
			identity.Role = claims.Role
		}
		if claims.ExpiresAt != nil {
			identity.ExpiresAt = claims.ExpiresAt.Time.UTC()
		}
	}
	if kind == enums.IdentityKindAdmin && identity.Role == "" {
		identity.Role = s.opts.AdminRole
	}
	if auth.Expired(identity.ExpiresAt, s.opts.Now(), s.opts.Leeway) {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "token already expired")
	}

	if err := storage.SetJSON(ctx, s.store, storage.ClientKey(clientID, kind.String()), identity, s.ttlFor(identity)); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist identity")
	}
	return &identity, nil
}

func (s *service) Current(ctx context.Context, clientID string, kind enums.IdentityKind) (*Identity, error) {
	if err := validateSlot(clientID, kind); err != nil {
		return nil, err
	}
	var identity Identity
	if err := storage.GetJSON(ctx, s.store, storage.ClientKey(clientID, kind.String()), &identity); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load identity")
	}
	if auth.Expired(identity.ExpiresAt, s.opts.Now(), s.opts.Leeway) {
		if err := s.store.Delete(ctx, storage.ClientKey(clientID, kind.String())); err != nil {
			s.logg.Warn(s.logg.WithClientID(ctx, clientID), "failed to drop expired identity")
		}
		return nil, nil
	}
	return &identity, nil
}

func (s *service) Require(ctx context.Context, clientID string, kind enums.IdentityKind) (*Identity, error) {
	identity, err := s.Current(ctx, clientID, kind)
	if err != nil {
		return nil, err
	}
	if identity == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in required")
	}
	if kind == enums.IdentityKindAdmin && !strings.EqualFold(identity.Role, s.opts.AdminRole) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "administrator access required")
	}
	return identity, nil
}

func (s *service) SignOut(ctx context.Context, clientID string, kind enums.IdentityKind) error {
	if err := validateSlot(clientID, kind); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, storage.ClientKey(clientID, kind.String())); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear identity")
	}
	return nil
}

func (s *service) AdminLogin(ctx context.Context, clientID, email, password string) (*Identity, error) {
	login, err := s.api.AdminLogin(ctx, shopapi.AdminLoginRequest{
		Email:    strings.TrimSpace(email),
		Password: password,
	})
	if err != nil {
		return nil, err
	}
	return s.SignIn(ctx, clientID, enums.IdentityKindAdmin, login)
}

// AdminLogout clears the local identity even when the upstream call fails.
func (s *service) AdminLogout(ctx context.Context, clientID string) error {
	identity, err := s.Current(ctx, clientID, enums.IdentityKindAdmin)
	if err != nil {
		return err
	}
	if identity != nil {
		if err := s.api.AdminLogout(shopapi.WithBearer(ctx, identity.Token)); err != nil {
			s.logg.Error(s.logg.WithClientID(ctx, clientID), "upstream admin logout failed", err)
		}
	}
	return s.SignOut(ctx, clientID, enums.IdentityKindAdmin)
}

func (s *service) ttlFor(identity Identity) time.Duration {
	if identity.ExpiresAt.IsZero() {
		return s.opts.TTL
	}
	remaining := identity.ExpiresAt.Sub(s.opts.Now()) + s.opts.Leeway
	if remaining < s.opts.TTL {
		return remaining
	}
	return s.opts.TTL
}

func validateSlot(clientID string, kind enums.IdentityKind) error {
	if strings.TrimSpace(clientID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "client id required")
	}
	if !kind.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown identity kind %q", kind))
	}
	return nil
}
