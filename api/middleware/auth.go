package middleware

import (
	"context"
	"net/http"

	"github.com/angelmondragon/storefront-gateway/api/responses"
	"github.com/angelmondragon/storefront-gateway/internal/session"
	"github.com/angelmondragon/storefront-gateway/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-gateway/pkg/errors"
	"github.com/angelmondragon/storefront-gateway/pkg/logger"
	"github.com/angelmondragon/storefront-gateway/pkg/shopapi"
)

type identityRequirer interface {
	Require(ctx context.Context, clientID string, kind enums.IdentityKind) (*session.Identity, error)
}

// Auth loads the client's identity for kind and forwards its bearer token to
// the storefront API through the request context.
func Auth(sessions identityRequirer, kind enums.IdentityKind, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientID := ClientIDFromContext(r.Context())
			if clientID == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, ClientIDHeader+" header required"))
				return
			}

			identity, err := sessions.Require(r.Context(), clientID, kind)
			if err != nil {
				if logg != nil {
					logg.Warn(logg.WithIdentityKind(r.Context(), kind.String()), "auth.identity_rejected")
				}
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			ctx := WithIdentity(r.Context(), identity)
			ctx = shopapi.WithBearer(ctx, identity.Token)
			if logg != nil {
				ctx = logg.WithUserID(ctx, identity.UserID)
				ctx = logg.WithIdentityKind(ctx, kind.String())
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
