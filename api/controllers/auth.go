package controllers

import (
	"net/http"

	"github.com/angelmondragon/storefront-gateway/api/middleware"
	"github.com/angelmondragon/storefront-gateway/api/responses"
	"github.com/angelmondragon/storefront-gateway/api/validators"
	"github.com/angelmondragon/storefront-gateway/internal/otp"
	"github.com/angelmondragon/storefront-gateway/internal/session"
	"github.com/angelmondragon/storefront-gateway/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-gateway/pkg/errors"
	"github.com/angelmondragon/storefront-gateway/pkg/logger"
)

type otpSendRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
}

type otpVerifyRequest struct {
	Code string `json:"code" validate:"required"`
}

type adminLoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=128"`
}

// OTPSend requests a verification code for the shopper's email.
func OTPSend(svc otp.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body otpSendRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := svc.Send(r.Context(), middleware.ClientIDFromContext(r.Context()), body.Email)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, status)
	}
}

// OTPResend re-sends the code once the countdown has elapsed.
func OTPResend(svc otp.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, err := svc.Resend(r.Context(), middleware.ClientIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, status)
	}
}

func OTPStatus(svc otp.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, err := svc.Status(r.Context(), middleware.ClientIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, status)
	}
}

// OTPVerify exchanges the code for a shopper identity.
func OTPVerify(svc otp.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body otpVerifyRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		identity, err := svc.Verify(r.Context(), middleware.ClientIDFromContext(r.Context()), body.Code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if logg != nil {
			logg.Info(logg.WithUserID(r.Context(), identity.UserID), "auth.otp.verified")
		}
		responses.WriteSuccess(w, identity.Public())
	}
}

// AuthMe returns the shopper identity for this client.
func AuthMe(sessions session.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, err := sessions.Current(r.Context(), middleware.ClientIDFromContext(r.Context()), enums.IdentityKindUser)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if identity == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in required"))
			return
		}
		responses.WriteSuccess(w, identity.Public())
	}
}

func AuthLogout(sessions session.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := sessions.SignOut(r.Context(), middleware.ClientIDFromContext(r.Context()), enums.IdentityKindUser); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

// AdminAuthLogin signs an administrator in through the storefront API.
func AdminAuthLogin(sessions session.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body adminLoginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		identity, err := sessions.AdminLogin(r.Context(), middleware.ClientIDFromContext(r.Context()), body.Email, body.Password)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if logg != nil {
			ctx := logg.WithUserID(r.Context(), identity.UserID)
			logg.Info(logg.WithIdentityKind(ctx, enums.IdentityKindAdmin.String()), "auth.admin.login")
		}
		responses.WriteSuccess(w, identity.Public())
	}
}

func AdminAuthLogout(sessions session.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := sessions.AdminLogout(r.Context(), middleware.ClientIDFromContext(r.Context())); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}
