package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront-gateway/api/middleware"
	"github.com/angelmondragon/storefront-gateway/api/responses"
	"github.com/angelmondragon/storefront-gateway/api/validators"
	checkoutsvc "github.com/angelmondragon/storefront-gateway/internal/checkout"
	"github.com/angelmondragon/storefront-gateway/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-gateway/pkg/errors"
	"github.com/angelmondragon/storefront-gateway/pkg/logger"
	"github.com/angelmondragon/storefront-gateway/pkg/shopapi"
)

type selectAddressRequest struct {
	AddressID string `json:"addressId" validate:"required,max=64"`
}

type addAddressRequest struct {
	FullName   string `json:"fullName" validate:"required,max=120"`
	Phone      string `json:"phone" validate:"required,numeric,min=10,max=15"`
	Street     string `json:"street" validate:"required,max=255"`
	City       string `json:"city" validate:"required,max=120"`
	State      string `json:"state" validate:"required,max=120"`
	PostalCode string `json:"postalCode" validate:"required,numeric,min=4,max=10"`
	IsDefault  bool   `json:"isDefault"`
}

type paymentMethodRequest struct {
	Method string `json:"method" validate:"required"`
}

type couponRequest struct {
	Code string `json:"code" validate:"max=64"`
}

type completePaymentRequest struct {
	OrderID   string `json:"razorpay_order_id" validate:"required"`
	PaymentID string `json:"razorpay_payment_id" validate:"required"`
	Signature string `json:"razorpay_signature" validate:"required"`
}

type checkoutHandler func(r *http.Request, clientID, checkoutID string) (*checkoutsvc.Session, error)

// checkoutAction runs fn for the {id} session and renders the resulting view.
// A failed action still renders the session in the error details when one exists.
func checkoutAction(logg *logger.Logger, fn checkoutHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checkoutID := chi.URLParam(r, "id")
		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithCheckoutID(ctx, checkoutID)
			r = r.WithContext(ctx)
		}

		session, err := fn(r, middleware.ClientIDFromContext(ctx), checkoutID)
		if err != nil {
			writeCheckoutError(w, r, logg, session, err)
			return
		}
		if session == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "checkout not found"))
			return
		}
		responses.WriteSuccessWithNotices(w, http.StatusOK, session, session.Notices)
	}
}

func writeCheckoutError(w http.ResponseWriter, r *http.Request, logg *logger.Logger, session *checkoutsvc.Session, err error) {
	typed := pkgerrors.As(err)
	if typed != nil && session != nil && typed.Code() == pkgerrors.CodePayment {
		typed = typed.WithDetails(map[string]any{
			"redirect": session.Redirect,
			"checkout": session,
		})
		responses.WriteError(r.Context(), logg, w, typed)
		return
	}
	responses.WriteError(r.Context(), logg, w, err)
}

// CheckoutStart opens a new session and loads addresses, coupons, wallet and cart.
func CheckoutStart(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := svc.Start(r.Context(), middleware.ClientIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessWithNotices(w, http.StatusCreated, session, session.Notices)
	}
}

func CheckoutGet(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return checkoutAction(logg, func(r *http.Request, clientID, id string) (*checkoutsvc.Session, error) {
		return svc.Get(r.Context(), clientID, id)
	})
}

func CheckoutReload(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return checkoutAction(logg, func(r *http.Request, clientID, id string) (*checkoutsvc.Session, error) {
		return svc.Load(r.Context(), clientID, id)
	})
}

func CheckoutReset(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return checkoutAction(logg, func(r *http.Request, clientID, id string) (*checkoutsvc.Session, error) {
		return svc.Reset(r.Context(), clientID, id)
	})
}

func CheckoutSelectAddress(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return checkoutAction(logg, func(r *http.Request, clientID, id string) (*checkoutsvc.Session, error) {
		var body selectAddressRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		return svc.SelectAddress(r.Context(), clientID, id, body.AddressID)
	})
}

func CheckoutAddAddress(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return checkoutAction(logg, func(r *http.Request, clientID, id string) (*checkoutsvc.Session, error) {
		var body addAddressRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		return svc.AddAddress(r.Context(), clientID, id, shopapi.AddressInput{
			FullName:   validators.SanitizeString(body.FullName, 120),
			Phone:      validators.SanitizeString(body.Phone, 15),
			Street:     validators.SanitizeString(body.Street, 255),
			City:       validators.SanitizeString(body.City, 120),
			State:      validators.SanitizeString(body.State, 120),
			PostalCode: validators.SanitizeString(body.PostalCode, 10),
			IsDefault:  body.IsDefault,
		})
	})
}

func CheckoutPaymentMethod(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return checkoutAction(logg, func(r *http.Request, clientID, id string) (*checkoutsvc.Session, error) {
		var body paymentMethodRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		method, err := enums.ParsePaymentMethod(body.Method)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "payment method must be cod, wallet or online")
		}
		return svc.SelectPaymentMethod(r.Context(), clientID, id, method)
	})
}

// CheckoutCoupon applies a coupon; an empty code or "none" clears it.
func CheckoutCoupon(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return checkoutAction(logg, func(r *http.Request, clientID, id string) (*checkoutsvc.Session, error) {
		var body couponRequest
		if err := validators.DecodeOptionalJSONBody(r, &body); err != nil {
			return nil, err
		}
		return svc.ApplyCoupon(r.Context(), clientID, id, body.Code)
	})
}

func CheckoutCouponPreview(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body couponRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		preview, err := svc.PreviewCoupon(r.Context(), middleware.ClientIDFromContext(r.Context()), chi.URLParam(r, "id"), body.Code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, preview)
	}
}

// CheckoutPlaceOrder submits the session. Online payments return the overlay
// handoff in the session's payment field.
func CheckoutPlaceOrder(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return checkoutAction(logg, func(r *http.Request, clientID, id string) (*checkoutsvc.Session, error) {
		var customer checkoutsvc.Customer
		if identity := middleware.IdentityFromContext(r.Context()); identity != nil {
			customer = checkoutsvc.Customer{Name: identity.Name, Email: identity.Email}
		}
		return svc.PlaceOrder(r.Context(), clientID, id, customer)
	})
}

func CheckoutCompletePayment(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return checkoutAction(logg, func(r *http.Request, clientID, id string) (*checkoutsvc.Session, error) {
		var body completePaymentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		return svc.CompletePayment(r.Context(), clientID, id, checkoutsvc.PaymentResult{
			OrderID:   body.OrderID,
			PaymentID: body.PaymentID,
			Signature: body.Signature,
		})
	})
}

func CheckoutDismissPayment(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return checkoutAction(logg, func(r *http.Request, clientID, id string) (*checkoutsvc.Session, error) {
		return svc.DismissPayment(r.Context(), clientID, id)
	})
}
