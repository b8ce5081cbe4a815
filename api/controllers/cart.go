package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront-gateway/api/middleware"
	"github.com/angelmondragon/storefront-gateway/api/responses"
	"github.com/angelmondragon/storefront-gateway/api/validators"
	"github.com/angelmondragon/storefront-gateway/internal/cart"
	"github.com/angelmondragon/storefront-gateway/pkg/logger"
)

type cartAddRequest struct {
	VariantID string `json:"variantId" validate:"required,max=64"`
	ProductID string `json:"productId" validate:"omitempty,max=64"`
	Quantity  int    `json:"quantity"`
}

type cartUpdateRequest struct {
	Quantity int `json:"quantity"`
}

type cartResponse struct {
	*cart.Snapshot
	ItemCount int `json:"itemCount"`
}

func newCartResponse(snapshot *cart.Snapshot) cartResponse {
	if snapshot == nil {
		snapshot = &cart.Snapshot{}
	}
	return cartResponse{Snapshot: snapshot, ItemCount: snapshot.ItemCount()}
}

func CartFetch(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snapshot, err := svc.Fetch(r.Context(), middleware.ClientIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(snapshot))
	}
}

func CartAddItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body cartAddRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		snapshot, err := svc.Add(r.Context(), middleware.ClientIDFromContext(r.Context()), cart.AddItemInput{
			VariantID: validators.SanitizeString(body.VariantID, 64),
			ProductID: validators.SanitizeString(body.ProductID, 64),
			Quantity:  body.Quantity,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(snapshot))
	}
}

func CartUpdateItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body cartUpdateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		variantID := chi.URLParam(r, "variantId")
		snapshot, err := svc.UpdateQuantity(r.Context(), middleware.ClientIDFromContext(r.Context()), variantID, body.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(snapshot))
	}
}

func CartRemoveItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		variantID := chi.URLParam(r, "variantId")
		snapshot, err := svc.Remove(r.Context(), middleware.ClientIDFromContext(r.Context()), variantID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(snapshot))
	}
}
