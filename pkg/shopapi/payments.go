package shopapi

import (
	"context"
	"net/http"
	"strings"

	pkgerrors "github.com/angelmondragon/storefront-gateway/pkg/errors"
)

// CreatePaymentOrder registers a provisional order with the payment provider.
func (c *Client) CreatePaymentOrder(ctx context.Context, req CreatePaymentOrderRequest) (*CreatePaymentOrderResponse, error) {
	var out CreatePaymentOrderResponse
	if err := c.doJSON(ctx, call{endpoint: "payments.create_order", method: http.MethodPost, path: "/payments/create-order", body: req}, &out); err != nil {
		return nil, err
	}
	if !out.Success || strings.TrimSpace(out.Order.ID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment order was not created")
	}
	return &out, nil
}

// VerifyPayment checks the overlay's signature and finalizes the order.
// A response with success=false is reported as a payment error, and a
// successful one must name the final order.
func (c *Client) VerifyPayment(ctx context.Context, req VerifyPaymentRequest) (*VerifyPaymentResponse, error) {
	var out VerifyPaymentResponse
	if err := c.doJSON(ctx, call{endpoint: "payments.verify", method: http.MethodPost, path: "/payments/verify", body: req}, &out); err != nil {
		return nil, err
	}
	if !out.Success {
		msg := strings.TrimSpace(out.Message)
		if msg == "" {
			msg = "payment verification failed"
		}
		return nil, pkgerrors.New(pkgerrors.CodePayment, msg)
	}
	if strings.TrimSpace(out.OrderID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "verify response missing orderId")
	}
	return &out, nil
}
