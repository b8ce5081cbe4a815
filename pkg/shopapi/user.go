package shopapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	pkgerrors "github.com/angelmondragon/storefront-gateway/pkg/errors"
)

// ListAddresses returns the signed-in shopper's delivery addresses.
func (c *Client) ListAddresses(ctx context.Context) ([]Address, error) {
	var out struct {
		Addresses []Address `json:"addresses"`
		Data      []Address `json:"data"`
	}
	if err := c.doJSON(ctx, call{endpoint: "addresses.list", method: http.MethodGet, path: "/user/profile/address"}, &out); err != nil {
		return nil, err
	}
	return firstNonNil(out.Addresses, out.Data), nil
}

// CreateAddress stores a new delivery address and returns it. The address may
// come back under "address", under "data" or as the bare body.
func (c *Client) CreateAddress(ctx context.Context, input AddressInput) (*Address, error) {
	var raw json.RawMessage
	if err := c.doJSON(ctx, call{endpoint: "addresses.create", method: http.MethodPost, path: "/user/profile/address", body: input}, &raw); err != nil {
		return nil, err
	}
	created, err := decodeAddress(raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode addresses.create response")
	}
	if created == nil || strings.TrimSpace(created.ID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "address response missing id")
	}
	return created, nil
}

func decodeAddress(raw json.RawMessage) (*Address, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var wrapped struct {
		Address *Address `json:"address"`
		Data    *Address `json:"data"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, err
	}
	switch {
	case wrapped.Address != nil:
		return wrapped.Address, nil
	case wrapped.Data != nil:
		return wrapped.Data, nil
	}
	var bare Address
	if err := json.Unmarshal(raw, &bare); err != nil {
		return nil, err
	}
	return &bare, nil
}

// AvailableCoupons lists coupons the shopper may apply.
func (c *Client) AvailableCoupons(ctx context.Context) ([]Coupon, error) {
	var out struct {
		Coupons []Coupon `json:"coupons"`
		Data    []Coupon `json:"data"`
	}
	if err := c.doJSON(ctx, call{endpoint: "coupons.available", method: http.MethodGet, path: "/user/coupons/available"}, &out); err != nil {
		return nil, err
	}
	return firstNonNil(out.Coupons, out.Data), nil
}

// ApplyCoupon asks the server for the currency discount a coupon yields on cartTotal.
func (c *Client) ApplyCoupon(ctx context.Context, req ApplyCouponRequest) (*ApplyCouponResponse, error) {
	if strings.TrimSpace(req.CouponCode) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required")
	}
	var out ApplyCouponResponse
	if err := c.doJSON(ctx, call{endpoint: "coupons.apply", method: http.MethodPost, path: "/user/coupons/apply", body: req}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CalculatePrice re-prices every cart line under a coupon for display.
func (c *Client) CalculatePrice(ctx context.Context, req CalculatePriceRequest) (*CalculatePriceResponse, error) {
	if strings.TrimSpace(req.CouponCode) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required")
	}
	var out CalculatePriceResponse
	if err := c.doJSON(ctx, call{endpoint: "coupons.calculate", method: http.MethodPost, path: "/user/coupons/calculate-price", body: req}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Wallet returns the shopper's store-credit balance.
func (c *Client) Wallet(ctx context.Context) (*Wallet, error) {
	var out struct {
		Wallet
		Data *Wallet `json:"data"`
	}
	if err := c.doJSON(ctx, call{endpoint: "wallet.get", method: http.MethodGet, path: "/user/profile/wallet"}, &out); err != nil {
		return nil, err
	}
	if out.Data != nil {
		return out.Data, nil
	}
	return &out.Wallet, nil
}

// PlaceOrder creates a cash-on-delivery or wallet order synchronously.
func (c *Client) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*PlaceOrderResponse, error) {
	var out PlaceOrderResponse
	if err := c.doJSON(ctx, call{endpoint: "orders.create", method: http.MethodPost, path: "/user/orders", body: req}, &out); err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.OrderID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "order response missing orderId")
	}
	return &out, nil
}

// SendOTP asks the server to email a verification code.
func (c *Client) SendOTP(ctx context.Context, req SendOTPRequest) error {
	return c.doJSON(ctx, call{endpoint: "auth.send_otp", method: http.MethodPost, path: "/user/auth/send-otp", body: req}, nil)
}

// VerifyOTP exchanges a verification code for a shopper token.
func (c *Client) VerifyOTP(ctx context.Context, req VerifyOTPRequest) (*LoginResponse, error) {
	var out struct {
		Token string  `json:"token"`
		User  Profile `json:"user"`
	}
	if err := c.doJSON(ctx, call{endpoint: "auth.verify_otp", method: http.MethodPost, path: "/user/auth/verify-otp", body: req}, &out); err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.Token) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "verify response missing token")
	}
	return &LoginResponse{Token: out.Token, Profile: out.User}, nil
}

func firstNonNil[T any](candidates ...[]T) []T {
	for _, c := range candidates {
		if c != nil {
			return c
		}
	}
	return []T{}
}
