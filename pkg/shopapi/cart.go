package shopapi

import (
	"context"
	"net/http"
	"net/url"
)

type cartEnvelope struct {
	Cart *Cart `json:"cart"`
	Data *Cart `json:"data"`
}

func (e cartEnvelope) snapshot() *Cart {
	switch {
	case e.Cart != nil:
		return e.Cart
	case e.Data != nil:
		return e.Data
	default:
		return &Cart{Items: []CartItem{}}
	}
}

// GetCart returns the authoritative cart snapshot.
func (c *Client) GetCart(ctx context.Context) (*Cart, error) {
	var out cartEnvelope
	if err := c.doJSON(ctx, call{endpoint: "cart.get", method: http.MethodGet, path: "/user/cart"}, &out); err != nil {
		return nil, err
	}
	return out.snapshot(), nil
}

// AddToCart adds a variant and returns the updated cart.
func (c *Client) AddToCart(ctx context.Context, req AddToCartRequest) (*Cart, error) {
	var out cartEnvelope
	if err := c.doJSON(ctx, call{endpoint: "cart.add", method: http.MethodPost, path: "/user/cart/add", body: req}, &out); err != nil {
		return nil, err
	}
	return out.snapshot(), nil
}

// UpdateCartItem sets the quantity of a variant already in the cart.
func (c *Client) UpdateCartItem(ctx context.Context, req UpdateCartRequest) (*Cart, error) {
	var out cartEnvelope
	if err := c.doJSON(ctx, call{endpoint: "cart.update", method: http.MethodPut, path: "/user/cart/update", body: req}, &out); err != nil {
		return nil, err
	}
	return out.snapshot(), nil
}

// RemoveCartItem drops a variant from the cart.
func (c *Client) RemoveCartItem(ctx context.Context, variantID string) (*Cart, error) {
	var out cartEnvelope
	path := "/user/cart/remove/" + url.PathEscape(variantID)
	if err := c.doJSON(ctx, call{endpoint: "cart.remove", method: http.MethodDelete, path: path}, &out); err != nil {
		return nil, err
	}
	return out.snapshot(), nil
}
