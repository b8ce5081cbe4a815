package shopapi

import (
	"context"
	"net/http"
	"net/url"
)

// GetWishlist returns the shopper's saved items.
func (c *Client) GetWishlist(ctx context.Context) ([]WishlistItem, error) {
	var out struct {
		Wishlist []WishlistItem `json:"wishlist"`
		Items    []WishlistItem `json:"items"`
		Data     []WishlistItem `json:"data"`
	}
	if err := c.doJSON(ctx, call{endpoint: "wishlist.get", method: http.MethodGet, path: "/user/wishlist"}, &out); err != nil {
		return nil, err
	}
	return firstNonNil(out.Wishlist, out.Items, out.Data), nil
}

// RemoveWishlistItem deletes one saved item.
func (c *Client) RemoveWishlistItem(ctx context.Context, id string) error {
	path := "/user/wishlist/" + url.PathEscape(id)
	return c.doJSON(ctx, call{endpoint: "wishlist.remove", method: http.MethodDelete, path: path}, nil)
}
