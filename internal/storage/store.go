// Package storage persists gateway-side client state behind one key/value
// interface with redis, SQL and in-memory drivers.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned by Get when a key is missing or expired.
var ErrNotFound = errors.New("state entry not found")

// Store is the persistence surface shared by sessions, carts, checkout sessions,
// idempotency records and rate-limit counters. A ttl of zero means no expiry.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Delete(ctx context.Context, keys ...string) error
	Ping(ctx context.Context) error
}

// ClientKey scopes a slot (auth, admin, cart, ...) to one browser client.
func ClientKey(clientID, slot string) string {
	return joinKey("client", clientID, slot)
}

// CheckoutKey addresses a persisted checkout session.
func CheckoutKey(clientID, checkoutID string) string {
	return joinKey("checkout", clientID, checkoutID)
}

// IdempotencyKey addresses a stored idempotent response.
func IdempotencyKey(scope, id string) string {
	return joinKey("idempotency", scope, id)
}

// RateLimitKey addresses a fixed-window counter.
func RateLimitKey(scope string) string {
	return joinKey("rate_limit", scope)
}

func joinKey(parts ...string) string {
	clean := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			clean = append(clean, trimmed)
		}
	}
	return strings.Join(clean, ":")
}

// GetJSON loads key into out. It returns ErrNotFound when the key is absent.
func GetJSON(ctx context.Context, store Store, key string, out any) error {
	raw, err := store.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("decode state %q: %w", key, err)
	}
	return nil
}

// SetJSON stores value under key as JSON.
func SetJSON(ctx context.Context, store Store, key string, value any, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode state %q: %w", key, err)
	}
	return store.Set(ctx, key, string(payload), ttl)
}

// FixedWindowAllow applies a simple fixed-window rate limit on top of Incr.
func FixedWindowAllow(ctx context.Context, store Store, scope string, limit int64, window time.Duration) (bool, int64, error) {
	count, err := store.Incr(ctx, RateLimitKey(scope), window)
	if err != nil {
		return false, 0, err
	}
	return count <= limit, count, nil
}
