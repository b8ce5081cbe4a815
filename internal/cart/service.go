package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-gateway/internal/pricing"
	"github.com/angelmondragon/storefront-gateway/internal/storage"
	"github.com/angelmondragon/storefront-gateway/pkg/checkout"
	pkgerrors "github.com/angelmondragon/storefront-gateway/pkg/errors"
	"github.com/angelmondragon/storefront-gateway/pkg/logger"
	"github.com/angelmondragon/storefront-gateway/pkg/shopapi"
)

// Slot is the state-store slot holding a client's cached cart snapshot.
const Slot = "cart"

type cartAPI interface {
	GetCart(ctx context.Context) (*shopapi.Cart, error)
	AddToCart(ctx context.Context, req shopapi.AddToCartRequest) (*shopapi.Cart, error)
	UpdateCartItem(ctx context.Context, req shopapi.UpdateCartRequest) (*shopapi.Cart, error)
	RemoveCartItem(ctx context.Context, variantID string) (*shopapi.Cart, error)
}

// Snapshot is the cart as last returned by the storefront API.
type Snapshot struct {
	Items     []shopapi.CartItem `json:"items"`
	Subtotal  decimal.Decimal    `json:"subtotal"`
	Shipping  decimal.Decimal    `json:"shipping"`
	Total     decimal.Decimal    `json:"total"`
	Savings   decimal.Decimal    `json:"savings"`
	FetchedAt time.Time          `json:"fetchedAt"`
	Sequence  uint64             `json:"sequence"`
}

// ItemCount sums quantities across lines.
func (s *Snapshot) ItemCount() int {
	count := 0
	for _, item := range s.Items {
		count += item.Quantity
	}
	return count
}

// IsEmpty reports whether the cart has no lines.
func (s *Snapshot) IsEmpty() bool {
	return s == nil || len(s.Items) == 0
}

type AddItemInput struct {
	VariantID string
	ProductID string
	Quantity  int
}

// Service keeps one cart snapshot per client. Every mutation round-trips to the
// storefront API and the snapshot is replaced wholesale by the response.
type Service interface {
	Fetch(ctx context.Context, clientID string) (*Snapshot, error)
	Add(ctx context.Context, clientID string, input AddItemInput) (*Snapshot, error)
	UpdateQuantity(ctx context.Context, clientID, variantID string, quantity int) (*Snapshot, error)
	Remove(ctx context.Context, clientID, variantID string) (*Snapshot, error)
	Invalidate(ctx context.Context, clientID string) (*Snapshot, error)
	Snapshot(ctx context.Context, clientID string) (*Snapshot, error)
}

// ownerState orders responses for one client while it has requests in flight.
// inflight is guarded by service.mu and the entry is dropped when it reaches zero.
type ownerState struct {
	mu       sync.Mutex
	applied  uint64
	inflight int
}

type service struct {
	api   cartAPI
	store storage.Store
	logg  *logger.Logger
	ttl   time.Duration
	now   func() time.Time

	seq    atomic.Uint64
	mu     sync.Mutex
	owners map[string]*ownerState
}

// NewService builds the cart store.
func NewService(api cartAPI, store storage.Store, logg *logger.Logger, ttl time.Duration) (Service, error) {
	if api == nil {
		return nil, fmt.Errorf("storefront api client required")
	}
	if store == nil {
		return nil, fmt.Errorf("state store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		api:    api,
		store:  store,
		logg:   logg,
		ttl:    ttl,
		now:    time.Now,
		owners: map[string]*ownerState{},
	}, nil
}

func (s *service) Fetch(ctx context.Context, clientID string) (*Snapshot, error) {
	return s.roundTrip(ctx, clientID, func(ctx context.Context) (*shopapi.Cart, error) {
		return s.api.GetCart(ctx)
	})
}

func (s *service) Add(ctx context.Context, clientID string, input AddItemInput) (*Snapshot, error) {
	variantID := strings.TrimSpace(input.VariantID)
	if variantID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "variantId is required")
	}
	if input.Quantity == 0 {
		input.Quantity = checkout.MinQuantity
	}
	if err := checkout.ValidateQuantity(variantID, input.Quantity); err != nil {
		return nil, err
	}
	req := shopapi.AddToCartRequest{
		VariantID: variantID,
		ProductID: strings.TrimSpace(input.ProductID),
		Quantity:  input.Quantity,
	}
	return s.roundTrip(ctx, clientID, func(ctx context.Context) (*shopapi.Cart, error) {
		return s.api.AddToCart(ctx, req)
	})
}

func (s *service) UpdateQuantity(ctx context.Context, clientID, variantID string, quantity int) (*Snapshot, error) {
	variantID = strings.TrimSpace(variantID)
	if variantID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "variantId is required")
	}
	if err := checkout.ValidateQuantity(variantID, quantity); err != nil {
		return nil, err
	}
	req := shopapi.UpdateCartRequest{VariantID: variantID, Quantity: quantity}
	return s.roundTrip(ctx, clientID, func(ctx context.Context) (*shopapi.Cart, error) {
		return s.api.UpdateCartItem(ctx, req)
	})
}

func (s *service) Remove(ctx context.Context, clientID, variantID string) (*Snapshot, error) {
	variantID = strings.TrimSpace(variantID)
	if variantID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "variantId is required")
	}
	return s.roundTrip(ctx, clientID, func(ctx context.Context) (*shopapi.Cart, error) {
		return s.api.RemoveCartItem(ctx, variantID)
	})
}

// Invalidate refetches the cart after an order is placed. When the refetch
// fails the cached snapshot is cleared and an empty cart is returned with the error.
func (s *service) Invalidate(ctx context.Context, clientID string) (*Snapshot, error) {
	snapshot, err := s.Fetch(ctx, clientID)
	if err == nil {
		return snapshot, nil
	}

	owner, seq := s.acquire(clientID)
	defer s.release(clientID, owner)
	owner.mu.Lock()
	defer owner.mu.Unlock()
	owner.applied = seq
	empty := s.build(&shopapi.Cart{}, seq)
	if delErr := s.store.Delete(ctx, storage.ClientKey(clientID, Slot)); delErr != nil {
		s.logg.Error(ctx, "failed to clear cached cart", delErr)
	}
	return empty, err
}

// Snapshot returns the cached cart, fetching it when nothing is cached.
func (s *service) Snapshot(ctx context.Context, clientID string) (*Snapshot, error) {
	if err := requireClient(clientID); err != nil {
		return nil, err
	}
	cached, err := s.cached(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if cached != nil {
		return cached, nil
	}
	return s.Fetch(ctx, clientID)
}

func (s *service) roundTrip(ctx context.Context, clientID string, call func(context.Context) (*shopapi.Cart, error)) (*Snapshot, error) {
	if err := requireClient(clientID); err != nil {
		return nil, err
	}
	owner, seq := s.acquire(clientID)
	defer s.release(clientID, owner)

	cart, err := call(ctx)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, clientID, owner, seq, cart)
}

// apply replaces the cached snapshot unless a newer response was already applied.
func (s *service) apply(ctx context.Context, clientID string, owner *ownerState, seq uint64, cart *shopapi.Cart) (*Snapshot, error) {
	owner.mu.Lock()
	defer owner.mu.Unlock()

	if seq < owner.applied {
		s.logg.Debug(s.logg.WithClientID(ctx, clientID), "discarding stale cart response")
		cached, err := s.cached(ctx, clientID)
		if err == nil && cached != nil {
			return cached, nil
		}
		return s.build(cart, seq), nil
	}
	owner.applied = seq

	snapshot := s.build(cart, seq)
	if !snapshot.Total.Equal(cart.Total) && !cart.Total.IsZero() {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"client_id":      clientID,
			"upstream_total": cart.Total.String(),
			"derived_total":  snapshot.Total.String(),
		}), "cart total does not match subtotal plus shipping")
	}
	if err := storage.SetJSON(ctx, s.store, storage.ClientKey(clientID, Slot), snapshot, s.ttl); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cache cart snapshot")
	}
	return snapshot, nil
}

func (s *service) build(cart *shopapi.Cart, seq uint64) *Snapshot {
	items := cart.Items
	if items == nil {
		items = []shopapi.CartItem{}
	}
	return &Snapshot{
		Items:     items,
		Subtotal:  cart.Subtotal,
		Shipping:  cart.Shipping,
		Total:     pricing.Reconcile(cart.Subtotal, cart.Shipping),
		Savings:   pricing.Summarize(items).Savings,
		FetchedAt: s.now().UTC(),
		Sequence:  seq,
	}
}

func (s *service) cached(ctx context.Context, clientID string) (*Snapshot, error) {
	var snapshot Snapshot
	if err := storage.GetJSON(ctx, s.store, storage.ClientKey(clientID, Slot), &snapshot); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart snapshot")
	}
	return &snapshot, nil
}

// acquire registers a request for clientID and issues its sequence number.
// Sequence numbers are service-wide so they keep rising after an owner is dropped.
func (s *service) acquire(clientID string) (*ownerState, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	owner, ok := s.owners[clientID]
	if !ok {
		owner = &ownerState{}
		s.owners[clientID] = owner
	}
	owner.inflight++
	return owner, s.seq.Add(1)
}

func (s *service) release(clientID string, owner *ownerState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	owner.inflight--
	if owner.inflight == 0 {
		delete(s.owners, clientID)
	}
}

func requireClient(clientID string) error {
	if strings.TrimSpace(clientID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "client id required")
	}
	return nil
}
