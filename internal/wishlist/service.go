package wishlist

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-gateway/internal/cart"
	"github.com/angelmondragon/storefront-gateway/internal/storage"
	pkgerrors "github.com/angelmondragon/storefront-gateway/pkg/errors"
	"github.com/angelmondragon/storefront-gateway/pkg/logger"
	"github.com/angelmondragon/storefront-gateway/pkg/shopapi"
)

// Slot is the state-store slot holding a client's cached wishlist.
const Slot = "wishlist"

type wishlistAPI interface {
	GetWishlist(ctx context.Context) ([]shopapi.WishlistItem, error)
	RemoveWishlistItem(ctx context.Context, id string) error
}

type cartAdder interface {
	Add(ctx context.Context, clientID string, input cart.AddItemInput) (*cart.Snapshot, error)
}

type Snapshot struct {
	Items     []shopapi.WishlistItem `json:"items"`
	FetchedAt time.Time              `json:"fetchedAt"`
}

// Find returns the saved item with id.
func (s *Snapshot) Find(id string) (shopapi.WishlistItem, bool) {
	for _, item := range s.Items {
		if item.ID == id {
			return item, true
		}
	}
	return shopapi.WishlistItem{}, false
}

// MoveResult carries both refreshed snapshots after a move to cart.
type MoveResult struct {
	Wishlist *Snapshot      `json:"wishlist"`
	Cart     *cart.Snapshot `json:"cart"`
}

type Service interface {
	Fetch(ctx context.Context, clientID string) (*Snapshot, error)
	Remove(ctx context.Context, clientID, id string) (*Snapshot, error)
	MoveToCart(ctx context.Context, clientID, id string, quantity int) (*MoveResult, error)
}

type service struct {
	api   wishlistAPI
	carts cartAdder
	store storage.Store
	logg  *logger.Logger
	ttl   time.Duration
	now   func() time.Time
}

func NewService(api wishlistAPI, carts cartAdder, store storage.Store, logg *logger.Logger, ttl time.Duration) (Service, error) {
	if api == nil {
		return nil, fmt.Errorf("storefront api client required")
	}
	if carts == nil {
		return nil, fmt.Errorf("cart service required")
	}
	if store == nil {
		return nil, fmt.Errorf("state store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{api: api, carts: carts, store: store, logg: logg, ttl: ttl, now: time.Now}, nil
}

func (s *service) Fetch(ctx context.Context, clientID string) (*Snapshot, error) {
	if strings.TrimSpace(clientID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "client id required")
	}
	items, err := s.api.GetWishlist(ctx)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []shopapi.WishlistItem{}
	}
	snapshot := &Snapshot{Items: items, FetchedAt: s.now().UTC()}
	if err := storage.SetJSON(ctx, s.store, storage.ClientKey(clientID, Slot), snapshot, s.ttl); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cache wishlist snapshot")
	}
	return snapshot, nil
}

func (s *service) Remove(ctx context.Context, clientID, id string) (*Snapshot, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wishlist item id is required")
	}
	if err := s.api.RemoveWishlistItem(ctx, id); err != nil {
		return nil, err
	}
	return s.Fetch(ctx, clientID)
}

// MoveToCart adds the saved variant to the cart, then drops it from the wishlist.
// A failed cart add leaves the wishlist untouched.
func (s *service) MoveToCart(ctx context.Context, clientID, id string, quantity int) (*MoveResult, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wishlist item id is required")
	}
	current, err := s.Fetch(ctx, clientID)
	if err != nil {
		return nil, err
	}
	item, ok := current.Find(id)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "wishlist item not found")
	}
	if item.VariantID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wishlist item has no variant to add")
	}

	cartSnapshot, err := s.carts.Add(ctx, clientID, cart.AddItemInput{
		VariantID: item.VariantID,
		ProductID: item.ProductID,
		Quantity:  quantity,
	})
	if err != nil {
		return nil, err
	}

	wishlist, err := s.Remove(ctx, clientID, id)
	if err != nil {
		s.logg.Error(s.logg.WithClientID(ctx, clientID), "item added to cart but wishlist removal failed", err)
		return &MoveResult{Wishlist: current, Cart: cartSnapshot}, err
	}
	return &MoveResult{Wishlist: wishlist, Cart: cartSnapshot}, nil
}
