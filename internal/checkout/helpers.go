package checkout

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"

	"go.uber.org/multierr"

	"github.com/angelmondragon/storefront-gateway/internal/cart"
	"github.com/angelmondragon/storefront-gateway/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-gateway/pkg/errors"
	"github.com/angelmondragon/storefront-gateway/pkg/shopapi"
	"github.com/angelmondragon/storefront-gateway/pkg/types"
)

const lockStripes = 64

// stripedLocks serializes read-modify-write cycles on one session within this process.
type stripedLocks struct {
	stripes [lockStripes]sync.Mutex
}

func (l *stripedLocks) lock(key string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	m := &l.stripes[h.Sum32()%lockStripes]
	m.Lock()
	return m.Unlock
}

// mutate loads the session, applies fn and persists the result. The error
// returned by fn is recorded on the session and returned alongside it. State
// conflicts are returned without touching the stored session.
func (s *service) mutate(ctx context.Context, clientID, id string, fn func(*Session) error) (*Session, error) {
	unlock := s.locks.lock(clientID + "/" + id)
	defer unlock()

	session, err := s.repo.Find(ctx, clientID, id)
	if err != nil {
		return nil, err
	}
	session.Error = ""
	fnErr := fn(session)
	if pkgerrors.IsCode(fnErr, pkgerrors.CodeStateConflict) {
		return nil, fnErr
	}
	if fnErr != nil {
		session.Error = errorMessage(fnErr)
	}
	session.UpdatedAt = s.now().UTC()
	if err := s.repo.Save(ctx, session); err != nil {
		return nil, err
	}
	return session, fnErr
}

// settle applies the result of an upstream call to a session claimed in state
// expect. It runs even when the caller's context was cancelled so a claimed
// session never stays in a transitional state.
func (s *service) settle(ctx context.Context, clientID, id string, expect enums.CheckoutState, fn func(*Session) error) (*Session, error) {
	ctx = context.WithoutCancel(ctx)
	return s.mutate(ctx, clientID, id, func(session *Session) error {
		if session.State != expect {
			s.logg.Warn(ctx, fmt.Sprintf("checkout left %s before the upstream call returned", expect))
			return stateConflict(session)
		}
		return fn(session)
	})
}

// fail records err on the session without changing its state.
func (s *service) fail(ctx context.Context, clientID, id string, err error) (*Session, error) {
	session, mutateErr := s.mutate(context.WithoutCancel(ctx), clientID, id, func(*Session) error {
		return err
	})
	if session == nil {
		return nil, mutateErr
	}
	return session, err
}

func requireState(session *Session, want enums.CheckoutState) error {
	if session.State != want {
		return stateConflict(session)
	}
	return nil
}

func stateConflict(session *Session) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("checkout is %s", session.State)).WithDetails(map[string]any{
		"state": session.State,
	})
}

func errorMessage(err error) string {
	if typed := pkgerrors.As(err); typed != nil && typed.Message() != "" {
		return typed.Message()
	}
	return pkgerrors.MetadataFor(pkgerrors.CodeDependency).PublicMessage
}

// loadData is the outcome of the concurrent checkout fetch.
type loadData struct {
	addresses  []shopapi.Address
	coupons    []shopapi.Coupon
	wallet     *shopapi.Wallet
	cart       *cart.Snapshot
	addressErr error
	couponErr  error
	walletErr  error
	cartErr    error
}

// fetchAll loads addresses, coupons, wallet and cart concurrently. Each failure
// becomes a notice; none of them fails the load.
func (s *service) fetchAll(ctx context.Context, clientID string) *loadData {
	data := &loadData{}
	var wg sync.WaitGroup
	wg.Add(4)
	go func() {
		defer wg.Done()
		data.addresses, data.addressErr = s.api.ListAddresses(ctx)
	}()
	go func() {
		defer wg.Done()
		data.coupons, data.couponErr = s.api.AvailableCoupons(ctx)
	}()
	go func() {
		defer wg.Done()
		data.wallet, data.walletErr = s.api.Wallet(ctx)
	}()
	go func() {
		defer wg.Done()
		data.cart, data.cartErr = s.carts.Fetch(ctx, clientID)
	}()
	wg.Wait()

	if err := multierr.Combine(data.addressErr, data.couponErr, data.walletErr, data.cartErr); err != nil {
		failed := len(multierr.Errors(err))
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"failed_fetches": failed,
			"errors":         err.Error(),
		}), "checkout loaded with partial data")
	}
	return data
}

func (d *loadData) notices() []types.Notice {
	var out []types.Notice
	add := func(source string, err error, message string) {
		if err == nil {
			return
		}
		code := pkgerrors.CodeDependency
		if typed := pkgerrors.As(err); typed != nil {
			code = typed.Code()
		}
		out = append(out, types.Notice{Source: source, Code: string(code), Message: message})
	}
	add("addresses", d.addressErr, "could not load your saved addresses")
	add("coupons", d.couponErr, "could not load available coupons")
	add("wallet", d.walletErr, "could not load your wallet balance")
	add("cart", d.cartErr, "could not load your cart")
	return out
}

// applyTo moves a session from loading to ready with whatever data arrived.
func (d *loadData) applyTo(session *Session) {
	notices := d.notices()
	if d.addressErr == nil {
		session.Addresses = nonNil(d.addresses)
	}
	if d.couponErr == nil {
		session.Coupons = nonNil(d.coupons)
	}
	if d.walletErr == nil && d.wallet != nil {
		session.WalletBalance = d.wallet.Balance
	}
	if d.cartErr == nil && d.cart != nil {
		previous := session.Cart.Total
		session.Cart = CartSummary{
			Items:    nonNil(d.cart.Items),
			Subtotal: d.cart.Subtotal,
			Shipping: d.cart.Shipping,
			Total:    d.cart.Total,
			Savings:  d.cart.Savings,
		}
		if session.CouponCode != "" && !previous.Equal(session.Cart.Total) {
			session.clearCoupon()
			notices = append(notices, types.Notice{
				Source:  "coupon",
				Code:    "COUPON_CLEARED",
				Message: "your cart changed; apply the coupon again",
			})
		}
	}
	session.Notices = notices
	session.preselectAddress()
	session.reprice()
	session.State = enums.CheckoutStateReady
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
