package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-gateway/internal/cart"
	"github.com/angelmondragon/storefront-gateway/internal/events"
	"github.com/angelmondragon/storefront-gateway/internal/pricing"
	"github.com/angelmondragon/storefront-gateway/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-gateway/pkg/errors"
	"github.com/angelmondragon/storefront-gateway/pkg/logger"
	"github.com/angelmondragon/storefront-gateway/pkg/money"
	"github.com/angelmondragon/storefront-gateway/pkg/shopapi"
)

type shopAPI interface {
	ListAddresses(ctx context.Context) ([]shopapi.Address, error)
	CreateAddress(ctx context.Context, input shopapi.AddressInput) (*shopapi.Address, error)
	AvailableCoupons(ctx context.Context) ([]shopapi.Coupon, error)
	ApplyCoupon(ctx context.Context, req shopapi.ApplyCouponRequest) (*shopapi.ApplyCouponResponse, error)
	CalculatePrice(ctx context.Context, req shopapi.CalculatePriceRequest) (*shopapi.CalculatePriceResponse, error)
	Wallet(ctx context.Context) (*shopapi.Wallet, error)
	PlaceOrder(ctx context.Context, req shopapi.PlaceOrderRequest) (*shopapi.PlaceOrderResponse, error)
	CreatePaymentOrder(ctx context.Context, req shopapi.CreatePaymentOrderRequest) (*shopapi.CreatePaymentOrderResponse, error)
	VerifyPayment(ctx context.Context, req shopapi.VerifyPaymentRequest) (*shopapi.VerifyPaymentResponse, error)
}

type cartStore interface {
	Fetch(ctx context.Context, clientID string) (*cart.Snapshot, error)
	Invalidate(ctx context.Context, clientID string) (*cart.Snapshot, error)
}

type outcomeRecorder interface {
	IncOutcome(outcome, method string)
}

// PaymentSettings are the public overlay parameters.
type PaymentSettings struct {
	KeyID        string
	Currency     string
	MerchantName string
}

const (
	OutcomeCompleted        = "completed"
	OutcomeRejected         = "rejected"
	OutcomeAwaitingPayment  = "awaiting_payment"
	OutcomePaymentFailed    = "payment_failed"
	OutcomePaymentDismissed = "payment_dismissed"
)

// Service drives a checkout session from loading to a placed order.
type Service interface {
	Start(ctx context.Context, clientID string) (*Session, error)
	Get(ctx context.Context, clientID, id string) (*Session, error)
	Load(ctx context.Context, clientID, id string) (*Session, error)
	Reset(ctx context.Context, clientID, id string) (*Session, error)
	SelectAddress(ctx context.Context, clientID, id, addressID string) (*Session, error)
	AddAddress(ctx context.Context, clientID, id string, input shopapi.AddressInput) (*Session, error)
	SelectPaymentMethod(ctx context.Context, clientID, id string, method enums.PaymentMethod) (*Session, error)
	ApplyCoupon(ctx context.Context, clientID, id, code string) (*Session, error)
	PreviewCoupon(ctx context.Context, clientID, id, code string) (*shopapi.CalculatePriceResponse, error)
	PlaceOrder(ctx context.Context, clientID, id string, customer Customer) (*Session, error)
	CompletePayment(ctx context.Context, clientID, id string, result PaymentResult) (*Session, error)
	DismissPayment(ctx context.Context, clientID, id string) (*Session, error)
}

type noopRecorder struct{}

func (noopRecorder) IncOutcome(string, string) {}

type service struct {
	api       shopAPI
	carts     cartStore
	repo      Repository
	publisher events.Publisher
	outcomes  outcomeRecorder
	logg      *logger.Logger
	payment   PaymentSettings
	now       func() time.Time
	locks     stripedLocks
}

// NewService builds the checkout workflow controller.
func NewService(
	api shopAPI,
	carts cartStore,
	repo Repository,
	publisher events.Publisher,
	outcomes outcomeRecorder,
	logg *logger.Logger,
	payment PaymentSettings,
) (Service, error) {
	if api == nil {
		return nil, fmt.Errorf("storefront api client required")
	}
	if carts == nil {
		return nil, fmt.Errorf("cart service required")
	}
	if repo == nil {
		return nil, fmt.Errorf("checkout repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if publisher == nil {
		publisher = events.Noop{}
	}
	if outcomes == nil {
		outcomes = noopRecorder{}
	}
	if payment.Currency == "" {
		payment.Currency = "INR"
	}
	return &service{
		api:       api,
		carts:     carts,
		repo:      repo,
		publisher: publisher,
		outcomes:  outcomes,
		logg:      logg,
		payment:   payment,
		now:       time.Now,
	}, nil
}

func (s *service) Start(ctx context.Context, clientID string) (*Session, error) {
	if strings.TrimSpace(clientID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "client id required")
	}
	session := newSession(uuid.NewString(), clientID, s.now().UTC())
	data := s.fetchAll(s.logg.WithCheckoutID(ctx, session.ID), clientID)
	data.applyTo(session)
	session.UpdatedAt = s.now().UTC()
	if err := s.repo.Save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *service) Get(ctx context.Context, clientID, id string) (*Session, error) {
	return s.repo.Find(ctx, clientID, id)
}

// Load refetches addresses, coupons, wallet and cart for a ready session.
func (s *service) Load(ctx context.Context, clientID, id string) (*Session, error) {
	if _, err := s.mutate(ctx, clientID, id, func(session *Session) error {
		if err := requireState(session, enums.CheckoutStateReady); err != nil {
			return err
		}
		session.State = enums.CheckoutStateLoading
		return nil
	}); err != nil {
		return nil, err
	}

	data := s.fetchAll(s.logg.WithCheckoutID(ctx, id), clientID)
	return s.settle(ctx, clientID, id, enums.CheckoutStateLoading, func(session *Session) error {
		data.applyTo(session)
		return nil
	})
}

// Reset discards the session's selections and outcome and loads it afresh.
func (s *service) Reset(ctx context.Context, clientID, id string) (*Session, error) {
	var createdAt time.Time
	if _, err := s.mutate(ctx, clientID, id, func(session *Session) error {
		switch session.State {
		case enums.CheckoutStateLoading, enums.CheckoutStatePricingCoupon, enums.CheckoutStateSubmitting:
			return stateConflict(session)
		}
		createdAt = session.CreatedAt
		*session = *newSession(session.ID, session.ClientID, createdAt)
		return nil
	}); err != nil {
		return nil, err
	}

	data := s.fetchAll(s.logg.WithCheckoutID(ctx, id), clientID)
	return s.settle(ctx, clientID, id, enums.CheckoutStateLoading, func(session *Session) error {
		data.applyTo(session)
		return nil
	})
}

func (s *service) SelectAddress(ctx context.Context, clientID, id, addressID string) (*Session, error) {
	addressID = strings.TrimSpace(addressID)
	return s.mutate(ctx, clientID, id, func(session *Session) error {
		if err := requireState(session, enums.CheckoutStateReady); err != nil {
			return err
		}
		if _, ok := session.address(addressID); !ok {
			return pkgerrors.New(pkgerrors.CodeValidation, "select one of your saved addresses")
		}
		session.SelectedAddressID = addressID
		return nil
	})
}

// AddAddress creates an address upstream, reloads the address list and selects the new entry.
func (s *service) AddAddress(ctx context.Context, clientID, id string, input shopapi.AddressInput) (*Session, error) {
	current, err := s.repo.Find(ctx, clientID, id)
	if err != nil {
		return nil, err
	}
	if err := requireState(current, enums.CheckoutStateReady); err != nil {
		return nil, err
	}

	created, err := s.api.CreateAddress(ctx, input)
	if err == nil && (created == nil || created.ID == "") {
		err = pkgerrors.New(pkgerrors.CodeDependency, "address was not created")
	}
	if err != nil {
		return s.fail(ctx, clientID, id, err)
	}
	addresses, listErr := s.api.ListAddresses(ctx)
	if listErr != nil {
		s.logg.Warn(s.logg.WithCheckoutID(ctx, id), "address list reload failed after create")
	}

	return s.mutate(ctx, clientID, id, func(session *Session) error {
		if err := requireState(session, enums.CheckoutStateReady); err != nil {
			return err
		}
		if listErr == nil {
			session.Addresses = addresses
		} else {
			if created.IsDefault {
				for i := range session.Addresses {
					session.Addresses[i].IsDefault = false
				}
			}
			session.Addresses = append(session.Addresses, *created)
		}
		if _, ok := session.address(created.ID); !ok {
			session.Addresses = append(session.Addresses, *created)
		}
		session.SelectedAddressID = created.ID
		return nil
	})
}

func (s *service) SelectPaymentMethod(ctx context.Context, clientID, id string, method enums.PaymentMethod) (*Session, error) {
	if !method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown payment method %q", method))
	}
	return s.mutate(ctx, clientID, id, func(session *Session) error {
		if err := requireState(session, enums.CheckoutStateReady); err != nil {
			return err
		}
		session.reprice()
		if method == enums.PaymentMethodCOD && !session.CODAvailable {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("cash on delivery is only available for orders up to %s", pricing.CODLimit.StringFixed(0)))
		}
		session.PaymentMethod = method
		return nil
	})
}

// ApplyCoupon prices code against the cart total upstream. "none" or an empty
// code clears the coupon without a network call. Any failure leaves no coupon applied.
func (s *service) ApplyCoupon(ctx context.Context, clientID, id, code string) (*Session, error) {
	if isCouponReset(code) {
		return s.mutate(ctx, clientID, id, func(session *Session) error {
			if err := requireState(session, enums.CheckoutStateReady); err != nil {
				return err
			}
			session.clearCoupon()
			return nil
		})
	}

	code = strings.TrimSpace(code)
	var cartTotal decimal.Decimal
	if _, err := s.mutate(ctx, clientID, id, func(session *Session) error {
		if err := requireState(session, enums.CheckoutStateReady); err != nil {
			return err
		}
		if coupon, ok := session.coupon(code); ok && !pricing.CouponApplicable(coupon.MinOrderAmount, session.Cart.Subtotal) {
			session.clearCoupon()
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("this coupon needs a minimum order of %s", money.Format(coupon.MinOrderAmount)))
		}
		cartTotal = session.Cart.Total
		session.State = enums.CheckoutStatePricingCoupon
		return nil
	}); err != nil {
		return nil, err
	}

	resp, err := s.api.ApplyCoupon(ctx, shopapi.ApplyCouponRequest{CouponCode: code, CartTotal: cartTotal})
	return s.settle(ctx, clientID, id, enums.CheckoutStatePricingCoupon, func(session *Session) error {
		session.State = enums.CheckoutStateReady
		if err != nil {
			session.clearCoupon()
			return err
		}
		session.CouponCode = code
		session.CouponDiscount = money.ClampZero(resp.DiscountAmount)
		session.CouponMessage = resp.Message
		session.reprice()
		return nil
	})
}

// PreviewCoupon re-prices every cart line with code for display. The session's
// payable amount is not changed.
func (s *service) PreviewCoupon(ctx context.Context, clientID, id, code string) (*shopapi.CalculatePriceResponse, error) {
	if isCouponReset(code) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required")
	}
	session, err := s.repo.Find(ctx, clientID, id)
	if err != nil {
		return nil, err
	}
	if session.State.IsTerminal() || session.State == enums.CheckoutStateLoading {
		return nil, stateConflict(session)
	}
	if len(session.Cart.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	return s.api.CalculatePrice(ctx, shopapi.CalculatePriceRequest{
		CouponCode: strings.TrimSpace(code),
		CartItems:  session.Cart.Items,
	})
}
