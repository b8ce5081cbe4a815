package checkout

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-gateway/internal/pricing"
	"github.com/angelmondragon/storefront-gateway/pkg/enums"
	"github.com/angelmondragon/storefront-gateway/pkg/shopapi"
	"github.com/angelmondragon/storefront-gateway/pkg/types"
)

const (
	// FailureRedirect is where the client lands when a payment cannot be confirmed.
	FailureRedirect = "/order-failure"
	successPrefix   = "/success/"
	couponNone      = "none"
)

// SuccessRedirect is the confirmation route for a placed order.
func SuccessRedirect(orderID string) string {
	return successPrefix + orderID
}

// CartSummary is the priced cart the session was loaded against.
type CartSummary struct {
	Items    []shopapi.CartItem `json:"items"`
	Subtotal decimal.Decimal    `json:"subtotal"`
	Shipping decimal.Decimal    `json:"shipping"`
	Total    decimal.Decimal    `json:"total"`
	Savings  decimal.Decimal    `json:"savings"`
}

// Prefill seeds the hosted payment overlay's customer fields.
type Prefill struct {
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Contact string `json:"contact,omitempty"`
}

// PaymentHandoff is everything the client needs to open the hosted overlay.
// Amount is in the gateway's minor unit.
type PaymentHandoff struct {
	Key         string    `json:"key"`
	Amount      int64     `json:"amount"`
	Currency    string    `json:"currency"`
	OrderID     string    `json:"order_id"`
	Name        string    `json:"name"`
	Prefill     Prefill   `json:"prefill"`
	TempOrderID string    `json:"tempOrderId,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// PaymentResult is what the overlay hands back on success.
type PaymentResult struct {
	OrderID   string `json:"razorpay_order_id"`
	PaymentID string `json:"razorpay_payment_id"`
	Signature string `json:"razorpay_signature"`
}

// Customer identifies the shopper for overlay prefill.
type Customer struct {
	Name  string
	Email string
}

// Session is one checkout attempt. It is persisted between requests and
// discarded when the client navigates away.
type Session struct {
	ID       string              `json:"id"`
	ClientID string              `json:"clientId"`
	State    enums.CheckoutState `json:"state"`

	Addresses     []shopapi.Address `json:"addresses"`
	Coupons       []shopapi.Coupon  `json:"coupons"`
	WalletBalance decimal.Decimal   `json:"walletBalance"`
	Cart          CartSummary       `json:"cart"`

	SelectedAddressID string              `json:"selectedAddressId,omitempty"`
	PaymentMethod     enums.PaymentMethod `json:"paymentMethod,omitempty"`
	CouponCode        string              `json:"couponCode,omitempty"`
	CouponDiscount    decimal.Decimal     `json:"couponDiscount"`
	CouponMessage     string              `json:"couponMessage,omitempty"`

	FinalAmount      decimal.Decimal `json:"finalAmount"`
	CODAvailable     bool            `json:"codAvailable"`
	WalletSufficient bool            `json:"walletSufficient"`

	Payment  *PaymentHandoff `json:"payment,omitempty"`
	OrderID  string          `json:"orderId,omitempty"`
	Redirect string          `json:"redirect,omitempty"`
	Error    string          `json:"error,omitempty"`
	Notices  []types.Notice  `json:"notices,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func newSession(id, clientID string, now time.Time) *Session {
	return &Session{
		ID:        id,
		ClientID:  clientID,
		State:     enums.CheckoutStateLoading,
		Addresses: []shopapi.Address{},
		Coupons:   []shopapi.Coupon{},
		Cart:      CartSummary{Items: []shopapi.CartItem{}},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// reprice recomputes the payable amount and the eligibility flags derived from it.
// A cod selection that is no longer eligible is cleared.
func (s *Session) reprice() {
	s.FinalAmount = pricing.FinalAmount(s.Cart.Total, s.CouponDiscount)
	s.CODAvailable = pricing.CODAvailable(s.FinalAmount)
	s.WalletSufficient = pricing.WalletCovers(s.WalletBalance, s.FinalAmount)
	if s.PaymentMethod == enums.PaymentMethodCOD && !s.CODAvailable {
		s.PaymentMethod = ""
	}
}

func (s *Session) clearCoupon() {
	s.CouponCode = ""
	s.CouponDiscount = decimal.Zero
	s.CouponMessage = ""
	s.reprice()
}

func (s *Session) address(id string) (shopapi.Address, bool) {
	for _, a := range s.Addresses {
		if a.ID == id {
			return a, true
		}
	}
	return shopapi.Address{}, false
}

func (s *Session) coupon(code string) (shopapi.Coupon, bool) {
	for _, c := range s.Coupons {
		if strings.EqualFold(c.Code, code) {
			return c, true
		}
	}
	return shopapi.Coupon{}, false
}

// preselectAddress keeps a still-valid selection, else picks the default
// address, else the first one.
func (s *Session) preselectAddress() {
	if _, ok := s.address(s.SelectedAddressID); ok {
		return
	}
	s.SelectedAddressID = ""
	for _, a := range s.Addresses {
		if a.IsDefault {
			s.SelectedAddressID = a.ID
			return
		}
	}
	if len(s.Addresses) > 0 {
		s.SelectedAddressID = s.Addresses[0].ID
	}
}

func isCouponReset(code string) bool {
	trimmed := strings.TrimSpace(code)
	return trimmed == "" || strings.EqualFold(trimmed, couponNone)
}
