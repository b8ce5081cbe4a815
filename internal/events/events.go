// Package events publishes checkout outcomes for downstream consumers.
package events

import (
	"time"

	"github.com/shopspring/decimal"
)

// Type names a checkout event.
type Type string

const (
	TypeOrderPlaced   Type = "checkout.order_placed"
	TypePaymentFailed Type = "checkout.payment_failed"
)

// EnvelopeVersion is bumped when Envelope changes shape.
const EnvelopeVersion = 1

// Envelope is the stable message body published to the checkout topic.
type Envelope struct {
	Version    int       `json:"version"`
	EventID    string    `json:"eventId"`
	Type       Type      `json:"type"`
	OccurredAt time.Time `json:"occurredAt"`
	Data       any       `json:"data"`
}

// OrderPlaced is emitted once an order exists upstream.
type OrderPlaced struct {
	CheckoutID     string          `json:"checkoutId"`
	ClientID       string          `json:"clientId"`
	OrderID        string          `json:"orderId"`
	PaymentMethod  string          `json:"paymentMethod"`
	Amount         decimal.Decimal `json:"amount"`
	CouponCode     string          `json:"couponCode,omitempty"`
	CouponDiscount decimal.Decimal `json:"couponDiscount"`
}

// OrderingKey keeps events for one checkout in publish order.
func (e OrderPlaced) OrderingKey() string { return e.CheckoutID }

// PaymentFailed is emitted when an online payment is rejected or abandoned.
type PaymentFailed struct {
	CheckoutID     string          `json:"checkoutId"`
	ClientID       string          `json:"clientId"`
	PaymentOrderID string          `json:"paymentOrderId,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
	Reason         string          `json:"reason"`
}

func (e PaymentFailed) OrderingKey() string { return e.CheckoutID }

const (
	ReasonVerificationFailed = "verification_failed"
	ReasonDismissed          = "dismissed"
)
