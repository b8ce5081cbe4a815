package enums

import "fmt"

// CheckoutState is the lifecycle position of a checkout session.
type CheckoutState string

const (
	CheckoutStateLoading         CheckoutState = "loading"
	CheckoutStateReady           CheckoutState = "ready"
	CheckoutStatePricingCoupon   CheckoutState = "pricing_coupon"
	CheckoutStateSubmitting      CheckoutState = "submitting"
	CheckoutStateAwaitingPayment CheckoutState = "awaiting_payment"
	CheckoutStateCompleted       CheckoutState = "completed"
	CheckoutStateFailed          CheckoutState = "failed"
)

var validCheckoutStates = []CheckoutState{
	CheckoutStateLoading,
	CheckoutStateReady,
	CheckoutStatePricingCoupon,
	CheckoutStateSubmitting,
	CheckoutStateAwaitingPayment,
	CheckoutStateCompleted,
	CheckoutStateFailed,
}

// String implements fmt.Stringer.
func (c CheckoutState) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CheckoutState.
func (c CheckoutState) IsValid() bool {
	for _, candidate := range validCheckoutStates {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCheckoutState converts raw input into a CheckoutState.
func ParseCheckoutState(value string) (CheckoutState, error) {
	for _, candidate := range validCheckoutStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid checkout state %q", value)
}

// IsTerminal reports whether the session can no longer transition.
func (c CheckoutState) IsTerminal() bool {
	return c == CheckoutStateCompleted || c == CheckoutStateFailed
}
