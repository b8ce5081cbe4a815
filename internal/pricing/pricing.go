// Package pricing holds the pure cart and checkout arithmetic shared by the
// cart view and the checkout summary.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-gateway/pkg/money"
	"github.com/angelmondragon/storefront-gateway/pkg/shopapi"
)

// CODLimit is the highest payable amount for which cash on delivery is offered.
var CODLimit = decimal.NewFromInt(1000)

// Summary is the display-side aggregate of a list of cart lines.
type Summary struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Savings  decimal.Decimal `json:"savings"`
}

// EffectivePrice is the discount price when 0 < discount < unit, else the unit price.
func EffectivePrice(item shopapi.CartItem) decimal.Decimal {
	if HasValidDiscount(item.UnitPrice, item.DiscountPrice) {
		return *item.DiscountPrice
	}
	return item.UnitPrice
}

// HasValidDiscount applies the strict inequality; an equal or higher discount price is no discount.
func HasValidDiscount(unit decimal.Decimal, discount *decimal.Decimal) bool {
	if discount == nil {
		return false
	}
	return discount.IsPositive() && discount.LessThan(unit)
}

// Summarize computes subtotal and savings over items.
func Summarize(items []shopapi.CartItem) Summary {
	subtotal := decimal.Zero
	savings := decimal.Zero
	for _, item := range items {
		qty := decimal.NewFromInt(int64(item.Quantity))
		effective := EffectivePrice(item)
		subtotal = subtotal.Add(effective.Mul(qty))
		savings = savings.Add(item.UnitPrice.Sub(effective).Mul(qty))
	}
	return Summary{Subtotal: subtotal, Savings: savings}
}

// Reconcile returns the display total for a subtotal and shipping charge.
func Reconcile(subtotal, shipping decimal.Decimal) decimal.Decimal {
	return subtotal.Add(shipping)
}

// FinalAmount subtracts the server-computed coupon discount from the cart total.
// The result is never negative.
func FinalAmount(total, couponDiscount decimal.Decimal) decimal.Decimal {
	return money.ClampZero(total.Sub(couponDiscount))
}

// CODAvailable reports whether cash on delivery may be selected for final.
func CODAvailable(final decimal.Decimal) bool {
	return final.LessThanOrEqual(CODLimit)
}

// WalletCovers reports whether a wallet balance can pay final in full.
func WalletCovers(balance, final decimal.Decimal) bool {
	return balance.GreaterThanOrEqual(final)
}

// CouponApplicable reports whether an order of subtotal meets the coupon minimum.
func CouponApplicable(minOrderAmount, subtotal decimal.Decimal) bool {
	return minOrderAmount.LessThanOrEqual(subtotal)
}
