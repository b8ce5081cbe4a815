package shopapi

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-gateway/pkg/pagination"
)

// CartItem is one priced line of the server-side cart.
type CartItem struct {
	VariantID     string           `json:"variantId"`
	ProductID     string           `json:"productId"`
	Name          string           `json:"name"`
	Size          string           `json:"size,omitempty"`
	Color         string           `json:"color,omitempty"`
	UnitPrice     decimal.Decimal  `json:"unitPrice"`
	DiscountPrice *decimal.Decimal `json:"discountPrice,omitempty"`
	Quantity      int              `json:"quantity"`
	MainImage     string           `json:"mainImage,omitempty"`
}

// Cart is the authoritative cart snapshot returned by every cart endpoint.
type Cart struct {
	Items    []CartItem      `json:"items"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Shipping decimal.Decimal `json:"shipping"`
	Total    decimal.Decimal `json:"total"`
}

type Address struct {
	ID         string `json:"id"`
	FullName   string `json:"fullName"`
	Phone      string `json:"phone"`
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
	IsDefault  bool   `json:"isDefault"`
}

type AddressInput struct {
	FullName   string `json:"fullName"`
	Phone      string `json:"phone"`
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
	IsDefault  bool   `json:"isDefault"`
}

type Coupon struct {
	Code           string          `json:"code"`
	DiscountType   string          `json:"discountType"`
	DiscountValue  decimal.Decimal `json:"discountValue"`
	MinOrderAmount decimal.Decimal `json:"minOrderAmount"`
	Description    string          `json:"description,omitempty"`
	ExpiresAt      *time.Time      `json:"expiryDate,omitempty"`
}

type ApplyCouponRequest struct {
	CouponCode string          `json:"couponCode"`
	CartTotal  decimal.Decimal `json:"cartTotal"`
}

type ApplyCouponResponse struct {
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	Message        string          `json:"message,omitempty"`
}

type PriceLine struct {
	VariantID     string          `json:"variantId"`
	Quantity      int             `json:"quantity"`
	OriginalPrice decimal.Decimal `json:"originalPrice"`
	FinalPrice    decimal.Decimal `json:"finalPrice"`
	Discount      decimal.Decimal `json:"discount"`
}

type CalculatePriceRequest struct {
	CouponCode string     `json:"couponCode"`
	CartItems  []CartItem `json:"cartItems"`
}

type CalculatePriceResponse struct {
	Items         []PriceLine     `json:"items"`
	TotalDiscount decimal.Decimal `json:"totalDiscount"`
	FinalTotal    decimal.Decimal `json:"finalTotal"`
}

type Wallet struct {
	Balance decimal.Decimal `json:"balance"`
}

type PlaceOrderRequest struct {
	AddressID     string          `json:"addressId"`
	PaymentMethod string          `json:"paymentMethod"`
	CouponCode    string          `json:"couponCode,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
}

type PlaceOrderResponse struct {
	OrderID string `json:"orderId"`
}

type CreatePaymentOrderRequest struct {
	Amount         decimal.Decimal `json:"amount"`
	AddressID      string          `json:"addressId"`
	PaymentMethod  string          `json:"paymentMethod"`
	CouponCode     string          `json:"couponCode,omitempty"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
}

// PaymentOrder is the provisional order the hosted overlay is opened against.
// Amount is in the gateway's minor unit.
type PaymentOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency,omitempty"`
}

type CreatePaymentOrderResponse struct {
	Success     bool         `json:"success"`
	Order       PaymentOrder `json:"order"`
	TempOrderID string       `json:"tempOrderId"`
}

type VerifyPaymentRequest struct {
	RazorpayOrderID   string          `json:"razorpay_order_id"`
	RazorpayPaymentID string          `json:"razorpay_payment_id"`
	RazorpaySignature string          `json:"razorpay_signature"`
	TempOrderID       string          `json:"tempOrderId"`
	Amount            decimal.Decimal `json:"amount"`
	CouponCode        string          `json:"couponCode,omitempty"`
	DiscountAmount    decimal.Decimal `json:"discountAmount"`
}

type VerifyPaymentResponse struct {
	Success bool   `json:"success"`
	OrderID string `json:"orderId"`
	Message string `json:"message,omitempty"`
}

type WishlistItem struct {
	ID            string           `json:"id"`
	ProductID     string           `json:"productId"`
	VariantID     string           `json:"variantId"`
	Name          string           `json:"name"`
	Price         decimal.Decimal  `json:"price"`
	DiscountPrice *decimal.Decimal `json:"discountPrice,omitempty"`
	MainImage     string           `json:"mainImage,omitempty"`
	Size          string           `json:"size,omitempty"`
	Color         string           `json:"color,omitempty"`
}

type AddToCartRequest struct {
	VariantID string `json:"variantId"`
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type UpdateCartRequest struct {
	VariantID string `json:"variantId"`
	Quantity  int    `json:"quantity"`
}

// Profile is the signed-in principal the upstream returns on login.
type Profile struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
}

// LoginResponse is shared by admin login and OTP verification.
type LoginResponse struct {
	Token   string  `json:"token"`
	Profile Profile `json:"-"`
}

type AdminLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SendOTPRequest struct {
	Email string `json:"email"`
}

type VerifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type SalesReportQuery struct {
	Period    string
	StartDate string
	EndDate   string
	Page      pagination.Params
}

type SalesSummary struct {
	TotalOrders    int             `json:"totalOrders"`
	TotalSales     decimal.Decimal `json:"totalSales"`
	TotalDiscount  decimal.Decimal `json:"totalDiscount"`
	CouponDiscount decimal.Decimal `json:"couponDiscount"`
	NetRevenue     decimal.Decimal `json:"netRevenue"`
}

type SalesOrder struct {
	OrderID        string          `json:"orderId"`
	Customer       string          `json:"customer"`
	Date           time.Time       `json:"date"`
	Amount         decimal.Decimal `json:"amount"`
	Discount       decimal.Decimal `json:"discount"`
	CouponDiscount decimal.Decimal `json:"couponDiscount"`
	PaymentMethod  string          `json:"paymentMethod"`
	Status         string          `json:"status"`
}

type SalesReport struct {
	Summary    SalesSummary    `json:"summary"`
	Orders     []SalesOrder    `json:"orders"`
	Pagination pagination.Meta `json:"pagination"`
}

// Download is a binary report body.
type Download struct {
	ContentType string
	Filename    string
	Body        []byte
}

type UsersQuery struct {
	Search string
	Page   pagination.Params
}

type AdminUser struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

type UsersPage struct {
	Users      []AdminUser     `json:"users"`
	Pagination pagination.Meta `json:"pagination"`
}
