package checkout

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-gateway/internal/cart"
	"github.com/angelmondragon/storefront-gateway/internal/events"
	"github.com/angelmondragon/storefront-gateway/internal/storage"
	"github.com/angelmondragon/storefront-gateway/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-gateway/pkg/errors"
	"github.com/angelmondragon/storefront-gateway/pkg/logger"
	"github.com/angelmondragon/storefront-gateway/pkg/shopapi"
)

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

type stubShopAPI struct {
	mu sync.Mutex

	addresses    []shopapi.Address
	addressesErr error
	coupons      []shopapi.Coupon
	couponsErr   error
	wallet       decimal.Decimal
	walletErr    error

	createdAddress *shopapi.Address
	createNothing  bool

	couponDiscount decimal.Decimal
	couponErr      error
	couponReqs     []shopapi.ApplyCouponRequest

	previewReqs []shopapi.CalculatePriceRequest

	orderReqs []shopapi.PlaceOrderRequest
	orderErr  error

	paymentReqs []shopapi.CreatePaymentOrderRequest
	paymentErr  error

	verifyReqs []shopapi.VerifyPaymentRequest
	verifyErr  error
}

func (s *stubShopAPI) ListAddresses(context.Context) ([]shopapi.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]shopapi.Address(nil), s.addresses...), s.addressesErr
}

func (s *stubShopAPI) CreateAddress(_ context.Context, input shopapi.AddressInput) (*shopapi.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createNothing {
		return nil, nil
	}
	created := shopapi.Address{ID: "addr-new", FullName: input.FullName, Phone: input.Phone, City: input.City}
	s.addresses = append(s.addresses, created)
	s.createdAddress = &created
	return &created, nil
}

func (s *stubShopAPI) AvailableCoupons(context.Context) ([]shopapi.Coupon, error) {
	return s.coupons, s.couponsErr
}

func (s *stubShopAPI) ApplyCoupon(_ context.Context, req shopapi.ApplyCouponRequest) (*shopapi.ApplyCouponResponse, error) {
	s.couponReqs = append(s.couponReqs, req)
	if s.couponErr != nil {
		return nil, s.couponErr
	}
	return &shopapi.ApplyCouponResponse{DiscountAmount: s.couponDiscount}, nil
}

func (s *stubShopAPI) CalculatePrice(_ context.Context, req shopapi.CalculatePriceRequest) (*shopapi.CalculatePriceResponse, error) {
	s.previewReqs = append(s.previewReqs, req)
	return &shopapi.CalculatePriceResponse{TotalDiscount: d("50"), FinalTotal: d("1150")}, nil
}

func (s *stubShopAPI) Wallet(context.Context) (*shopapi.Wallet, error) {
	if s.walletErr != nil {
		return nil, s.walletErr
	}
	return &shopapi.Wallet{Balance: s.wallet}, nil
}

func (s *stubShopAPI) PlaceOrder(_ context.Context, req shopapi.PlaceOrderRequest) (*shopapi.PlaceOrderResponse, error) {
	s.orderReqs = append(s.orderReqs, req)
	if s.orderErr != nil {
		return nil, s.orderErr
	}
	return &shopapi.PlaceOrderResponse{OrderID: "ord-77"}, nil
}

func (s *stubShopAPI) CreatePaymentOrder(_ context.Context, req shopapi.CreatePaymentOrderRequest) (*shopapi.CreatePaymentOrderResponse, error) {
	s.paymentReqs = append(s.paymentReqs, req)
	if s.paymentErr != nil {
		return nil, s.paymentErr
	}
	return &shopapi.CreatePaymentOrderResponse{
		Success:     true,
		Order:       shopapi.PaymentOrder{ID: "order_Rz1", Amount: 90000, Currency: "INR"},
		TempOrderID: "tmp-5",
	}, nil
}

func (s *stubShopAPI) VerifyPayment(_ context.Context, req shopapi.VerifyPaymentRequest) (*shopapi.VerifyPaymentResponse, error) {
	s.verifyReqs = append(s.verifyReqs, req)
	if s.verifyErr != nil {
		return nil, s.verifyErr
	}
	return &shopapi.VerifyPaymentResponse{Success: true, OrderID: "ord-88"}, nil
}

type stubCarts struct {
	snapshot      *cart.Snapshot
	fetchErr      error
	invalidations int
}

func (s *stubCarts) Fetch(context.Context, string) (*cart.Snapshot, error) {
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	return s.snapshot, nil
}

func (s *stubCarts) Invalidate(context.Context, string) (*cart.Snapshot, error) {
	s.invalidations++
	return &cart.Snapshot{}, nil
}

type recordingPublisher struct {
	types []events.Type
	data  []any
}

func (r *recordingPublisher) Publish(_ context.Context, eventType events.Type, data any) error {
	r.types = append(r.types, eventType)
	r.data = append(r.data, data)
	return nil
}

type recordingOutcomes struct {
	outcomes []string
}

func (r *recordingOutcomes) IncOutcome(outcome, method string) {
	r.outcomes = append(r.outcomes, outcome+"/"+method)
}

type fixture struct {
	api       *stubShopAPI
	carts     *stubCarts
	publisher *recordingPublisher
	outcomes  *recordingOutcomes
	svc       Service
}

// cartTotalling builds a one-line cart with the given subtotal and zero shipping.
func cartTotalling(subtotal string) *cart.Snapshot {
	return &cart.Snapshot{
		Items: []shopapi.CartItem{{
			VariantID: "v-1",
			ProductID: "p-1",
			Name:      "Linen Shirt",
			UnitPrice: d(subtotal),
			Quantity:  1,
		}},
		Subtotal: d(subtotal),
		Shipping: decimal.Zero,
		Total:    d(subtotal),
	}
}

func newFixture(t *testing.T, snapshot *cart.Snapshot) *fixture {
	t.Helper()
	f := &fixture{
		api: &stubShopAPI{
			addresses: []shopapi.Address{
				{ID: "addr-1", FullName: "Asha Rao", Phone: "9000000001"},
				{ID: "addr-2", FullName: "Asha Rao", Phone: "9000000002", IsDefault: true},
			},
			coupons: []shopapi.Coupon{
				{Code: "SAVE300", DiscountType: "fixed", DiscountValue: d("300"), MinOrderAmount: d("1000")},
				{Code: "BIG", DiscountType: "percentage", DiscountValue: d("10"), MinOrderAmount: d("5000")},
			},
			wallet: d("2000"),
		},
		carts:     &stubCarts{snapshot: snapshot},
		publisher: &recordingPublisher{},
		outcomes:  &recordingOutcomes{},
	}
	repo, err := NewRepository(storage.NewMemoryStore(nil), 0)
	if err != nil {
		t.Fatalf("new repository: %v", err)
	}
	svc, err := NewService(f.api, f.carts, repo, f.publisher, f.outcomes, logger.New(logger.Options{Output: io.Discard}), PaymentSettings{
		KeyID:        "rzp_test_key",
		Currency:     "INR",
		MerchantName: "Storefront",
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	f.svc = svc
	return f
}

func (f *fixture) start(t *testing.T) *Session {
	t.Helper()
	session, err := f.svc.Start(context.Background(), "client-1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	return session
}

func TestStartLoadsAndPreselectsDefaultAddress(t *testing.T) {
	f := newFixture(t, cartTotalling("1200"))
	session := f.start(t)

	if session.State != enums.CheckoutStateReady {
		t.Fatalf("expected ready, got %s", session.State)
	}
	if session.SelectedAddressID != "addr-2" {
		t.Fatalf("expected default address preselected, got %q", session.SelectedAddressID)
	}
	if !session.WalletBalance.Equal(d("2000")) || len(session.Coupons) != 2 {
		t.Fatalf("expected wallet and coupons loaded, got %+v", session)
	}
	if !session.FinalAmount.Equal(d("1200")) || session.CODAvailable {
		t.Fatalf("expected final 1200 without cod, got %s cod=%v", session.FinalAmount, session.CODAvailable)
	}
	if len(session.Notices) != 0 {
		t.Fatalf("expected no notices, got %v", session.Notices)
	}
}

func TestStartKeepsPartialDataOnFetchFailures(t *testing.T) {
	f := newFixture(t, cartTotalling("800"))
	f.api.addressesErr = pkgerrors.New(pkgerrors.CodeDependency, "address service down")
	f.api.walletErr = errors.New("timeout")

	session := f.start(t)
	if session.State != enums.CheckoutStateReady {
		t.Fatalf("expected ready despite failures, got %s", session.State)
	}
	if len(session.Notices) != 2 {
		t.Fatalf("expected one notice per failed fetch, got %v", session.Notices)
	}
	if session.Notices[0].Source != "addresses" || session.Notices[1].Source != "wallet" {
		t.Fatalf("unexpected notice order %v", session.Notices)
	}
	if len(session.Coupons) != 2 || len(session.Cart.Items) != 1 {
		t.Fatalf("expected the successful fetches to populate the session")
	}
	if session.SelectedAddressID != "" {
		t.Fatalf("expected no address selected")
	}
}

func TestCouponDiscountTogglesCOD(t *testing.T) {
	f := newFixture(t, cartTotalling("1200"))
	session := f.start(t)
	ctx := context.Background()

	f.api.couponDiscount = d("300")
	session, err := f.svc.ApplyCoupon(ctx, "client-1", session.ID, "SAVE300")
	if err != nil {
		t.Fatalf("apply coupon: %v", err)
	}
	if !session.FinalAmount.Equal(d("900")) || !session.CODAvailable {
		t.Fatalf("expected final 900 with cod, got %s cod=%v", session.FinalAmount, session.CODAvailable)
	}
	if len(f.api.couponReqs) != 1 || !f.api.couponReqs[0].CartTotal.Equal(d("1200")) {
		t.Fatalf("unexpected coupon request %+v", f.api.couponReqs)
	}

	session, err = f.svc.SelectPaymentMethod(ctx, "client-1", session.ID, enums.PaymentMethodCOD)
	if err != nil {
		t.Fatalf("select cod: %v", err)
	}

	f.api.couponDiscount = d("100")
	session, err = f.svc.ApplyCoupon(ctx, "client-1", session.ID, "SAVE300")
	if err != nil {
		t.Fatalf("re-apply coupon: %v", err)
	}
	if !session.FinalAmount.Equal(d("1100")) || session.CODAvailable {
		t.Fatalf("expected final 1100 without cod, got %s cod=%v", session.FinalAmount, session.CODAvailable)
	}
	if session.PaymentMethod != "" {
		t.Fatalf("expected ineligible cod selection to be cleared, got %q", session.PaymentMethod)
	}
}

func TestCouponNoneResetsWithoutNetwork(t *testing.T) {
	f := newFixture(t, cartTotalling("1200"))
	session := f.start(t)
	ctx := context.Background()

	f.api.couponDiscount = d("300")
	if _, err := f.svc.ApplyCoupon(ctx, "client-1", session.ID, "SAVE300"); err != nil {
		t.Fatalf("apply coupon: %v", err)
	}
	for _, code := range []string{"none", "", "  NONE "} {
		session, err := f.svc.ApplyCoupon(ctx, "client-1", session.ID, code)
		if err != nil {
			t.Fatalf("reset %q: %v", code, err)
		}
		if !session.CouponDiscount.IsZero() || session.CouponCode != "" {
			t.Fatalf("expected coupon cleared for %q", code)
		}
	}
	if len(f.api.couponReqs) != 1 {
		t.Fatalf("expected only the first apply to reach upstream, got %d", len(f.api.couponReqs))
	}
}

func TestCouponFailureRevertsToNone(t *testing.T) {
	f := newFixture(t, cartTotalling("1200"))
	session := f.start(t)
	ctx := context.Background()

	f.api.couponErr = pkgerrors.New(pkgerrors.CodeValidation, "coupon expired")
	if _, err := f.svc.ApplyCoupon(ctx, "client-1", session.ID, "OLD"); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	current, err := f.svc.Get(ctx, "client-1", session.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if current.State != enums.CheckoutStateReady || current.CouponCode != "" || current.Error != "coupon expired" {
		t.Fatalf("unexpected session after failed coupon: state=%s code=%q err=%q", current.State, current.CouponCode, current.Error)
	}
}

func TestCouponBelowMinimumRejectedLocally(t *testing.T) {
	f := newFixture(t, cartTotalling("1200"))
	session := f.start(t)

	if _, err := f.svc.ApplyCoupon(context.Background(), "client-1", session.ID, "BIG"); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(f.api.couponReqs) != 0 {
		t.Fatalf("expected no upstream call for an inapplicable coupon")
	}
}

func TestPreviewCouponLeavesPayableAmount(t *testing.T) {
	f := newFixture(t, cartTotalling("1200"))
	session := f.start(t)

	preview, err := f.svc.PreviewCoupon(context.Background(), "client-1", session.ID, "SAVE300")
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if !preview.FinalTotal.Equal(d("1150")) || len(f.api.previewReqs[0].CartItems) != 1 {
		t.Fatalf("unexpected preview %+v", preview)
	}
	current, err := f.svc.Get(context.Background(), "client-1", session.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !current.FinalAmount.Equal(d("1200")) {
		t.Fatalf("preview must not change the payable amount")
	}
}

func TestSelectCODRejectedAboveLimit(t *testing.T) {
	f := newFixture(t, cartTotalling("1001"))
	session := f.start(t)

	if _, err := f.svc.SelectPaymentMethod(context.Background(), "client-1", session.ID, enums.PaymentMethodCOD); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSelectAddressMustBeLoaded(t *testing.T) {
	f := newFixture(t, cartTotalling("500"))
	session := f.start(t)
	ctx := context.Background()

	if _, err := f.svc.SelectAddress(ctx, "client-1", session.ID, "addr-9"); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	updated, err := f.svc.SelectAddress(ctx, "client-1", session.ID, "addr-1")
	if err != nil {
		t.Fatalf("select address: %v", err)
	}
	if updated.SelectedAddressID != "addr-1" {
		t.Fatalf("expected addr-1 selected")
	}
}

func TestAddAddressSelectsNewEntry(t *testing.T) {
	f := newFixture(t, cartTotalling("500"))
	session := f.start(t)

	updated, err := f.svc.AddAddress(context.Background(), "client-1", session.ID, shopapi.AddressInput{FullName: "Asha Rao", Phone: "9000000003", City: "Pune"})
	if err != nil {
		t.Fatalf("add address: %v", err)
	}
	if updated.SelectedAddressID != "addr-new" || len(updated.Addresses) != 3 {
		t.Fatalf("unexpected session %+v", updated)
	}
}

func TestAddAddressWithoutCreatedEntryKeepsSelection(t *testing.T) {
	f := newFixture(t, cartTotalling("500"))
	session := f.start(t)
	f.api.createNothing = true

	updated, err := f.svc.AddAddress(context.Background(), "client-1", session.ID, shopapi.AddressInput{FullName: "Asha Rao", City: "Pune"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if updated == nil {
		t.Fatalf("expected session alongside the error")
	}
	if updated.SelectedAddressID != session.SelectedAddressID || len(updated.Addresses) != len(session.Addresses) {
		t.Fatalf("expected addresses untouched, got %+v", updated)
	}
	if updated.Error == "" {
		t.Fatalf("expected error message on the session")
	}
}

func TestPlaceOrderRequiresSelections(t *testing.T) {
	f := newFixture(t, cartTotalling("500"))
	session := f.start(t)

	_, err := f.svc.PlaceOrder(context.Background(), "client-1", session.ID, Customer{})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error without payment method, got %v", err)
	}
	if len(f.api.orderReqs) != 0 || len(f.api.paymentReqs) != 0 {
		t.Fatalf("expected no upstream call")
	}
}

func TestWalletBlockedWhenBalanceShort(t *testing.T) {
	f := newFixture(t, cartTotalling("600"))
	f.api.wallet = d("500")
	session := f.start(t)
	ctx := context.Background()

	if _, err := f.svc.SelectPaymentMethod(ctx, "client-1", session.ID, enums.PaymentMethodWallet); err != nil {
		t.Fatalf("select wallet: %v", err)
	}
	if _, err := f.svc.PlaceOrder(ctx, "client-1", session.ID, Customer{}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(f.api.orderReqs) != 0 {
		t.Fatalf("expected no order request, got %d", len(f.api.orderReqs))
	}
	current, err := f.svc.Get(ctx, "client-1", session.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if current.State != enums.CheckoutStateReady || current.PaymentMethod != enums.PaymentMethodWallet {
		t.Fatalf("expected ready with wallet still selected, got %s %q", current.State, current.PaymentMethod)
	}
}

func TestCODOrderPlacesExactlyOnce(t *testing.T) {
	f := newFixture(t, cartTotalling("900"))
	session := f.start(t)
	ctx := context.Background()

	if _, err := f.svc.SelectPaymentMethod(ctx, "client-1", session.ID, enums.PaymentMethodCOD); err != nil {
		t.Fatalf("select cod: %v", err)
	}
	placed, err := f.svc.PlaceOrder(ctx, "client-1", session.ID, Customer{})
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	if len(f.api.orderReqs) != 1 {
		t.Fatalf("expected exactly one order request, got %d", len(f.api.orderReqs))
	}
	req := f.api.orderReqs[0]
	if req.AddressID != "addr-2" || req.PaymentMethod != "cod" || !req.Amount.Equal(d("900")) {
		t.Fatalf("unexpected order request %+v", req)
	}
	if placed.State != enums.CheckoutStateCompleted || placed.Redirect != "/success/ord-77" {
		t.Fatalf("unexpected result state=%s redirect=%q", placed.State, placed.Redirect)
	}
	if f.carts.invalidations != 1 {
		t.Fatalf("expected cart invalidated once, got %d", f.carts.invalidations)
	}
	if len(f.publisher.types) != 1 || f.publisher.types[0] != events.TypeOrderPlaced {
		t.Fatalf("expected order placed event, got %v", f.publisher.types)
	}
	if len(f.outcomes.outcomes) != 1 || f.outcomes.outcomes[0] != "completed/cod" {
		t.Fatalf("unexpected outcomes %v", f.outcomes.outcomes)
	}

	if _, err := f.svc.PlaceOrder(ctx, "client-1", session.ID, Customer{}); !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected completed session to refuse a second order, got %v", err)
	}
	if len(f.api.orderReqs) != 1 {
		t.Fatalf("expected no further order request")
	}
}

func TestWalletOrderFailureKeepsSelections(t *testing.T) {
	f := newFixture(t, cartTotalling("600"))
	session := f.start(t)
	ctx := context.Background()

	if _, err := f.svc.SelectPaymentMethod(ctx, "client-1", session.ID, enums.PaymentMethodWallet); err != nil {
		t.Fatalf("select wallet: %v", err)
	}
	f.api.orderErr = pkgerrors.New(pkgerrors.CodeConflict, "item out of stock")
	failed, err := f.svc.PlaceOrder(ctx, "client-1", session.ID, Customer{})
	if !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if failed.State != enums.CheckoutStateReady || failed.PaymentMethod != enums.PaymentMethodWallet || failed.SelectedAddressID != "addr-2" {
		t.Fatalf("expected ready with selections kept, got %+v", failed)
	}
	if failed.Error != "item out of stock" {
		t.Fatalf("expected error recorded, got %q", failed.Error)
	}
	if f.carts.invalidations != 0 {
		t.Fatalf("cart must not be invalidated on failure")
	}
}

func startOnlinePayment(t *testing.T, f *fixture) *Session {
	t.Helper()
	ctx := context.Background()
	session := f.start(t)
	if _, err := f.svc.SelectPaymentMethod(ctx, "client-1", session.ID, enums.PaymentMethodOnline); err != nil {
		t.Fatalf("select online: %v", err)
	}
	awaiting, err := f.svc.PlaceOrder(ctx, "client-1", session.ID, Customer{Name: "Asha", Email: "asha@example.com"})
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	return awaiting
}

func TestOnlinePaymentHandoff(t *testing.T) {
	f := newFixture(t, cartTotalling("900"))
	awaiting := startOnlinePayment(t, f)

	if awaiting.State != enums.CheckoutStateAwaitingPayment {
		t.Fatalf("expected awaiting payment, got %s", awaiting.State)
	}
	handoff := awaiting.Payment
	if handoff == nil {
		t.Fatalf("expected payment handoff")
	}
	if handoff.Key != "rzp_test_key" || handoff.Amount != 90000 || handoff.Currency != "INR" || handoff.OrderID != "order_Rz1" {
		t.Fatalf("unexpected handoff %+v", handoff)
	}
	if handoff.Prefill.Email != "asha@example.com" || handoff.Prefill.Contact != "9000000002" {
		t.Fatalf("unexpected prefill %+v", handoff.Prefill)
	}
	if len(f.api.orderReqs) != 0 {
		t.Fatalf("online flow must not call the order endpoint directly")
	}
	if !f.api.paymentReqs[0].Amount.Equal(d("900")) || f.api.paymentReqs[0].PaymentMethod != "online" {
		t.Fatalf("unexpected payment order request %+v", f.api.paymentReqs[0])
	}
}

func TestCompletePaymentSuccess(t *testing.T) {
	f := newFixture(t, cartTotalling("900"))
	awaiting := startOnlinePayment(t, f)

	done, err := f.svc.CompletePayment(context.Background(), "client-1", awaiting.ID, PaymentResult{
		OrderID:   "order_Rz1",
		PaymentID: "pay_1",
		Signature: "sig",
	})
	if err != nil {
		t.Fatalf("complete payment: %v", err)
	}
	if done.State != enums.CheckoutStateCompleted || done.Redirect != "/success/ord-88" {
		t.Fatalf("unexpected result state=%s redirect=%q", done.State, done.Redirect)
	}
	req := f.api.verifyReqs[0]
	if req.TempOrderID != "tmp-5" || req.RazorpayPaymentID != "pay_1" || !req.Amount.Equal(d("900")) {
		t.Fatalf("unexpected verify request %+v", req)
	}
	if f.carts.invalidations != 1 {
		t.Fatalf("expected cart invalidated after payment")
	}
}

func TestCompletePaymentVerificationFailureRoutesToFailurePage(t *testing.T) {
	f := newFixture(t, cartTotalling("900"))
	awaiting := startOnlinePayment(t, f)
	f.api.verifyErr = pkgerrors.New(pkgerrors.CodePayment, "signature mismatch")

	failed, err := f.svc.CompletePayment(context.Background(), "client-1", awaiting.ID, PaymentResult{
		OrderID:   "order_Rz1",
		PaymentID: "pay_1",
		Signature: "bad",
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodePayment) {
		t.Fatalf("expected payment error, got %v", err)
	}
	if failed.State != enums.CheckoutStateFailed || failed.Redirect != FailureRedirect {
		t.Fatalf("expected failure route, got state=%s redirect=%q", failed.State, failed.Redirect)
	}
	if len(f.publisher.types) != 1 || f.publisher.types[0] != events.TypePaymentFailed {
		t.Fatalf("expected payment failed event, got %v", f.publisher.types)
	}
	if f.carts.invalidations != 0 {
		t.Fatalf("cart must be kept when payment fails")
	}
}

func TestCompletePaymentNetworkErrorIsPaymentFailure(t *testing.T) {
	f := newFixture(t, cartTotalling("900"))
	awaiting := startOnlinePayment(t, f)
	f.api.verifyErr = errors.New("connection reset")

	failed, err := f.svc.CompletePayment(context.Background(), "client-1", awaiting.ID, PaymentResult{
		OrderID:   "order_Rz1",
		PaymentID: "pay_1",
		Signature: "sig",
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodePayment) {
		t.Fatalf("expected payment error, got %v", err)
	}
	if failed.Redirect != FailureRedirect {
		t.Fatalf("expected failure route, got %q", failed.Redirect)
	}
}

func TestCompletePaymentRejectsForeignOrder(t *testing.T) {
	f := newFixture(t, cartTotalling("900"))
	awaiting := startOnlinePayment(t, f)

	_, err := f.svc.CompletePayment(context.Background(), "client-1", awaiting.ID, PaymentResult{
		OrderID:   "order_other",
		PaymentID: "pay_1",
		Signature: "sig",
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(f.api.verifyReqs) != 0 {
		t.Fatalf("expected no verification request")
	}
}

func TestDismissPaymentRoutesToFailurePage(t *testing.T) {
	f := newFixture(t, cartTotalling("900"))
	awaiting := startOnlinePayment(t, f)

	dismissed, err := f.svc.DismissPayment(context.Background(), "client-1", awaiting.ID)
	if err != nil {
		t.Fatalf("dismiss: %v", err)
	}
	if dismissed.State != enums.CheckoutStateFailed || dismissed.Redirect != FailureRedirect {
		t.Fatalf("unexpected dismissed session state=%s redirect=%q", dismissed.State, dismissed.Redirect)
	}
	if f.outcomes.outcomes[len(f.outcomes.outcomes)-1] != "payment_dismissed/online" {
		t.Fatalf("unexpected outcomes %v", f.outcomes.outcomes)
	}
}

func TestResetStartsFreshSession(t *testing.T) {
	f := newFixture(t, cartTotalling("900"))
	awaiting := startOnlinePayment(t, f)
	ctx := context.Background()

	if _, err := f.svc.DismissPayment(ctx, "client-1", awaiting.ID); err != nil {
		t.Fatalf("dismiss: %v", err)
	}
	fresh, err := f.svc.Reset(ctx, "client-1", awaiting.ID)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if fresh.State != enums.CheckoutStateReady || fresh.PaymentMethod != "" || fresh.Payment != nil || fresh.Redirect != "" {
		t.Fatalf("expected a clean ready session, got %+v", fresh)
	}
	if fresh.SelectedAddressID != "addr-2" {
		t.Fatalf("expected default address preselected after reset")
	}
}

func TestLoadClearsCouponWhenCartChanges(t *testing.T) {
	f := newFixture(t, cartTotalling("1200"))
	session := f.start(t)
	ctx := context.Background()

	f.api.couponDiscount = d("300")
	if _, err := f.svc.ApplyCoupon(ctx, "client-1", session.ID, "SAVE300"); err != nil {
		t.Fatalf("apply coupon: %v", err)
	}
	f.carts.snapshot = cartTotalling("1500")
	reloaded, err := f.svc.Load(ctx, "client-1", session.ID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if reloaded.CouponCode != "" || !reloaded.FinalAmount.Equal(d("1500")) {
		t.Fatalf("expected coupon cleared after cart change, got code=%q final=%s", reloaded.CouponCode, reloaded.FinalAmount)
	}
	if len(reloaded.Notices) != 1 || reloaded.Notices[0].Source != "coupon" {
		t.Fatalf("expected coupon notice, got %v", reloaded.Notices)
	}
}

func TestUnknownSessionNotFound(t *testing.T) {
	f := newFixture(t, cartTotalling("100"))
	if _, err := f.svc.Get(context.Background(), "client-1", "missing"); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := f.svc.Get(context.Background(), "client-2", "missing"); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
