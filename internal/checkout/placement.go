package checkout

import (
	"context"
	"strings"

	"github.com/angelmondragon/storefront-gateway/internal/events"
	"github.com/angelmondragon/storefront-gateway/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-gateway/pkg/errors"
	"github.com/angelmondragon/storefront-gateway/pkg/money"
	"github.com/angelmondragon/storefront-gateway/pkg/shopapi"
)

// PlaceOrder submits a ready session. cod and wallet orders are created in one
// call; online orders stop in awaiting_payment with an overlay handoff.
// A rejected submission returns to ready with every selection kept.
func (s *service) PlaceOrder(ctx context.Context, clientID, id string, customer Customer) (*Session, error) {
	var claimed Session
	if _, err := s.mutate(ctx, clientID, id, func(session *Session) error {
		if err := requireState(session, enums.CheckoutStateReady); err != nil {
			return err
		}
		if session.SelectedAddressID == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "select a delivery address")
		}
		if len(session.Cart.Items) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
		}
		session.reprice()
		if session.PaymentMethod == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "select a payment method")
		}
		if session.PaymentMethod == enums.PaymentMethodWallet && !session.WalletSufficient {
			return pkgerrors.New(pkgerrors.CodeValidation, "insufficient wallet balance").WithDetails(map[string]any{
				"walletBalance": session.WalletBalance,
				"finalAmount":   session.FinalAmount,
			})
		}
		session.State = enums.CheckoutStateSubmitting
		session.Payment = nil
		claimed = *session
		return nil
	}); err != nil {
		return nil, err
	}

	ctx = s.logg.WithCheckoutID(ctx, id)
	if claimed.PaymentMethod == enums.PaymentMethodOnline {
		return s.openPayment(ctx, &claimed, customer)
	}
	return s.createOrder(ctx, &claimed)
}

func (s *service) createOrder(ctx context.Context, claimed *Session) (*Session, error) {
	resp, err := s.api.PlaceOrder(ctx, shopapi.PlaceOrderRequest{
		AddressID:     claimed.SelectedAddressID,
		PaymentMethod: claimed.PaymentMethod.String(),
		CouponCode:    claimed.CouponCode,
		Amount:        claimed.FinalAmount,
	})
	session, settleErr := s.settle(ctx, claimed.ClientID, claimed.ID, enums.CheckoutStateSubmitting, func(session *Session) error {
		if err != nil {
			session.State = enums.CheckoutStateReady
			return err
		}
		session.State = enums.CheckoutStateCompleted
		session.OrderID = resp.OrderID
		session.Redirect = SuccessRedirect(resp.OrderID)
		return nil
	})
	if err != nil {
		s.outcomes.IncOutcome(OutcomeRejected, claimed.PaymentMethod.String())
		return session, settleErr
	}
	if settleErr != nil {
		return session, settleErr
	}
	s.orderPlaced(ctx, session)
	return session, nil
}

func (s *service) openPayment(ctx context.Context, claimed *Session, customer Customer) (*Session, error) {
	resp, err := s.api.CreatePaymentOrder(ctx, shopapi.CreatePaymentOrderRequest{
		Amount:         claimed.FinalAmount,
		AddressID:      claimed.SelectedAddressID,
		PaymentMethod:  enums.PaymentMethodOnline.String(),
		CouponCode:     claimed.CouponCode,
		DiscountAmount: claimed.CouponDiscount,
	})
	session, settleErr := s.settle(ctx, claimed.ClientID, claimed.ID, enums.CheckoutStateSubmitting, func(session *Session) error {
		if err != nil {
			session.State = enums.CheckoutStateReady
			return err
		}
		session.State = enums.CheckoutStateAwaitingPayment
		session.Payment = s.handoff(ctx, session, resp, customer)
		return nil
	})
	if err != nil {
		s.outcomes.IncOutcome(OutcomeRejected, enums.PaymentMethodOnline.String())
		return session, settleErr
	}
	if settleErr == nil {
		s.outcomes.IncOutcome(OutcomeAwaitingPayment, enums.PaymentMethodOnline.String())
	}
	return session, settleErr
}

// handoff builds the overlay payload. The provider's quoted amount wins and a
// mismatch with the checkout total is logged.
func (s *service) handoff(ctx context.Context, session *Session, resp *shopapi.CreatePaymentOrderResponse, customer Customer) *PaymentHandoff {
	amount := resp.Order.Amount
	if amount <= 0 {
		amount = money.ToMinor(session.FinalAmount)
	} else if quoted := money.FromMinor(amount); !quoted.Equal(session.FinalAmount) {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"order_amount": money.Format(quoted),
			"final_amount": money.Format(session.FinalAmount),
		}), "payment order amount differs from checkout total")
	}
	currency := strings.TrimSpace(resp.Order.Currency)
	if currency == "" {
		currency = s.payment.Currency
	}
	prefill := Prefill{Name: customer.Name, Email: customer.Email}
	if addr, ok := session.address(session.SelectedAddressID); ok {
		prefill.Contact = addr.Phone
		if prefill.Name == "" {
			prefill.Name = addr.FullName
		}
	}
	return &PaymentHandoff{
		Key:         s.payment.KeyID,
		Amount:      amount,
		Currency:    currency,
		OrderID:     resp.Order.ID,
		Name:        s.payment.MerchantName,
		Prefill:     prefill,
		TempOrderID: resp.TempOrderID,
		CreatedAt:   s.now().UTC(),
	}
}

// CompletePayment verifies the overlay's success callback. Any verification
// failure ends the session on the failure route since money may have moved.
func (s *service) CompletePayment(ctx context.Context, clientID, id string, result PaymentResult) (*Session, error) {
	result.OrderID = strings.TrimSpace(result.OrderID)
	result.PaymentID = strings.TrimSpace(result.PaymentID)
	result.Signature = strings.TrimSpace(result.Signature)
	if result.OrderID == "" || result.PaymentID == "" || result.Signature == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment order id, payment id and signature are required")
	}

	var claimed Session
	if _, err := s.mutate(ctx, clientID, id, func(session *Session) error {
		if err := requireState(session, enums.CheckoutStateAwaitingPayment); err != nil {
			return err
		}
		if session.Payment == nil || session.Payment.OrderID != result.OrderID {
			return pkgerrors.New(pkgerrors.CodeValidation, "payment does not belong to this checkout")
		}
		session.State = enums.CheckoutStateSubmitting
		claimed = *session
		return nil
	}); err != nil {
		return nil, err
	}

	ctx = s.logg.WithCheckoutID(ctx, id)
	resp, err := s.api.VerifyPayment(ctx, shopapi.VerifyPaymentRequest{
		RazorpayOrderID:   result.OrderID,
		RazorpayPaymentID: result.PaymentID,
		RazorpaySignature: result.Signature,
		TempOrderID:       claimed.Payment.TempOrderID,
		Amount:            claimed.FinalAmount,
		CouponCode:        claimed.CouponCode,
		DiscountAmount:    claimed.CouponDiscount,
	})
	if err != nil {
		s.logg.Error(ctx, "payment verification failed", err)
		session, settleErr := s.settle(ctx, clientID, id, enums.CheckoutStateSubmitting, func(session *Session) error {
			session.State = enums.CheckoutStateFailed
			session.Redirect = FailureRedirect
			return paymentFailure(err)
		})
		if session != nil {
			s.paymentFailed(ctx, session, events.ReasonVerificationFailed)
		}
		return session, settleErr
	}

	session, err := s.settle(ctx, clientID, id, enums.CheckoutStateSubmitting, func(session *Session) error {
		session.State = enums.CheckoutStateCompleted
		session.OrderID = resp.OrderID
		session.Redirect = SuccessRedirect(resp.OrderID)
		return nil
	})
	if err != nil {
		return session, err
	}
	s.orderPlaced(ctx, session)
	return session, nil
}

// DismissPayment records that the overlay was closed without paying.
func (s *service) DismissPayment(ctx context.Context, clientID, id string) (*Session, error) {
	session, err := s.mutate(ctx, clientID, id, func(session *Session) error {
		if err := requireState(session, enums.CheckoutStateAwaitingPayment); err != nil {
			return err
		}
		session.State = enums.CheckoutStateFailed
		session.Redirect = FailureRedirect
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.paymentFailed(s.logg.WithCheckoutID(ctx, id), session, events.ReasonDismissed)
	return session, nil
}

// orderPlaced runs the side effects of a completed order. None of them can
// undo the order, so failures are only logged.
func (s *service) orderPlaced(ctx context.Context, session *Session) {
	ctx = context.WithoutCancel(ctx)
	s.outcomes.IncOutcome(OutcomeCompleted, session.PaymentMethod.String())

	if _, err := s.carts.Invalidate(ctx, session.ClientID); err != nil {
		s.logg.Warn(ctx, "cart refetch after order failed; cached cart cleared")
	}
	if err := s.publisher.Publish(ctx, events.TypeOrderPlaced, events.OrderPlaced{
		CheckoutID:     session.ID,
		ClientID:       session.ClientID,
		OrderID:        session.OrderID,
		PaymentMethod:  session.PaymentMethod.String(),
		Amount:         session.FinalAmount,
		CouponCode:     session.CouponCode,
		CouponDiscount: session.CouponDiscount,
	}); err != nil {
		s.logg.Error(ctx, "failed to publish order placed event", err)
	}
	s.logg.Info(s.logg.WithField(ctx, "order_id", session.OrderID), "checkout completed")
}

func (s *service) paymentFailed(ctx context.Context, session *Session, reason string) {
	ctx = context.WithoutCancel(ctx)
	outcome := OutcomePaymentFailed
	if reason == events.ReasonDismissed {
		outcome = OutcomePaymentDismissed
	}
	s.outcomes.IncOutcome(outcome, enums.PaymentMethodOnline.String())

	payload := events.PaymentFailed{
		CheckoutID: session.ID,
		ClientID:   session.ClientID,
		Amount:     session.FinalAmount,
		Reason:     reason,
	}
	if session.Payment != nil {
		payload.PaymentOrderID = session.Payment.OrderID
	}
	if err := s.publisher.Publish(ctx, events.TypePaymentFailed, payload); err != nil {
		s.logg.Error(ctx, "failed to publish payment failed event", err)
	}
}

func paymentFailure(err error) error {
	if pkgerrors.IsCode(err, pkgerrors.CodePayment) {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodePayment, err, "payment could not be verified")
}
