package enums

import "testing"

func TestParsePaymentMethod(t *testing.T) {
	for _, raw := range []string{"cod", "online", "wallet"} {
		got, err := ParsePaymentMethod(raw)
		if err != nil {
			t.Fatalf("expected %q to parse: %v", raw, err)
		}
		if got.String() != raw {
			t.Fatalf("expected %q got %q", raw, got)
		}
	}
	if _, err := ParsePaymentMethod("card"); err == nil {
		t.Fatalf("expected unknown method to fail")
	}
	if PaymentMethod("").IsValid() {
		t.Fatalf("empty method should not be valid")
	}
}

func TestCheckoutStateTerminal(t *testing.T) {
	terminal := map[CheckoutState]bool{
		CheckoutStateLoading:         false,
		CheckoutStateReady:           false,
		CheckoutStatePricingCoupon:   false,
		CheckoutStateSubmitting:      false,
		CheckoutStateAwaitingPayment: false,
		CheckoutStateCompleted:       true,
		CheckoutStateFailed:          true,
	}
	for state, want := range terminal {
		if state.IsTerminal() != want {
			t.Fatalf("state %s expected terminal=%v", state, want)
		}
	}
}

func TestIdentityKindStorageKeys(t *testing.T) {
	if IdentityKindUser.String() != "auth" {
		t.Fatalf("expected shopper identity key auth, got %q", IdentityKindUser)
	}
	if IdentityKindAdmin.String() != "admin" {
		t.Fatalf("expected admin identity key admin, got %q", IdentityKindAdmin)
	}
}

func TestParseReportPeriodAndFormat(t *testing.T) {
	if _, err := ParseReportPeriod("custom"); err != nil {
		t.Fatalf("expected custom period to parse: %v", err)
	}
	if _, err := ParseReportPeriod("hourly"); err == nil {
		t.Fatalf("expected hourly period to fail")
	}
	if _, err := ParseReportFormat("excel"); err != nil {
		t.Fatalf("expected excel to parse: %v", err)
	}
	if _, err := ParseUserStatus("suspended"); err == nil {
		t.Fatalf("expected unknown status to fail")
	}
}
