package instance

import "testing"

func TestGetIDPrefersEnv(t *testing.T) {
	t.Setenv("STOREFRONT_INSTANCE_ID", " gw-7 ")
	if got := GetID(); got != "gw-7" {
		t.Fatalf("expected gw-7, got %q", got)
	}
}

func TestGetIDUsesPlatformName(t *testing.T) {
	t.Setenv("STOREFRONT_INSTANCE_ID", "")
	t.Setenv("DYNO", "web.2")
	if got := GetID(); got != "web.2" {
		t.Fatalf("expected web.2, got %q", got)
	}
}

func TestGetIDFallsBack(t *testing.T) {
	t.Setenv("STOREFRONT_INSTANCE_ID", "")
	t.Setenv("DYNO", "")
	t.Setenv("K_REVISION", "")
	if GetID() == "" {
		t.Fatalf("expected non-empty fallback id")
	}
}
