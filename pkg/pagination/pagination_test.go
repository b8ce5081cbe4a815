package pagination

import "testing"

func TestNormalizeLimit(t *testing.T) {
	if got := NormalizeLimit(0); got != DefaultLimit {
		t.Fatalf("expected default limit, got %d", got)
	}
	if got := NormalizeLimit(500); got != MaxLimit {
		t.Fatalf("expected max limit, got %d", got)
	}
	if got := NormalizeLimit(20); got != 20 {
		t.Fatalf("expected 20, got %d", got)
	}
}

func TestParamsOffset(t *testing.T) {
	if got := (Params{Page: 3, Limit: 10}).Offset(); got != 20 {
		t.Fatalf("expected offset 20, got %d", got)
	}
	if got := (Params{Page: -2, Limit: 0}).Offset(); got != 0 {
		t.Fatalf("expected offset 0 for first page, got %d", got)
	}
}

func TestMetaFill(t *testing.T) {
	m := Meta{Page: 1, Limit: 10, Total: 31}.Fill()
	if m.TotalPages != 4 {
		t.Fatalf("expected 4 pages, got %d", m.TotalPages)
	}
	empty := Meta{Page: 1, Limit: 10}.Fill()
	if empty.TotalPages != 0 {
		t.Fatalf("expected no pages for empty result, got %d", empty.TotalPages)
	}
	kept := Meta{Page: 1, Limit: 10, Total: 31, TotalPages: 7}.Fill()
	if kept.TotalPages != 7 {
		t.Fatalf("expected upstream page count kept, got %d", kept.TotalPages)
	}
}
