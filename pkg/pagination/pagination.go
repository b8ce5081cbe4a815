package pagination

import "math"

const (
	// DefaultLimit is the standard page size when a limit is not provided.
	DefaultLimit = 10
	// MaxLimit caps how many rows any page request can ask the upstream for.
	MaxLimit = 100
)

// Params holds page/limit inputs from controllers or services.
type Params struct {
	Page  int
	Limit int
}

// Meta mirrors the pagination block the storefront API returns alongside lists.
type Meta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// NormalizeLimit enforces the configured default and maximum limits.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// NormalizePage treats anything below one as the first page.
func NormalizePage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

// Normalize returns a copy with both fields clamped.
func (p Params) Normalize() Params {
	return Params{Page: NormalizePage(p.Page), Limit: NormalizeLimit(p.Limit)}
}

// Offset is the zero-based index of the first row on the page.
func (p Params) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.Limit
}

// TotalPages computes the page count for total rows at the given limit.
func TotalPages(total, limit int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Ceil(float64(total) / float64(NormalizeLimit(limit))))
}

// Fill completes a Meta whose TotalPages the upstream omitted.
func (m Meta) Fill() Meta {
	if m.TotalPages == 0 {
		m.TotalPages = TotalPages(m.Total, m.Limit)
	}
	return m
}
