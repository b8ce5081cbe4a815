package metrics

import "github.com/prometheus/client_golang/prometheus"

// CheckoutMetrics counts checkout outcomes by payment method.
type CheckoutMetrics struct {
	outcomes *prometheus.CounterVec
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_outcomes_total",
		Help: "Checkout sessions that reached an outcome.",
	}, []string{"outcome", "method"})
	reg.MustRegister(outcomes)
	return &CheckoutMetrics{outcomes: outcomes}
}

// IncOutcome increments the counter for outcome (completed, failed, rejected) and method.
func (c *CheckoutMetrics) IncOutcome(outcome, method string) {
	if c == nil || c.outcomes == nil {
		return
	}
	c.outcomes.WithLabelValues(normalizeLabel(outcome), normalizeLabel(method)).Inc()
}
