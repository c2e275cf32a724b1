package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for checkout: how sessions end and how long
// the order write and receipt render take.
type Metrics struct {
	Outcomes       *prometheus.CounterVec
	SubmitDuration prometheus.Histogram
	RenderDuration prometheus.Histogram
}

// New creates a new Metrics instance with all checkout metrics registered on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Outcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_checkout_outcomes_total",
			Help: "Checkout attempts by final state and error code",
		}, []string{"state", "code"}),
		SubmitDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "storefront_checkout_submit_duration_seconds",
			Help:    "Duration of order writes",
			Buckets: prometheus.DefBuckets,
		}),
		RenderDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "storefront_checkout_render_duration_seconds",
			Help:    "Duration of receipt renders",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// IncrementOutcome records a checkout that settled in state. code is empty
// for successes and rejections without a session change.
func (m *Metrics) IncrementOutcome(state, code string) {
	if m == nil {
		return
	}
	m.Outcomes.WithLabelValues(state, code).Inc()
}

// ObserveSubmit records the order write latency.
func (m *Metrics) ObserveSubmit(start time.Time) {
	if m == nil {
		return
	}
	m.SubmitDuration.Observe(time.Since(start).Seconds())
}

// ObserveRender records the receipt render latency.
func (m *Metrics) ObserveRender(start time.Time) {
	if m == nil {
		return
	}
	m.RenderDuration.Observe(time.Since(start).Seconds())
}
