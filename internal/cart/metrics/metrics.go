package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for device carts: mutation volume and the
// health of write-through persistence.
type Metrics struct {
	Mutations        *prometheus.CounterVec
	PersistFailures  prometheus.Counter
	PersistDuration  prometheus.Histogram
	DiscardedOnLoad  prometheus.Counter
	ActiveCartsCache prometheus.Gauge
}

// New creates a new Metrics instance with all cart metrics registered on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Mutations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_cart_mutations_total",
			Help: "Cart mutations by operation",
		}, []string{"op"}),
		PersistFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "storefront_cart_persist_failures_total",
			Help: "Write-through saves that failed; the in-memory cart stays authoritative",
		}),
		PersistDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "storefront_cart_persist_duration_seconds",
			Help:    "Duration of cart slot saves",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),
		DiscardedOnLoad: factory.NewCounter(prometheus.CounterOpts{
			Name: "storefront_cart_discarded_total",
			Help: "Persisted carts discarded on load because they were malformed",
		}),
		ActiveCartsCache: factory.NewGauge(prometheus.GaugeOpts{
			Name: "storefront_cart_cached",
			Help: "Carts currently held in the process registry",
		}),
	}
}

// IncrementMutation records one mutation of kind op.
func (m *Metrics) IncrementMutation(op string) {
	if m == nil {
		return
	}
	m.Mutations.WithLabelValues(op).Inc()
}

// ObservePersist records a slot save and whether it failed.
// Call with time.Now() at the start of the save.
func (m *Metrics) ObservePersist(start time.Time, err error) {
	if m == nil {
		return
	}
	m.PersistDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		m.PersistFailures.Inc()
	}
}

// IncrementDiscarded records a malformed slot dropped on load.
func (m *Metrics) IncrementDiscarded() {
	if m == nil {
		return
	}
	m.DiscardedOnLoad.Inc()
}

// SetCached reports the registry size.
func (m *Metrics) SetCached(n int) {
	if m == nil {
		return
	}
	m.ActiveCartsCache.Set(float64(n))
}
