package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"storefront/internal/cart/metrics"
	"storefront/internal/cart/slot"
	id "storefront/pkg/domain"
)

// DefaultIdleTTL is how long an untouched cart stays cached.
const DefaultIdleTTL = 30 * time.Minute

// Registry owns the live Store for every cart this process has touched
// recently. Carts idle past the TTL are evicted; the slot holds everything a
// later Cart call needs to load them again.
type Registry struct {
	mu      sync.Mutex
	stores  map[id.CartID]*cached
	slots   slot.Provider
	idleTTL time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type cached struct {
	store    *Store
	lastUsed time.Time
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithIdleTTL sets how long an untouched cart stays cached. Zero keeps the
// default.
func WithIdleTTL(d time.Duration) RegistryOption {
	return func(r *Registry) {
		if d > 0 {
			r.idleTTL = d
		}
	}
}

// NewRegistry returns an empty registry backed by slots.
func NewRegistry(slots slot.Provider, logger *slog.Logger, m *metrics.Metrics, opts ...RegistryOption) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		stores:  make(map[id.CartID]*cached),
		slots:   slots,
		idleTTL: DefaultIdleTTL,
		logger:  logger,
		metrics: m,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Cart returns the Store for cartID, loading it from its slot on first use.
// Concurrent first calls agree on a single Store.
func (r *Registry) Cart(ctx context.Context, cartID id.CartID) *Store {
	r.mu.Lock()
	if c, ok := r.stores[cartID]; ok {
		c.lastUsed = time.Now()
		r.mu.Unlock()
		return c.store
	}
	r.mu.Unlock()

	loaded := Load(ctx, cartID, r.slots.Slot(cartID), WithLogger(r.logger), WithMetrics(r.metrics))

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.stores[cartID]; ok {
		c.lastUsed = time.Now()
		return c.store
	}
	r.stores[cartID] = &cached{store: loaded, lastUsed: time.Now()}
	r.metrics.SetCached(len(r.stores))
	return loaded
}

// StartEviction evicts idle carts every interval until ctx is cancelled.
func (r *Registry) StartEviction(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := r.EvictIdleAt(time.Now()); n > 0 {
				r.logger.DebugContext(ctx, "evicted idle carts", "count", n)
			}
		case <-ctx.Done():
			return
		}
	}
}

// EvictIdleAt drops carts not used within the idle TTL before now and
// returns how many were dropped.
func (r *Registry) EvictIdleAt(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	evicted := 0
	for cartID, c := range r.stores {
		if now.Sub(c.lastUsed) <= r.idleTTL {
			continue
		}
		delete(r.stores, cartID)
		evicted++
	}
	if evicted > 0 {
		r.metrics.SetCached(len(r.stores))
	}
	return evicted
}
