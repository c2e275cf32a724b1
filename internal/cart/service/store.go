package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"storefront/internal/cart/metrics"
	"storefront/internal/cart/models"
	"storefront/internal/cart/slot"
	"storefront/internal/money"
	id "storefront/pkg/domain"
	"storefront/pkg/platform/sentinel"
	"storefront/pkg/requestcontext"
)

// persistTimeout bounds one write-through save. Saves run detached from the
// request so a disconnecting client cannot skip them.
const persistTimeout = 2 * time.Second

// Store is the cart of one device.
//
// Every exported method is atomic with respect to the others. Mutations end
// by writing the whole cart to its slot; a failed save is logged and counted
// but never surfaced, and the in-memory cart stays authoritative.
type Store struct {
	mu      sync.Mutex
	cartID  id.CartID
	lines   []models.Line
	slot    slot.Slot
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithMetrics sets the cart metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

// Load initializes a cart from its slot. Missing or malformed data yields an
// empty cart; this never fails.
func Load(ctx context.Context, cartID id.CartID, sl slot.Slot, opts ...Option) *Store {
	s := &Store{
		cartID: cartID,
		slot:   sl,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	data, err := sl.Load(ctx)
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return s
	case err != nil:
		s.logger.WarnContext(ctx, "cart slot unreadable, starting empty",
			"cart_id", cartID.String(),
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return s
	}

	lines, err := models.Decode(data)
	if err != nil {
		s.logger.WarnContext(ctx, "discarding malformed cart",
			"cart_id", cartID.String(),
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		s.metrics.IncrementDiscarded()
		s.persistLocked(ctx)
		return s
	}
	s.lines = lines
	return s
}

// ID returns the cart identifier.
func (s *Store) ID() id.CartID {
	return s.cartID
}

// AddItem adds one unit of product. An existing line keeps its original unit
// price; a new line is priced at product.Price.
func (s *Store) AddItem(ctx context.Context, product models.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexLocked(product.ID); i >= 0 {
		s.lines[i].Quantity++
	} else {
		s.lines = append(s.lines, models.Line{
			ProductID: product.ID,
			Name:      product.Name,
			UnitPrice: product.Price,
			Quantity:  1,
		})
	}
	s.metrics.IncrementMutation("add")
	s.persistLocked(ctx)
}

// RemoveItem drops the line for productID regardless of quantity.
func (s *Store) RemoveItem(ctx context.Context, productID id.ProductID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(productID)
	if i < 0 {
		return
	}
	s.removeLocked(i)
	s.metrics.IncrementMutation("remove")
	s.persistLocked(ctx)
}

// SetQuantity replaces a line's quantity with the normalized request. Invalid
// input fails with CodeInvalidQuantity and leaves the cart untouched; an
// unknown productID is ignored.
func (s *Store) SetQuantity(ctx context.Context, productID id.ProductID, requested string) error {
	qty, err := money.NormalizeQuantity(requested)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(productID)
	if i < 0 {
		return nil
	}
	s.lines[i].Quantity = qty
	s.metrics.IncrementMutation("set_quantity")
	s.persistLocked(ctx)
	return nil
}

// DecrementQuantity lowers a line by one, removing it at quantity 1.
func (s *Store) DecrementQuantity(ctx context.Context, productID id.ProductID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(productID)
	if i < 0 {
		return
	}
	if s.lines[i].Quantity > 1 {
		s.lines[i].Quantity--
	} else {
		s.removeLocked(i)
	}
	s.metrics.IncrementMutation("decrement")
	s.persistLocked(ctx)
}

// Clear empties the cart. Clearing an empty cart is a no-op.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.lines) == 0 {
		return
	}
	s.lines = nil
	s.metrics.IncrementMutation("clear")
	s.persistLocked(ctx)
}

// Settle removes what a completed order bought. Each snapshot line reduces
// the live line by its quantity; lines added or raised after the snapshot
// was taken survive. Without concurrent edits this empties the cart.
func (s *Store) Settle(ctx context.Context, ordered models.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, o := range ordered.Lines {
		i := s.indexLocked(o.ProductID)
		if i < 0 {
			continue
		}
		if remaining := s.lines[i].Quantity - o.Quantity; remaining > 0 {
			s.lines[i].Quantity = remaining
		} else {
			s.removeLocked(i)
		}
	}
	s.metrics.IncrementMutation("settle")
	s.persistLocked(ctx)
}

// Total is the unrounded sum of unitPrice × quantity.
func (s *Store) Total() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return money.CartTotal(s.lines)
}

// Lines returns a copy of the lines in insertion order.
func (s *Store) Lines() []models.Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.Clone(s.lines)
}

// Snapshot returns an immutable copy for checkout.
func (s *Store) Snapshot() models.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.Snapshot{Lines: models.Clone(s.lines)}
}

func (s *Store) indexLocked(productID id.ProductID) int {
	for i := range s.lines {
		if s.lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}

func (s *Store) removeLocked(i int) {
	s.lines = append(s.lines[:i], s.lines[i+1:]...)
	if len(s.lines) == 0 {
		s.lines = nil
	}
}

func (s *Store) persistLocked(ctx context.Context) {
	data, err := models.Encode(s.lines)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to encode cart",
			"cart_id", s.cartID.String(),
			"error", err,
		)
		return
	}

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	start := time.Now()
	err = s.slot.Save(saveCtx, data)
	s.metrics.ObservePersist(start, err)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to persist cart",
			"cart_id", s.cartID.String(),
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
}
