package service

import (
	"context"
	"errors"
	"log/slog"

	"storefront/internal/order/models"
	"storefront/internal/receipt"
	id "storefront/pkg/domain"
	dErrors "storefront/pkg/domain-errors"
	"storefront/pkg/platform/sentinel"
)

// OrderStore reads and writes placed orders.
type OrderStore interface {
	Insert(ctx context.Context, o *models.Order) (id.OrderID, error)
	ListByOwner(ctx context.Context, owner id.UserID) ([]*models.Order, error)
	FindByID(ctx context.Context, orderID id.OrderID) (*models.Order, error)
}

// Renderers selects a receipt renderer by format.
type Renderers interface {
	Lookup(format string) (receipt.Renderer, error)
}

// Service exposes order history and receipt downloads for the account page.
type Service struct {
	orders    OrderStore
	renderers Renderers
	logger    *slog.Logger
}

// Option configures the order service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// New constructs an order service.
func New(orders OrderStore, renderers Renderers, opts ...Option) *Service {
	s := &Service{orders: orders, renderers: renderers, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// History returns the owner's orders, newest first.
func (s *Service) History(ctx context.Context, owner id.UserID) ([]*models.Order, error) {
	orders, err := s.orders.ListByOwner(ctx, owner)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load order history")
	}
	return orders, nil
}

// Receipt re-renders a past order. Orders owned by someone else are reported
// as not found so their existence is not disclosed.
func (s *Service) Receipt(ctx context.Context, owner id.UserID, orderID id.OrderID, format string) (*receipt.Document, error) {
	renderer, err := s.renderers.Lookup(format)
	if err != nil {
		return nil, err
	}

	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "order not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load order")
	}
	if o.OwnerID != owner {
		s.logger.WarnContext(ctx, "receipt requested for another user's order",
			"order_id", orderID.String(),
			"user_id", owner.String(),
		)
		return nil, dErrors.New(dErrors.CodeNotFound, "order not found")
	}

	doc, err := renderer.Render(ctx, receipt.FromOrder(o))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeReceiptRender, "receipt could not be generated")
	}
	return doc, nil
}
