package service

import (
	"context"
	"errors"
	"log/slog"

	"storefront/internal/catalog/models"
	id "storefront/pkg/domain"
	dErrors "storefront/pkg/domain-errors"
	"storefront/pkg/platform/sentinel"
	"storefront/pkg/requestcontext"
)

// ProductStore persists catalog entries.
type ProductStore interface {
	List(ctx context.Context) ([]*models.Product, error)
	FindByID(ctx context.Context, productID id.ProductID) (*models.Product, error)
	Create(ctx context.Context, p *models.Product) error
	Update(ctx context.Context, p *models.Product) error
	Delete(ctx context.Context, productID id.ProductID) error
}

// Service reads and maintains the product catalog.
type Service struct {
	products ProductStore
	logger   *slog.Logger
}

// Option configures the catalog service.
type Option func(*Service)

// WithLogger sets the logger used for admin audit lines.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// New constructs a catalog service.
func New(products ProductStore, opts ...Option) *Service {
	s := &Service{products: products, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListProducts returns every product in display order.
func (s *Service) ListProducts(ctx context.Context) ([]*models.Product, error) {
	products, err := s.products.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list products")
	}
	return products, nil
}

// GetProduct fetches a product by id.
func (s *Service) GetProduct(ctx context.Context, productID id.ProductID) (*models.Product, error) {
	p, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, translate(err, "failed to load product")
	}
	return p, nil
}

// CreateProduct validates and stores a new product.
func (s *Service) CreateProduct(ctx context.Context, in models.ProductInput) (*models.Product, error) {
	p, err := models.NewProduct(id.NewProductID(), in, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.products.Create(ctx, p); err != nil {
		return nil, translate(err, "failed to create product")
	}
	s.logger.InfoContext(ctx, "product created",
		"product_id", p.ID.String(),
		"user_id", requestcontext.UserID(ctx).String(),
	)
	return p, nil
}

// UpdateProduct replaces the editable fields of an existing product.
func (s *Service) UpdateProduct(ctx context.Context, productID id.ProductID, in models.ProductInput) (*models.Product, error) {
	p, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, translate(err, "failed to load product")
	}
	if err := p.Apply(in, requestcontext.Now(ctx)); err != nil {
		return nil, err
	}
	if err := s.products.Update(ctx, p); err != nil {
		return nil, translate(err, "failed to update product")
	}
	s.logger.InfoContext(ctx, "product updated",
		"product_id", p.ID.String(),
		"user_id", requestcontext.UserID(ctx).String(),
	)
	return p, nil
}

// DeleteProduct removes a product. Carts holding it keep their snapshot.
func (s *Service) DeleteProduct(ctx context.Context, productID id.ProductID) error {
	if err := s.products.Delete(ctx, productID); err != nil {
		return translate(err, "failed to delete product")
	}
	s.logger.InfoContext(ctx, "product deleted",
		"product_id", productID.String(),
		"user_id", requestcontext.UserID(ctx).String(),
	)
	return nil
}

func translate(err error, msg string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "product not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "product already exists")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}
