package adapters

import (
	"context"

	"storefront/internal/cart/models"
	catalogModels "storefront/internal/catalog/models"
	id "storefront/pkg/domain"
)

// CatalogReader is the slice of the catalog service the cart needs.
type CatalogReader interface {
	GetProduct(ctx context.Context, productID id.ProductID) (*catalogModels.Product, error)
}

// CatalogAdapter prices cart additions from the catalog.
type CatalogAdapter struct {
	catalog CatalogReader
}

// NewCatalogAdapter wraps a catalog reader.
func NewCatalogAdapter(catalog CatalogReader) *CatalogAdapter {
	return &CatalogAdapter{catalog: catalog}
}

// CartProduct returns the name and current price of a product. Catalog
// errors pass through unchanged.
func (a *CatalogAdapter) CartProduct(ctx context.Context, productID id.ProductID) (models.Product, error) {
	p, err := a.catalog.GetProduct(ctx, productID)
	if err != nil {
		return models.Product{}, err
	}
	return models.Product{ID: p.ID, Name: p.Name, Price: p.Price}, nil
}
