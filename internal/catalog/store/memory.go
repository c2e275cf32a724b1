package store

import (
	"context"
	"sort"
	"sync"

	"storefront/internal/catalog/models"
	id "storefront/pkg/domain"
	"storefront/pkg/platform/sentinel"
)

// InMemoryStore keeps products in process. Returned products are copies.
type InMemoryStore struct {
	mu       sync.RWMutex
	products map[id.ProductID]models.Product
}

// New returns an empty in-memory product store.
func New() *InMemoryStore {
	return &InMemoryStore{products: make(map[id.ProductID]models.Product)}
}

// List returns every product, oldest first.
func (s *InMemoryStore) List(_ context.Context) ([]*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Product, 0, len(s.products))
	for _, p := range s.products {
		p := p
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

// FindByID returns sentinel.ErrNotFound for unknown products.
func (s *InMemoryStore) FindByID(_ context.Context, productID id.ProductID) (*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[productID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &p, nil
}

// Create inserts a product; an existing ID is a sentinel.ErrConflict.
func (s *InMemoryStore) Create(_ context.Context, p *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[p.ID]; exists {
		return sentinel.ErrConflict
	}
	s.products[p.ID] = *p
	return nil
}

// Update replaces an existing product.
func (s *InMemoryStore) Update(_ context.Context, p *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[p.ID]; !exists {
		return sentinel.ErrNotFound
	}
	s.products[p.ID] = *p
	return nil
}

// Delete removes a product.
func (s *InMemoryStore) Delete(_ context.Context, productID id.ProductID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[productID]; !exists {
		return sentinel.ErrNotFound
	}
	delete(s.products, productID)
	return nil
}
