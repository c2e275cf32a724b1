package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"storefront/internal/order/models"
	id "storefront/pkg/domain"
	"storefront/pkg/platform/sentinel"
)

// InMemoryStore keeps orders in process.
type InMemoryStore struct {
	mu     sync.RWMutex
	orders map[id.OrderID]*models.Order
	now    func() time.Time
}

// New returns an empty in-memory order store.
func New() *InMemoryStore {
	return &InMemoryStore{
		orders: make(map[id.OrderID]*models.Order),
		now:    time.Now,
	}
}

// Insert assigns an id and creation time, then stores a copy of o.
func (s *InMemoryStore) Insert(_ context.Context, o *models.Order) (id.OrderID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := o.Clone()
	stored.ID = id.NewOrderID()
	stored.CreatedAt = s.now().UTC()
	s.orders[stored.ID] = stored

	o.ID = stored.ID
	o.CreatedAt = stored.CreatedAt
	return stored.ID, nil
}

// ListByOwner returns the owner's orders, newest first.
func (s *InMemoryStore) ListByOwner(_ context.Context, owner id.UserID) ([]*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Order
	for _, o := range s.orders {
		if o.OwnerID == owner {
			out = append(out, o.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

// FindByID returns sentinel.ErrNotFound for unknown orders.
func (s *InMemoryStore) FindByID(_ context.Context, orderID id.OrderID) (*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[orderID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return o.Clone(), nil
}
