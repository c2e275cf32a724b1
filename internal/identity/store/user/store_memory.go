// Package user stores registered accounts.
package user

import (
	"context"
	"sync"

	"storefront/internal/identity/models"
	id "storefront/pkg/domain"
	"storefront/pkg/platform/sentinel"
)

// InMemoryUserStore keeps users in process, indexed by ID and email.
type InMemoryUserStore struct {
	mu      sync.RWMutex
	users   map[id.UserID]models.User
	byEmail map[string]id.UserID
}

// New returns an empty in-memory user store.
func New() *InMemoryUserStore {
	return &InMemoryUserStore{
		users:   make(map[id.UserID]models.User),
		byEmail: make(map[string]id.UserID),
	}
}

// Create stores u. A taken email is sentinel.ErrAlreadyUsed.
func (s *InMemoryUserStore) Create(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := models.NormalizeEmail(u.Email)
	if _, taken := s.byEmail[email]; taken {
		return sentinel.ErrAlreadyUsed
	}
	if _, exists := s.users[u.ID]; exists {
		return sentinel.ErrConflict
	}
	stored := *u
	stored.Email = email
	s.users[u.ID] = stored
	s.byEmail[email] = u.ID
	return nil
}

// FindByID returns sentinel.ErrNotFound for unknown users.
func (s *InMemoryUserStore) FindByID(_ context.Context, userID id.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &u, nil
}

// FindByEmail looks a user up by normalized email.
func (s *InMemoryUserStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	userID, ok := s.byEmail[models.NormalizeEmail(email)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	u := s.users[userID]
	return &u, nil
}
