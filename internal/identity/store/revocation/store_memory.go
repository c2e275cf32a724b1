package revocation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"storefront/pkg/platform/sentinel"
)

// InMemoryList keeps revoked token IDs in process until they expire.
type InMemoryList struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

// NewInMemory returns an empty in-memory revocation list.
func NewInMemory() *InMemoryList {
	return &InMemoryList{revoked: make(map[string]time.Time), now: time.Now}
}

// Revoke marks jti as revoked for ttl.
func (l *InMemoryList) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	if jti == "" {
		return nil
	}
	if err := validateTTL(ttl); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.revoked[jti] = l.now().Add(ttl)
	return nil
}

// IsRevoked reports whether jti is on the list. Expired entries are dropped.
func (l *InMemoryList) IsRevoked(_ context.Context, jti string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	expiry, ok := l.revoked[jti]
	if !ok {
		return false, nil
	}
	if !l.now().Before(expiry) {
		delete(l.revoked, jti)
		return false, nil
	}
	return true, nil
}

func validateTTL(ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive: %w", sentinel.ErrInvalidState)
	}
	return nil
}
