// Package slot persists serialized carts under a fixed per-cart key.
//
// A slot holds opaque bytes; encoding and validation belong to the cart
// models. Load returns sentinel.ErrNotFound when nothing has been saved.
package slot

import (
	"context"
	"sync"

	id "storefront/pkg/domain"
	"storefront/pkg/platform/sentinel"
)

// KeyPrefix namespaces cart slots in shared backends.
const KeyPrefix = "storefront:cart:"

// Key returns the storage key for a cart.
func Key(cartID id.CartID) string {
	return KeyPrefix + cartID.String()
}

// Slot is the durable home of one serialized cart.
type Slot interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
}

// Provider hands out the slot for a cart.
type Provider interface {
	Slot(cartID id.CartID) Slot
}

// Memory keeps slots in process. Contents do not survive a restart.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemory returns an empty in-memory provider.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

// Slot implements Provider.
func (m *Memory) Slot(cartID id.CartID) Slot {
	return &memorySlot{store: m, key: Key(cartID)}
}

// Put seeds raw bytes under a key; used to stage stored payloads.
func (m *Memory) Put(key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), data...)
}

// Get returns the raw bytes stored under key.
func (m *Memory) Get(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.data[key]
	return append([]byte(nil), data...), ok
}

type memorySlot struct {
	store *Memory
	key   string
}

func (s *memorySlot) Load(_ context.Context) ([]byte, error) {
	data, ok := s.store.Get(s.key)
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return data, nil
}

func (s *memorySlot) Save(_ context.Context, data []byte) error {
	s.store.Put(s.key, data)
	return nil
}
