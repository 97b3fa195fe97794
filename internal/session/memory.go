package session

import (
	"context"
	"slices"
	"sync"

	"github.com/Shivanand-hulikatti/event-checkout/internal/model"
)

// MemoryStore implements Store in process memory. Entries never expire.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]model.Session
	flashes  map[string][]byte
}

// NewMemoryStore returns an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]model.Session),
		flashes:  make(map[string][]byte),
	}
}

// Load returns the stored bag, or an empty one.
func (m *MemoryStore) Load(_ context.Context, id string) (model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[id], nil
}

// Save replaces the bag for id.
func (m *MemoryStore) Save(_ context.Context, id string, s model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[id] = s
	return nil
}

// Destroy drops the bag for id. Flash values survive.
func (m *MemoryStore) Destroy(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// SetFlash stores value under key for id.
func (m *MemoryStore) SetFlash(_ context.Context, id, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flashes[flashKey(id, key)] = slices.Clone(value)
	return nil
}

// TakeFlash returns and removes the flash value.
func (m *MemoryStore) TakeFlash(_ context.Context, id, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := flashKey(id, key)
	v, ok := m.flashes[k]
	if !ok {
		return nil, nil
	}
	delete(m.flashes, k)
	return v, nil
}
