package history

import (
	"context"
	"sync"
)

type memoryStore struct {
	mu        sync.RWMutex
	stickers  map[int64][]string
	timezones map[int64]string
}

// NewMemoryStore constructs an in-memory Store used when the bot runs
// without a database.
func NewMemoryStore() Store {
	return &memoryStore{
		stickers:  make(map[int64][]string),
		timezones: make(map[int64]string),
	}
}

func (m *memoryStore) AppendSticker(_ context.Context, userID int64, fileID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stickers[userID] = append(m.stickers[userID], fileID)
	return nil
}

func (m *memoryStore) Stickers(_ context.Context, userID int64) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stored := m.stickers[userID]
	out := make([]string, len(stored))
	copy(out, stored)
	return out, nil
}

func (m *memoryStore) SetTimezone(_ context.Context, userID int64, zone string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timezones[userID] = zone
	return nil
}

func (m *memoryStore) Timezone(_ context.Context, userID int64) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.timezones[userID], nil
}
