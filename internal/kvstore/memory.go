package kvstore

import (
	"context"
	"maps"
	"sync"

	"vcregistry/pkg/platform/sentinel"
)

// Memory is an in-process store for development and tests. Contents are
// lost on restart.
type Memory struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string]string)}
}

func (m *Memory) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", unavailable("memory get", err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return "", sentinel.ErrNotFound
	}
	return v, nil
}

func (m *Memory) Put(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return unavailable("memory put", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *Memory) PutIfAbsent(ctx context.Context, key, value string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, unavailable("memory put-if-absent", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.data[key]; exists {
		return false, nil
	}
	m.data[key] = value
	return true, nil
}

func (m *Memory) Health(context.Context) error {
	return nil
}

// Snapshot returns a copy of every stored key and value.
func (m *Memory) Snapshot() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return maps.Clone(m.data)
}

var _ ConditionalStore = (*Memory)(nil)
