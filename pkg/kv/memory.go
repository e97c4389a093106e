package kv

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

const DefaultMemoryCapacity = 10000

// MemoryStore keeps entries in a bounded LRU. The least recently touched
// entry is evicted once capacity is reached.
type MemoryStore struct {
	entries *lru.Cache[string, []byte]
}

func NewMemoryStore(capacity int) (*MemoryStore, error) {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}

	entries, err := lru.New[string, []byte](capacity)
	if err != nil {
		return nil, fmt.Errorf("create lru: %w", err)
	}

	return &MemoryStore{entries: entries}, nil
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	value, ok := m.entries.Get(key)
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	m.entries.Add(key, append([]byte(nil), value...))
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) (bool, error) {
	return m.entries.Remove(key), nil
}

func (m *MemoryStore) Keys(_ context.Context) ([]string, error) {
	return m.entries.Keys(), nil
}

func (m *MemoryStore) Ping(_ context.Context) error {
	return nil
}

func (m *MemoryStore) Name() string {
	return "memory"
}
