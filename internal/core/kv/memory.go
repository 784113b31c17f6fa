package kv

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"
)

// Memory is a thread-safe in-process KV. Values are stored as JSON so the
// round trip matches the persistent implementations.
type Memory struct {
	mu   sync.RWMutex
	data map[string]Entry
	now  func() time.Time
}

var _ KV = (*Memory)(nil)

// NewMemory creates an empty in-memory KV.
func NewMemory() *Memory {
	return &Memory{
		data: make(map[string]Entry),
		now:  time.Now,
	}
}

func (m *Memory) Get(ctx context.Context, key string, dest any) error {
	entry, err := m.GetRaw(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(entry.Value, dest); err != nil {
		return fmt.Errorf("kv get %q unmarshal: %w", key, err)
	}
	return nil
}

func (m *Memory) Set(_ context.Context, key string, value any) error {
	return m.set(key, value, nil)
}

func (m *Memory) SetTTL(_ context.Context, key string, value any, ttl time.Duration) error {
	expires := m.now().Add(ttl)
	return m.set(key, value, &expires)
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *Memory) Has(ctx context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.data[key]
	return ok && !entry.Expired(m.now()), nil
}

// ListKeys returns all non-expired keys in sorted order.
func (m *Memory) ListKeys(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := m.now()
	keys := make([]string, 0, len(m.data))
	for k, e := range m.data {
		if !e.Expired(now) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys, nil
}

func (m *Memory) GetRaw(_ context.Context, key string) (Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.data[key]
	if !ok || entry.Expired(m.now()) {
		return Entry{}, fmt.Errorf("kv get %q: %w", key, ErrNotFound)
	}
	return entry, nil
}

func (m *Memory) set(key string, value any, expiresAt *time.Time) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("kv set %q marshal: %w", key, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	created := now
	if prev, ok := m.data[key]; ok {
		created = prev.CreatedAt
	}
	m.data[key] = Entry{
		Key:       key,
		Value:     data,
		ExpiresAt: expiresAt,
		CreatedAt: created,
		UpdatedAt: now,
	}
	return nil
}
