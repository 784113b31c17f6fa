package kv

import (
	"context"
	"errors"
	"fmt"
)

// UserKey builds the per-user key for a collection: "<base>_<userID>".
func UserKey(base, userID string) string {
	return base + "_" + userID
}

// Collection provides typed access to a whole JSON array stored under a
// single key. Every write replaces the full array.
type Collection[T any] struct {
	store KV
	key   string
}

// UserCollection returns a Collection stored at UserKey(base, userID).
func UserCollection[T any](store KV, base, userID string) *Collection[T] {
	return &Collection[T]{
		store: store,
		key:   UserKey(base, userID),
	}
}

// Key returns the underlying storage key.
func (c *Collection[T]) Key() string { return c.key }

// Load returns the stored items, or an empty slice when the key is missing.
func (c *Collection[T]) Load(ctx context.Context) ([]T, error) {
	var items []T
	if err := c.store.Get(ctx, c.key, &items); err != nil {
		if errors.Is(err, ErrNotFound) {
			return []T{}, nil
		}
		return nil, fmt.Errorf("load %s: %w", c.key, err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// Save replaces the stored items.
func (c *Collection[T]) Save(ctx context.Context, items []T) error {
	if items == nil {
		items = []T{}
	}
	if err := c.store.Set(ctx, c.key, items); err != nil {
		return fmt.Errorf("save %s: %w", c.key, err)
	}
	return nil
}

// Init stores an empty array when the key does not exist yet.
func (c *Collection[T]) Init(ctx context.Context) error {
	ok, err := c.store.Has(ctx, c.key)
	if err != nil {
		return fmt.Errorf("init %s: %w", c.key, err)
	}
	if ok {
		return nil
	}
	return c.Save(ctx, []T{})
}
