package stores

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/colonyops/backlog/internal/core/kv"
	"github.com/colonyops/backlog/internal/data/db"
)

// KVStore implements kv.KV on the kv_store table of the shared database.
//
// It holds two kinds of entries. The local backend keeps each user's task
// and sprint documents here through Set; those never expire. The update
// check caches the latest release through SetTTL. An entry past its expiry
// reads as missing and is removed on first touch, and the background sweep
// clears the rest.
type KVStore struct {
	db  *db.DB
	now func() time.Time
}

var _ kv.KV = (*KVStore)(nil)

// NewKVStore creates a KV store over database.
func NewKVStore(database *db.DB) *KVStore {
	return &KVStore{db: database, now: time.Now}
}

// Get decodes the value at key into dest. A missing or expired key returns
// an error wrapping kv.ErrNotFound.
func (s *KVStore) Get(ctx context.Context, key string, dest any) error {
	entry, err := s.live(ctx, key)
	if err != nil {
		return fmt.Errorf("kv get %q: %w", key, err)
	}
	if err := json.Unmarshal(entry.Value, dest); err != nil {
		return fmt.Errorf("kv get %q unmarshal: %w", key, err)
	}
	return nil
}

// Set stores a board document. It keeps no expiry, and overwriting a key
// that carried a TTL makes it permanent.
func (s *KVStore) Set(ctx context.Context, key string, value any) error {
	return s.set(ctx, key, value, sql.NullInt64{})
}

// SetTTL stores a cache entry that expires ttl from now. A ttl of zero or
// less stores an entry that is already expired, so later reads miss.
func (s *KVStore) SetTTL(ctx context.Context, key string, value any, ttl time.Duration) error {
	expiresAt := s.now().Add(ttl).UnixNano()
	return s.set(ctx, key, value, sql.NullInt64{Int64: expiresAt, Valid: true})
}

// Delete removes key. Deleting a missing key is not an error.
func (s *KVStore) Delete(ctx context.Context, key string) error {
	if err := s.db.Queries().KVDelete(ctx, key); err != nil {
		return fmt.Errorf("kv delete %q: %w", key, err)
	}
	return nil
}

// Has reports whether key holds an unexpired entry.
func (s *KVStore) Has(ctx context.Context, key string) (bool, error) {
	_, err := s.live(ctx, key)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, kv.ErrNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("kv has %q: %w", key, err)
	}
}

// ListKeys returns the unexpired keys in sorted order.
func (s *KVStore) ListKeys(ctx context.Context) ([]string, error) {
	keys, err := s.db.Queries().KVListKeys(ctx, s.nowParam())
	if err != nil {
		return nil, fmt.Errorf("kv list keys: %w", err)
	}
	return keys, nil
}

// GetRaw returns the entry at key with its timestamps and expiry.
func (s *KVStore) GetRaw(ctx context.Context, key string) (kv.Entry, error) {
	entry, err := s.live(ctx, key)
	if err != nil {
		return kv.Entry{}, fmt.Errorf("kv get raw %q: %w", key, err)
	}
	return entry, nil
}

// SweepExpired deletes every entry whose TTL has passed.
func (s *KVStore) SweepExpired(ctx context.Context) error {
	if err := s.db.Queries().KVSweepExpired(ctx, s.nowParam()); err != nil {
		return fmt.Errorf("kv sweep expired: %w", err)
	}
	return nil
}

// live loads key and drops it when expired. Both a missing row and an
// expired one come back as kv.ErrNotFound.
func (s *KVStore) live(ctx context.Context, key string) (kv.Entry, error) {
	row, err := s.db.Queries().KVGet(ctx, key)
	if err != nil {
		if IsNotFoundError(err) {
			return kv.Entry{}, kv.ErrNotFound
		}
		return kv.Entry{}, err
	}

	entry := entryFromRow(row)
	if entry.Expired(s.now()) {
		if err := s.db.Queries().KVDelete(ctx, key); err != nil {
			return kv.Entry{}, fmt.Errorf("drop expired: %w", err)
		}
		return kv.Entry{}, kv.ErrNotFound
	}
	return entry, nil
}

func (s *KVStore) set(ctx context.Context, key string, value any, expiresAt sql.NullInt64) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("kv set %q marshal: %w", key, err)
	}

	// The upsert keeps created_at from the first insert.
	now := s.now().UnixNano()
	if err := s.db.Queries().KVSet(ctx, db.KVSetParams{
		Key:       key,
		Value:     data,
		ExpiresAt: expiresAt,
		CreatedAt: now,
		UpdatedAt: now,
	}); err != nil {
		return fmt.Errorf("kv set %q: %w", key, err)
	}
	return nil
}

func (s *KVStore) nowParam() sql.NullInt64 {
	return sql.NullInt64{Int64: s.now().UnixNano(), Valid: true}
}

func entryFromRow(row db.KvStore) kv.Entry {
	entry := kv.Entry{
		Key:       row.Key,
		Value:     json.RawMessage(row.Value),
		CreatedAt: time.Unix(0, row.CreatedAt),
		UpdatedAt: time.Unix(0, row.UpdatedAt),
	}
	if row.ExpiresAt.Valid {
		t := time.Unix(0, row.ExpiresAt.Int64)
		entry.ExpiresAt = &t
	}
	return entry
}
