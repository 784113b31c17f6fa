// Package jsonfile stores the local backend's key-value entries in a single
// JSON document on disk.
package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/colonyops/backlog/internal/core/kv"
)

const lockRetryInterval = 25 * time.Millisecond

// File is the root JSON structure stored on disk.
type File struct {
	Entries map[string]kv.Entry `json:"entries"`
}

// KV implements kv.KV on one JSON file. Writes hold an exclusive flock on
// a sibling ".lock" file so separate processes sharing the file serialize
// their read-modify-write cycles.
type KV struct {
	path string
	mu   sync.RWMutex
	lock *flock.Flock
	now  func() time.Time
}

var _ kv.KV = (*KV)(nil)

// NewKV creates a file-backed KV at path. The file is created on first write.
func NewKV(path string) *KV {
	return &KV{
		path: path,
		lock: flock.New(path + ".lock"),
		now:  time.Now,
	}
}

// Path returns the backing file.
func (s *KV) Path() string {
	return s.path
}

func (s *KV) Get(ctx context.Context, key string, dest any) error {
	entry, err := s.GetRaw(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(entry.Value, dest); err != nil {
		return fmt.Errorf("kv get %q unmarshal: %w", key, err)
	}
	return nil
}

func (s *KV) Set(ctx context.Context, key string, value any) error {
	return s.set(ctx, key, value, nil)
}

func (s *KV) SetTTL(ctx context.Context, key string, value any, ttl time.Duration) error {
	expires := s.now().Add(ttl)
	return s.set(ctx, key, value, &expires)
}

func (s *KV) Delete(ctx context.Context, key string) error {
	return s.update(ctx, func(file *File) {
		delete(file.Entries, key)
	})
}

func (s *KV) Has(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	file, err := s.load()
	if err != nil {
		return false, err
	}
	entry, ok := file.Entries[key]
	return ok && !entry.Expired(s.now()), nil
}

// ListKeys returns all non-expired keys in sorted order.
func (s *KV) ListKeys(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	file, err := s.load()
	if err != nil {
		return nil, err
	}

	now := s.now()
	keys := make([]string, 0, len(file.Entries))
	for k, e := range file.Entries {
		if !e.Expired(now) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys, nil
}

func (s *KV) GetRaw(_ context.Context, key string) (kv.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	file, err := s.load()
	if err != nil {
		return kv.Entry{}, err
	}

	entry, ok := file.Entries[key]
	if !ok || entry.Expired(s.now()) {
		return kv.Entry{}, fmt.Errorf("kv get %q: %w", key, kv.ErrNotFound)
	}
	return entry, nil
}

// SweepExpired rewrites the file without expired entries.
func (s *KV) SweepExpired(ctx context.Context) error {
	return s.update(ctx, func(*File) {})
}

func (s *KV) set(ctx context.Context, key string, value any, expiresAt *time.Time) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("kv set %q marshal: %w", key, err)
	}

	return s.update(ctx, func(file *File) {
		now := s.now()
		created := now
		if prev, ok := file.Entries[key]; ok && !prev.Expired(now) {
			created = prev.CreatedAt
		}
		file.Entries[key] = kv.Entry{
			Key:       key,
			Value:     data,
			ExpiresAt: expiresAt,
			CreatedAt: created,
			UpdatedAt: now,
		}
	})
}

// update runs fn against the freshly loaded file while holding both the
// in-process mutex and the cross-process file lock, then writes the result.
// Expired entries are dropped on every write.
func (s *KV) update(ctx context.Context, fn func(*File)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create kv dir: %w", err)
	}

	locked, err := s.lock.TryLockContext(ctx, lockRetryInterval)
	if err != nil {
		return fmt.Errorf("lock %s: %w", s.path, err)
	}
	if !locked {
		return fmt.Errorf("lock %s: not acquired", s.path)
	}
	defer func() { _ = s.lock.Unlock() }()

	file, err := s.load()
	if err != nil {
		return err
	}

	fn(&file)

	now := s.now()
	for k, e := range file.Entries {
		if e.Expired(now) {
			delete(file.Entries, k)
		}
	}

	return s.save(file)
}

// load reads the file from disk. A missing or empty file is an empty store.
func (s *KV) load() (File, error) {
	file := File{Entries: map[string]kv.Entry{}}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return file, nil
		}
		return File{}, fmt.Errorf("read %s: %w", s.path, err)
	}

	if len(data) == 0 {
		return file, nil
	}

	if err := json.Unmarshal(data, &file); err != nil {
		return File{}, fmt.Errorf("decode %s: %w", s.path, err)
	}
	if file.Entries == nil {
		file.Entries = map[string]kv.Entry{}
	}

	return file, nil
}

// save writes the file to disk atomically.
func (s *KV) save(file File) error {
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", s.path, err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}

	return os.Rename(tmp, s.path)
}
