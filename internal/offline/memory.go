package offline

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store, used in tests and as a fallback when
// no durable store is configured.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]Entry
	byKey   map[string]string
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: map[string]Entry{}, byKey: map[string]string{}}
}

// Enqueue implements Store.
func (s *MemoryStore) Enqueue(ctx context.Context, entry Entry) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.byKey[entry.IdempotencyKey]; ok {
		return s.entries[id], nil
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Status == "" {
		entry.Status = StatusPending
	}
	if entry.EnqueuedAt.IsZero() {
		entry.EnqueuedAt = time.Now().UTC()
	}
	s.entries[entry.ID] = entry
	s.byKey[entry.IdempotencyKey] = entry.ID
	return entry, nil
}

// Get implements Store.
func (s *MemoryStore) Get(ctx context.Context, id string) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[id]
	if !ok {
		return Entry{}, ErrEntryNotFound
	}
	return entry, nil
}

// FindByKey implements Store.
func (s *MemoryStore) FindByKey(ctx context.Context, key string) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byKey[key]
	if !ok {
		return Entry{}, ErrEntryNotFound
	}
	return s.entries[id], nil
}

// ListByStatus implements Store.
func (s *MemoryStore) ListByStatus(ctx context.Context, status Status) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Entry
	for _, entry := range s.entries {
		if entry.Status == status {
			out = append(out, entry)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EnqueuedAt.Before(out[j].EnqueuedAt) })
	return out, nil
}

// Update implements Store.
func (s *MemoryStore) Update(ctx context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[entry.ID]; !ok {
		return ErrEntryNotFound
	}
	s.entries[entry.ID] = entry
	return nil
}

// DeleteSyncedBefore implements Store.
func (s *MemoryStore) DeleteSyncedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, entry := range s.entries {
		if entry.Status == StatusSynced && entry.SyncedAt.Before(cutoff) {
			delete(s.entries, id)
			delete(s.byKey, entry.IdempotencyKey)
			removed++
		}
	}
	return removed, nil
}
