package offline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisStore is a redis-backed Store. A lane-local redis instance gives the
// queue durability across client restarts; key-level SETNX enforces
// idempotency-key uniqueness.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore constructs a RedisStore with the given key prefix.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "posq"
	}
	return &RedisStore{client: client, prefix: prefix}
}

type entryRecord struct {
	ID             string    `json:"id"`
	IdempotencyKey string    `json:"idempotency_key"`
	Payload        []byte    `json:"payload"`
	Status         Status    `json:"status"`
	EnqueuedAt     time.Time `json:"enqueued_at"`
	SyncedAt       time.Time `json:"synced_at,omitzero"`
	RetryCount     int       `json:"retry_count"`
	LastError      string    `json:"last_error,omitempty"`
}

func (s *RedisStore) entryKey(id string) string  { return fmt.Sprintf("%s:entry:%s", s.prefix, id) }
func (s *RedisStore) keyIndex(key string) string { return fmt.Sprintf("%s:key:%s", s.prefix, key) }
func (s *RedisStore) statusSet(st Status) string { return fmt.Sprintf("%s:status:%s", s.prefix, st) }
func (s *RedisStore) deviceKey() string          { return fmt.Sprintf("%s:device", s.prefix) }

// LoadOrInitDeviceID returns the persisted device identity, initialising it
// with the provided candidate on first use.
func (s *RedisStore) LoadOrInitDeviceID(ctx context.Context, candidate string) (string, error) {
	ok, err := s.client.SetNX(ctx, s.deviceKey(), candidate, 0).Result()
	if err != nil {
		return "", err
	}
	if ok {
		return candidate, nil
	}
	return s.client.Get(ctx, s.deviceKey()).Result()
}

// Enqueue implements Store.
func (s *RedisStore) Enqueue(ctx context.Context, entry Entry) (Entry, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Status == "" {
		entry.Status = StatusPending
	}
	if entry.EnqueuedAt.IsZero() {
		entry.EnqueuedAt = time.Now().UTC()
	}
	ok, err := s.client.SetNX(ctx, s.keyIndex(entry.IdempotencyKey), entry.ID, 0).Result()
	if err != nil {
		return Entry{}, err
	}
	if !ok {
		// Key already queued; hand back the original entry.
		return s.FindByKey(ctx, entry.IdempotencyKey)
	}
	if err := s.write(ctx, entry); err != nil {
		return Entry{}, err
	}
	if err := s.client.ZAdd(ctx, s.statusSet(entry.Status), redis.Z{
		Score:  float64(entry.EnqueuedAt.UnixNano()),
		Member: entry.ID,
	}).Err(); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, id string) (Entry, error) {
	data, err := s.client.Get(ctx, s.entryKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Entry{}, ErrEntryNotFound
		}
		return Entry{}, err
	}
	var record entryRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return Entry{}, err
	}
	return Entry(record), nil
}

// FindByKey implements Store.
func (s *RedisStore) FindByKey(ctx context.Context, key string) (Entry, error) {
	id, err := s.client.Get(ctx, s.keyIndex(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Entry{}, ErrEntryNotFound
		}
		return Entry{}, err
	}
	return s.Get(ctx, id)
}

// ListByStatus implements Store.
func (s *RedisStore) ListByStatus(ctx context.Context, status Status) ([]Entry, error) {
	ids, err := s.client.ZRange(ctx, s.statusSet(status), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(ids))
	for _, id := range ids {
		entry, err := s.Get(ctx, id)
		if err != nil {
			if errors.Is(err, ErrEntryNotFound) {
				continue
			}
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Update implements Store.
func (s *RedisStore) Update(ctx context.Context, entry Entry) error {
	current, err := s.Get(ctx, entry.ID)
	if err != nil {
		return err
	}
	if current.Status != entry.Status {
		if err := s.client.ZRem(ctx, s.statusSet(current.Status), entry.ID).Err(); err != nil {
			return err
		}
		score := float64(entry.EnqueuedAt.UnixNano())
		if entry.Status == StatusSynced && !entry.SyncedAt.IsZero() {
			score = float64(entry.SyncedAt.UnixNano())
		}
		if err := s.client.ZAdd(ctx, s.statusSet(entry.Status), redis.Z{Score: score, Member: entry.ID}).Err(); err != nil {
			return err
		}
	}
	return s.write(ctx, entry)
}

// DeleteSyncedBefore implements Store.
func (s *RedisStore) DeleteSyncedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	max := fmt.Sprintf("%d", cutoff.UnixNano())
	ids, err := s.client.ZRangeByScore(ctx, s.statusSet(StatusSynced), &redis.ZRangeBy{Min: "-inf", Max: max}).Result()
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, id := range ids {
		entry, err := s.Get(ctx, id)
		if err != nil {
			if errors.Is(err, ErrEntryNotFound) {
				continue
			}
			return removed, err
		}
		pipe := s.client.TxPipeline()
		pipe.Del(ctx, s.entryKey(id))
		pipe.Del(ctx, s.keyIndex(entry.IdempotencyKey))
		pipe.ZRem(ctx, s.statusSet(StatusSynced), id)
		if _, err := pipe.Exec(ctx); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

func (s *RedisStore) write(ctx context.Context, entry Entry) error {
	data, err := json.Marshal(entryRecord(entry))
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.entryKey(entry.ID), data, 0).Err()
}
