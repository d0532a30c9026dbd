package offline

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, "testq")
}

func TestRedisStoreEnqueueAndLookup(t *testing.T) {
	store := newRedisStore(t)
	ctx := context.Background()

	entry, err := store.Enqueue(ctx, Entry{IdempotencyKey: "k1", Payload: []byte(`{"total":5}`)})
	require.NoError(t, err)
	require.NotEmpty(t, entry.ID)
	require.Equal(t, StatusPending, entry.Status)

	byID, err := store.Get(ctx, entry.ID)
	require.NoError(t, err)
	require.Equal(t, entry.IdempotencyKey, byID.IdempotencyKey)
	require.Equal(t, entry.Payload, byID.Payload)

	byKey, err := store.FindByKey(ctx, "k1")
	require.NoError(t, err)
	require.Equal(t, entry.ID, byKey.ID)

	_, err = store.Get(ctx, "nope")
	require.ErrorIs(t, err, ErrEntryNotFound)
}

func TestRedisStoreEnqueueDuplicateKey(t *testing.T) {
	store := newRedisStore(t)
	ctx := context.Background()

	first, err := store.Enqueue(ctx, Entry{IdempotencyKey: "k1", Payload: []byte(`a`)})
	require.NoError(t, err)
	second, err := store.Enqueue(ctx, Entry{IdempotencyKey: "k1", Payload: []byte(`b`)})
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, []byte(`a`), second.Payload)

	pending, err := store.ListByStatus(ctx, StatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
}

func TestRedisStoreStatusTransitions(t *testing.T) {
	store := newRedisStore(t)
	ctx := context.Background()

	entry, err := store.Enqueue(ctx, Entry{IdempotencyKey: "k1", Payload: []byte(`{}`)})
	require.NoError(t, err)

	entry.Status = StatusSyncing
	require.NoError(t, store.Update(ctx, entry))
	pending, err := store.ListByStatus(ctx, StatusPending)
	require.NoError(t, err)
	require.Empty(t, pending)
	syncing, err := store.ListByStatus(ctx, StatusSyncing)
	require.NoError(t, err)
	require.Len(t, syncing, 1)

	entry.Status = StatusSynced
	entry.SyncedAt = time.Now().UTC()
	require.NoError(t, store.Update(ctx, entry))
	synced, err := store.ListByStatus(ctx, StatusSynced)
	require.NoError(t, err)
	require.Len(t, synced, 1)
}

func TestRedisStoreOrdering(t *testing.T) {
	store := newRedisStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	_, err := store.Enqueue(ctx, Entry{IdempotencyKey: "newer", Payload: []byte(`{}`), EnqueuedAt: now})
	require.NoError(t, err)
	_, err = store.Enqueue(ctx, Entry{IdempotencyKey: "older", Payload: []byte(`{}`), EnqueuedAt: now.Add(-time.Hour)})
	require.NoError(t, err)

	pending, err := store.ListByStatus(ctx, StatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	require.Equal(t, "older", pending[0].IdempotencyKey)
	require.Equal(t, "newer", pending[1].IdempotencyKey)
}

func TestRedisStoreGC(t *testing.T) {
	store := newRedisStore(t)
	ctx := context.Background()

	entry, err := store.Enqueue(ctx, Entry{IdempotencyKey: "k1", Payload: []byte(`{}`)})
	require.NoError(t, err)
	entry.Status = StatusSynced
	entry.SyncedAt = time.Now().UTC().Add(-25 * time.Hour)
	require.NoError(t, store.Update(ctx, entry))

	removed, err := store.DeleteSyncedBefore(ctx, time.Now().UTC().Add(-DefaultRetention))
	require.NoError(t, err)
	require.Equal(t, 1, removed)

	_, err = store.Get(ctx, entry.ID)
	require.ErrorIs(t, err, ErrEntryNotFound)
	// The key index is released with the entry, so the key can be reused.
	_, err = store.FindByKey(ctx, "k1")
	require.ErrorIs(t, err, ErrEntryNotFound)
}

func TestRedisStoreDeviceIdentity(t *testing.T) {
	store := newRedisStore(t)
	ctx := context.Background()

	id, err := store.LoadOrInitDeviceID(ctx, "till-1")
	require.NoError(t, err)
	require.Equal(t, "till-1", id)

	// Later candidates do not overwrite the persisted identity.
	id, err = store.LoadOrInitDeviceID(ctx, "till-2")
	require.NoError(t, err)
	require.Equal(t, "till-1", id)
}
