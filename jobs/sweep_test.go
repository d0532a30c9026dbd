package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tindero-pos/tindero/internal/offline"
)

type fakeKeyStore struct {
	cutoff  time.Time
	cleared int64
}

func (f *fakeKeyStore) ClearIdempotencyKeysBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return f.cleared, nil
}

func TestQueueSweepRemovesAgedEntries(t *testing.T) {
	store := offline.NewMemoryStore()
	ctx := context.Background()

	entry, err := store.Enqueue(ctx, offline.Entry{IdempotencyKey: "k1", Payload: []byte(`{}`)})
	require.NoError(t, err)
	entry.Status = offline.StatusSynced
	entry.SyncedAt = time.Now().UTC().Add(-25 * time.Hour)
	require.NoError(t, store.Update(ctx, entry))

	job := NewQueueSweepJob(store, nil, nil)
	task, err := NewQueueSweepTask(QueueSweepPayload{})
	require.NoError(t, err)
	require.NoError(t, job.Handle(ctx, task))

	_, err = store.Get(ctx, entry.ID)
	require.ErrorIs(t, err, offline.ErrEntryNotFound)
}

func TestIdempotencySweepUsesRetention(t *testing.T) {
	keys := &fakeKeyStore{cleared: 3}
	job := NewIdempotencySweepJob(keys, nil, nil)
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	job.clock = func() time.Time { return now }

	task, err := NewIdempotencySweepTask(IdempotencySweepPayload{RetentionDays: 7})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, now.Add(-7*24*time.Hour), keys.cutoff)

	task, err = NewIdempotencySweepTask(IdempotencySweepPayload{})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, now.Add(-DefaultKeyRetention), keys.cutoff)
}
