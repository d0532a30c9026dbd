// Package offline implements the client-resident durable queue that buffers
// sales made without connectivity and replays them exactly once against the
// server. The server-side idempotency check stays the single source of
// truth for "already applied"; this queue only guarantees the submission
// reaches it at least once and is never duplicated locally.
package offline

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status is the sync state of a queued transaction.
type Status string

const (
	// StatusPending awaits a network attempt.
	StatusPending Status = "pending"
	// StatusSyncing has an attempt in flight.
	StatusSyncing Status = "syncing"
	// StatusSynced was accepted by the server and awaits garbage collection.
	StatusSynced Status = "synced"
	// StatusFailed had its last attempt fail.
	StatusFailed Status = "failed"
)

// MaxRetries caps how often a failed entry re-enters the pending state.
// Entries that exhaust it stay failed for manual intervention.
const MaxRetries = 5

// DefaultRetention is how long synced entries are kept before collection.
const DefaultRetention = 24 * time.Hour

// Entry is one queued transaction submission.
type Entry struct {
	ID             string
	IdempotencyKey string
	Payload        []byte
	Status         Status
	EnqueuedAt     time.Time
	SyncedAt       time.Time
	RetryCount     int
	LastError      string
}

// ErrEntryNotFound indicates a missing queue entry.
var ErrEntryNotFound = errors.New("offline: entry not found")

// ErrSyncInFlight indicates a second sync attempt while one is running.
var ErrSyncInFlight = errors.New("offline: sync already in flight")

// DeviceIdentity identifies this client instance. It is injected
// configuration so multiple instances in tests do not collide.
type DeviceIdentity struct {
	ID string
}

// NewDeviceIdentity generates a fresh random identity.
func NewDeviceIdentity() DeviceIdentity {
	return DeviceIdentity{ID: uuid.NewString()}
}

// NewIdempotencyKey derives a globally unique key from the device, a
// fingerprint of the payload, and randomness. The key is generated once at
// sale time and travels with the entry, so a crash-and-re-enqueue on
// restart still presents the same key to the server.
func (d DeviceIdentity) NewIdempotencyKey(payload []byte) string {
	sum := sha256.Sum256(payload)
	return d.ID + ":" + hex.EncodeToString(sum[:8]) + ":" + uuid.NewString()
}
