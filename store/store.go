// Package store defines the key/value persistence contract used by the sign-in gate
// for attempt ledgers, lockout records and the admin session.
//
// # Architecture boundaries
//
// Implementations live in sub-packages ([memstore], [redisstore], [pgstore]). They are
// expected to be synchronous and local from the gate's point of view: no retries, no
// backoff. Cross-process consistency is last-writer-wins.
//
// # What this package must NOT do
//
//   - Interpret record payloads (encoding belongs to internal/ledger and session).
//   - Import adminGate or any sibling package.
package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by Get when the key is absent or expired.
	ErrNotFound = errors.New("store: key not found")
	// ErrUnavailable wraps backend faults (network, driver, closed client).
	ErrUnavailable = errors.New("store: backend unavailable")
)

// Store is a minimal persisted key/value map. A ttl of zero means no expiry.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}
