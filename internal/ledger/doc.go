// Package ledger holds the persisted attempt and lockout records of a single
// rate-limited action and their compact binary encoding.
//
// # Binary encoding
//
// Each record starts with a format version byte followed by big-endian fields.
// Timestamps are epoch milliseconds, rounded up on encode, so a lockout never ends
// before the instant it was written with. Unknown versions decode to [ErrCorrupt].
//
// # What this package must NOT do
//
//   - Touch storage. Reads and writes are delegated by internal/limiter.
//   - Decide lock state; it only carries the numbers.
package ledger
