// Package session persists the admin session produced by a successful one-time-code
// verification and enforces the admin-role invariant on every write and restore.
//
// # Binary encoding
//
// The credential is stored as a compact versioned binary blob (see [Encode]). Decoding
// rejects unknown versions; a corrupt blob is purged on [Store.Restore].
//
// # Architecture boundaries
//
// This package owns the [Store] and the [Credential] model. It does NOT talk to the
// verification backend, count attempts, or decide gate phases; those belong to the
// Gate.
//
// # What this package must NOT do
//
//   - Import adminGate (no upward imports).
//   - Persist anything before the role gate has passed.
//   - Refresh or renew tokens.
package session
