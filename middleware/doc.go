// Package middleware guards HTTP routes behind the gate's authenticated session.
//
// # Guards
//
//   - [RequireSession]: the bearer token must equal the token of the session the
//     gate currently holds.
//   - [RequireStrict]: as RequireSession, and the token's JWT exp claim (when
//     present) must still be in the future.
//
// Both inject the matched [session.Credential] into the request context; read it
// back with [CredentialFromContext].
//
// # What this package must NOT do
//
//   - Verify JWT signatures. Tokens are opaque to the gate; the backend that issued
//     them owns verification.
//   - Touch the store. The gate's in-memory credential is the only source.
package middleware
