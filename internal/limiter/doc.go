// Package limiter implements the persisted failure limiter shared by the password
// and one-time-code phases of the sign-in gate.
//
// One [Limiter] type is instantiated per action with its own storage namespace, so
// the two phases never share counters. Records live under:
//
//   - <prefix>:attempts:<name>: consecutive failures and last failure time
//   - <prefix>:lockout:<name>:  unlock instant, present only once locked
//
// # What this package must NOT do
//
//   - Serialize callers. The gate guarantees one submission at a time.
//   - Decide consequences of a lockout beyond reporting it.
package limiter
