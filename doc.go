// Package adminGate implements the sign-in gate of an admin dashboard: email and
// password first, then a one-time code delivered out of band, with a persistent
// attempt limiter in front of each phase.
//
// [Gate] methods are safe to call from multiple goroutines after [Builder.Build]. Only
// one submission runs at a time; overlapping SubmitCredentials, VerifyCode or
// ResendCode calls fail with [ErrBusy].
//
// # Persistence
//
// Ledgers and the session live in an injected store.Store under a common prefix:
//
//	<prefix>:attempts:password
//	<prefix>:lockout:password
//	<prefix>:attempts:code
//	<prefix>:lockout:code
//	<prefix>:session
//
// Lockouts survive restarts; call [Gate.Restore] after Build to resume them.
//
// # Errors
//
// Every operation reports failures as a *[Failure] whose Kind is one of a closed set.
// Failure unwraps to the matching sentinel in errors.go.
//
// # What this package must NOT do
//
//   - Log or audit passwords, codes, or tokens. Emails appear only as a blake2b hash.
//   - Perform I/O in Builder.Build.
//   - Touch a limiter on validation failures, access denials, or resend requests.
package adminGate
