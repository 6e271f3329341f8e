package limiter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/adminGate/internal/ledger"
	"github.com/MrEthical07/adminGate/store"
)

const (
	defaultThreshold       = 5
	defaultLockoutDuration = 2 * time.Hour
)

// ErrUnavailable indicates the backing store could not be read or written.
var ErrUnavailable = errors.New("limiter backend unavailable")

// Config holds the fixed policy of one limiter instance.
type Config struct {
	Name            string
	Prefix          string
	Threshold       int
	LockoutDuration time.Duration
	// StalenessWindow defaults to LockoutDuration.
	StalenessWindow time.Duration
}

// State is the lock state derived from the persisted ledger.
type State struct {
	Locked        bool
	Count         int
	LastAttemptAt time.Time
	UnlocksAt     time.Time
}

// Limiter tracks consecutive failures of a single action.
type Limiter struct {
	store  store.Store
	config Config
	now    func() time.Time
}

// New creates a limiter. Zero-value config fields fall back to 5 failures / 2h.
func New(s store.Store, cfg Config, now func() time.Time) *Limiter {
	if cfg.Threshold <= 0 {
		cfg.Threshold = defaultThreshold
	}
	if cfg.LockoutDuration <= 0 {
		cfg.LockoutDuration = defaultLockoutDuration
	}
	if cfg.StalenessWindow <= 0 {
		cfg.StalenessWindow = cfg.LockoutDuration
	}
	if now == nil {
		now = time.Now
	}
	return &Limiter{store: s, config: cfg, now: now}
}

func (l *Limiter) Name() string {
	return l.config.Name
}

func (l *Limiter) Threshold() int {
	return l.config.Threshold
}

func (l *Limiter) LockoutDuration() time.Duration {
	return l.config.LockoutDuration
}

func (l *Limiter) attemptsKey() string {
	return l.config.Prefix + ":attempts:" + l.config.Name
}

func (l *Limiter) lockoutKey() string {
	return l.config.Prefix + ":lockout:" + l.config.Name
}

// CheckLocked loads the ledger and reports the current lock state. Stale ledgers and
// naturally expired lockouts are cleared before evaluation.
func (l *Limiter) CheckLocked(ctx context.Context) (State, error) {
	st, expired, err := l.evaluate(ctx)
	if err != nil {
		return State{}, err
	}
	if expired {
		if err := l.Reset(ctx); err != nil {
			return State{}, err
		}
	}
	return st, nil
}

// Peek reports the same state as CheckLocked without writing. Expired records read
// as zero and are left for the next CheckLocked or RecordFailure to clear.
func (l *Limiter) Peek(ctx context.Context) (State, error) {
	st, _, err := l.evaluate(ctx)
	return st, err
}

func (l *Limiter) evaluate(ctx context.Context) (State, bool, error) {
	now := l.now()
	rec, lock, err := l.load(ctx)
	if err != nil {
		return State{}, false, err
	}
	if l.expired(now, rec, lock) {
		return State{}, true, nil
	}

	st := State{Count: rec.Count, LastAttemptAt: rec.LastAttemptAt}
	switch {
	case lock != nil:
		st.Locked = true
		st.UnlocksAt = lock.UnlocksAt
	case rec.Count >= l.config.Threshold:
		// Lockout record lost; derive it from the last failure.
		st.Locked = true
		st.UnlocksAt = rec.LastAttemptAt.Add(l.config.LockoutDuration)
	}
	return st, false, nil
}

// RecordFailure counts one more failure. When the new count reaches the threshold a
// lockout record is persisted and locked is true.
func (l *Limiter) RecordFailure(ctx context.Context) (int, bool, error) {
	now := l.now()
	rec, lock, err := l.load(ctx)
	if err != nil {
		return 0, false, err
	}
	if l.expired(now, rec, lock) {
		rec = ledger.Record{}
	}

	next := rec.Next(now)
	encoded, err := ledger.EncodeRecord(next)
	if err != nil {
		return 0, false, err
	}
	if err := l.store.Set(ctx, l.attemptsKey(), encoded, l.config.StalenessWindow); err != nil {
		return 0, false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if next.Count < l.config.Threshold {
		return next.Count, false, nil
	}

	lockEncoded, err := ledger.EncodeLockout(ledger.Lockout{UnlocksAt: now.Add(l.config.LockoutDuration)})
	if err != nil {
		return 0, false, err
	}
	if err := l.store.Set(ctx, l.lockoutKey(), lockEncoded, l.config.LockoutDuration); err != nil {
		return 0, false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return next.Count, true, nil
}

// Reset clears both the ledger and any lockout record. It is idempotent.
func (l *Limiter) Reset(ctx context.Context) error {
	if err := l.store.Delete(ctx, l.attemptsKey(), l.lockoutKey()); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// RemainingSeconds returns the whole seconds left in the current lockout, rounded up,
// or zero when unlocked.
func (l *Limiter) RemainingSeconds(ctx context.Context) (int, error) {
	st, err := l.Peek(ctx)
	if err != nil {
		return 0, err
	}
	return l.SecondsUntil(st.UnlocksAt), nil
}

// SecondsUntil converts an unlock instant into whole seconds from now, rounded up.
func (l *Limiter) SecondsUntil(t time.Time) int {
	d := t.Sub(l.now())
	if d <= 0 {
		return 0
	}
	secs := int(d / time.Second)
	if d%time.Second != 0 {
		secs++
	}
	return secs
}

func (l *Limiter) expired(now time.Time, rec ledger.Record, lock *ledger.Lockout) bool {
	if rec.Stale(now, l.config.StalenessWindow) {
		return true
	}
	if lock != nil && !lock.Active(now) {
		return true
	}
	if lock == nil && rec.Count >= l.config.Threshold &&
		!now.Before(rec.LastAttemptAt.Add(l.config.LockoutDuration)) {
		return true
	}
	return false
}

func (l *Limiter) load(ctx context.Context) (ledger.Record, *ledger.Lockout, error) {
	var rec ledger.Record
	data, err := l.store.Get(ctx, l.attemptsKey())
	switch {
	case err == nil:
		decoded, derr := ledger.DecodeRecord(data)
		if derr == nil {
			rec = decoded
		}
	case errors.Is(err, store.ErrNotFound):
	default:
		return ledger.Record{}, nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	data, err = l.store.Get(ctx, l.lockoutKey())
	switch {
	case err == nil:
		decoded, derr := ledger.DecodeLockout(data)
		if derr == nil {
			return rec, &decoded, nil
		}
	case errors.Is(err, store.ErrNotFound):
	default:
		return ledger.Record{}, nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return rec, nil, nil
}
