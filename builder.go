package adminGate

import (
	"errors"
	"time"

	"github.com/MrEthical07/adminGate/internal/countdown"
	"github.com/MrEthical07/adminGate/internal/limiter"
	"github.com/MrEthical07/adminGate/session"
	"github.com/MrEthical07/adminGate/store"
	"go.uber.org/zap"
)

// Builder assembles a [Gate].
//
// Builder instances are intended to be configured during initialization and used once.
type Builder struct {
	config Config
	store  store.Store

	credentials CredentialVerifier
	codes       CodeVerifier

	auditSink AuditSink
	logger    *zap.Logger
	listeners []StateListener
	now       func() time.Time
	ticks     <-chan time.Time

	built bool
}

// New returns a builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithStore sets the key/value store holding ledgers and the session.
func (b *Builder) WithStore(s store.Store) *Builder {
	b.store = s
	return b
}

// WithVerifier sets one backend for both phases.
func (b *Builder) WithVerifier(v Verifier) *Builder {
	b.credentials = v
	b.codes = v
	return b
}

// WithCredentialVerifier sets the phase-1 backend.
func (b *Builder) WithCredentialVerifier(v CredentialVerifier) *Builder {
	b.credentials = v
	return b
}

// WithCodeVerifier sets the phase-2 backend.
func (b *Builder) WithCodeVerifier(v CodeVerifier) *Builder {
	b.codes = v
	return b
}

// WithAuditSink enables audit dispatch to sink.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	if sink != nil {
		b.config.Audit.Enabled = true
	}
	return b
}

func (b *Builder) WithLogger(l *zap.Logger) *Builder {
	b.logger = l
	return b
}

// WithStateListener registers fn to be called after every transition and tick.
func (b *Builder) WithStateListener(fn StateListener) *Builder {
	if fn != nil {
		b.listeners = append(b.listeners, fn)
	}
	return b
}

// WithClock overrides the wall clock used for ledgers and sessions.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithTickSource drives the countdown from ch instead of a one-second ticker.
func (b *Builder) WithTickSource(ch <-chan time.Time) *Builder {
	b.ticks = ch
	return b
}

// WithMetricsEnabled toggles in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	if !enabled {
		b.config.Metrics.EnableLatencyHistograms = false
	}
	return b
}

// Build validates the configuration and wires the gate. It performs no I/O; call
// [Gate.Restore] to load persisted state.
func (b *Builder) Build() (*Gate, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.store == nil {
		return nil, errors.New("store required")
	}
	if b.credentials == nil {
		return nil, errors.New("credential verifier required")
	}
	if b.codes == nil {
		return nil, errors.New("code verifier required")
	}

	now := b.now
	if now == nil {
		now = time.Now
	}
	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	g := &Gate{
		config:      cfg,
		credentials: b.credentials,
		codes:       b.codes,
		now:         now,
		logger:      logger.Named("gate"),
		phase:       PhaseIdle,
		listeners:   append([]StateListener(nil), b.listeners...),
	}

	g.passwordLimiter = limiter.New(b.store, limiter.Config{
		Name:            string(LockPassword),
		Prefix:          cfg.Storage.KeyPrefix,
		Threshold:       cfg.PasswordLimit.Threshold,
		LockoutDuration: cfg.PasswordLimit.LockoutDuration,
		StalenessWindow: cfg.PasswordLimit.staleness(),
	}, now)
	g.codeLimiter = limiter.New(b.store, limiter.Config{
		Name:            string(LockCode),
		Prefix:          cfg.Storage.KeyPrefix,
		Threshold:       cfg.CodeLimit.Threshold,
		LockoutDuration: cfg.CodeLimit.LockoutDuration,
		StalenessWindow: cfg.CodeLimit.staleness(),
	}, now)
	g.sessions = session.NewStore(b.store, session.Config{
		Key:                 cfg.Storage.KeyPrefix + ":session",
		RequiredRole:        cfg.Session.RequiredRole,
		RejectExpiredTokens: cfg.Session.RejectExpiredTokens,
	}, now)

	var opts []countdown.Option
	if b.ticks != nil {
		opts = append(opts, countdown.WithTickSource(b.ticks))
	}
	g.clock = countdown.New(g.tick, opts...)

	g.audit = newAuditDispatcher(cfg.Audit, b.auditSink).withLogger(logger.Named("audit"))
	g.metrics = NewMetrics(cfg.Metrics)

	b.built = true

	return g, nil
}
