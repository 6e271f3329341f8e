package adminGate

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const defaultSinkTimeout = 5 * time.Second

// auditDispatcher moves audit events off the sign-in path onto one worker goroutine.
// Each sink call is bounded by SinkTimeout and a panicking sink is contained, so a bad
// sink can lose events but never stall or crash the gate.
type auditDispatcher struct {
	sink        AuditSink
	queue       chan AuditEvent
	stop        chan struct{}
	worker      sync.WaitGroup
	dropIfFull  bool
	sinkTimeout time.Duration
	log         *zap.Logger

	mu      sync.Mutex
	dropped map[string]uint64 // by event type
	total   atomic.Uint64
	panics  atomic.Uint64

	closing  atomic.Bool
	stopOnce sync.Once
}

func newAuditDispatcher(cfg AuditConfig, sink AuditSink) *auditDispatcher {
	if !cfg.Enabled {
		return nil
	}
	size := cfg.BufferSize
	if size <= 0 {
		size = 1
	}
	timeout := cfg.SinkTimeout
	if timeout <= 0 {
		timeout = defaultSinkTimeout
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &auditDispatcher{
		sink:        sink,
		queue:       make(chan AuditEvent, size),
		stop:        make(chan struct{}),
		dropIfFull:  cfg.DropIfFull,
		sinkTimeout: timeout,
		log:         zap.NewNop(),
		dropped:     make(map[string]uint64),
	}
	d.worker.Add(1)
	go d.loop()
	return d
}

func (d *auditDispatcher) withLogger(l *zap.Logger) *auditDispatcher {
	if d != nil && l != nil {
		d.log = l
	}
	return d
}

func (d *auditDispatcher) loop() {
	defer d.worker.Done()
	for {
		select {
		case ev := <-d.queue:
			d.deliver(ev)
		case <-d.stop:
			for {
				select {
				case ev := <-d.queue:
					d.deliver(ev)
				default:
					return
				}
			}
		}
	}
}

func (d *auditDispatcher) deliver(ev AuditEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), d.sinkTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			d.panics.Add(1)
			d.log.Error("audit sink panicked",
				zap.String("event_type", ev.EventType),
				zap.String("event_id", ev.EventID),
				zap.Any("panic", r),
			)
		}
	}()
	d.sink.Emit(ctx, ev)
}

// Emit queues ev. Events offered after Close are discarded silently.
func (d *auditDispatcher) Emit(ctx context.Context, ev AuditEvent) {
	if d == nil || d.closing.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if d.dropIfFull {
		select {
		case d.queue <- ev:
		case <-d.stop:
		default:
			d.drop(ev)
		}
		return
	}

	select {
	case d.queue <- ev:
	case <-ctx.Done():
		d.drop(ev)
	case <-d.stop:
	}
}

func (d *auditDispatcher) drop(ev AuditEvent) {
	n := d.total.Add(1)
	d.mu.Lock()
	d.dropped[ev.EventType]++
	d.mu.Unlock()
	if n == 1 || n%100 == 0 {
		d.log.Warn("audit events dropped", zap.Uint64("total", n), zap.String("last_event_type", ev.EventType))
	}
}

// Close stops intake and waits until everything already queued reached the sink.
func (d *auditDispatcher) Close() {
	if d == nil {
		return
	}
	d.stopOnce.Do(func() {
		d.closing.Store(true)
		close(d.stop)
		d.worker.Wait()
	})
}

func (d *auditDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.total.Load()
}

// DroppedByType copies the per-event-type drop counts.
func (d *auditDispatcher) DroppedByType() map[string]uint64 {
	out := make(map[string]uint64)
	if d == nil {
		return out
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for k, v := range d.dropped {
		out[k] = v
	}
	return out
}

// SinkPanics counts events lost to a panicking sink.
func (d *auditDispatcher) SinkPanics() uint64 {
	if d == nil {
		return 0
	}
	return d.panics.Load()
}
