// Package countdown drives the once-per-second recomputation of lockout and resend
// timers shown while the sign-in gate is blocked.
//
// A single [Clock] owns one tick source. It runs only while its callback reports that
// some timer is still above zero and stops itself otherwise; [Clock.Ensure] restarts it.
package countdown

import (
	"sync"
	"time"
)

// DefaultInterval is the display granularity.
const DefaultInterval = time.Second

// TickFunc recomputes timers at now and reports whether any timer is still running.
type TickFunc func(now time.Time) bool

// Option customizes a [Clock].
type Option func(*Clock)

// WithInterval overrides the tick interval.
func WithInterval(d time.Duration) Option {
	return func(c *Clock) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithTickSource replaces the ticker with an external channel.
func WithTickSource(ch <-chan time.Time) Option {
	return func(c *Clock) {
		c.source = func(time.Duration) (<-chan time.Time, func()) {
			return ch, func() {}
		}
	}
}

// Clock is a self-stopping periodic ticker.
type Clock struct {
	interval time.Duration
	source   func(time.Duration) (<-chan time.Time, func())
	onTick   TickFunc

	mu      sync.Mutex
	running bool
	pending bool
	stop    chan struct{}
	done    chan struct{}
}

// New returns a stopped clock that calls onTick on every tick while running.
func New(onTick TickFunc, opts ...Option) *Clock {
	c := &Clock{
		interval: DefaultInterval,
		source: func(d time.Duration) (<-chan time.Time, func()) {
			t := time.NewTicker(d)
			return t.C, t.Stop
		},
		onTick: onTick,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ensure starts the clock if it is not running. Calling it while running guarantees
// at least one more tick is evaluated before the clock can stop.
func (c *Clock) Ensure() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		c.pending = true
		return
	}
	c.running = true
	c.pending = false
	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	go c.run(c.stop, c.done)
}

// Running reports whether the tick loop is active.
func (c *Clock) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Stop halts the loop and waits for it to exit. It must not be called from onTick.
func (c *Clock) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	stop, done := c.stop, c.done
	c.running = false
	c.pending = false
	c.mu.Unlock()

	close(stop)
	<-done
}

func (c *Clock) run(stop, done chan struct{}) {
	defer close(done)
	ticks, release := c.source(c.interval)
	defer release()

	for {
		select {
		case <-stop:
			return
		case now := <-ticks:
			c.mu.Lock()
			c.pending = false
			c.mu.Unlock()

			if c.onTick(now) {
				continue
			}

			c.mu.Lock()
			if c.pending {
				c.pending = false
				c.mu.Unlock()
				continue
			}
			select {
			case <-stop:
				c.mu.Unlock()
				return
			default:
			}
			c.running = false
			c.mu.Unlock()
			return
		}
	}
}

// Cooldown is a plain whole-second counter decremented once per tick. It is not
// persisted and not safe for concurrent use; the owner guards it.
type Cooldown struct {
	seconds int
}

// Reset sets the counter to n seconds.
func (c *Cooldown) Reset(n int) {
	if n < 0 {
		n = 0
	}
	c.seconds = n
}

// Tick decrements the counter, floored at zero, and returns the new value.
func (c *Cooldown) Tick() int {
	if c.seconds > 0 {
		c.seconds--
	}
	return c.seconds
}

// Seconds returns the current value.
func (c *Cooldown) Seconds() int {
	return c.seconds
}

// Active reports whether the counter is above zero.
func (c *Cooldown) Active() bool {
	return c.seconds > 0
}
