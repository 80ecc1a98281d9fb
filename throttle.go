package relay

import (
	"context"
	"sync"
	"time"
)

// ---------------------------------------------------------------------------
// Configuration
// ---------------------------------------------------------------------------

type (
	throttleConfig struct {
		clock Clock
		hooks *Hooks
	}

	// ThrottleOption configures a throttle.
	ThrottleOption func(*throttleConfig)

	// Throttle bounds how many calls may start within a rolling window.
	// Calls beyond the limit queue rather than fail, and are admitted
	// strictly in arrival order once the window rolls over.
	//
	// Pattern: Rolling-Window Limiter — a mutex serializes every
	// read-modify-write on the admission counter and the waiter queue, so
	// concurrent callers can never both claim the last slot.
	Throttle struct {
		limit    int
		interval time.Duration
		clock    Clock
		hooks    *Hooks

		mu          sync.Mutex
		windowStart time.Time
		used        int
		queue       []*throttleWaiter
		drainArmed  bool
	}

	// throttleWaiter is one queued caller. ready is closed, under the
	// throttle mutex, when the waiter is admitted.
	throttleWaiter struct {
		ready chan struct{}
	}
)

// ThrottleClock sets the clock used for window timing.
func ThrottleClock(c Clock) ThrottleOption {
	return func(cfg *throttleConfig) {
		cfg.clock = c
	}
}

// ThrottleHooks sets the lifecycle hooks the throttle emits on.
func ThrottleHooks(h *Hooks) ThrottleOption {
	return func(cfg *throttleConfig) {
		cfg.hooks = h
	}
}

// NewThrottle creates a throttle admitting at most limit call starts per
// interval. A throttle instance is owned by its caller; share one across
// pipelines when they must contend for the same budget.
func NewThrottle(limit int, interval time.Duration, opts ...ThrottleOption) *Throttle {
	cfg := throttleConfig{
		clock: RealClock{},
		hooks: &Hooks{},
	}
	for _, o := range opts {
		o(&cfg)
	}

	return &Throttle{
		limit:       limit,
		interval:    interval,
		clock:       cfg.clock,
		hooks:       cfg.hooks,
		windowStart: cfg.clock.Now(),
	}
}

// refreshLocked rolls the window forward when the current one has elapsed.
// Must be called with t.mu held.
func (t *Throttle) refreshLocked() {
	if t.clock.Since(t.windowStart) >= t.interval {
		t.windowStart = t.clock.Now()
		t.used = 0
	}
}

// scheduleDrainLocked arms a single timer that admits queued waiters when
// the current window ends. Must be called with t.mu held.
func (t *Throttle) scheduleDrainLocked() {
	if t.drainArmed || len(t.queue) == 0 {
		return
	}

	t.drainArmed = true

	wait := t.windowStart.Add(t.interval).Sub(t.clock.Now())
	if wait < 0 {
		wait = 0
	}

	go t.drain(wait)
}

// drain sleeps until the window rolls over, then admits waiters in FIFO
// order up to the fresh window's capacity.
func (t *Throttle) drain(wait time.Duration) {
	timer := t.clock.NewTimer(wait)
	<-timer.C()

	t.mu.Lock()
	defer t.mu.Unlock()

	t.drainArmed = false
	t.refreshLocked()

	for t.used < t.limit && len(t.queue) > 0 {
		w := t.queue[0]
		t.queue = t.queue[1:]
		t.used++
		close(w.ready)
	}

	// Waiters beyond this window's capacity get the next one.
	t.scheduleDrainLocked()
}

// removeLocked drops w from the queue. It reports false when w is no
// longer queued, i.e. it has already been admitted. Must be called with
// t.mu held.
func (t *Throttle) removeLocked(w *throttleWaiter) bool {
	for i, queued := range t.queue {
		if queued == w {
			t.queue = append(t.queue[:i], t.queue[i+1:]...)

			return true
		}
	}

	return false
}

// Acquire blocks until the caller may start within the window limit, or
// until ctx is cancelled. A cancelled waiter is removed from the queue and
// fails with ctx.Err() without consuming a slot.
func (t *Throttle) Acquire(ctx context.Context) error {
	t.mu.Lock()
	t.refreshLocked()

	// Fast path: capacity left and nobody queued ahead of us.
	if t.used < t.limit && len(t.queue) == 0 {
		t.used++
		t.mu.Unlock()

		return nil
	}

	w := &throttleWaiter{ready: make(chan struct{})}
	t.queue = append(t.queue, w)
	t.scheduleDrainLocked()
	t.mu.Unlock()

	t.hooks.emitThrottleQueued()
	queuedAt := t.clock.Now()

	select {
	case <-w.ready:
		t.hooks.emitThrottleAdmitted(t.clock.Since(queuedAt))

		return nil

	case <-ctx.Done():
		t.mu.Lock()
		if !t.removeLocked(w) {
			// Admission raced the cancellation: the drain already granted
			// us a slot. Hand it back so the cancelled caller does not
			// consume capacity.
			t.used--
		}
		t.mu.Unlock()

		return ctx.Err()
	}
}

// Saturated reports whether the current window's budget is spent.
func (t *Throttle) Saturated() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.refreshLocked()

	return t.used >= t.limit
}

// Policy returns a policy that gates next through t.
func (t *Throttle) Policy() Policy {
	return func(next Handler) Handler {
		return func(ctx context.Context, req *Request) (*Response, error) {
			if err := t.Acquire(ctx); err != nil {
				return nil, err
			}

			return next(ctx, req)
		}
	}
}

// ThrottlePolicy returns a policy backed by a fresh throttle instance. Use
// [NewThrottle] plus [Throttle.Policy] when the instance must be shared.
func ThrottlePolicy(limit int, interval time.Duration, opts ...ThrottleOption) Policy {
	return NewThrottle(limit, interval, opts...).Policy()
}
