package relay

import (
	"context"
	"sync/atomic"
)

// Bulkhead limits concurrent access to a resource, rejecting calls when
// all slots are in use. It complements the throttle: the throttle paces
// call starts over time, the bulkhead caps calls in flight.
//
// Pattern: Bulkhead — semaphore-based concurrency limiter; lock-free via
// atomic CAS for slot acquisition.
type Bulkhead struct {
	maxConcurrent int64
	current       atomic.Int64
	hooks         *Hooks
}

// BulkheadOption configures a bulkhead.
type BulkheadOption func(*Bulkhead)

// BulkheadHooks sets the lifecycle hooks the bulkhead emits on.
func BulkheadHooks(h *Hooks) BulkheadOption {
	return func(b *Bulkhead) {
		b.hooks = h
	}
}

// NewBulkhead creates a bulkhead that allows at most maxConcurrent
// simultaneous calls.
func NewBulkhead(maxConcurrent int, opts ...BulkheadOption) *Bulkhead {
	b := &Bulkhead{
		maxConcurrent: int64(maxConcurrent),
		hooks:         &Hooks{},
	}
	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Acquire attempts to acquire a slot. Returns ErrBulkheadFull at capacity.
func (b *Bulkhead) Acquire() error {
	for {
		cur := b.current.Load()
		if cur >= b.maxConcurrent {
			b.hooks.emitBulkheadFull()

			return ErrBulkheadFull
		}

		if b.current.CompareAndSwap(cur, cur+1) {
			return nil
		}
	}
}

// Release releases a slot.
func (b *Bulkhead) Release() {
	b.current.Add(-1)
}

// Full returns true if all slots are in use.
func (b *Bulkhead) Full() bool {
	return b.current.Load() >= b.maxConcurrent
}

// Policy returns a policy that holds a slot for the duration of next.
func (b *Bulkhead) Policy() Policy {
	return func(next Handler) Handler {
		return func(ctx context.Context, req *Request) (*Response, error) {
			if err := b.Acquire(); err != nil {
				return nil, err
			}
			defer b.Release()

			return next(ctx, req)
		}
	}
}

// BulkheadPolicy returns a policy backed by a fresh bulkhead instance.
func BulkheadPolicy(maxConcurrent int, opts ...BulkheadOption) Policy {
	return NewBulkhead(maxConcurrent, opts...).Policy()
}
