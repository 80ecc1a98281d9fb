package relay

import "context"

// StaleOnError serves the last good response from a [Storage] when the
// downstream fails. It is distinct from [ResponseCache]: the cache avoids
// calls, stale-on-error masks failures. On success the response is stored
// unconditionally; on failure the stored response is returned if present,
// and the original error otherwise.
type StaleOnError struct {
	storage Storage
	keyGen  KeyGenerator
	clock   Clock
	hooks   *Hooks
}

// StaleOption configures a StaleOnError policy.
type StaleOption func(*StaleOnError)

// StaleKey sets the key generator. Default: "METHOD:url".
func StaleKey(fn KeyGenerator) StaleOption {
	return func(s *StaleOnError) {
		s.keyGen = fn
	}
}

// StaleClock sets the clock used for entry timestamps.
func StaleClock(c Clock) StaleOption {
	return func(s *StaleOnError) {
		s.clock = c
	}
}

// StaleHooks sets the lifecycle hooks the policy emits on.
func StaleHooks(h *Hooks) StaleOption {
	return func(s *StaleOnError) {
		s.hooks = h
	}
}

// NewStaleOnError creates a stale-on-error policy backed by storage.
func NewStaleOnError(storage Storage, opts ...StaleOption) *StaleOnError {
	s := &StaleOnError{
		storage: storage,
		keyGen:  DefaultKeyGenerator,
		clock:   RealClock{},
		hooks:   &Hooks{},
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Policy returns the stale-on-error policy backed by s.
func (s *StaleOnError) Policy() Policy {
	return func(next Handler) Handler {
		return func(ctx context.Context, req *Request) (*Response, error) {
			key := s.keyGen(req)

			resp, err := next(ctx, req)
			if err == nil {
				entry := &Entry{
					Data:       resp.Data,
					Header:     resp.Header.Clone(),
					Status:     resp.Status,
					StatusText: resp.StatusText,
					Expires:    s.clock.Now(),
				}
				// Best effort: a failed store only costs a future save.
				_ = s.storage.Set(ctx, key, entry)

				return resp, nil
			}

			entry, getErr := s.storage.Get(ctx, key)
			if getErr != nil || entry == nil {
				return nil, err
			}

			s.hooks.emitStaleServed(key)

			stale := &Response{
				Status:     entry.Status,
				StatusText: entry.StatusText,
				Header:     entry.Header.Clone(),
				Data:       entry.Data,
			}

			return stale, nil
		}
	}
}
