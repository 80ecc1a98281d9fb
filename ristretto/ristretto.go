// Package ristretto provides a Ristretto-backed relay.Storage for the
// response cache and stale-on-error policies.
//
// Entries are stored without a library-level TTL: staleness detection and
// revalidation belong to the cache policy, so expired entries must remain
// retrievable until Ristretto's admission policy evicts them.
package ristretto

import (
	"context"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/relaykit/relay"
)

// Store adapts a ristretto.Cache to the relay.Storage interface.
type Store struct {
	cache *ristretto.Cache[string, *relay.Entry]
}

// MustNew creates a Storage backed by a Ristretto cache bounded to
// maxEntries. Ristretto recommends NumCounters = 10 * MaxCost for good
// admission decisions. It panics if the underlying cache cannot be built.
func MustNew(maxEntries int) *Store {
	cache, err := ristretto.NewCache(&ristretto.Config[string, *relay.Entry]{
		NumCounters: int64(maxEntries) * 10,
		MaxCost:     int64(maxEntries),
		BufferItems: 64,
	})
	if err != nil {
		panic("relay/ristretto: failed to build cache: " + err.Error())
	}

	return &Store{cache: cache}
}

// Get retrieves the entry for key, or nil when absent.
func (s *Store) Get(_ context.Context, key string) (*relay.Entry, error) {
	entry, ok := s.cache.Get(key)
	if !ok {
		return nil, nil
	}

	return entry, nil
}

// Set stores entry under key. Ristretto applies writes through a buffer;
// Wait makes the write visible before returning so a revalidation refresh
// is observed by the next lookup.
func (s *Store) Set(_ context.Context, key string, entry *relay.Entry) error {
	s.cache.Set(key, entry, 1)
	s.cache.Wait()

	return nil
}

// Delete removes the entry for key.
func (s *Store) Delete(_ context.Context, key string) error {
	s.cache.Del(key)

	return nil
}

// Clear removes all entries.
func (s *Store) Clear(_ context.Context) error {
	s.cache.Clear()

	return nil
}

// Close releases the cache's internal goroutines.
func (s *Store) Close() {
	s.cache.Close()
}
