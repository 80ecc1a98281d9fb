// Package otter provides an Otter-backed relay.Storage for the response
// cache and stale-on-error policies.
//
// Entries carry no library-level TTL: staleness detection and
// revalidation belong to the cache policy, so expired entries must remain
// retrievable until Otter's eviction policy removes them.
package otter

import (
	"context"

	"github.com/maypok86/otter"

	"github.com/relaykit/relay"
)

// Store adapts an otter.Cache to the relay.Storage interface.
type Store struct {
	cache otter.Cache[string, *relay.Entry]
}

// MustNew creates a Storage backed by an Otter cache bounded to
// maxEntries. It panics if the underlying cache cannot be built.
func MustNew(maxEntries int) *Store {
	cache, err := otter.MustBuilder[string, *relay.Entry](maxEntries).Build()
	if err != nil {
		panic("relay/otter: failed to build cache: " + err.Error())
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

// Set stores entry under key.
func (s *Store) Set(_ context.Context, key string, entry *relay.Entry) error {
	s.cache.Set(key, entry)

	return nil
}

// Delete removes the entry for key.
func (s *Store) Delete(_ context.Context, key string) error {
	s.cache.Delete(key)

	return nil
}

// Clear removes all entries.
func (s *Store) Clear(_ context.Context) error {
	s.cache.Clear()

	return nil
}

// Close releases the cache's internal resources.
func (s *Store) Close() {
	s.cache.Close()
}
