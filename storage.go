package relay

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// Entry is one stored response. Expires is absolute; the cache policy, not
// the storage, decides what staleness means, which is what makes
// revalidation of expired-but-not-evicted entries possible.
type Entry struct {
	// Data is the stored response payload.
	Data any
	// Header holds the stored response headers.
	Header Header
	// Status is the stored response status code.
	Status int
	// StatusText is the stored response status line.
	StatusText string
	// Expires is the absolute time the entry turns stale.
	Expires time.Time
	// ETag is the entity tag validator, if the response carried one.
	ETag string
	// LastModified is the modification-date validator, if present.
	LastModified string
}

// Storage is a pluggable cache backend. Implementations may be
// synchronous or suspend on I/O (disk, network); they must never expire
// entries on read — stale entries stay retrievable until evicted or
// deleted.
type Storage interface {
	// Get retrieves the entry for key, or nil when absent.
	Get(ctx context.Context, key string) (*Entry, error)
	// Set stores entry under key, replacing any existing entry.
	Set(ctx context.Context, key string, entry *Entry) error
	// Delete removes the entry for key, if any.
	Delete(ctx context.Context, key string) error
	// Clear removes all entries.
	Clear(ctx context.Context) error
}

// ---------------------------------------------------------------------------
// MemoryStorage
// ---------------------------------------------------------------------------

// memoryItem is one key/entry pair on the recency list.
type memoryItem struct {
	key   string
	entry *Entry
}

// MemoryStorage is the default in-process [Storage]: a mutex-guarded map
// with bounded capacity and least-recently-accessed eviction on
// insert-over-capacity. Reads never expire entries.
type MemoryStorage struct {
	mu       sync.Mutex
	capacity int
	items    map[string]*list.Element
	recency  *list.List // front = most recently accessed
}

// NewMemoryStorage creates an in-memory storage holding at most capacity
// entries. A capacity below 1 means unbounded.
func NewMemoryStorage(capacity int) *MemoryStorage {
	return &MemoryStorage{
		capacity: capacity,
		items:    make(map[string]*list.Element),
		recency:  list.New(),
	}
}

// Get retrieves the entry for key and marks it as recently accessed.
func (s *MemoryStorage) Get(_ context.Context, key string) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.items[key]
	if !ok {
		return nil, nil
	}

	s.recency.MoveToFront(el)

	return el.Value.(*memoryItem).entry, nil
}

// Set stores entry under key, evicting the least recently accessed entry
// when the insert pushes the storage over capacity.
func (s *MemoryStorage) Set(_ context.Context, key string, entry *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.items[key]; ok {
		el.Value.(*memoryItem).entry = entry
		s.recency.MoveToFront(el)

		return nil
	}

	s.items[key] = s.recency.PushFront(&memoryItem{key: key, entry: entry})

	if s.capacity > 0 && s.recency.Len() > s.capacity {
		oldest := s.recency.Back()
		s.recency.Remove(oldest)
		delete(s.items, oldest.Value.(*memoryItem).key)
	}

	return nil
}

// Delete removes the entry for key, if any.
func (s *MemoryStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.items[key]; ok {
		s.recency.Remove(el)
		delete(s.items, key)
	}

	return nil
}

// Clear removes all entries.
func (s *MemoryStorage) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = make(map[string]*list.Element)
	s.recency.Init()

	return nil
}

// Len returns the number of stored entries.
func (s *MemoryStorage) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.recency.Len()
}
