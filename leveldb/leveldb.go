// Package leveldb provides a disk-backed relay.Storage on top of
// LevelDB, for caches that must survive process restarts.
//
// Entries are serialized as JSON records. Opaque response data is
// preserved for []byte and string payloads; any other payload type is
// JSON-encoded on write and decodes to generic JSON values on read.
package leveldb

import (
	"context"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/syndtr/goleveldb/leveldb"

	"github.com/relaykit/relay"
)

// payload kinds recorded alongside serialized entry data.
const (
	kindBytes  = "bytes"
	kindString = "string"
	kindJSON   = "json"
)

// record is the on-disk shape of a relay.Entry.
type record struct {
	Data         []byte       `json:"data"`
	Kind         string       `json:"kind"`
	Header       relay.Header `json:"header"`
	Status       int          `json:"status"`
	StatusText   string       `json:"status_text"`
	Expires      time.Time    `json:"expires"`
	ETag         string       `json:"etag,omitempty"`
	LastModified string       `json:"last_modified,omitempty"`
}

// Store adapts a LevelDB database to the relay.Storage interface.
type Store struct {
	db *leveldb.DB
}

// Open opens (or creates) a LevelDB-backed storage at path.
func Open(path string) (*Store, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("relay/leveldb: open %s: %w", path, err)
	}

	return &Store{db: db}, nil
}

// Get retrieves the entry for key, or nil when absent.
func (s *Store) Get(_ context.Context, key string) (*relay.Entry, error) {
	raw, err := s.db.Get([]byte(key), nil)
	if err == leveldb.ErrNotFound {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("relay/leveldb: get %s: %w", key, err)
	}

	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("relay/leveldb: decode %s: %w", key, err)
	}

	entry := &relay.Entry{
		Header:       rec.Header,
		Status:       rec.Status,
		StatusText:   rec.StatusText,
		Expires:      rec.Expires,
		ETag:         rec.ETag,
		LastModified: rec.LastModified,
	}

	switch rec.Kind {
	case kindString:
		entry.Data = string(rec.Data)
	case kindJSON:
		var data any
		if err := json.Unmarshal(rec.Data, &data); err != nil {
			return nil, fmt.Errorf("relay/leveldb: decode %s data: %w", key, err)
		}

		entry.Data = data
	default:
		entry.Data = rec.Data
	}

	return entry, nil
}

// Set stores entry under key.
func (s *Store) Set(_ context.Context, key string, entry *relay.Entry) error {
	rec := record{
		Header:       entry.Header,
		Status:       entry.Status,
		StatusText:   entry.StatusText,
		Expires:      entry.Expires,
		ETag:         entry.ETag,
		LastModified: entry.LastModified,
	}

	switch data := entry.Data.(type) {
	case nil:
		rec.Kind = kindBytes
	case []byte:
		rec.Kind = kindBytes
		rec.Data = data
	case string:
		rec.Kind = kindString
		rec.Data = []byte(data)
	default:
		encoded, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("relay/leveldb: encode %s data: %w", key, err)
		}

		rec.Kind = kindJSON
		rec.Data = encoded
	}

	raw, err := json.Marshal(&rec)
	if err != nil {
		return fmt.Errorf("relay/leveldb: encode %s: %w", key, err)
	}

	if err := s.db.Put([]byte(key), raw, nil); err != nil {
		return fmt.Errorf("relay/leveldb: put %s: %w", key, err)
	}

	return nil
}

// Delete removes the entry for key, if any.
func (s *Store) Delete(_ context.Context, key string) error {
	if err := s.db.Delete([]byte(key), nil); err != nil {
		return fmt.Errorf("relay/leveldb: delete %s: %w", key, err)
	}

	return nil
}

// Clear removes all entries. LevelDB has no truncate; keys are deleted in
// one batch.
func (s *Store) Clear(_ context.Context) error {
	batch := new(leveldb.Batch)

	iter := s.db.NewIterator(nil, nil)
	for iter.Next() {
		key := make([]byte, len(iter.Key()))
		copy(key, iter.Key())
		batch.Delete(key)
	}

	iter.Release()

	if err := iter.Error(); err != nil {
		return fmt.Errorf("relay/leveldb: clear: %w", err)
	}

	if err := s.db.Write(batch, nil); err != nil {
		return fmt.Errorf("relay/leveldb: clear: %w", err)
	}

	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
