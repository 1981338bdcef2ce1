package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"hash/crc32"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/gamma-omg/mgmt-knowledge/corpus"
	"github.com/gamma-omg/mgmt-knowledge/readers"
)

// ChunkCache remembers the chunks produced for a document so that unchanged
// documents are not sent to the model again.
type ChunkCache struct {
	db *badger.DB
}

type CacheEntry struct {
	Chunks []corpus.Chunk `json:"chunks"`
}

type badgerLogger struct {
	log *slog.Logger
}

func (l *badgerLogger) Errorf(msg string, args ...any) {
	l.log.Error(fmt.Sprintf(msg, args...))
}

func (l *badgerLogger) Warningf(msg string, args ...any) {
	l.log.Warn(fmt.Sprintf(msg, args...))
}

func (l *badgerLogger) Infof(msg string, args ...any) {
	l.log.Debug(fmt.Sprintf(msg, args...))
}

func (l *badgerLogger) Debugf(msg string, args ...any) {
	l.log.Debug(fmt.Sprintf(msg, args...))
}

// OpenCache opens the cache in dir. An empty dir keeps the cache in memory.
func OpenCache(dir string, log *slog.Logger) (*ChunkCache, error) {
	if log == nil {
		log = slog.Default()
	}

	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create cache dir: %w", err)
		}
		opts = badger.DefaultOptions(dir)
	}
	opts.Logger = &badgerLogger{log: log.With("component", "chunk-cache")}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open chunk cache: %w", err)
	}

	return &ChunkCache{db: db}, nil
}

func (c *ChunkCache) Close() error {
	return c.db.Close()
}

// Get returns the chunks cached for doc under scope. A changed document misses
// because the key includes a checksum of its content.
func (c *ChunkCache) Get(scope string, doc readers.RawDocument) (CacheEntry, bool, error) {
	var (
		entry CacheEntry
		found bool
	)

	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(cacheKey(scope, doc))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		})
	})
	if err != nil {
		return CacheEntry{}, false, fmt.Errorf("failed to read chunk cache: %w", err)
	}

	return entry, found, nil
}

func (c *ChunkCache) Put(scope string, doc readers.RawDocument, entry CacheEntry) error {
	val, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode chunks: %w", err)
	}

	err = c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(cacheKey(scope, doc), val)
	})
	if err != nil {
		return fmt.Errorf("failed to write chunk cache: %w", err)
	}

	return nil
}

// cacheKey is <scope>|<path>:<crc32 of content>. The scope carries the
// chunker settings, so changing them invalidates earlier entries.
func cacheKey(scope string, doc readers.RawDocument) []byte {
	sum := crc32.ChecksumIEEE([]byte(doc.Content))
	return fmt.Appendf(nil, "%s|%s:%08x", scope, doc.Path, sum)
}
