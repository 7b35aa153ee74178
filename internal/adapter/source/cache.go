package source

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
)

// staleFactor is how many freshness windows a cached page is kept for use
// when the API is rate limited or down.
const staleFactor = 4

// Cache stores raw API pages in Badger with a freshness window.
type Cache struct {
	db  *badger.DB
	ttl time.Duration
	now func() time.Time
}

type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(msg string, items ...any)   { l.logger.Error(fmt.Sprintf(msg, items...)) }
func (l *badgerLogger) Warningf(msg string, items ...any) { l.logger.Warn(fmt.Sprintf(msg, items...)) }
func (l *badgerLogger) Infof(msg string, items ...any)    { l.logger.Debug(fmt.Sprintf(msg, items...)) }
func (l *badgerLogger) Debugf(msg string, items ...any)   { l.logger.Debug(fmt.Sprintf(msg, items...)) }

// OpenCache opens a cache in dir, or in memory when dir is empty.
func OpenCache(dir string, ttl time.Duration) (*Cache, error) {
	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
		opts = badger.DefaultOptions(dir)
	}
	opts.Logger = &badgerLogger{logger: slog.Default().With("component", "listing-cache")}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger cache: %w", err)
	}
	return &Cache{db: db, ttl: ttl, now: time.Now}, nil
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Put stores value under key, stamped with the current time.
func (c *Cache) Put(key string, value []byte) error {
	buf := make([]byte, 8+len(value))
	binary.BigEndian.PutUint64(buf, uint64(c.now().UnixNano()))
	copy(buf[8:], value)

	return c.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(key), buf)
		if c.ttl > 0 {
			e = e.WithTTL(c.ttl * staleFactor)
		}
		return txn.SetEntry(e)
	})
}

// Get returns the cached value and whether it is still within the freshness window.
// ok is false when nothing (or only an evicted entry) is cached.
func (c *Cache) Get(key string) (value []byte, fresh bool, ok bool) {
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if len(val) < 8 {
				return errors.New("corrupt cache entry")
			}
			stored := time.Unix(0, int64(binary.BigEndian.Uint64(val[:8])))
			fresh = c.ttl > 0 && c.now().Sub(stored) < c.ttl
			value = append([]byte(nil), val[8:]...)
			return nil
		})
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			slog.Warn("listing cache read failed", "key", key, "error", err)
		}
		return nil, false, false
	}
	return value, fresh, true
}
