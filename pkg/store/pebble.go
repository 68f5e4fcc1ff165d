package store

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"

	"agentdesk/pkg/logger"
)

var db *pebble.DB
var dbPath string

// Lookup failures that are fatal to a triage run.
var (
	ErrTicketNotFound = errors.New("ticket not found")
	ErrTenantNotFound = errors.New("tenant not found")
	ErrReplyNotFound  = errors.New("reply not found")
)

// Open opens (or creates) a Pebble database at the given path and keeps a
// global handle for simple usage in this package. cacheBytes of 0 uses the
// pebble default block cache.
func Open(path string, cacheBytes int64) error {
	opts := &pebble.Options{}
	if cacheBytes > 0 {
		c := pebble.NewCache(cacheBytes)
		defer c.Unref()
		opts.Cache = c
	}
	var err error
	logger.Info("opening_pebble_db", "path", path)
	db, err = pebble.Open(path, opts)
	if err != nil {
		logger.Error("pebble_open_failed", "path", path, "error", err)
		return err
	}
	dbPath = path
	return nil
}

// Close closes the opened pebble DB if present.
func Close() error {
	if db == nil {
		return nil
	}
	if err := db.Close(); err != nil {
		return err
	}
	db = nil
	logger.Info("pebble_closed")
	return nil
}

// Ready reports whether the store is opened and ready.
func Ready() bool { return db != nil }

// Path returns the on-disk path of the opened DB.
func Path() string { return dbPath }

func notOpened() error {
	return fmt.Errorf("pebble not opened; call store.Open first")
}

// set writes a JSON value under key with a synced write.
func set(key string, val []byte) error {
	if db == nil {
		return notOpened()
	}
	return db.Set([]byte(key), val, pebble.Sync)
}

// get returns the value for key, or (nil, false) when absent.
func get(key string) ([]byte, bool, error) {
	if db == nil {
		return nil, false, notOpened()
	}
	v, closer, err := db.Get([]byte(key))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	out := append([]byte(nil), v...)
	_ = closer.Close()
	return out, true, nil
}

// del removes key with a synced write.
func del(key string) error {
	if db == nil {
		return notOpened()
	}
	return db.Delete([]byte(key), pebble.Sync)
}

// scanPrefix iterates all keys with the given prefix in key order, calling
// fn with a copy of each key and value. fn returning false stops the scan.
func scanPrefix(prefix string, fn func(key string, val []byte) bool) error {
	if db == nil {
		return notOpened()
	}
	p := []byte(prefix)
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return err
	}
	defer iter.Close()
	for iter.SeekGE(p); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), p) {
			break
		}
		v := append([]byte(nil), iter.Value()...)
		if !fn(string(iter.Key()), v) {
			break
		}
	}
	return iter.Error()
}
