package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"reactdb/pkg/logger"
	"reactdb/pkg/models"

	"github.com/cockroachdb/pebble"
)

var (
	db     *pebble.DB
	dbPath string
)

// seq reduces key collisions when multiple event rows share the same
// nanosecond timestamp.
var seq uint64

// ErrNotFound is returned when no document exists for a key.
var ErrNotFound = errors.New("store: not found")

// Key namespaces:
//
//	reaction:<message_key>                       canonical aggregate doc
//	event:<message_key>:<unix_nano_padded>-<seq> legacy/audit event row
const (
	reactionPrefix = "reaction:"
	eventPrefix    = "event:"
)

// Open opens (or creates) a Pebble database at the given path and
// keeps a global handle for simple usage in this package.
func Open(path string) error {
	var err error
	logger.Info("opening_pebble_db", "path", path)
	db, err = pebble.Open(path, &pebble.Options{})
	if err != nil {
		logger.Error("pebble_open_failed", "path", path, "error", err)
		return err
	}
	dbPath = path
	logger.Info("pebble_opened", "path", path)
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
func Ready() bool {
	return db != nil
}

// RecordKey returns the canonical aggregate key for a message key.
func RecordKey(messageKey string) string {
	return reactionPrefix + messageKey
}

// SaveRecord replaces the whole aggregate document for its message key
// (upsert if absent). Concurrent writers on the same key are
// last-write-wins at the document level; callers write recomputed
// counts, not deltas, so a lost update cannot corrupt totals.
func SaveRecord(rec models.ReactionRecord) error {
	if db == nil {
		return fmt.Errorf("pebble not opened; call store.Open first")
	}
	if rec.MessageKey == "" {
		return fmt.Errorf("missing message key")
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	key := []byte(RecordKey(rec.MessageKey))
	if err := db.Set(key, data, pebble.Sync); err != nil {
		logger.Error("save_record_failed", "message_key", rec.MessageKey, "error", err)
		return err
	}
	logger.Debug("record_saved", "message_key", rec.MessageKey, "total", rec.TotalCount)
	return nil
}

// GetRecordRaw returns the stored aggregate document bytes for a
// message key, unparsed so the caller can run shape detection.
func GetRecordRaw(messageKey string) ([]byte, error) {
	if db == nil {
		return nil, fmt.Errorf("pebble not opened; call store.Open first")
	}
	v, closer, err := db.Get([]byte(RecordKey(messageKey)))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	out := append([]byte(nil), v...)
	if closer != nil {
		defer closer.Close()
	}
	return out, nil
}

// ListRecords returns all stored aggregate documents as raw JSON.
func ListRecords(limit ...int) ([]string, error) {
	if db == nil {
		return nil, fmt.Errorf("pebble not opened; call store.Open first")
	}
	prefix := []byte(reactionPrefix)
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	max := -1
	if len(limit) > 0 {
		max = limit[0]
	}
	var out []string
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		v := append([]byte(nil), iter.Value()...)
		out = append(out, string(v))
		if max > 0 && len(out) >= max {
			break
		}
	}
	return out, iter.Error()
}

// AppendEvent inserts a legacy event row under a fresh sortable key
// and returns that key.
func AppendEvent(ev models.LegacyEvent) (string, error) {
	if db == nil {
		return "", fmt.Errorf("pebble not opened; call store.Open first")
	}
	if ev.MessageKey == "" {
		return "", fmt.Errorf("missing message key")
	}
	if ev.TS == 0 {
		ev.TS = time.Now().UTC().UnixNano()
	}
	s := atomic.AddUint64(&seq, 1)
	key := fmt.Sprintf("%s%s:%020d-%06d", eventPrefix, ev.MessageKey, ev.TS, s)
	data, err := json.Marshal(ev)
	if err != nil {
		return "", fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := db.Set([]byte(key), data, pebble.Sync); err != nil {
		logger.Error("append_event_failed", "key", key, "error", err)
		return "", err
	}
	return key, nil
}

// ListEventKeys returns every legacy event row key, optionally scoped
// to one message key.
func ListEventKeys(messageKey string) ([]string, error) {
	if db == nil {
		return nil, fmt.Errorf("pebble not opened; call store.Open first")
	}
	prefix := []byte(eventPrefix)
	if messageKey != "" {
		prefix = []byte(eventPrefix + messageKey + ":")
	}
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var out []string
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		k := append([]byte(nil), iter.Key()...)
		out = append(out, string(k))
	}
	return out, iter.Error()
}

// GetEvent returns the decoded event row stored under key.
func GetEvent(key string) (models.LegacyEvent, error) {
	var ev models.LegacyEvent
	if db == nil {
		return ev, fmt.Errorf("pebble not opened; call store.Open first")
	}
	v, closer, err := db.Get([]byte(key))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return ev, ErrNotFound
		}
		return ev, err
	}
	out := append([]byte(nil), v...)
	if closer != nil {
		defer closer.Close()
	}
	if err := json.Unmarshal(out, &ev); err != nil {
		return ev, fmt.Errorf("invalid event JSON at %s: %w", key, err)
	}
	return ev, nil
}

// DeleteEvent removes one legacy event row.
func DeleteEvent(key string) error {
	if db == nil {
		return fmt.Errorf("pebble not opened; call store.Open first")
	}
	if err := db.Delete([]byte(key), pebble.Sync); err != nil {
		logger.Error("delete_event_failed", "key", key, "error", err)
		return err
	}
	return nil
}

// DBSet writes a raw key/value pair. Low-level helper for seeding
// legacy-shaped documents the typed writers refuse to produce.
func DBSet(key, value []byte) error {
	if db == nil {
		return fmt.Errorf("pebble not opened; call store.Open first")
	}
	return db.Set(key, value, pebble.Sync)
}

// DBIter returns a raw Pebble iterator for low-level operations.
// Caller must close the iterator when done.
func DBIter() (*pebble.Iterator, error) {
	if db == nil {
		return nil, fmt.Errorf("pebble not opened; call store.Open first")
	}
	return db.NewIter(&pebble.IterOptions{})
}
