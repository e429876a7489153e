// TuneFrame - Behavioral Music Recommendation and Offline Cache
// Copyright 2026 TuneFrame Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tuneframe/tuneframe

package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tuneframe/tuneframe/internal/metrics"
)

const (
	// Key prefixes. Blob and metadata live under separate prefixes so
	// startup recovery can iterate metadata without loading payloads.
	blobPrefix = "cacheblob:"
	metaPrefix = "cachemeta:"
	playPrefix = "playcount:"

	// entrySchemaVersion tags persisted metadata records.
	entrySchemaVersion = 1
)

var (
	// ErrNotCached is returned when a payload is requested for a track
	// that is not in the cache.
	ErrNotCached = errors.New("cache: track not cached")

	// ErrPayloadTooLarge is returned when a payload exceeds the per-item
	// ceiling. Oversized payloads are rejected whole, never truncated.
	ErrPayloadTooLarge = errors.New("cache: payload exceeds per-item limit")
)

// Entry is the metadata kept alongside a cached payload.
type Entry struct {
	ID             string    `json:"id"`
	Title          string    `json:"title,omitempty"`
	Artist         string    `json:"artist,omitempty"`
	MIMEType       string    `json:"mime_type"`
	SizeBytes      int64     `json:"size_bytes"`
	CachedAt       time.Time `json:"cached_at"`
	LastAccessedAt time.Time `json:"last_accessed_at"`
}

// storedEntry is the persisted envelope for Entry.
type storedEntry struct {
	SchemaVersion int   `json:"schema_version"`
	Entry         Entry `json:"entry"`
}

// Limits holds the cache budgets.
type Limits struct {
	// MaxTotalBytes is the byte budget across all entries.
	MaxTotalBytes int64

	// MaxEntries is the entry count budget.
	MaxEntries int

	// MaxItemBytes is the per-item payload ceiling.
	MaxItemBytes int64
}

// DefaultLimits returns the stock budgets: 500 MB total, 50 entries,
// 50 MB per item.
func DefaultLimits() Limits {
	return Limits{
		MaxTotalBytes: 500 * 1024 * 1024,
		MaxEntries:    50,
		MaxItemBytes:  50 * 1024 * 1024,
	}
}

// Stats is a point-in-time snapshot of cache usage.
type Stats struct {
	Entries       int   `json:"entries"`
	TotalBytes    int64 `json:"total_bytes"`
	MaxEntries    int   `json:"max_entries"`
	MaxTotalBytes int64 `json:"max_total_bytes"`
}

// Store is the Badger-backed media blob store. All mutations are serialized
// under mu so eviction passes from concurrent admissions cannot interleave.
type Store struct {
	db     *badger.DB
	limits Limits
	logger zerolog.Logger

	mu         sync.RWMutex
	index      *accessIndex
	totalBytes int64

	// now is the clock, swappable in tests.
	now func() time.Time
}

// NewStore opens a store over db, recovering entry metadata and access order
// from any previous run.
func NewStore(db *badger.DB, limits Limits, logger zerolog.Logger) (*Store, error) {
	s := &Store{
		db:     db,
		limits: limits,
		logger: logger.With().Str("component", "cache").Logger(),
		index:  newAccessIndex(),
		now:    time.Now,
	}
	if err := s.recover(); err != nil {
		return nil, fmt.Errorf("recovering cache state: %w", err)
	}
	metrics.SetCacheUsage(s.index.len(), s.totalBytes)
	return s, nil
}

// recover rebuilds the in-memory index and byte total from persisted
// metadata.
func (s *Store) recover() error {
	var entries []Entry
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(metaPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			var record storedEntry
			if err := json.Unmarshal(val, &record); err != nil || record.SchemaVersion != entrySchemaVersion {
				// Unreadable metadata means the payload is
				// unreachable garbage. Skip it here; Clear is
				// the recovery path.
				s.logger.Warn().
					Bytes("key", item.KeyCopy(nil)).
					Msg("Skipping unreadable cache metadata")
				continue
			}
			entries = append(entries, record.Entry)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.index.rebuild(entries)
	s.totalBytes = 0
	for _, e := range entries {
		s.totalBytes += e.SizeBytes
	}
	return nil
}

// IsCached reports whether a payload is stored for the track. It does not
// count as an access.
func (s *Store) IsCached(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.contains(id)
}

// Payload returns the cached bytes and metadata for a track, updating its
// last-access time. Returns ErrNotCached on a miss.
func (s *Store) Payload(ctx context.Context, id string) ([]byte, Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.index.contains(id) {
		metrics.CacheMisses.Inc()
		return nil, Entry{}, ErrNotCached
	}

	var (
		payload []byte
		entry   Entry
	)
	accessedAt := s.now()
	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(blobPrefix + id))
		if err != nil {
			return err
		}
		payload, err = item.ValueCopy(nil)
		if err != nil {
			return err
		}

		metaItem, err := txn.Get([]byte(metaPrefix + id))
		if err != nil {
			return err
		}
		val, err := metaItem.ValueCopy(nil)
		if err != nil {
			return err
		}
		var record storedEntry
		if err := json.Unmarshal(val, &record); err != nil {
			return fmt.Errorf("decoding cache metadata for %s: %w", id, err)
		}
		record.Entry.LastAccessedAt = accessedAt
		entry = record.Entry

		data, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("encoding cache metadata for %s: %w", id, err)
		}
		return txn.Set([]byte(metaPrefix+id), data)
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			// Index and store disagree; heal the index.
			s.dropLocked(id, 0)
			metrics.CacheMisses.Inc()
			return nil, Entry{}, ErrNotCached
		}
		return nil, Entry{}, fmt.Errorf("reading cached payload for %s: %w", id, err)
	}

	s.index.touch(id, accessedAt)
	metrics.CacheHits.Inc()
	return payload, entry, nil
}

// Store admits a payload into the cache. Storing an already-cached id is a
// no-op. Eviction runs first so the write never lands over budget; the entry
// being admitted is never an eviction candidate.
func (s *Store) Store(ctx context.Context, id string, payload []byte, meta Entry) error {
	size := int64(len(payload))
	if size > s.limits.MaxItemBytes {
		metrics.CacheRejections.WithLabelValues("too_large").Inc()
		return fmt.Errorf("%w: %d bytes for %s", ErrPayloadTooLarge, size, id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index.contains(id) {
		return nil
	}

	if err := s.evictForLocked(size); err != nil {
		return err
	}

	now := s.now()
	meta.ID = id
	meta.SizeBytes = size
	meta.CachedAt = now
	meta.LastAccessedAt = now

	data, err := json.Marshal(storedEntry{SchemaVersion: entrySchemaVersion, Entry: meta})
	if err != nil {
		return fmt.Errorf("encoding cache metadata for %s: %w", id, err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(blobPrefix+id), payload); err != nil {
			return err
		}
		return txn.Set([]byte(metaPrefix+id), data)
	})
	if err != nil {
		return fmt.Errorf("storing cached payload for %s: %w", id, err)
	}

	s.index.touch(id, now)
	s.totalBytes += size
	metrics.CacheAdmissions.Inc()
	metrics.SetCacheUsage(s.index.len(), s.totalBytes)

	s.logger.Debug().
		Str("track_id", id).
		Int64("size_bytes", size).
		Int("entries", s.index.len()).
		Int64("total_bytes", s.totalBytes).
		Msg("Cached track payload")
	return nil
}

// evictForLocked removes oldest-accessed entries until an incoming payload of
// the given size fits both budgets. Caller holds mu.
func (s *Store) evictForLocked(incoming int64) error {
	for s.totalBytes+incoming > s.limits.MaxTotalBytes || s.index.len()+1 > s.limits.MaxEntries {
		victim, ok := s.index.oldest()
		if !ok {
			// The cache is empty and the payload still does not
			// fit. Unreachable while the per-item ceiling is below
			// the total budget, but do not loop forever.
			metrics.CacheRejections.WithLabelValues("over_budget").Inc()
			return fmt.Errorf("%w: %d bytes cannot fit budget", ErrPayloadTooLarge, incoming)
		}
		if err := s.evictLocked(victim); err != nil {
			return err
		}
	}
	return nil
}

// evictLocked removes one entry by id. Caller holds mu.
func (s *Store) evictLocked(id string) error {
	var size int64
	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(metaPrefix + id))
		if err == nil {
			if val, verr := item.ValueCopy(nil); verr == nil {
				var record storedEntry
				if json.Unmarshal(val, &record) == nil {
					size = record.Entry.SizeBytes
				}
			}
		}
		if err := txn.Delete([]byte(blobPrefix + id)); err != nil {
			return err
		}
		return txn.Delete([]byte(metaPrefix + id))
	})
	if err != nil {
		return fmt.Errorf("evicting %s: %w", id, err)
	}

	s.dropLocked(id, size)
	metrics.CacheEvictions.Inc()
	s.logger.Debug().
		Str("track_id", id).
		Int64("size_bytes", size).
		Msg("Evicted cached track")
	return nil
}

// dropLocked removes an entry from the in-memory bookkeeping only.
func (s *Store) dropLocked(id string, size int64) {
	s.index.remove(id)
	s.totalBytes -= size
	if s.totalBytes < 0 {
		s.totalBytes = 0
	}
	metrics.SetCacheUsage(s.index.len(), s.totalBytes)
}

// Stats returns current usage against the configured budgets.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{
		Entries:       s.index.len(),
		TotalBytes:    s.totalBytes,
		MaxEntries:    s.limits.MaxEntries,
		MaxTotalBytes: s.limits.MaxTotalBytes,
	}
}

// Entries returns metadata for every cached track, most recently accessed
// first.
func (s *Store) Entries(ctx context.Context) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]Entry, 0, s.index.len())
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(metaPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			val, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			var record storedEntry
			if err := json.Unmarshal(val, &record); err != nil {
				continue
			}
			entries = append(entries, record.Entry)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing cache entries: %w", err)
	}

	sortEntriesByAccess(entries)
	return entries, nil
}

// Clear removes every cached payload, its metadata, and all play-count
// records as one unit of work.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var keys [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		for _, prefix := range []string{blobPrefix, metaPrefix, playPrefix} {
			opts := badger.DefaultIteratorOptions
			opts.Prefix = []byte(prefix)
			opts.PrefetchValues = false
			it := txn.NewIterator(opts)
			for it.Rewind(); it.Valid(); it.Next() {
				keys = append(keys, it.Item().KeyCopy(nil))
			}
			it.Close()
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("listing cache keys: %w", err)
	}

	// Play-count records grow one per track ever played, so a single
	// transaction over blobs, metadata, and counters can exceed Badger's
	// transaction size limit. A write batch splits the deletes internally;
	// the store mutex keeps the operation atomic to callers.
	batch := s.db.NewWriteBatch()
	defer batch.Cancel()
	for _, key := range keys {
		if err := batch.Delete(key); err != nil {
			return fmt.Errorf("clearing cache: %w", err)
		}
	}
	if err := batch.Flush(); err != nil {
		return fmt.Errorf("clearing cache: %w", err)
	}

	cleared := s.index.len()
	s.index = newAccessIndex()
	s.totalBytes = 0
	metrics.SetCacheUsage(0, 0)
	s.logger.Info().Int("entries", cleared).Msg("Cleared media cache")
	return nil
}
