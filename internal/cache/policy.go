// TuneFrame - Behavioral Music Recommendation and Offline Cache
// Copyright 2026 TuneFrame Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tuneframe/tuneframe

package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
)

// Fetcher retrieves a track payload from its source URL, returning the bytes
// and the MIME type reported by the origin.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, string, error)
}

// TrackRef identifies a fetchable track for admission.
type TrackRef struct {
	ID        string
	Title     string
	Artist    string
	SourceURL string
}

// AdmissionResult reports the outcome of counting a play.
type AdmissionResult struct {
	// ShouldCache is true on the play that reaches the threshold exactly,
	// for a track not already cached. It fires at most once per track.
	ShouldCache bool `json:"should_cache"`

	// PlayCount is the track's play total including this play.
	PlayCount int `json:"play_count"`
}

// Policy counts plays and admits tracks into the store once they prove
// themselves worth the space.
type Policy struct {
	store     *Store
	fetcher   Fetcher
	threshold int
	logger    zerolog.Logger
}

// NewPolicy builds an admission policy over the store. threshold is the play
// count at which a track is promoted; values below 1 are clamped to 1.
func NewPolicy(store *Store, fetcher Fetcher, threshold int, logger zerolog.Logger) *Policy {
	if threshold < 1 {
		threshold = 1
	}
	return &Policy{
		store:     store,
		fetcher:   fetcher,
		threshold: threshold,
		logger:    logger.With().Str("component", "cache_policy").Logger(),
	}
}

// RecordPlay increments the track's play count and reports whether this play
// crossed the admission threshold. The caller decides whether to act on
// ShouldCache; counting is cheap and always happens.
func (p *Policy) RecordPlay(ctx context.Context, id string) (AdmissionResult, error) {
	if id == "" {
		return AdmissionResult{}, errors.New("cache: empty track id")
	}

	key := []byte(playPrefix + id)
	var count int
	err := p.store.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		switch {
		case err == nil:
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			count, err = strconv.Atoi(string(val))
			if err != nil {
				// Unreadable counter, start over.
				count = 0
			}
		case errors.Is(err, badger.ErrKeyNotFound):
			count = 0
		default:
			return err
		}

		count++
		return txn.Set(key, []byte(strconv.Itoa(count)))
	})
	if err != nil {
		return AdmissionResult{}, fmt.Errorf("counting play for %s: %w", id, err)
	}

	return AdmissionResult{
		ShouldCache: count == p.threshold && !p.store.IsCached(id),
		PlayCount:   count,
	}, nil
}

// PlayCount returns the recorded play total for a track.
func (p *Policy) PlayCount(ctx context.Context, id string) (int, error) {
	var count int
	err := p.store.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(playPrefix + id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		count, _ = strconv.Atoi(string(val))
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("reading play count for %s: %w", id, err)
	}
	return count, nil
}

// Admit fetches the track payload and stores it. A fetch failure is logged
// and abandoned; there is no retry, the track simply stays uncached.
// Typically run on its own goroutine so playback never waits on a download.
func (p *Policy) Admit(ctx context.Context, track TrackRef) error {
	if track.SourceURL == "" {
		return fmt.Errorf("cache: track %s has no source URL", track.ID)
	}
	if p.store.IsCached(track.ID) {
		return nil
	}

	payload, mimeType, err := p.fetcher.Fetch(ctx, track.SourceURL)
	if err != nil {
		p.logger.Warn().
			Err(err).
			Str("track_id", track.ID).
			Str("url", track.SourceURL).
			Msg("Fetch failed, track stays uncached")
		return fmt.Errorf("fetching %s: %w", track.ID, err)
	}

	err = p.store.Store(ctx, track.ID, payload, Entry{
		Title:    track.Title,
		Artist:   track.Artist,
		MIMEType: mimeType,
	})
	if err != nil {
		p.logger.Warn().
			Err(err).
			Str("track_id", track.ID).
			Msg("Admission rejected")
		return err
	}
	return nil
}
