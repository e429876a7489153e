// TuneFrame - Behavioral Music Recommendation and Offline Cache
// Copyright 2026 TuneFrame Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tuneframe/tuneframe

package api

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tuneframe/tuneframe/internal/recommend"
)

// CatalogProvider supplies the candidate tracks the ranker scores. Search
// and library subsystems are collaborators behind this interface; the repo
// ships a static JSON file loader.
type CatalogProvider interface {
	// Tracks returns the full candidate set. Callers must not mutate it.
	Tracks() []recommend.Track

	// TrackByID looks a single track up.
	TrackByID(id string) (recommend.Track, bool)
}

// StaticCatalog is a CatalogProvider over a JSON file loaded once at
// startup.
type StaticCatalog struct {
	tracks []recommend.Track
	byID   map[string]recommend.Track
}

// LoadStaticCatalog reads a JSON array of tracks from path. An empty path
// yields an empty catalog so the server can run before a library is wired.
func LoadStaticCatalog(path string, logger zerolog.Logger) (*StaticCatalog, error) {
	catalog := &StaticCatalog{byID: make(map[string]recommend.Track)}
	if path == "" {
		logger.Warn().Msg("No catalog configured, serving empty candidate set")
		return catalog, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog %s: %w", path, err)
	}
	var tracks []recommend.Track
	if err := json.Unmarshal(data, &tracks); err != nil {
		return nil, fmt.Errorf("parsing catalog %s: %w", path, err)
	}

	for _, track := range tracks {
		if track.ID == "" {
			return nil, fmt.Errorf("catalog %s: track without id (title %q)", path, track.Title)
		}
		if _, dup := catalog.byID[track.ID]; dup {
			return nil, fmt.Errorf("catalog %s: duplicate track id %s", path, track.ID)
		}
		catalog.byID[track.ID] = track
		catalog.tracks = append(catalog.tracks, track)
	}

	logger.Info().Int("tracks", len(tracks)).Str("path", path).Msg("Catalog loaded")
	return catalog, nil
}

// NewStaticCatalog builds a catalog from an in-memory track list. Used in
// tests and embedding callers.
func NewStaticCatalog(tracks []recommend.Track) *StaticCatalog {
	catalog := &StaticCatalog{
		tracks: tracks,
		byID:   make(map[string]recommend.Track, len(tracks)),
	}
	for _, track := range tracks {
		catalog.byID[track.ID] = track
	}
	return catalog
}

// Tracks implements CatalogProvider.
func (c *StaticCatalog) Tracks() []recommend.Track {
	return c.tracks
}

// TrackByID implements CatalogProvider.
func (c *StaticCatalog) TrackByID(id string) (recommend.Track, bool) {
	track, ok := c.byID[id]
	return track, ok
}
