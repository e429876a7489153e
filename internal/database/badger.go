// TuneFrame - Behavioral Music Recommendation and Offline Cache
// Copyright 2026 TuneFrame Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tuneframe/tuneframe

// Package database opens the single BadgerDB instance shared by the profile
// store and the media cache. Both live in one keyspace under distinct
// prefixes, so the daemon holds exactly one database handle.
package database

import (
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"

	"github.com/tuneframe/tuneframe/internal/config"
)

// badgerLogger routes Badger's internal logging into zerolog. Badger is
// chatty at INFO during compaction, so its INFO maps to debug.
type badgerLogger struct {
	logger zerolog.Logger
}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error().Msgf(format, args...)
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn().Msgf(format, args...)
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug().Msgf(format, args...)
}

func (l badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug().Msgf(format, args...)
}

// Open opens the daemon's BadgerDB per config. With InMemory set the
// database lives in RAM and all cached media and profile state is lost at
// exit. When the configured directory cannot be opened, Open logs one
// warning and degrades to the same in-memory mode instead of failing:
// losing persistence for a run is recoverable, refusing to start is not.
// An empty dir without InMemory is a configuration error and still fails.
func Open(cfg config.StorageConfig, logger zerolog.Logger) (*badger.DB, error) {
	log := logger.With().Str("component", "database").Logger()

	if cfg.InMemory {
		log.Info().Msg("Opening in-memory database")
		return openInMemory(log)
	}
	if cfg.Dir == "" {
		return nil, fmt.Errorf("storage.dir is required unless storage.in_memory is set")
	}

	db, err := openDir(cfg.Dir, log)
	if err != nil {
		log.Warn().Err(err).Str("dir", cfg.Dir).
			Msg("Storage unavailable, continuing in memory without persistence")
		return openInMemory(log)
	}
	log.Info().Str("dir", cfg.Dir).Msg("Opened database")
	return db, nil
}

func openDir(dir string, log zerolog.Logger) (*badger.DB, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory %s: %w", dir, err)
	}
	opts := badger.DefaultOptions(dir).WithLogger(badgerLogger{logger: log})
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger at %q: %w", dir, err)
	}
	return db, nil
}

func openInMemory(log zerolog.Logger) (*badger.DB, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(badgerLogger{logger: log})
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening in-memory badger: %w", err)
	}
	return db, nil
}
