// TuneFrame - Behavioral Music Recommendation and Offline Cache
// Copyright 2026 TuneFrame Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tuneframe/tuneframe

// Package main is the entry point for the TuneFrame daemon.
//
// TuneFrame is the local core of a music player: it learns a listener's
// taste from behavior (likes, skips, completions, relistens), ranks catalog
// tracks with a serendipity quota, and opportunistically caches frequently
// played tracks for offline playback.
//
// # Application Architecture
//
// The daemon initializes components in the following order:
//
//  1. Configuration: layered settings from defaults, config file, and
//     environment variables (Koanf v2)
//  2. Logging: structured zerolog output
//  3. Database: one BadgerDB keyspace shared by the profile store and the
//     media cache
//  4. Recommendation engine and session: the profile is loaded once per
//     process with interest decay applied
//  5. Cache store, admission policy, and HTTP payload fetcher
//  6. Playback event bus: in-process Watermill pub/sub fanning playback
//     events to the taste recorder
//  7. Supervision tree: the event bus and the HTTP server run as suture
//     services in separate layers
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins): environment variables, config file (config.yaml), then
// built-in defaults. See internal/config for the full key list.
//
// # Signal Handling
//
// The daemon handles graceful shutdown on SIGINT and SIGTERM: the HTTP
// server drains in-flight requests, the event bus drains pending cache
// admissions, the final profile state is persisted, and the database is
// closed.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/tuneframe/tuneframe/internal/api"
	"github.com/tuneframe/tuneframe/internal/cache"
	"github.com/tuneframe/tuneframe/internal/config"
	"github.com/tuneframe/tuneframe/internal/database"
	"github.com/tuneframe/tuneframe/internal/events"
	"github.com/tuneframe/tuneframe/internal/fetch"
	"github.com/tuneframe/tuneframe/internal/logging"
	"github.com/tuneframe/tuneframe/internal/recommend"
	"github.com/tuneframe/tuneframe/internal/recommend/storage"
	"github.com/tuneframe/tuneframe/internal/session"
	"github.com/tuneframe/tuneframe/internal/supervisor"
	"github.com/tuneframe/tuneframe/internal/supervisor/services"
)

func main() {
	// Load configuration first to get logging settings.
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logger := logging.Logger()

	logger.Info().
		Str("listen", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)).
		Str("storage_dir", cfg.Storage.Dir).
		Bool("in_memory", cfg.Storage.InMemory).
		Msg("Starting TuneFrame")

	// Open degrades to an in-memory database when the data directory is
	// unusable, so an error here means the configuration itself is invalid.
	db, err := database.Open(cfg.Storage, logger)
	if err != nil {
		logging.Fatal().Err(err).Msg("Invalid storage configuration")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error().Err(err).Msg("Error closing database")
		}
	}()

	// Profile store, engine, session.
	profiles := storage.NewBadgerStore(db, logger)
	engine := recommend.NewEngine(recommend.Params{
		Seed:           cfg.Recommend.Seed,
		DiscoveryRatio: cfg.Recommend.DiscoveryRatio,
	}, profiles, logger)

	ctx := context.Background()
	sess, err := session.Open(ctx, profiles, engine, logger)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open session")
	}

	// Media cache: store, fetcher, admission policy.
	store, err := cache.NewStore(db, cache.Limits{
		MaxTotalBytes: cfg.Cache.MaxBytes,
		MaxEntries:    cfg.Cache.MaxEntries,
		MaxItemBytes:  cfg.Cache.MaxItemBytes,
	}, logger)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open media cache")
	}
	fetcher := fetch.NewHTTPFetcher(cfg.Fetch, cfg.Cache.MaxItemBytes, logger)
	policy := cache.NewPolicy(store, fetcher, cfg.Cache.PlayThreshold, logger)

	// Playback event bus.
	bus, err := events.NewBus(sess, policy, logger)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to build event bus")
	}

	// Catalog and HTTP surface.
	catalog, err := api.LoadStaticCatalog(cfg.Catalog.Path, logger)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load catalog")
	}
	handler := api.NewHandler(sess, engine, catalog, store, policy, bus)
	router := api.NewRouter(handler, cfg.Server, logger)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Supervision tree: events layer and API layer.
	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	tree.AddEventsService(services.NewBusService(bus))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info().Msg("Supervisor tree starting")
	if err := tree.Serve(runCtx); err != nil && runCtx.Err() == nil {
		logger.Error().Err(err).Msg("Supervisor tree failed")
	}

	// Drain background admissions, then persist the final profile state.
	if err := bus.Close(); err != nil {
		logger.Warn().Err(err).Msg("Event bus close failed")
	}
	if err := sess.Close(ctx); err != nil {
		logger.Warn().Err(err).Msg("Final profile persist failed")
	}
	logger.Info().Msg("TuneFrame stopped")
}
