// TuneFrame - Behavioral Music Recommendation and Offline Cache
// Copyright 2026 TuneFrame Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tuneframe/tuneframe

// Package session owns the listening profile for the lifetime of one player
// session. There is no ambient global profile: the profile is loaded once at
// session open (with decay applied), mutated only through the session's
// methods under its lock, and persisted best-effort after every mutation.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tuneframe/tuneframe/internal/metrics"
	"github.com/tuneframe/tuneframe/internal/recommend"
	"github.com/tuneframe/tuneframe/internal/recommend/storage"
)

// Session is the exclusive owner of a loaded UserProfile.
type Session struct {
	// ID identifies this session in logs.
	ID string

	// StartedAt is when the profile was loaded.
	StartedAt time.Time

	store  storage.Store
	engine *recommend.Engine
	logger zerolog.Logger

	mu      sync.Mutex
	profile *recommend.UserProfile
}

// Open loads the profile, applies session-start maintenance (interest decay),
// and persists the refreshed state so decay is not recomputed on a crash.
func Open(ctx context.Context, store storage.Store, engine *recommend.Engine, logger zerolog.Logger) (*Session, error) {
	profile, err := store.LoadOrCreate(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading profile: %w", err)
	}
	engine.LoadProfile(profile)

	s := &Session{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
		store:     store,
		engine:    engine,
		logger:    logger.With().Str("component", "session").Logger(),
		profile:   profile,
	}
	s.persist(ctx)

	s.logger.Info().
		Str("session_id", s.ID).
		Str("profile_id", profile.ID).
		Int("interactions", len(profile.Interactions)).
		Msg("Session opened")
	return s, nil
}

// Record routes an interaction through the engine. A persistence failure is
// non-fatal: the in-memory profile keeps the update and the failure is
// counted and logged.
func (s *Session) Record(ctx context.Context, itemID string, action recommend.Action, tags []recommend.Tag, completionRatio float64) error {
	if !action.Valid() {
		return fmt.Errorf("session: invalid action %q", action)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.engine.RecordInteraction(ctx, s.profile, itemID, action, tags, completionRatio); err != nil {
		metrics.ProfilePersistFailures.Inc()
		s.logger.Warn().
			Err(err).
			Str("item", itemID).
			Str("action", string(action)).
			Msg("Interaction recorded in memory only")
	}
	metrics.InteractionsRecorded.WithLabelValues(string(action)).Inc()
	return nil
}

// AddListenTime accumulates listened wall time for a track and persists.
func (s *Session) AddListenTime(ctx context.Context, itemID string, listened time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.engine.AddListenTime(s.profile, itemID, listened)
	s.persistLocked(ctx)
}

// With runs fn with the profile under the session lock. fn must not retain
// the profile pointer past its return. Mutations made by fn are persisted
// best-effort.
func (s *Session) With(ctx context.Context, fn func(profile *recommend.UserProfile)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fn(s.profile)
	s.persistLocked(ctx)
}

// View runs fn with read access to the profile under the session lock,
// without a persistence write afterwards.
func (s *Session) View(fn func(profile *recommend.UserProfile)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.profile)
}

// TopInterests returns the strongest interests from the current profile.
func (s *Session) TopInterests(n int) []recommend.TagScore {
	s.mu.Lock()
	defer s.mu.Unlock()
	return recommend.TopInterests(s.profile.Interests, n)
}

// Close persists the final profile state.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Save(ctx, s.profile); err != nil {
		return fmt.Errorf("saving profile at session close: %w", err)
	}
	s.logger.Info().Str("session_id", s.ID).Msg("Session closed")
	return nil
}

func (s *Session) persist(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persistLocked(ctx)
}

func (s *Session) persistLocked(ctx context.Context) {
	if err := s.store.Save(ctx, s.profile); err != nil {
		metrics.ProfilePersistFailures.Inc()
		s.logger.Warn().Err(err).Msg("Profile persist failed")
	}
}
