// TuneFrame - Behavioral Music Recommendation and Offline Cache
// Copyright 2026 TuneFrame Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tuneframe/tuneframe

package recommend

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Note: this package has no dependencies on other internal packages so the
// engine can be tested and reused in isolation. The ProfileSaver interface
// lets the storage layer plug in without a circular import.

// ProfileSaver persists a profile snapshot. Implemented by the storage
// package; saves are synchronous, local, best-effort.
type ProfileSaver interface {
	Save(ctx context.Context, profile *UserProfile) error
}

// Engine owns the scoring parameters, the seeded RNG, and the optional
// profile persistence hook. Profiles are passed into every call; the
// engine holds no per-user state.
type Engine struct {
	params Params
	saver  ProfileSaver
	logger zerolog.Logger

	// rng drives discovery sampling and shuffles. Guarded by rngMu;
	// math/rand sources are not safe for concurrent use.
	rng   *rand.Rand
	rngMu sync.Mutex

	// now is the clock, replaceable in tests.
	now func() time.Time
}

// NewEngine creates an engine. saver may be nil, in which case recorded
// interactions mutate the in-memory profile only.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEngine(params Params, saver ProfileSaver, logger zerolog.Logger) *Engine {
	if params.DiscoveryRatio <= 0 || params.DiscoveryRatio >= 1 {
		params.DiscoveryRatio = 0.1
	}

	seed := params.Seed
	if seed == 0 {
		seed = 42 // fixed default keeps results reproducible
	}

	return &Engine{
		params: params,
		saver:  saver,
		logger: logger.With().Str("component", "recommend").Logger(),
		rng:    rand.New(rand.NewSource(seed)), //nolint:gosec // non-cryptographic sampling
		now:    time.Now,
	}
}

// LoadProfile applies session-start maintenance to a freshly loaded
// profile: collection backfill and interest decay.
func (e *Engine) LoadProfile(profile *UserProfile) {
	profile.normalize()
	DecayInterests(profile.Interests, e.now())
}

// intn returns a uniform random int in [0, n) from the engine RNG.
func (e *Engine) intn(n int) int {
	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	return e.rng.Intn(n)
}

// shuffle permutes n elements through the engine RNG.
func (e *Engine) shuffle(n int, swap func(i, j int)) {
	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	e.rng.Shuffle(n, swap)
}
