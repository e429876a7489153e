// TuneFrame - Behavioral Music Recommendation and Offline Cache
// Copyright 2026 TuneFrame Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tuneframe/tuneframe

// Package recommend implements the behavioral recommendation engine.
//
// # Architecture
//
// The engine turns implicit and explicit listening signals into ranked
// catalog views through four cooperating pieces:
//
//   - Tag extraction: a pure function deriving descriptive tags from a
//     track's genre label and title text
//   - Interest model: per-tag scores with discrete weekly exponential decay
//   - Interaction recorder: the single entry point that fans one behavioral
//     event out to the interaction log, the liked/disliked/saved sets, the
//     per-track listen statistics, and the interest model
//   - Ranker: relevance scoring with a guaranteed serendipity quota
//
// # Design Principles
//
//   - Deterministic: discovery sampling and shuffles use a seeded RNG
//     injected at construction, never ambient randomness
//   - Explicit ownership: the UserProfile is passed into every call;
//     there is no package-level profile state
//   - Non-fatal persistence: profile writes are best-effort, reported as a
//     status the caller may log, never a crash
//
// # Usage
//
//	eng := recommend.NewEngine(recommend.DefaultParams(), store, logger)
//
//	eng.RecordInteraction(profile, trackID, recommend.ActionLike, tags, 0)
//	ranked := eng.Recommend(catalog, profile, 20)
//
// # Thread Safety
//
// Engine methods are safe for concurrent use as long as each UserProfile
// value is confined to one goroutine at a time; the session layer owns that
// confinement.
package recommend
