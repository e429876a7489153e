// TuneFrame - Behavioral Music Recommendation and Offline Cache
// Copyright 2026 TuneFrame Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tuneframe/tuneframe

package recommend

import (
	"time"

	"github.com/google/uuid"
)

// Score deltas applied to every tag of an interacted track. The magnitudes
// are asymmetric on purpose: an explicit dislike outweighs an explicit like
// so that one bad recommendation is corrected faster than one good one is
// reinforced.
const (
	DeltaLike         = 5.0
	DeltaDislike      = -10.0
	DeltaSave         = 3.0
	DeltaCompleteHigh = 2.0
	DeltaSkipEarly    = -3.0
	DeltaRelisten     = 4.0
)

const (
	// MaxInteractions caps the interaction log. Oldest entries are evicted
	// first, pure ring-buffer semantics.
	MaxInteractions = 500

	// HighCompletionRatio is the ratio above which a completion counts as
	// a positive signal.
	HighCompletionRatio = 0.8

	// RelistenWindow is how recent a previous play must be for a repeat
	// play to earn the relisten delta.
	RelistenWindow = 24 * time.Hour

	// DecayPeriod is the length of one decay step.
	DecayPeriod = 7 * 24 * time.Hour

	// DecayFactor is the per-period score multiplier.
	DecayFactor = 0.9

	// DislikeScoreCutoff excludes heavily-disliked tracks from the
	// content slate regardless of rank.
	DislikeScoreCutoff = -50.0

	// NoveltyBonus rewards tracks never played before.
	NoveltyBonus = 1.0

	// LikedBonus rewards explicitly liked tracks.
	LikedBonus = 2.0

	// DislikedPenalty buries explicitly disliked tracks.
	DislikedPenalty = -100.0
)

// Params holds the tunable knobs of the engine. Deltas and decay constants
// are part of the model and fixed; these are the deployment-level settings.
type Params struct {
	// Seed drives the engine RNG. Zero selects a fixed default so results
	// stay reproducible run to run.
	Seed int64

	// DiscoveryRatio is the fraction of each slate reserved for
	// serendipity picks. At least one pick is always attempted.
	DiscoveryRatio float64
}

// DefaultParams returns production defaults.
func DefaultParams() Params {
	return Params{
		Seed:           0,
		DiscoveryRatio: 0.1,
	}
}

// Taxonomy is the curated tag vocabulary. New profiles are seeded with a
// neutral entry for every taxonomy tag; extraction may still introduce
// tags outside this list (raw genre labels are always emitted).
var Taxonomy = []Tag{
	"Pop", "Rock", "Electronic", "Hip-Hop", "Jazz", "Classical", "Folk",
	"Metal", "Ambient", "Synthwave", "Lo-Fi", "Indie", "Soul", "Blues",
	"Chill", "Energetic", "Melancholic", "Uplifting", "Focus", "Cinematic",
	"Dreamy", "Dark", "Romantic", "Nostalgic",
}

// NewProfile creates an empty profile with a fresh identity and a neutral
// interest entry for every taxonomy tag.
func NewProfile(now time.Time) *UserProfile {
	interests := make(InterestMap, len(Taxonomy))
	for _, tag := range Taxonomy {
		interests[tag] = &InterestEntry{Score: 0, LastUpdated: now}
	}

	return &UserProfile{
		ID:        uuid.New().String(),
		CreatedAt: now,
		Interests: interests,
		Stats:     make(map[string]*ListenStat),
		Liked:     make(map[string]bool),
		Disliked:  make(map[string]bool),
		Saved:     make(map[string]bool),
	}
}

// normalize backfills nil collections on a deserialized profile so callers
// never see a nil map.
func (p *UserProfile) normalize() {
	if p.Interests == nil {
		p.Interests = make(InterestMap)
	}
	if p.Stats == nil {
		p.Stats = make(map[string]*ListenStat)
	}
	if p.Liked == nil {
		p.Liked = make(map[string]bool)
	}
	if p.Disliked == nil {
		p.Disliked = make(map[string]bool)
	}
	if p.Saved == nil {
		p.Saved = make(map[string]bool)
	}
}

// Normalize exposes collection backfill for loaders in other packages.
func (p *UserProfile) Normalize() { p.normalize() }
