// TuneFrame - Behavioral Music Recommendation and Offline Cache
// Copyright 2026 TuneFrame Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tuneframe/tuneframe

package recommend

import (
	"math"
	"sort"
	"time"
)

// DecayInterests applies discrete weekly exponential decay to every entry.
// For each tag, periods = floor(elapsed / DecayPeriod); when periods > 0
// the score is multiplied by DecayFactor^periods and LastUpdated is reset
// to now. A tag untouched for ten days decays by exactly one period.
//
// Called once per session, at profile load time.
func DecayInterests(m InterestMap, now time.Time) {
	for _, entry := range m {
		elapsed := now.Sub(entry.LastUpdated)
		if elapsed <= 0 {
			continue
		}
		periods := int(elapsed / DecayPeriod)
		if periods <= 0 {
			continue
		}
		entry.Score *= math.Pow(DecayFactor, float64(periods))
		entry.LastUpdated = now
	}
}

// applyDelta adds delta to every tag in tags, creating absent entries at
// score zero. Scores are unbounded in both directions.
func applyDelta(m InterestMap, tags []Tag, delta float64, now time.Time) {
	for _, tag := range tags {
		entry, ok := m[tag]
		if !ok {
			entry = &InterestEntry{}
			m[tag] = entry
		}
		entry.Score += delta
		entry.LastUpdated = now
	}
}

// TopInterests returns the n highest-scoring tags in descending score
// order. The sort is stable over lexicographic tag order so ties resolve
// the same way every call.
func TopInterests(m InterestMap, n int) []TagScore {
	if n <= 0 {
		return nil
	}

	out := make([]TagScore, 0, len(m))
	for tag, entry := range m {
		out = append(out, TagScore{Tag: tag, Score: entry.Score})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Tag < out[j].Tag
	})

	if len(out) > n {
		out = out[:n]
	}
	return out
}
