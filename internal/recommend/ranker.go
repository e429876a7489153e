// TuneFrame - Behavioral Music Recommendation and Offline Cache
// Copyright 2026 TuneFrame Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tuneframe/tuneframe

package recommend

import (
	"sort"
	"strings"
)

// ScoreTrack computes the relevance score of one track against a profile:
// the sum of the track's tag scores, plus a novelty bonus for never-played
// tracks, a bonus for liked tracks, and a burying penalty for disliked
// ones.
func ScoreTrack(profile *UserProfile, track Track) float64 {
	var score float64
	for _, tag := range ExtractTags(track) {
		if entry, ok := profile.Interests[tag]; ok {
			score += entry.Score
		}
	}

	if _, played := profile.Stats[track.ID]; !played {
		score += NoveltyBonus
	}
	if profile.Liked[track.ID] {
		score += LikedBonus
	}
	if profile.Disliked[track.ID] {
		score += DislikedPenalty
	}
	return score
}

// Recommend produces an ordered slate of at most limit tracks: the
// highest-scoring catalog tracks interleaved with a serendipity quota of
// uniformly sampled discovery picks. Disliked tracks never appear; at
// least one discovery pick is made whenever the pool allows it.
func (e *Engine) Recommend(catalog []Track, profile *UserProfile, limit int) []ScoredTrack {
	if limit <= 0 || len(catalog) == 0 {
		return nil
	}

	scored := make([]ScoredTrack, len(catalog))
	for i, track := range catalog {
		scored[i] = ScoredTrack{Track: track, Score: ScoreTrack(profile, track)}
	}
	// Stable: ties keep catalog order.
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })

	discoveryCount := int(float64(limit) * e.params.DiscoveryRatio)
	if discoveryCount < 1 {
		discoveryCount = 1
	}
	contentCount := limit - discoveryCount

	// Content slate: best tracks above the dislike cutoff. Disliked
	// tracks are excluded outright even when their tag scores would
	// clear the cutoff.
	slate := make([]ScoredTrack, 0, contentCount)
	inSlate := make(map[string]bool, contentCount)
	for _, st := range scored {
		if len(slate) == contentCount {
			break
		}
		if st.Score <= DislikeScoreCutoff || profile.Disliked[st.Track.ID] {
			continue
		}
		slate = append(slate, st)
		inSlate[st.Track.ID] = true
	}

	// Discovery pool: everything not already slated and not disliked.
	// No score threshold; a discovery pick may carry any score.
	pool := make([]ScoredTrack, 0, len(scored))
	for _, st := range scored {
		if inSlate[st.Track.ID] || profile.Disliked[st.Track.ID] {
			continue
		}
		pool = append(pool, st)
	}

	// Uniform picks without replacement.
	picks := make([]ScoredTrack, 0, discoveryCount)
	for len(picks) < discoveryCount && len(pool) > 0 {
		i := e.intn(len(pool))
		pick := pool[i]
		pick.Discovery = true
		picks = append(picks, pick)
		pool[i] = pool[len(pool)-1]
		pool = pool[:len(pool)-1]
	}

	// Interleave picks through the slate instead of clustering them at
	// the end. Insertion indexes clamp to the current length, so extreme
	// limits degrade to appending.
	result := slate
	stride := 0
	if discoveryCount > 0 {
		stride = contentCount / discoveryCount
	}
	for i, pick := range picks {
		pos := 3 + i*stride
		if pos > len(result) {
			pos = len(result)
		}
		result = append(result, ScoredTrack{})
		copy(result[pos+1:], result[pos:])
		result[pos] = pick
	}

	if len(result) > limit {
		result = result[:limit]
	}
	return result
}

// ForYouMix returns personalized recommendations, falling back to a random
// shuffle of the catalog for new or neutral users whose interest signal
// would otherwise produce an arbitrary-looking deterministic ordering.
func (e *Engine) ForYouMix(catalog []Track, profile *UserProfile, limit int) []ScoredTrack {
	if limit <= 0 || len(catalog) == 0 {
		return nil
	}

	top := TopInterests(profile.Interests, 3)
	if len(top) == 0 || top[0].Score <= 0 {
		shuffled := make([]ScoredTrack, len(catalog))
		for i, track := range catalog {
			shuffled[i] = ScoredTrack{Track: track}
		}
		e.shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})
		if len(shuffled) > limit {
			shuffled = shuffled[:limit]
		}
		return shuffled
	}

	return e.Recommend(catalog, profile, limit)
}

// SimilarTracks ranks catalog tracks by tag overlap with the target:
// the count of shared tags divided by max(target tag count, 1). The target
// itself is excluded. Ties keep catalog order.
func (e *Engine) SimilarTracks(target Track, catalog []Track, limit int) []SimilarTrack {
	if limit <= 0 {
		return nil
	}

	targetTags := ExtractTags(target)
	targetSet := make(map[Tag]bool, len(targetTags))
	for _, t := range targetTags {
		targetSet[t] = true
	}
	denom := float64(len(targetTags))
	if denom < 1 {
		denom = 1
	}

	out := make([]SimilarTrack, 0, len(catalog))
	for _, candidate := range catalog {
		if candidate.ID == target.ID {
			continue
		}
		common := 0
		for _, t := range ExtractTags(candidate) {
			if targetSet[t] {
				common++
			}
		}
		out = append(out, SimilarTrack{Track: candidate, Similarity: float64(common) / denom})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// TracksByMood filters the catalog to tracks whose tag set contains mood
// (case-insensitive) and orders them by relevance score.
func (e *Engine) TracksByMood(catalog []Track, profile *UserProfile, mood Tag, limit int) []ScoredTrack {
	if limit <= 0 || strings.TrimSpace(mood) == "" {
		return nil
	}

	out := make([]ScoredTrack, 0, len(catalog))
	for _, track := range catalog {
		if !HasTag(track, mood) {
			continue
		}
		out = append(out, ScoredTrack{Track: track, Score: ScoreTrack(profile, track)})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
