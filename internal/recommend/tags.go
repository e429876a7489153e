// TuneFrame - Behavioral Music Recommendation and Offline Cache
// Copyright 2026 TuneFrame Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tuneframe/tuneframe

package recommend

import (
	"sort"
	"strings"
)

// genreRelatedTags maps a genre label to tags it implies. Lookup is
// case-insensitive over the trimmed genre label.
var genreRelatedTags = map[string][]Tag{
	"synthwave":  {"Electronic", "Energetic", "Cinematic"},
	"lo-fi":      {"Chill", "Focus", "Dreamy"},
	"lofi":       {"Chill", "Focus", "Dreamy"},
	"ambient":    {"Chill", "Focus", "Cinematic"},
	"classical":  {"Focus", "Cinematic"},
	"jazz":       {"Chill", "Romantic"},
	"blues":      {"Melancholic", "Soul"},
	"metal":      {"Energetic", "Dark"},
	"hip-hop":    {"Energetic"},
	"electronic": {"Energetic"},
	"folk":       {"Nostalgic", "Chill"},
	"soul":       {"Romantic", "Uplifting"},
	"indie":      {"Dreamy", "Nostalgic"},
	"pop":        {"Uplifting"},
}

// titleKeywordTags maps a lower-cased title substring to mood tags.
var titleKeywordTags = map[string][]Tag{
	"chill":    {"Chill"},
	"relax":    {"Chill"},
	"sad":      {"Melancholic"},
	"blue":     {"Melancholic"},
	"rain":     {"Melancholic", "Chill"},
	"night":    {"Dark", "Dreamy"},
	"neon":     {"Synthwave", "Electronic"},
	"dream":    {"Dreamy"},
	"love":     {"Romantic"},
	"heart":    {"Romantic"},
	"dance":    {"Energetic"},
	"run":      {"Energetic"},
	"study":    {"Focus"},
	"focus":    {"Focus"},
	"sun":      {"Uplifting"},
	"happy":    {"Uplifting"},
	"memory":   {"Nostalgic"},
	"midnight": {"Dark"},
}

// titleKeywords holds the keys of titleKeywordTags in a fixed order so
// extraction output is deterministic for display.
var titleKeywords = func() []string {
	keys := make([]string, 0, len(titleKeywordTags))
	for k := range titleKeywordTags {
		keys = append(keys, k)
	}
	sort.Strings(keys) // map iteration order is random
	return keys
}()

// ExtractTags derives the descriptive tag set for a track from its genre
// label and title text. Pure and deterministic: the same track always
// yields the same set, in first-seen order.
func ExtractTags(track Track) []Tag {
	var (
		out  []Tag
		seen = make(map[Tag]bool)
	)

	add := func(tags ...Tag) {
		for _, t := range tags {
			if t == "" || seen[t] {
				continue
			}
			seen[t] = true
			out = append(out, t)
		}
	}

	// The raw genre label is always a tag.
	genre := strings.TrimSpace(track.Genre)
	add(genre)

	if related, ok := genreRelatedTags[strings.ToLower(genre)]; ok {
		add(related...)
	}

	title := strings.ToLower(track.Title)
	for _, kw := range titleKeywords {
		if strings.Contains(title, kw) {
			add(titleKeywordTags[kw]...)
		}
	}

	return out
}

// HasTag reports whether the track's extracted tags contain the given tag,
// compared case-insensitively.
func HasTag(track Track, tag Tag) bool {
	for _, t := range ExtractTags(track) {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}
