// TuneFrame - Behavioral Music Recommendation and Offline Cache
// Copyright 2026 TuneFrame Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tuneframe/tuneframe

package recommend

import (
	"time"
)

// Tag is a taxonomy label classifying a track: a genre or mood name.
// Tags are labels, not entities; two equal strings are the same tag.
type Tag = string

// Track is an immutable catalog record. The catalog subsystem owns it;
// this package only reads it.
type Track struct {
	// ID is the stable unique track identifier.
	ID string `json:"id"`

	// Title is the track title.
	Title string `json:"title"`

	// Artist is the primary performer name.
	Artist string `json:"artist"`

	// Genre is the declared genre label.
	Genre string `json:"genre"`

	// Duration is the track length.
	Duration time.Duration `json:"duration"`

	// SourceURL locates the playable payload.
	SourceURL string `json:"source_url"`
}

// Action classifies a behavioral event.
type Action string

const (
	// ActionLike is an explicit positive signal.
	ActionLike Action = "like"
	// ActionDislike is an explicit negative signal.
	ActionDislike Action = "dislike"
	// ActionSave adds a track to the saved set.
	ActionSave Action = "save"
	// ActionPlay marks playback start.
	ActionPlay Action = "play"
	// ActionSkip marks a skip within the early-skip window. The caller
	// decides the window; this package does not observe playback time.
	ActionSkip Action = "skip"
	// ActionComplete marks playback completion with a ratio.
	ActionComplete Action = "complete"
)

// Valid reports whether a is a known action kind.
func (a Action) Valid() bool {
	switch a {
	case ActionLike, ActionDislike, ActionSave, ActionPlay, ActionSkip, ActionComplete:
		return true
	}
	return false
}

// Interaction is an immutable behavioral event record.
type Interaction struct {
	// ItemID is the track the event refers to.
	ItemID string `json:"item_id"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Action is the event kind.
	Action Action `json:"action"`

	// CompletionRatio is the fraction of the track played, for
	// ActionComplete events. Zero otherwise.
	CompletionRatio float64 `json:"completion_ratio,omitempty"`

	// Tags are the track's extracted tags at event time.
	Tags []Tag `json:"tags,omitempty"`
}

// ListenStat aggregates play history for one track.
type ListenStat struct {
	ItemID            string        `json:"item_id"`
	PlayCount         int           `json:"play_count"`
	LastPlayedAt      time.Time     `json:"last_played_at"`
	TotalTimeListened time.Duration `json:"total_time_listened"`
}

// InterestEntry is the decaying score state for one tag.
type InterestEntry struct {
	Score       float64   `json:"score"`
	LastUpdated time.Time `json:"last_updated"`
}

// InterestMap maps each tag ever touched to its interest state.
type InterestMap map[Tag]*InterestEntry

// TagScore is one (tag, score) pair from a top-interests query.
type TagScore struct {
	Tag   Tag     `json:"tag"`
	Score float64 `json:"score"`
}

// UserProfile is the aggregate root owning all personalization state.
// It is created lazily on first use and lives for the lifetime of the
// local installation. Mutate it only through the recorder contract.
type UserProfile struct {
	// ID is the profile identity, assigned at creation.
	ID string `json:"id"`

	// CreatedAt is when the profile was first created.
	CreatedAt time.Time `json:"created_at"`

	// Interests is the tag score map.
	Interests InterestMap `json:"interests"`

	// Stats maps track id to listen statistics.
	Stats map[string]*ListenStat `json:"stats"`

	// Interactions is the append-only event log, ring-capped at
	// MaxInteractions most recent entries.
	Interactions []Interaction `json:"interactions"`

	// Liked, Disliked and Saved are track-id membership sets. Liked and
	// Disliked are mutually exclusive.
	Liked    map[string]bool `json:"liked"`
	Disliked map[string]bool `json:"disliked"`
	Saved    map[string]bool `json:"saved"`
}

// ScoredTrack is one ranked result.
type ScoredTrack struct {
	Track Track `json:"track"`

	// Score is the relevance score at ranking time.
	Score float64 `json:"score"`

	// Discovery marks serendipity picks injected by the discovery quota.
	Discovery bool `json:"discovery,omitempty"`
}

// SimilarTrack is one result from a similarity query.
type SimilarTrack struct {
	Track Track `json:"track"`

	// Similarity is the shared tag count divided by the target tag count.
	Similarity float64 `json:"similarity"`
}
