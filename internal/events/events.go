// TuneFrame - Behavioral Music Recommendation and Offline Cache
// Copyright 2026 TuneFrame Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tuneframe/tuneframe

// Package events carries playback lifecycle events from the API layer to
// their consumers over a Watermill in-process pub/sub. One playback event
// fans out to two independent consumers: the interaction recorder (taste
// signals) and the cache admission policy (play counting and opportunistic
// downloads). Neither consumer can block or fail the other.
package events

import (
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// Topics. One per playback lifecycle transition.
const (
	TopicPlaybackStarted   = "playback.started"
	TopicPlaybackSkipped   = "playback.skipped"
	TopicPlaybackCompleted = "playback.completed"
)

// PlaybackEvent describes one playback lifecycle transition for a track.
type PlaybackEvent struct {
	TrackID    string    `json:"track_id"`
	Title      string    `json:"title,omitempty"`
	Artist     string    `json:"artist,omitempty"`
	Genre      string    `json:"genre,omitempty"`
	SourceURL  string    `json:"source_url,omitempty"`
	Tags       []string  `json:"tags,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`

	// CompletionRatio is how much of the track played, 0..1. Meaningful
	// on playback.completed.
	CompletionRatio float64 `json:"completion_ratio,omitempty"`

	// Listened is the wall time spent playing. Meaningful on
	// playback.completed.
	Listened time.Duration `json:"listened,omitempty"`
}

// Message converts the event into a Watermill message.
func (e PlaybackEvent) Message() (*message.Message, error) {
	if e.TrackID == "" {
		return nil, fmt.Errorf("events: playback event without track id")
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encoding playback event: %w", err)
	}
	msg := message.NewMessage(uuid.NewString(), payload)
	msg.Metadata.Set("track_id", e.TrackID)
	return msg, nil
}

// decodeEvent parses a Watermill message back into a PlaybackEvent.
func decodeEvent(msg *message.Message) (PlaybackEvent, error) {
	var event PlaybackEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return PlaybackEvent{}, fmt.Errorf("decoding playback event %s: %w", msg.UUID, err)
	}
	if event.TrackID == "" {
		return PlaybackEvent{}, fmt.Errorf("events: message %s has no track id", msg.UUID)
	}
	return event, nil
}
