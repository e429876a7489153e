// TuneFrame - Behavioral Music Recommendation and Offline Cache
// Copyright 2026 TuneFrame Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tuneframe/tuneframe

package recommend

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestEngine() *Engine {
	return NewEngine(DefaultParams(), nil, zerolog.Nop())
}

func TestRecordInteraction_LikeDislikeMutualExclusion(t *testing.T) {
	e := newTestEngine()
	p := NewProfile(time.Now())
	ctx := context.Background()

	_ = e.RecordInteraction(ctx, p, "track-1", ActionLike, []Tag{"Chill"}, 0)
	if !p.Liked["track-1"] {
		t.Fatal("expected track-1 in liked set")
	}

	_ = e.RecordInteraction(ctx, p, "track-1", ActionDislike, []Tag{"Chill"}, 0)
	if p.Liked["track-1"] {
		t.Error("dislike must remove track from liked set")
	}
	if !p.Disliked["track-1"] {
		t.Error("expected track-1 in disliked set")
	}

	_ = e.RecordInteraction(ctx, p, "track-1", ActionLike, []Tag{"Chill"}, 0)
	if p.Disliked["track-1"] {
		t.Error("like must remove track from disliked set")
	}
	if !p.Liked["track-1"] {
		t.Error("expected track-1 back in liked set")
	}
}

func TestRecordInteraction_RepeatedDislikeStacksDeltaNotMembership(t *testing.T) {
	e := newTestEngine()
	p := NewProfile(time.Now())
	ctx := context.Background()

	_ = e.RecordInteraction(ctx, p, "track-1", ActionDislike, []Tag{"Metal"}, 0)
	_ = e.RecordInteraction(ctx, p, "track-1", ActionDislike, []Tag{"Metal"}, 0)

	if got := p.Interests["Metal"].Score; got != 2*DeltaDislike {
		t.Errorf("repeated actions apply the delta each time: want %v, got %v", 2*DeltaDislike, got)
	}

	count := 0
	for range p.Disliked {
		count++
	}
	if count != 1 {
		t.Errorf("disliked set must hold a single entry, got %d", count)
	}
}

func TestRecordInteraction_SaveDelta(t *testing.T) {
	e := newTestEngine()
	p := NewProfile(time.Now())

	_ = e.RecordInteraction(context.Background(), p, "track-9", ActionSave, []Tag{"Jazz", "Chill"}, 0)

	if !p.Saved["track-9"] {
		t.Error("expected track-9 in saved set")
	}
	for _, tag := range []Tag{"Jazz", "Chill"} {
		if got := p.Interests[tag].Score; got != DeltaSave {
			t.Errorf("%s: want %v, got %v", tag, DeltaSave, got)
		}
	}
}

func TestRecordInteraction_CompletionThreshold(t *testing.T) {
	tests := []struct {
		name  string
		ratio float64
		want  float64
	}{
		{"high completion scores", 0.95, DeltaCompleteHigh},
		{"boundary ratio does not score", 0.8, 0},
		{"low ratio does not score", 0.4, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine()
			p := NewProfile(time.Now())

			_ = e.RecordInteraction(context.Background(), p, "t", ActionComplete, []Tag{"Pop"}, tt.ratio)

			if got := p.Interests["Pop"].Score; got != tt.want {
				t.Errorf("ratio %v: want score %v, got %v", tt.ratio, tt.want, got)
			}
			// The event is always logged regardless of score effect.
			if len(p.Interactions) != 1 {
				t.Errorf("expected 1 logged interaction, got %d", len(p.Interactions))
			}
		})
	}
}

func TestRecordInteraction_SkipAlwaysApplies(t *testing.T) {
	e := newTestEngine()
	p := NewProfile(time.Now())

	_ = e.RecordInteraction(context.Background(), p, "t", ActionSkip, []Tag{"Pop"}, 0)

	if got := p.Interests["Pop"].Score; got != DeltaSkipEarly {
		t.Errorf("want %v, got %v", DeltaSkipEarly, got)
	}
}

func TestRecordInteraction_LogRingBound(t *testing.T) {
	e := newTestEngine()
	p := NewProfile(time.Now())
	ctx := context.Background()

	for i := 0; i < MaxInteractions+1; i++ {
		_ = e.RecordInteraction(ctx, p, fmt.Sprintf("track-%d", i), ActionPlay, nil, 0)
	}

	if len(p.Interactions) != MaxInteractions {
		t.Fatalf("want exactly %d retained, got %d", MaxInteractions, len(p.Interactions))
	}
	if p.Interactions[0].ItemID != "track-1" {
		t.Errorf("oldest event must be evicted first, log starts at %s", p.Interactions[0].ItemID)
	}
	if last := p.Interactions[len(p.Interactions)-1].ItemID; last != fmt.Sprintf("track-%d", MaxInteractions) {
		t.Errorf("newest event missing, log ends at %s", last)
	}
}

func TestRecordInteraction_RelistenDelta(t *testing.T) {
	e := newTestEngine()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	e.now = func() time.Time { return base }

	p := NewProfile(base)
	ctx := context.Background()

	// Plays one and two: no relisten credit yet.
	_ = e.RecordInteraction(ctx, p, "t", ActionPlay, []Tag{"Soul"}, 0)
	_ = e.RecordInteraction(ctx, p, "t", ActionPlay, []Tag{"Soul"}, 0)
	if got := p.Interests["Soul"].Score; got != 0 {
		t.Fatalf("no relisten delta expected before third play, got %v", got)
	}

	// Third play within the window: playCount is already 2.
	e.now = func() time.Time { return base.Add(2 * time.Hour) }
	_ = e.RecordInteraction(ctx, p, "t", ActionPlay, []Tag{"Soul"}, 0)
	if got := p.Interests["Soul"].Score; got != DeltaRelisten {
		t.Errorf("want relisten delta %v, got %v", DeltaRelisten, got)
	}

	// Outside the window: no further credit.
	e.now = func() time.Time { return base.Add(2*time.Hour + RelistenWindow) }
	_ = e.RecordInteraction(ctx, p, "t", ActionPlay, []Tag{"Soul"}, 0)
	if got := p.Interests["Soul"].Score; got != DeltaRelisten {
		t.Errorf("stale play must not earn relisten delta, got %v", got)
	}

	if got := p.Stats["t"].PlayCount; got != 4 {
		t.Errorf("want 4 plays counted, got %d", got)
	}
}

// failingSaver always fails, standing in for an unavailable store.
type failingSaver struct{ calls int }

func (s *failingSaver) Save(context.Context, *UserProfile) error {
	s.calls++
	return errors.New("store unavailable")
}

func TestRecordInteraction_PersistFailureIsNonFatal(t *testing.T) {
	saver := &failingSaver{}
	e := NewEngine(DefaultParams(), saver, zerolog.Nop())
	p := NewProfile(time.Now())

	err := e.RecordInteraction(context.Background(), p, "t", ActionLike, []Tag{"Pop"}, 0)

	if err == nil {
		t.Error("expected persist status error")
	}
	if !p.Liked["t"] {
		t.Error("in-memory update must land despite persist failure")
	}
	if saver.calls != 1 {
		t.Errorf("expected a single save per call, got %d", saver.calls)
	}
}

func TestAddListenTime(t *testing.T) {
	e := newTestEngine()
	p := NewProfile(time.Now())

	e.AddListenTime(p, "t", 3*time.Minute)
	e.AddListenTime(p, "t", time.Minute)
	e.AddListenTime(p, "t", -time.Minute) // ignored

	if got := p.Stats["t"].TotalTimeListened; got != 4*time.Minute {
		t.Errorf("want 4m listened, got %v", got)
	}
}
