// TuneFrame - Behavioral Music Recommendation and Offline Cache
// Copyright 2026 TuneFrame Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tuneframe/tuneframe

package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

// stubFetcher returns canned bytes or a canned error.
type stubFetcher struct {
	payload  []byte
	mimeType string
	err      error
	calls    int
}

func (f *stubFetcher) Fetch(ctx context.Context, url string) ([]byte, string, error) {
	f.calls++
	if f.err != nil {
		return nil, "", f.err
	}
	return f.payload, f.mimeType, nil
}

func TestPolicy_RecordPlayThreshold(t *testing.T) {
	s := newTestStore(t, openTestDB(t), DefaultLimits())
	policy := NewPolicy(s, nil, 3, zerolog.Nop())
	ctx := context.Background()

	want := []struct {
		count       int
		shouldCache bool
	}{
		{1, false},
		{2, false},
		{3, true},
		{4, false},
		{5, false},
	}
	for i, w := range want {
		got, err := policy.RecordPlay(ctx, "track-1")
		if err != nil {
			t.Fatalf("play %d: %v", i+1, err)
		}
		if got.PlayCount != w.count {
			t.Errorf("play %d: count = %d, want %d", i+1, got.PlayCount, w.count)
		}
		if got.ShouldCache != w.shouldCache {
			t.Errorf("play %d: shouldCache = %v, want %v", i+1, got.ShouldCache, w.shouldCache)
		}
	}
}

func TestPolicy_RecordPlayIndependentPerTrack(t *testing.T) {
	s := newTestStore(t, openTestDB(t), DefaultLimits())
	policy := NewPolicy(s, nil, 3, zerolog.Nop())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := policy.RecordPlay(ctx, "track-a"); err != nil {
			t.Fatal(err)
		}
	}
	got, err := policy.RecordPlay(ctx, "track-b")
	if err != nil {
		t.Fatal(err)
	}
	if got.PlayCount != 1 || got.ShouldCache {
		t.Errorf("counters must be per track, got %+v", got)
	}
}

func TestPolicy_RecordPlayAlreadyCached(t *testing.T) {
	s := newTestStore(t, openTestDB(t), DefaultLimits())
	policy := NewPolicy(s, nil, 1, zerolog.Nop())
	ctx := context.Background()

	if err := s.Store(ctx, "track-1", []byte("data"), Entry{}); err != nil {
		t.Fatal(err)
	}
	got, err := policy.RecordPlay(ctx, "track-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.ShouldCache {
		t.Error("a cached track must not trigger admission again")
	}
}

func TestPolicy_RecordPlayEmptyID(t *testing.T) {
	s := newTestStore(t, openTestDB(t), DefaultLimits())
	policy := NewPolicy(s, nil, 3, zerolog.Nop())

	if _, err := policy.RecordPlay(context.Background(), ""); err == nil {
		t.Error("empty id must be rejected")
	}
}

func TestPolicy_AdmitStoresFetchedPayload(t *testing.T) {
	s := newTestStore(t, openTestDB(t), DefaultLimits())
	fetcher := &stubFetcher{payload: []byte("stream-bytes"), mimeType: "audio/mpeg"}
	policy := NewPolicy(s, fetcher, 3, zerolog.Nop())
	ctx := context.Background()

	track := TrackRef{
		ID:        "track-1",
		Title:     "Harbor Lights",
		Artist:    "Cedar & Pine",
		SourceURL: "https://origin.example/t/track-1",
	}
	if err := policy.Admit(ctx, track); err != nil {
		t.Fatalf("admit: %v", err)
	}

	payload, entry, err := s.Payload(ctx, "track-1")
	if err != nil {
		t.Fatal(err)
	}
	if string(payload) != "stream-bytes" {
		t.Errorf("wrong payload cached: %q", payload)
	}
	if entry.MIMEType != "audio/mpeg" || entry.Title != "Harbor Lights" {
		t.Errorf("metadata not carried through admission: %+v", entry)
	}
}

func TestPolicy_AdmitFetchFailureLeavesTrackUncached(t *testing.T) {
	s := newTestStore(t, openTestDB(t), DefaultLimits())
	fetchErr := errors.New("origin unreachable")
	fetcher := &stubFetcher{err: fetchErr}
	policy := NewPolicy(s, fetcher, 3, zerolog.Nop())

	track := TrackRef{ID: "track-1", SourceURL: "https://origin.example/t/track-1"}
	err := policy.Admit(context.Background(), track)
	if !errors.Is(err, fetchErr) {
		t.Fatalf("want fetch error surfaced, got %v", err)
	}
	if s.IsCached("track-1") {
		t.Error("failed fetch must leave the track uncached")
	}
	if fetcher.calls != 1 {
		t.Errorf("no retry allowed, got %d fetch calls", fetcher.calls)
	}
}

func TestPolicy_AdmitSkipsCachedTrack(t *testing.T) {
	s := newTestStore(t, openTestDB(t), DefaultLimits())
	fetcher := &stubFetcher{payload: []byte("x")}
	policy := NewPolicy(s, fetcher, 3, zerolog.Nop())
	ctx := context.Background()

	if err := s.Store(ctx, "track-1", []byte("existing"), Entry{}); err != nil {
		t.Fatal(err)
	}
	track := TrackRef{ID: "track-1", SourceURL: "https://origin.example/t/track-1"}
	if err := policy.Admit(ctx, track); err != nil {
		t.Fatal(err)
	}
	if fetcher.calls != 0 {
		t.Error("admitting a cached track must not fetch")
	}
}

func TestPolicy_AdmitRequiresSourceURL(t *testing.T) {
	s := newTestStore(t, openTestDB(t), DefaultLimits())
	policy := NewPolicy(s, &stubFetcher{}, 3, zerolog.Nop())

	if err := policy.Admit(context.Background(), TrackRef{ID: "track-1"}); err == nil {
		t.Error("missing source URL must be rejected")
	}
}
