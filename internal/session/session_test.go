// TuneFrame - Behavioral Music Recommendation and Offline Cache
// Copyright 2026 TuneFrame Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tuneframe/tuneframe

package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tuneframe/tuneframe/internal/recommend"
	"github.com/tuneframe/tuneframe/internal/recommend/storage"
)

func newTestSession(t *testing.T) (*Session, storage.Store) {
	t.Helper()
	store := storage.NewMemoryStore()
	engine := recommend.NewEngine(recommend.DefaultParams(), store, zerolog.Nop())
	s, err := Open(context.Background(), store, engine, zerolog.Nop())
	if err != nil {
		t.Fatalf("open session: %v", err)
	}
	return s, store
}

func TestOpen_LoadsAndIdentifies(t *testing.T) {
	s, _ := newTestSession(t)

	if s.ID == "" {
		t.Error("session must have an id")
	}
	s.View(func(p *recommend.UserProfile) {
		if p == nil || p.ID == "" {
			t.Error("session must own a loaded profile")
		}
	})
}

func TestRecord_MutatesAndPersists(t *testing.T) {
	s, store := newTestSession(t)
	ctx := context.Background()

	err := s.Record(ctx, "track-1", recommend.ActionLike, []recommend.Tag{"Jazz"}, 0)
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	s.View(func(p *recommend.UserProfile) {
		if !p.Liked["track-1"] {
			t.Error("like must reach the profile")
		}
	})

	// A fresh load from the store must see the persisted like.
	reloaded, err := store.LoadOrCreate(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !reloaded.Liked["track-1"] {
		t.Error("interaction must be persisted")
	}
}

func TestRecord_RejectsInvalidAction(t *testing.T) {
	s, _ := newTestSession(t)

	if err := s.Record(context.Background(), "track-1", recommend.Action("shrug"), nil, 0); err == nil {
		t.Error("invalid action must be rejected")
	}
}

func TestRecord_PersistFailureIsNonFatal(t *testing.T) {
	store := storage.NewMemoryStore()
	failing := &failingStore{Store: store}
	engine := recommend.NewEngine(recommend.DefaultParams(), failing, zerolog.Nop())
	s, err := Open(context.Background(), failing, engine, zerolog.Nop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	failing.fail = true
	err = s.Record(context.Background(), "track-1", recommend.ActionLike, []recommend.Tag{"Jazz"}, 0)
	if err != nil {
		t.Fatalf("persist failure must not fail the record: %v", err)
	}
	s.View(func(p *recommend.UserProfile) {
		if !p.Liked["track-1"] {
			t.Error("in-memory update must survive a persist failure")
		}
	})
}

func TestAddListenTime_Accumulates(t *testing.T) {
	s, _ := newTestSession(t)
	ctx := context.Background()

	s.AddListenTime(ctx, "track-1", 3*time.Minute)
	s.AddListenTime(ctx, "track-1", 2*time.Minute)

	s.View(func(p *recommend.UserProfile) {
		stat := p.Stats["track-1"]
		if stat == nil || stat.TotalTimeListened != 5*time.Minute {
			t.Errorf("want 5m listened, got %+v", stat)
		}
	})
}

func TestSession_ConcurrentRecords(t *testing.T) {
	s, _ := newTestSession(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Record(ctx, "track-1", recommend.ActionPlay, []recommend.Tag{"Rock"}, 0)
		}()
	}
	wg.Wait()

	s.View(func(p *recommend.UserProfile) {
		if got := p.Stats["track-1"].PlayCount; got != 20 {
			t.Errorf("want 20 plays, got %d", got)
		}
	})
}

func TestClose_PersistsFinalState(t *testing.T) {
	s, store := newTestSession(t)
	ctx := context.Background()

	s.With(ctx, func(p *recommend.UserProfile) {
		p.Saved["track-9"] = true
	})
	if err := s.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}

	reloaded, err := store.LoadOrCreate(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !reloaded.Saved["track-9"] {
		t.Error("final state must be persisted at close")
	}
}

// failingStore wraps a storage.Store and fails saves on demand.
type failingStore struct {
	storage.Store
	mu   sync.Mutex
	fail bool
}

func (f *failingStore) Save(ctx context.Context, profile *recommend.UserProfile) error {
	f.mu.Lock()
	shouldFail := f.fail
	f.mu.Unlock()
	if shouldFail {
		return context.DeadlineExceeded
	}
	return f.Store.Save(ctx, profile)
}
