// TuneFrame - Behavioral Music Recommendation and Offline Cache
// Copyright 2026 TuneFrame Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tuneframe/tuneframe

package api

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tuneframe/tuneframe/internal/cache"
	"github.com/tuneframe/tuneframe/internal/config"
	"github.com/tuneframe/tuneframe/internal/events"
	"github.com/tuneframe/tuneframe/internal/recommend"
	"github.com/tuneframe/tuneframe/internal/recommend/storage"
	"github.com/tuneframe/tuneframe/internal/session"
)

// testFetcher serves canned payloads for admission downloads.
type testFetcher struct {
	payload []byte
}

func (f *testFetcher) Fetch(ctx context.Context, url string) ([]byte, string, error) {
	return f.payload, "audio/ogg", nil
}

type testEnv struct {
	srv     *httptest.Server
	session *session.Session
	store   *cache.Store
}

func testTracks() []recommend.Track {
	return []recommend.Track{
		{ID: "t1", Title: "Neon Nights", Artist: "Midnight Circuit", Genre: "Synthwave", SourceURL: "https://origin.example/t1"},
		{ID: "t2", Title: "Harbor Lights", Artist: "Cedar & Pine", Genre: "Folk", SourceURL: "https://origin.example/t2"},
		{ID: "t3", Title: "Rainy Focus", Artist: "Lo Tapes", Genre: "Lo-Fi", SourceURL: "https://origin.example/t3"},
		{ID: "t4", Title: "Iron Sprint", Artist: "Voltage", Genre: "Metal", SourceURL: "https://origin.example/t4"},
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		t.Fatalf("open badger: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	profiles := storage.NewMemoryStore()
	engine := recommend.NewEngine(recommend.DefaultParams(), profiles, zerolog.Nop())
	sess, err := session.Open(context.Background(), profiles, engine, zerolog.Nop())
	if err != nil {
		t.Fatalf("open session: %v", err)
	}

	store, err := cache.NewStore(db, cache.DefaultLimits(), zerolog.Nop())
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	policy := cache.NewPolicy(store, &testFetcher{payload: []byte("cached-bytes")}, 3, zerolog.Nop())

	bus, err := events.NewBus(sess, policy, zerolog.Nop())
	if err != nil {
		t.Fatalf("new bus: %v", err)
	}
	busCtx, busCancel := context.WithCancel(context.Background())
	busDone := make(chan struct{})
	go func() {
		defer close(busDone)
		_ = bus.Run(busCtx)
	}()
	t.Cleanup(func() {
		busCancel()
		<-busDone
	})
	select {
	case <-bus.Running():
	case <-time.After(5 * time.Second):
		t.Fatal("bus did not start")
	}

	handler := NewHandler(sess, engine, NewStaticCatalog(testTracks()), store, policy, bus)
	router := NewRouter(handler, config.ServerConfig{}, zerolog.Nop())

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &testEnv{srv: srv, session: sess, store: store}
}

func (e *testEnv) postJSON(t *testing.T, path string, body interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(e.srv.URL+path, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

func (e *testEnv) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(e.srv.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	return resp
}

func decodeResponse(t *testing.T, resp *http.Response) APIResponse {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	var out APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return out
}

func waitFor(t *testing.T, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	resp := env.get(t, "/health")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("want 200, got %d", resp.StatusCode)
	}
	body := decodeResponse(t, resp)
	if !body.Success {
		t.Error("health must report success")
	}
}

func TestRecordInteraction_Like(t *testing.T) {
	env := newTestEnv(t)

	resp := env.postJSON(t, "/api/v1/interactions", InteractionRequest{
		TrackID: "t1",
		Action:  "like",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("want 200, got %d", resp.StatusCode)
	}
	if body := decodeResponse(t, resp); !body.Success {
		t.Errorf("unexpected envelope: %+v", body)
	}

	env.session.View(func(p *recommend.UserProfile) {
		if !p.Liked["t1"] {
			t.Error("like must reach the profile")
		}
		// Tags were resolved from the catalog record.
		if p.Interests["Synthwave"] == nil || p.Interests["Synthwave"].Score <= 0 {
			t.Error("catalog tags must feed the interest model")
		}
	})
}

func TestRecordInteraction_Validation(t *testing.T) {
	env := newTestEnv(t)

	cases := []struct {
		name string
		body interface{}
	}{
		{"unknown action", InteractionRequest{TrackID: "t1", Action: "shrug"}},
		{"playback verb rejected", InteractionRequest{TrackID: "t1", Action: "play"}},
		{"missing track", InteractionRequest{Action: "like"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := env.postJSON(t, "/api/v1/interactions", tc.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("want 400, got %d", resp.StatusCode)
			}
			body := decodeResponse(t, resp)
			if body.Error == nil || body.Error.Code != ErrCodeValidationFailed {
				t.Errorf("want validation error, got %+v", body.Error)
			}
		})
	}
}

func TestRecordInteraction_MalformedJSON(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Post(env.srv.URL+"/api/v1/interactions", "application/json", bytes.NewReader([]byte("{")))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("want 400, got %d", resp.StatusCode)
	}
	_ = resp.Body.Close()
}

func TestRecommendations(t *testing.T) {
	env := newTestEnv(t)

	// Dislike t4 so it must never appear.
	resp := env.postJSON(t, "/api/v1/interactions", InteractionRequest{TrackID: "t4", Action: "dislike"})
	_ = resp.Body.Close()

	resp = env.get(t, "/api/v1/recommendations?limit=3")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("want 200, got %d", resp.StatusCode)
	}
	body := decodeResponse(t, resp)

	var slate []recommend.ScoredTrack
	raw, _ := json.Marshal(body.Data)
	if err := json.Unmarshal(raw, &slate); err != nil {
		t.Fatalf("decoding slate: %v", err)
	}
	if len(slate) > 3 {
		t.Errorf("limit must cap the slate, got %d", len(slate))
	}
	for _, st := range slate {
		if st.Track.ID == "t4" {
			t.Error("disliked track must never be recommended")
		}
	}
}

func TestRecommendations_BadLimit(t *testing.T) {
	env := newTestEnv(t)

	resp := env.get(t, "/api/v1/recommendations?limit=zero")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("want 400, got %d", resp.StatusCode)
	}
	_ = resp.Body.Close()
}

func TestSimilar(t *testing.T) {
	env := newTestEnv(t)

	resp := env.get(t, "/api/v1/similar/t1")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("want 200, got %d", resp.StatusCode)
	}
	_ = resp.Body.Close()

	resp = env.get(t, "/api/v1/similar/absent")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown track must 404, got %d", resp.StatusCode)
	}
	_ = resp.Body.Close()
}

func TestMoodsAndInterests(t *testing.T) {
	env := newTestEnv(t)

	resp := env.postJSON(t, "/api/v1/interactions", InteractionRequest{TrackID: "t3", Action: "like"})
	_ = resp.Body.Close()

	resp = env.get(t, "/api/v1/moods/Focus")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("moods: want 200, got %d", resp.StatusCode)
	}
	_ = resp.Body.Close()

	resp = env.get(t, "/api/v1/interests")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("interests: want 200, got %d", resp.StatusCode)
	}
	body := decodeResponse(t, resp)
	if body.Meta == nil || body.Meta.Count == 0 {
		t.Error("interests must not be empty after a like")
	}
}

func TestPlays_ThresholdCachesTrack(t *testing.T) {
	env := newTestEnv(t)

	var last APIResponse
	for i := 0; i < 3; i++ {
		resp := env.postJSON(t, "/api/v1/plays", PlayRequest{TrackID: "t1"})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("play %d: want 200, got %d", i+1, resp.StatusCode)
		}
		last = decodeResponse(t, resp)
	}

	data, ok := last.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("unexpected data shape: %T", last.Data)
	}
	if data["should_cache"] != true {
		t.Errorf("third play must cross the threshold: %+v", data)
	}
	if data["play_count"].(float64) != 3 {
		t.Errorf("want play_count 3, got %v", data["play_count"])
	}

	// Admission runs in the background.
	waitFor(t, func() bool { return env.store.IsCached("t1") }, "background admission")

	// Play also reaches the taste recorder through the bus.
	waitFor(t, func() bool {
		plays := 0
		env.session.View(func(p *recommend.UserProfile) {
			if stat := p.Stats["t1"]; stat != nil {
				plays = stat.PlayCount
			}
		})
		return plays == 3
	}, "play stats")
}

func TestPlays_SkipAndComplete(t *testing.T) {
	env := newTestEnv(t)

	resp := env.postJSON(t, "/api/v1/plays/skip", SkipRequest{TrackID: "t2"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("skip: want 200, got %d", resp.StatusCode)
	}
	_ = resp.Body.Close()

	resp = env.postJSON(t, "/api/v1/plays/complete", CompletionRequest{
		TrackID:         "t2",
		CompletionRatio: 0.92,
		ListenedMs:      180000,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("complete: want 200, got %d", resp.StatusCode)
	}
	_ = resp.Body.Close()

	waitFor(t, func() bool {
		var done bool
		env.session.View(func(p *recommend.UserProfile) {
			stat := p.Stats["t2"]
			done = stat != nil && stat.TotalTimeListened == 3*time.Minute
		})
		return done
	}, "completion to reach the profile")
}

func TestCacheEndpoints(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Not cached yet.
	req, _ := http.NewRequest(http.MethodHead, env.srv.URL+"/api/v1/cache/t1", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("HEAD uncached: want 404, got %d", resp.StatusCode)
	}
	_ = resp.Body.Close()

	if err := env.store.Store(ctx, "t1", []byte("payload-bytes"), cache.Entry{MIMEType: "audio/ogg"}); err != nil {
		t.Fatal(err)
	}

	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("HEAD cached: want 204, got %d", resp.StatusCode)
	}
	_ = resp.Body.Close()

	resp = env.get(t, "/api/v1/cache/t1")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET payload: want 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "audio/ogg" {
		t.Errorf("want audio/ogg, got %q", ct)
	}
	payload, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if string(payload) != "payload-bytes" {
		t.Errorf("wrong payload: %q", payload)
	}

	resp = env.get(t, "/api/v1/cache/stats")
	stats := decodeResponse(t, resp)
	if !stats.Success {
		t.Error("stats must succeed")
	}

	resp = env.get(t, "/api/v1/cache/")
	listing := decodeResponse(t, resp)
	if listing.Meta == nil || listing.Meta.Count != 1 {
		t.Errorf("want 1 cache entry in listing, got %+v", listing.Meta)
	}

	delReq, _ := http.NewRequest(http.MethodDelete, env.srv.URL+"/api/v1/cache/", nil)
	resp, err = http.DefaultClient.Do(delReq)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("DELETE: want 204, got %d", resp.StatusCode)
	}
	_ = resp.Body.Close()

	if env.store.IsCached("t1") {
		t.Error("clear must empty the cache")
	}
}

func TestRequestIDPropagation(t *testing.T) {
	env := newTestEnv(t)

	req, _ := http.NewRequest(http.MethodGet, env.srv.URL+"/health", nil)
	req.Header.Set("X-Request-ID", "test-req-42")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	if got := resp.Header.Get("X-Request-ID"); got != "test-req-42" {
		t.Errorf("request id must round trip, got %q", got)
	}
	body := decodeResponse(t, resp)
	if body.Meta == nil || body.Meta.RequestID != "test-req-42" {
		t.Errorf("request id must appear in meta: %+v", body.Meta)
	}
}

func TestStaticCatalog_LoadFromFile(t *testing.T) {
	path := t.TempDir() + "/catalog.json"
	data, err := json.Marshal(testTracks())
	if err != nil {
		t.Fatal(err)
	}
	if err := writeFile(path, data); err != nil {
		t.Fatal(err)
	}

	catalog, err := LoadStaticCatalog(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(catalog.Tracks()) != 4 {
		t.Errorf("want 4 tracks, got %d", len(catalog.Tracks()))
	}
	if _, ok := catalog.TrackByID("t2"); !ok {
		t.Error("lookup by id must work")
	}
}

func TestStaticCatalog_RejectsDuplicates(t *testing.T) {
	path := t.TempDir() + "/catalog.json"
	tracks := []recommend.Track{{ID: "dup"}, {ID: "dup"}}
	data, _ := json.Marshal(tracks)
	if err := writeFile(path, data); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadStaticCatalog(path, zerolog.Nop()); err == nil {
		t.Error("duplicate ids must be rejected")
	}
}

func TestStaticCatalog_EmptyPath(t *testing.T) {
	catalog, err := LoadStaticCatalog("", zerolog.Nop())
	if err != nil {
		t.Fatalf("empty path must yield empty catalog: %v", err)
	}
	if len(catalog.Tracks()) != 0 {
		t.Error("empty catalog expected")
	}
}

func writeFile(path string, data []byte) error {
	return os.WriteFile(path, data, 0o600)
}
