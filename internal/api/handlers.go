// TuneFrame - Behavioral Music Recommendation and Offline Cache
// Copyright 2026 TuneFrame Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tuneframe/tuneframe

package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tuneframe/tuneframe/internal/cache"
	"github.com/tuneframe/tuneframe/internal/events"
	"github.com/tuneframe/tuneframe/internal/logging"
	"github.com/tuneframe/tuneframe/internal/metrics"
	"github.com/tuneframe/tuneframe/internal/recommend"
	"github.com/tuneframe/tuneframe/internal/session"
)

const (
	defaultSlateLimit = 20
	maxSlateLimit     = 100
)

// Handler holds the wired subsystems behind the HTTP surface.
type Handler struct {
	session *session.Session
	engine  *recommend.Engine
	catalog CatalogProvider
	store   *cache.Store
	policy  *cache.Policy
	bus     *events.Bus

	startedAt time.Time
}

// NewHandler wires the handler.
func NewHandler(
	sess *session.Session,
	engine *recommend.Engine,
	catalog CatalogProvider,
	store *cache.Store,
	policy *cache.Policy,
	bus *events.Bus,
) *Handler {
	return &Handler{
		session:   sess,
		engine:    engine,
		catalog:   catalog,
		store:     store,
		policy:    policy,
		bus:       bus,
		startedAt: time.Now(),
	}
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	rw.Success(map[string]interface{}{
		"status":         "ok",
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
		"session_id":     h.session.ID,
	})
}

// RecordInteraction handles POST /api/v1/interactions: explicit taste verbs
// (like, dislike, save).
func (h *Handler) RecordInteraction(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req InteractionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rw.BadRequest("Request body must be valid JSON")
		return
	}
	if details := validateRequest(&req); details != nil {
		rw.ValidationFailed(details)
		return
	}

	tags := h.resolveTags(req.TrackID, req.Tags)
	start := time.Now()
	if err := h.session.Record(r.Context(), req.TrackID, recommend.Action(req.Action), tags, 0); err != nil {
		rw.BadRequest(err.Error())
		return
	}
	metrics.ObserveRecommend("record_interaction", start)

	rw.Success(map[string]interface{}{
		"recorded": true,
		"track_id": req.TrackID,
		"action":   req.Action,
	})
}

// Recommendations handles GET /api/v1/recommendations.
func (h *Handler) Recommendations(w http.ResponseWriter, r *http.Request) {
	h.slate(w, r, "recommendations", func(profile *recommend.UserProfile, limit int) []recommend.ScoredTrack {
		return h.engine.Recommend(h.catalog.Tracks(), profile, limit)
	})
}

// ForYou handles GET /api/v1/foryou.
func (h *Handler) ForYou(w http.ResponseWriter, r *http.Request) {
	h.slate(w, r, "foryou", func(profile *recommend.UserProfile, limit int) []recommend.ScoredTrack {
		return h.engine.ForYouMix(h.catalog.Tracks(), profile, limit)
	})
}

// Moods handles GET /api/v1/moods/{mood}.
func (h *Handler) Moods(w http.ResponseWriter, r *http.Request) {
	mood := chi.URLParam(r, "mood")
	h.slate(w, r, "moods", func(profile *recommend.UserProfile, limit int) []recommend.ScoredTrack {
		return h.engine.TracksByMood(h.catalog.Tracks(), profile, mood, limit)
	})
}

// slate is the shared shape of the ranked-list endpoints.
func (h *Handler) slate(w http.ResponseWriter, r *http.Request, operation string, rank func(*recommend.UserProfile, int) []recommend.ScoredTrack) {
	rw := NewResponseWriter(w, r)

	limit, err := limitParam(r, defaultSlateLimit, maxSlateLimit)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}

	start := time.Now()
	var result []recommend.ScoredTrack
	h.session.View(func(profile *recommend.UserProfile) {
		result = rank(profile, limit)
	})
	metrics.ObserveRecommend(operation, start)

	rw.SuccessWithCount(result, len(result))
}

// Similar handles GET /api/v1/similar/{id}.
func (h *Handler) Similar(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	id := chi.URLParam(r, "id")
	target, ok := h.catalog.TrackByID(id)
	if !ok {
		rw.NotFound(fmt.Sprintf("Track %s not in catalog", id))
		return
	}
	limit, err := limitParam(r, defaultSlateLimit, maxSlateLimit)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}

	start := time.Now()
	result := h.engine.SimilarTracks(target, h.catalog.Tracks(), limit)
	metrics.ObserveRecommend("similar", start)

	rw.SuccessWithCount(result, len(result))
}

// Interests handles GET /api/v1/interests.
func (h *Handler) Interests(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	limit, err := limitParam(r, 5, len(recommend.Taxonomy))
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}

	interests := h.session.TopInterests(limit)
	rw.SuccessWithCount(interests, len(interests))
}

// RecordPlay handles POST /api/v1/plays: counts the play, publishes the
// playback.started event for the taste recorder, and when this play crosses
// the caching threshold starts the background download.
func (h *Handler) RecordPlay(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req PlayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rw.BadRequest("Request body must be valid JSON")
		return
	}
	if details := validateRequest(&req); details != nil {
		rw.ValidationFailed(details)
		return
	}
	track := h.resolveTrack(req)

	result, err := h.policy.RecordPlay(r.Context(), req.TrackID)
	if err != nil {
		reqLogger := logging.LoggerFromContext(r.Context())
		reqLogger.Error().Err(err).Str("track_id", req.TrackID).Msg("Play count failed")
		rw.InternalError("Failed to count play")
		return
	}

	if err := h.bus.Publish(events.TopicPlaybackStarted, events.PlaybackEvent{
		TrackID:    req.TrackID,
		Title:      track.Title,
		Artist:     track.Artist,
		Genre:      track.Genre,
		SourceURL:  track.SourceURL,
		Tags:       h.resolveTags(req.TrackID, req.Tags),
		OccurredAt: time.Now(),
	}); err != nil {
		reqLogger := logging.LoggerFromContext(r.Context())
		reqLogger.Error().Err(err).Str("track_id", req.TrackID).Msg("Playback event publish failed")
	}

	if result.ShouldCache {
		if track.SourceURL == "" {
			reqLogger := logging.LoggerFromContext(r.Context())
			reqLogger.Debug().
				Str("track_id", req.TrackID).
				Msg("Caching skipped, no source URL")
		} else {
			h.bus.RequestAdmission(cache.TrackRef{
				ID:        req.TrackID,
				Title:     track.Title,
				Artist:    track.Artist,
				SourceURL: track.SourceURL,
			})
		}
	}

	rw.Success(map[string]interface{}{
		"track_id":     req.TrackID,
		"play_count":   result.PlayCount,
		"should_cache": result.ShouldCache,
		"cached":       h.store.IsCached(req.TrackID),
	})
}

// RecordSkip handles POST /api/v1/plays/skip. The player calls this only for
// skips inside its early-skip window.
func (h *Handler) RecordSkip(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req SkipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rw.BadRequest("Request body must be valid JSON")
		return
	}
	if details := validateRequest(&req); details != nil {
		rw.ValidationFailed(details)
		return
	}

	if err := h.bus.Publish(events.TopicPlaybackSkipped, events.PlaybackEvent{
		TrackID:    req.TrackID,
		Tags:       h.resolveTags(req.TrackID, req.Tags),
		OccurredAt: time.Now(),
	}); err != nil {
		rw.InternalError("Failed to publish playback event")
		return
	}
	rw.Success(map[string]interface{}{"recorded": true, "track_id": req.TrackID})
}

// RecordCompletion handles POST /api/v1/plays/complete.
func (h *Handler) RecordCompletion(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req CompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rw.BadRequest("Request body must be valid JSON")
		return
	}
	if details := validateRequest(&req); details != nil {
		rw.ValidationFailed(details)
		return
	}

	if err := h.bus.Publish(events.TopicPlaybackCompleted, events.PlaybackEvent{
		TrackID:         req.TrackID,
		Tags:            h.resolveTags(req.TrackID, req.Tags),
		CompletionRatio: req.CompletionRatio,
		Listened:        time.Duration(req.ListenedMs) * time.Millisecond,
		OccurredAt:      time.Now(),
	}); err != nil {
		rw.InternalError("Failed to publish playback event")
		return
	}
	rw.Success(map[string]interface{}{"recorded": true, "track_id": req.TrackID})
}

// CacheStats handles GET /api/v1/cache/stats.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(h.store.Stats())
}

// CacheEntries handles GET /api/v1/cache.
func (h *Handler) CacheEntries(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	entries, err := h.store.Entries(r.Context())
	if err != nil {
		reqLogger := logging.LoggerFromContext(r.Context())
		reqLogger.Error().Err(err).Msg("Cache listing failed")
		rw.InternalError("Failed to list cache entries")
		return
	}
	rw.SuccessWithCount(entries, len(entries))
}

// CacheHead handles HEAD /api/v1/cache/{id}: cheap cached-or-not probe.
func (h *Handler) CacheHead(w http.ResponseWriter, r *http.Request) {
	if h.store.IsCached(chi.URLParam(r, "id")) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.WriteHeader(http.StatusNotFound)
}

// CachePayload handles GET /api/v1/cache/{id}: serves the raw cached bytes.
// Reading counts as an access for eviction ordering.
func (h *Handler) CachePayload(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	payload, entry, err := h.store.Payload(r.Context(), id)
	if err != nil {
		if errors.Is(err, cache.ErrNotCached) {
			NewResponseWriter(w, r).NotFound(fmt.Sprintf("Track %s is not cached", id))
			return
		}
		reqLogger := logging.LoggerFromContext(r.Context())
		reqLogger.Error().Err(err).Str("track_id", id).Msg("Cache read failed")
		NewResponseWriter(w, r).Error(http.StatusInternalServerError, ErrCodePayloadUnreadable, "Failed to read cached payload")
		return
	}

	w.Header().Set("Content-Type", entry.MIMEType)
	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(payload)))
	w.Header().Set("X-Cached-At", entry.CachedAt.UTC().Format(time.RFC3339))
	if _, err := w.Write(payload); err != nil {
		reqLogger := logging.LoggerFromContext(r.Context())
		reqLogger.Debug().Err(err).Str("track_id", id).Msg("Payload write aborted")
	}
}

// CacheClear handles DELETE /api/v1/cache: drops all entries and play
// counts.
func (h *Handler) CacheClear(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if err := h.store.Clear(r.Context()); err != nil {
		reqLogger := logging.LoggerFromContext(r.Context())
		reqLogger.Error().Err(err).Msg("Cache clear failed")
		rw.InternalError("Failed to clear cache")
		return
	}
	rw.NoContent()
}

// resolveTrack fills play-request fields from the catalog when the client
// sent only an id.
func (h *Handler) resolveTrack(req PlayRequest) recommend.Track {
	if track, ok := h.catalog.TrackByID(req.TrackID); ok {
		return track
	}
	return recommend.Track{
		ID:        req.TrackID,
		Title:     req.Title,
		Artist:    req.Artist,
		SourceURL: req.SourceURL,
	}
}

// resolveTags prefers client-sent tags and falls back to extracting them
// from the catalog record.
func (h *Handler) resolveTags(trackID string, tags []string) []recommend.Tag {
	if len(tags) > 0 {
		return tags
	}
	if track, ok := h.catalog.TrackByID(trackID); ok {
		return recommend.ExtractTags(track)
	}
	return nil
}
