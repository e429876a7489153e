// TuneFrame - Behavioral Music Recommendation and Offline Cache
// Copyright 2026 TuneFrame Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tuneframe/tuneframe

// HTTP request bodies and query parameters with go-playground/validator
// tags, validated before any handler logic runs.
package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
)

// validate is the shared validator instance; validator.Validate is safe for
// concurrent use.
var validate = validator.New(validator.WithRequiredStructEnabled())

// InteractionRequest is the body of POST /api/v1/interactions.
type InteractionRequest struct {
	TrackID string `json:"track_id" validate:"required,min=1,max=256"`

	// Action is the explicit taste verb to record. Playback verbs (play,
	// skip, complete) arrive through the /plays endpoints instead.
	Action string `json:"action" validate:"required,oneof=like dislike save"`

	// Tags describe the track; when empty the catalog's tags are used.
	Tags []string `json:"tags,omitempty" validate:"max=32,dive,min=1,max=64"`
}

// PlayRequest is the body of POST /api/v1/plays.
type PlayRequest struct {
	TrackID string `json:"track_id" validate:"required,min=1,max=256"`

	Title  string `json:"title,omitempty" validate:"max=512"`
	Artist string `json:"artist,omitempty" validate:"max=512"`

	// SourceURL is where the payload can be fetched from if this play
	// crosses the caching threshold. Optional; without it the track is
	// counted but never cached.
	SourceURL string `json:"source_url,omitempty" validate:"omitempty,url,max=2048"`

	Tags []string `json:"tags,omitempty" validate:"max=32,dive,min=1,max=64"`
}

// CompletionRequest is the body of POST /api/v1/plays/complete.
type CompletionRequest struct {
	TrackID         string   `json:"track_id" validate:"required,min=1,max=256"`
	CompletionRatio float64  `json:"completion_ratio" validate:"min=0,max=1"`
	ListenedMs      int64    `json:"listened_ms,omitempty" validate:"min=0"`
	Tags            []string `json:"tags,omitempty" validate:"max=32,dive,min=1,max=64"`
}

// SkipRequest is the body of POST /api/v1/plays/skip.
type SkipRequest struct {
	TrackID string   `json:"track_id" validate:"required,min=1,max=256"`
	Tags    []string `json:"tags,omitempty" validate:"max=32,dive,min=1,max=64"`
}

// validateRequest runs struct validation and flattens the failures into
// field/constraint pairs suitable for an error response.
func validateRequest(v interface{}) []string {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return []string{err.Error()}
	}

	details := make([]string, 0, len(errs))
	for _, fe := range errs {
		details = append(details, fmt.Sprintf("%s: failed %q constraint", fe.Field(), fe.Tag()))
	}
	return details
}

// limitParam reads a positive "limit" query parameter with a default and an
// upper bound.
func limitParam(r *http.Request, def, max int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return 0, fmt.Errorf("limit must be a positive integer, got %q", raw)
	}
	if limit > max {
		limit = max
	}
	return limit, nil
}
