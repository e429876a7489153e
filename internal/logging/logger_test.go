// TuneFrame - Behavioral Music Recommendation and Offline Cache
// Copyright 2026 TuneFrame Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tuneframe/tuneframe

package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestInit_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Timestamp: false, Output: &buf})
	defer Init(DefaultConfig())

	Info().Str("track", "t-1").Msg("cached")

	out := buf.String()
	if !strings.Contains(out, `"track":"t-1"`) {
		t.Errorf("expected structured field in output, got %q", out)
	}
	if !strings.Contains(out, `"message":"cached"`) {
		t.Errorf("expected message in output, got %q", out)
	}
}

func TestInit_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "warn", Format: "json", Timestamp: false, Output: &buf})
	defer Init(DefaultConfig())

	Debug().Msg("should be dropped")
	Warn().Msg("should appear")

	out := buf.String()
	if strings.Contains(out, "should be dropped") {
		t.Errorf("debug message leaked through warn level: %q", out)
	}
	if !strings.Contains(out, "should appear") {
		t.Errorf("warn message missing: %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"WARN", zerolog.WarnLevel},
		{"bogus", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSlogHandler_WritesThroughZerolog(t *testing.T) {
	var buf bytes.Buffer
	zl := zerolog.New(&buf)

	slogger := slog.New(NewSlogHandlerWithLogger(zl))
	slogger.Info("service started", "service", "events")

	out := buf.String()
	if !strings.Contains(out, `"service":"events"`) {
		t.Errorf("expected slog attr as zerolog field, got %q", out)
	}
	if !strings.Contains(out, "service started") {
		t.Errorf("expected message, got %q", out)
	}
}

func TestSlogHandler_Groups(t *testing.T) {
	var buf bytes.Buffer
	zl := zerolog.New(&buf)

	slogger := slog.New(NewSlogHandlerWithLogger(zl)).WithGroup("supervisor")
	slogger.Warn("restarting", "service", "api")

	out := buf.String()
	if !strings.Contains(out, `"supervisor.service":"api"`) {
		t.Errorf("expected group-prefixed field, got %q", out)
	}
}

func TestRequestIDContext(t *testing.T) {
	ctx := context.Background()

	if got := RequestIDFromContext(ctx); got != "" {
		t.Errorf("expected empty request ID on fresh context, got %q", got)
	}

	ctx = ContextWithRequestID(ctx, "req-42")
	if got := RequestIDFromContext(ctx); got != "req-42" {
		t.Errorf("expected req-42, got %q", got)
	}
}

func TestLoggerFromContext_Fallback(t *testing.T) {
	// Without a stored logger the global one is returned; it must be usable.
	l := LoggerFromContext(context.Background())
	l.Debug().Msg("no panic expected")

	var buf bytes.Buffer
	custom := zerolog.New(&buf)
	ctx := ContextWithLogger(context.Background(), custom)

	got := LoggerFromContext(ctx)
	got.Info().Msg("stored")
	if !strings.Contains(buf.String(), "stored") {
		t.Error("expected stored logger to be returned from context")
	}
}
