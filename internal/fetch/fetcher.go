// TuneFrame - Behavioral Music Recommendation and Offline Cache
// Copyright 2026 TuneFrame Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tuneframe/tuneframe

// Package fetch retrieves track payloads from their origin for cache
// admission. The HTTP fetcher guards the origin with a circuit breaker and a
// rate limiter: opportunistic caching is background work and must never
// hammer a failing or slow source. There is no retry; a failed fetch is the
// caller's signal to abandon the admission.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tuneframe/tuneframe/internal/config"
	"github.com/tuneframe/tuneframe/internal/metrics"
)

// ErrRejected is returned when the breaker or limiter refuses the fetch
// before any request is made.
var ErrRejected = errors.New("fetch: rejected by breaker or limiter")

// fetchResult carries the payload through the breaker.
type fetchResult struct {
	payload  []byte
	mimeType string
}

// HTTPFetcher downloads payloads over HTTP with breaker and rate-limit
// protection.
type HTTPFetcher struct {
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[fetchResult]
	limiter *rate.Limiter
	maxBody int64
	logger  zerolog.Logger
}

// NewHTTPFetcher builds a fetcher from config. maxBody bounds the response
// size read into memory; pass the cache's per-item ceiling so oversized
// origins fail here instead of after a full download.
func NewHTTPFetcher(cfg config.FetchConfig, maxBody int64, logger zerolog.Logger) *HTTPFetcher {
	log := logger.With().Str("component", "fetcher").Logger()

	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	breakerTimeout := cfg.BreakerTimeout
	if breakerTimeout <= 0 {
		breakerTimeout = 30 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker[fetchResult](gobreaker.Settings{
		Name:    "payload-origin",
		Timeout: breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Fetch circuit breaker state change")
		},
	})

	limit := rate.Limit(cfg.RatePerSecond)
	if cfg.RatePerSecond <= 0 {
		limit = rate.Inf
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}

	return &HTTPFetcher{
		client:  &http.Client{Timeout: cfg.Timeout},
		breaker: breaker,
		limiter: rate.NewLimiter(limit, burst),
		maxBody: maxBody,
		logger:  log,
	}
}

// Fetch downloads the payload at url, returning the bytes and the MIME type
// reported by the origin.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, string, error) {
	start := time.Now()

	if err := f.limiter.Wait(ctx); err != nil {
		metrics.FetchesTotal.WithLabelValues("rejected").Inc()
		return nil, "", fmt.Errorf("%w: %v", ErrRejected, err)
	}

	result, err := f.breaker.Execute(func() (fetchResult, error) {
		return f.doFetch(ctx, url)
	})
	metrics.FetchDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.FetchesTotal.WithLabelValues("rejected").Inc()
			return nil, "", fmt.Errorf("%w: %v", ErrRejected, err)
		}
		metrics.FetchesTotal.WithLabelValues("error").Inc()
		return nil, "", err
	}

	metrics.FetchesTotal.WithLabelValues("success").Inc()
	return result.payload, result.mimeType, nil
}

func (f *HTTPFetcher) doFetch(ctx context.Context, url string) (fetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fetchResult{}, fmt.Errorf("building fetch request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fetchResult{}, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fetchResult{}, fmt.Errorf("fetching %s: unexpected status %d", url, resp.StatusCode)
	}

	// Read one byte past the limit so an at-limit body is distinguishable
	// from an oversized one.
	body := io.LimitReader(resp.Body, f.maxBody+1)
	payload, err := io.ReadAll(body)
	if err != nil {
		return fetchResult{}, fmt.Errorf("reading payload from %s: %w", url, err)
	}
	if int64(len(payload)) > f.maxBody {
		return fetchResult{}, fmt.Errorf("payload from %s exceeds %d bytes", url, f.maxBody)
	}

	mimeType := resp.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return fetchResult{payload: payload, mimeType: mimeType}, nil
}
