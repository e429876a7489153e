// TuneFrame - Behavioral Music Recommendation and Offline Cache
// Copyright 2026 TuneFrame Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tuneframe/tuneframe

package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/rs/zerolog"

	"github.com/tuneframe/tuneframe/internal/cache"
	"github.com/tuneframe/tuneframe/internal/recommend"
)

// InteractionSink receives taste signals derived from playback events.
// Implemented by the session.
type InteractionSink interface {
	Record(ctx context.Context, itemID string, action recommend.Action, tags []recommend.Tag, completionRatio float64) error
	AddListenTime(ctx context.Context, itemID string, listened time.Duration)
}

// Admitter fetches and stores a track payload. Implemented by the cache
// policy.
type Admitter interface {
	Admit(ctx context.Context, track cache.TrackRef) error
}

// Bus is the in-process playback event bus: a gochannel pub/sub plus a
// router delivering playback lifecycle events to the interaction recorder.
// It also owns the detached goroutines for background cache admissions so
// shutdown can drain them.
type Bus struct {
	pubsub   *gochannel.GoChannel
	router   *message.Router
	sink     InteractionSink
	admitter Admitter
	logger   zerolog.Logger

	// admissions tracks in-flight background downloads so Close can wait
	// for them.
	admissions sync.WaitGroup
}

// NewBus wires the pub/sub, the router, and the handlers. Call Run to start
// delivery.
func NewBus(sink InteractionSink, admitter Admitter, logger zerolog.Logger) (*Bus, error) {
	wmLogger := NewWatermillLogger(logger)

	pubsub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 64,
	}, wmLogger)

	router, err := message.NewRouter(message.RouterConfig{
		CloseTimeout: 10 * time.Second,
	}, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("creating event router: %w", err)
	}
	router.AddMiddleware(middleware.Recoverer)

	b := &Bus{
		pubsub:   pubsub,
		router:   router,
		sink:     sink,
		admitter: admitter,
		logger:   logger.With().Str("component", "events").Logger(),
	}

	router.AddNoPublisherHandler(
		"playback_started_recorder",
		TopicPlaybackStarted,
		pubsub,
		b.handleStarted,
	)
	router.AddNoPublisherHandler(
		"playback_skipped_recorder",
		TopicPlaybackSkipped,
		pubsub,
		b.handleSkipped,
	)
	router.AddNoPublisherHandler(
		"playback_completed_recorder",
		TopicPlaybackCompleted,
		pubsub,
		b.handleCompleted,
	)

	return b, nil
}

// Run starts the router and blocks until ctx is cancelled.
func (b *Bus) Run(ctx context.Context) error {
	return b.router.Run(ctx)
}

// Running returns a channel closed once the router is delivering messages.
func (b *Bus) Running() chan struct{} {
	return b.router.Running()
}

// Close drains in-flight admissions and shuts the bus down.
func (b *Bus) Close() error {
	b.admissions.Wait()
	if err := b.router.Close(); err != nil {
		return fmt.Errorf("closing event router: %w", err)
	}
	return b.pubsub.Close()
}

// Publish sends one playback event to its topic.
func (b *Bus) Publish(topic string, event PlaybackEvent) error {
	msg, err := event.Message()
	if err != nil {
		return err
	}
	if err := b.pubsub.Publish(topic, msg); err != nil {
		return fmt.Errorf("publishing to %s: %w", topic, err)
	}
	return nil
}

// RequestAdmission downloads and caches a track in the background. Playback
// never waits on the network; failures are the admitter's to log, and there
// is no retry.
func (b *Bus) RequestAdmission(track cache.TrackRef) {
	b.logger.Info().
		Str("track_id", track.ID).
		Msg("Caching track in background")

	b.admissions.Add(1)
	go func() {
		defer b.admissions.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		_ = b.admitter.Admit(ctx, track)
	}()
}

func (b *Bus) handleStarted(msg *message.Message) error {
	event, err := decodeEvent(msg)
	if err != nil {
		// Malformed events are dropped, not redelivered.
		b.logger.Warn().Err(err).Msg("Dropping malformed playback event")
		return nil
	}
	return b.sink.Record(msg.Context(), event.TrackID, recommend.ActionPlay, event.Tags, 0)
}

func (b *Bus) handleSkipped(msg *message.Message) error {
	event, err := decodeEvent(msg)
	if err != nil {
		b.logger.Warn().Err(err).Msg("Dropping malformed playback event")
		return nil
	}
	return b.sink.Record(msg.Context(), event.TrackID, recommend.ActionSkip, event.Tags, 0)
}

func (b *Bus) handleCompleted(msg *message.Message) error {
	event, err := decodeEvent(msg)
	if err != nil {
		b.logger.Warn().Err(err).Msg("Dropping malformed playback event")
		return nil
	}
	ctx := msg.Context()

	if err := b.sink.Record(ctx, event.TrackID, recommend.ActionComplete, event.Tags, event.CompletionRatio); err != nil {
		return err
	}
	if event.Listened > 0 {
		b.sink.AddListenTime(ctx, event.TrackID, event.Listened)
	}
	return nil
}
