// TuneFrame - Behavioral Music Recommendation and Offline Cache
// Copyright 2026 TuneFrame Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tuneframe/tuneframe

package services

import (
	"context"

	"github.com/tuneframe/tuneframe/internal/events"
)

// BusService runs the playback event bus under supervision.
type BusService struct {
	bus *events.Bus
}

// NewBusService wraps the bus.
func NewBusService(bus *events.Bus) *BusService {
	return &BusService{bus: bus}
}

// Serve implements suture.Service. The bus router blocks until the context
// is cancelled. Closing the bus is the owner's job at shutdown; a closed
// bus cannot be restarted.
func (s *BusService) Serve(ctx context.Context) error {
	return s.bus.Run(ctx)
}

// String implements fmt.Stringer for supervisor logs.
func (s *BusService) String() string {
	return "playback-event-bus"
}
