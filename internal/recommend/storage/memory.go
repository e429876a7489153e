// TuneFrame - Behavioral Music Recommendation and Offline Cache
// Copyright 2026 TuneFrame Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tuneframe/tuneframe

package storage

import (
	"context"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/tuneframe/tuneframe/internal/recommend"
)

// MemoryStore keeps the profile in process memory only. The daemon falls
// back to it when the data directory cannot be opened, trading durability
// for availability: personalization works for the session and is lost on
// restart.
type MemoryStore struct {
	mu   sync.Mutex
	data []byte
}

// NewMemoryStore creates an empty in-memory profile store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// LoadOrCreate returns the stored profile or a fresh one.
func (s *MemoryStore) LoadOrCreate(ctx context.Context) (*recommend.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data == nil {
		return recommend.NewProfile(time.Now()), nil
	}

	var record storedProfile
	if err := json.Unmarshal(s.data, &record); err != nil ||
		record.Profile == nil || record.SchemaVersion != SchemaVersion {
		return recommend.NewProfile(time.Now()), nil
	}
	record.Profile.Normalize()
	return record.Profile, nil
}

// Save stores a serialized snapshot. Serializing keeps memory-store
// semantics identical to the durable store: the caller's profile value is
// never aliased.
func (s *MemoryStore) Save(ctx context.Context, profile *recommend.UserProfile) error {
	data, err := json.Marshal(storedProfile{
		SchemaVersion: SchemaVersion,
		SavedAt:       time.Now(),
		Profile:       profile,
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.data = data
	s.mu.Unlock()
	return nil
}

// Delete clears the stored snapshot.
func (s *MemoryStore) Delete(ctx context.Context) error {
	s.mu.Lock()
	s.data = nil
	s.mu.Unlock()
	return nil
}
