// TuneFrame - Behavioral Music Recommendation and Offline Cache
// Copyright 2026 TuneFrame Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tuneframe/tuneframe

package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tuneframe/tuneframe/internal/recommend"
)

// SchemaVersion is the current stored-profile schema version.
const SchemaVersion = 1

// profileKey is the fixed key for the single local profile. The profile
// lives for the lifetime of the installation; there is one per device.
const profileKey = "profile:current"

// storedProfile is the tagged persistence record.
type storedProfile struct {
	SchemaVersion int                    `json:"schema_version"`
	SavedAt       time.Time              `json:"saved_at"`
	Profile       *recommend.UserProfile `json:"profile"`
}

// Store loads and saves the user profile.
type Store interface {
	recommend.ProfileSaver

	// LoadOrCreate returns the persisted profile, or a fresh one when
	// nothing usable is stored. It never fails over corrupt data.
	LoadOrCreate(ctx context.Context) (*recommend.UserProfile, error)

	// Delete removes the persisted profile.
	Delete(ctx context.Context) error
}

// BadgerStore persists the profile in the local BadgerDB.
type BadgerStore struct {
	db     *badger.DB
	logger zerolog.Logger
}

// NewBadgerStore creates a profile store over an open BadgerDB.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewBadgerStore(db *badger.DB, logger zerolog.Logger) *BadgerStore {
	return &BadgerStore{
		db:     db,
		logger: logger.With().Str("component", "profile-store").Logger(),
	}
}

// LoadOrCreate reads the stored profile. Corrupt payloads and unknown
// schema versions reset to a fresh profile; the bad bytes are overwritten
// on the next save.
func (s *BadgerStore) LoadOrCreate(ctx context.Context) (*recommend.UserProfile, error) {
	var raw []byte

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(profileKey))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})

	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
		s.logger.Info().Msg("no stored profile, creating fresh")
		return recommend.NewProfile(time.Now()), nil
	case err != nil:
		// Unreadable store behaves like an absent profile; the session
		// still gets personalization, it just starts from neutral.
		s.logger.Warn().Err(err).Msg("profile read failed, starting fresh")
		return recommend.NewProfile(time.Now()), nil
	}

	var record storedProfile
	if err := json.Unmarshal(raw, &record); err != nil || record.Profile == nil {
		s.logger.Warn().Err(err).Msg("stored profile unparsable, resetting")
		return recommend.NewProfile(time.Now()), nil
	}
	if record.SchemaVersion != SchemaVersion {
		s.logger.Warn().
			Int("stored_version", record.SchemaVersion).
			Int("supported_version", SchemaVersion).
			Msg("stored profile schema unknown, resetting")
		return recommend.NewProfile(time.Now()), nil
	}

	record.Profile.Normalize()
	return record.Profile, nil
}

// Save writes the profile as the current schema version.
func (s *BadgerStore) Save(ctx context.Context, profile *recommend.UserProfile) error {
	record := storedProfile{
		SchemaVersion: SchemaVersion,
		SavedAt:       time.Now(),
		Profile:       profile,
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(profileKey), data)
	})
	if err != nil {
		return fmt.Errorf("write profile: %w", err)
	}
	return nil
}

// Delete removes the persisted profile.
func (s *BadgerStore) Delete(ctx context.Context) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(profileKey))
	})
	if err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	return nil
}
