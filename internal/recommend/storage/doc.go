// TuneFrame - Behavioral Music Recommendation and Offline Cache
// Copyright 2026 TuneFrame Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tuneframe/tuneframe

// Package storage persists the user profile.
//
// Profiles are stored as a versioned, tagged record so the loader can
// detect what it is reading instead of trusting shape by convention:
//
//	{ "schema_version": 1, "profile": { ... } }
//
// An unknown version or an unparsable payload is treated exactly like "no
// prior profile": the loader hands back a fresh profile and the stale
// bytes are overwritten on the next save. Loading never fails the caller
// over bad data.
//
// Two implementations exist: a BadgerDB-backed store for normal operation
// and an in-memory store the daemon falls back to when the data directory
// cannot be opened. Both satisfy recommend.ProfileSaver.
package storage
