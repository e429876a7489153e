// TuneFrame - Behavioral Music Recommendation and Offline Cache
// Copyright 2026 TuneFrame Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tuneframe/tuneframe

// Package cache implements the local media cache: a Badger-backed blob store
// for track payloads plus the admission and eviction policy that decides what
// lives in it.
//
// # Architecture
//
// The cache has two cooperating halves:
//
//   - Store: persistent storage of payloads and their metadata. Each cached
//     track occupies two Badger keys, one for the raw bytes and one for a
//     versioned metadata record (size, MIME type, timestamps). An in-memory
//     access-order index mirrors the metadata so the eviction victim is an
//     O(1) lookup rather than a scan.
//
//   - Policy: play counting and opportunistic admission. Plays are counted
//     per track in Badger; when a track's count reaches the configured
//     threshold exactly, the policy fetches the payload and stores it. A
//     track is fetched at most once per threshold crossing, and a fetch
//     failure is logged and abandoned without retry - the next threshold is
//     never reached, so a track that fails to fetch is simply not cached
//     until played again after a Clear.
//
// # Budgets
//
// The store enforces three limits:
//
//   - a per-item payload ceiling (oversized payloads are rejected, never
//     truncated)
//   - a total byte budget across all entries
//   - a maximum entry count
//
// Before any admission write, entries are evicted oldest-LastAccessedAt
// first until the new payload fits within both the byte and count budgets.
// The entry being admitted is never an eviction candidate because it is not
// yet present when eviction runs.
//
// # Thread Safety
//
// All Store mutations (admission, eviction, access-time touches, Clear) are
// serialized under a single mutex so concurrent admissions cannot interleave
// their eviction passes and overshoot the budgets. Reads that do not touch
// access order take a shared lock.
package cache
