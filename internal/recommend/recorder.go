// TuneFrame - Behavioral Music Recommendation and Offline Cache
// Copyright 2026 TuneFrame Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tuneframe/tuneframe

package recommend

import (
	"context"
	"time"
)

// RecordInteraction is the single entry point for behavioral events. It
// appends the event to the interaction log, maintains the liked, disliked
// and saved sets, updates per-track listen statistics, applies the
// matching interest deltas, and persists the whole profile once at the
// end of the call.
//
// The returned error is the persistence status only: a non-nil error means
// the in-memory update succeeded but the write did not, and the next load
// will not reflect it. Loss of personalization data is non-fatal; callers
// may log the status and move on.
//
// completionRatio is meaningful for ActionComplete only.
func (e *Engine) RecordInteraction(ctx context.Context, profile *UserProfile, itemID string, action Action, tags []Tag, completionRatio float64) error {
	now := e.now()

	profile.Interactions = append(profile.Interactions, Interaction{
		ItemID:          itemID,
		Timestamp:       now,
		Action:          action,
		CompletionRatio: completionRatio,
		Tags:            tags,
	})
	if overflow := len(profile.Interactions) - MaxInteractions; overflow > 0 {
		profile.Interactions = profile.Interactions[overflow:]
	}

	switch action {
	case ActionLike:
		profile.Liked[itemID] = true
		delete(profile.Disliked, itemID)
		applyDelta(profile.Interests, tags, DeltaLike, now)

	case ActionDislike:
		profile.Disliked[itemID] = true
		delete(profile.Liked, itemID)
		applyDelta(profile.Interests, tags, DeltaDislike, now)

	case ActionSave:
		profile.Saved[itemID] = true
		applyDelta(profile.Interests, tags, DeltaSave, now)

	case ActionComplete:
		if completionRatio > HighCompletionRatio {
			applyDelta(profile.Interests, tags, DeltaCompleteHigh, now)
		}

	case ActionSkip:
		// The caller guarantees the skip fell inside the early-skip
		// window; playback time is not observed here.
		applyDelta(profile.Interests, tags, DeltaSkipEarly, now)

	case ActionPlay:
		// Listen stats below carry the signal.
	}

	if action == ActionPlay || action == ActionComplete {
		e.touchListenStat(profile, itemID, tags, now)
	}

	if e.saver == nil {
		return nil
	}
	if err := e.saver.Save(ctx, profile); err != nil {
		e.logger.Warn().Err(err).Str("item", itemID).Msg("profile persist failed, in-memory state retained")
		return err
	}
	return nil
}

// touchListenStat updates the per-track play statistics and applies the
// relisten delta when the previous play was recent. The relisten check
// runs against the state before this play is counted.
func (e *Engine) touchListenStat(profile *UserProfile, itemID string, tags []Tag, now time.Time) {
	stat, ok := profile.Stats[itemID]
	if !ok {
		stat = &ListenStat{ItemID: itemID}
		profile.Stats[itemID] = stat
	}

	if stat.PlayCount > 1 && now.Sub(stat.LastPlayedAt) < RelistenWindow {
		applyDelta(profile.Interests, tags, DeltaRelisten, now)
	}

	stat.PlayCount++
	stat.LastPlayedAt = now
}

// AddListenTime accumulates listened wall time for a track. The events
// layer calls this on completion, where the track duration is known;
// RecordInteraction itself never sees durations.
func (e *Engine) AddListenTime(profile *UserProfile, itemID string, listened time.Duration) {
	if listened <= 0 {
		return
	}
	stat, ok := profile.Stats[itemID]
	if !ok {
		stat = &ListenStat{ItemID: itemID}
		profile.Stats[itemID] = stat
	}
	stat.TotalTimeListened += listened
}
