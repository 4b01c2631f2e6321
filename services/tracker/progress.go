// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tracker

import (
	"sort"

	"github.com/AleutianAI/completionist/services/tracker/datatypes"
)

// Progress is a game's derived completion state.
//
// Percentage is not rounded here; display rounding belongs to the
// presentation layer.
type Progress struct {
	Completed  int     `json:"completed"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
}

// OrderedAchievement pairs an achievement with its stable ID for display.
type OrderedAchievement struct {
	ID          string               `json:"id"`
	Achievement datatypes.Achievement `json:"achievement"`
}

// ComputeProgress returns the game's completion counts and percentage.
// A game with zero achievements has 0% progress, never a division by zero.
func ComputeProgress(g *datatypes.TrackedGame) Progress {
	p := Progress{Total: len(g.Achievements)}
	for _, a := range g.Achievements {
		if a.Completed {
			p.Completed++
		}
	}
	if p.Total > 0 {
		p.Percentage = 100 * float64(p.Completed) / float64(p.Total)
	}
	return p
}

// OrderForDisplay returns the game's achievements in display order:
// incomplete before completed, then rarity ascending (missing rarity sorts
// as 0), ties broken by original insertion order. The sort is stable, so
// identical ledger state always yields an identical sequence.
func OrderForDisplay(g *datatypes.TrackedGame) []OrderedAchievement {
	ids := g.AchievementIDs()
	out := make([]OrderedAchievement, 0, len(ids))
	for _, id := range ids {
		out = append(out, OrderedAchievement{ID: id, Achievement: *g.Achievements[id]})
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Achievement, out[j].Achievement
		if a.Completed != b.Completed {
			return !a.Completed
		}
		return rarityOrZero(&a) < rarityOrZero(&b)
	})
	return out
}

// ToggleAchievement flips the achievement's completion flag in place and
// returns the new value. Toggling is its own inverse: applying it twice
// restores the original state. Unknown IDs fail with
// ErrAchievementNotFound and leave the game unmodified.
func ToggleAchievement(g *datatypes.TrackedGame, achievementID string) (bool, error) {
	a, ok := g.Achievements[achievementID]
	if !ok {
		return false, ErrAchievementNotFound
	}
	a.Completed = !a.Completed
	return a.Completed, nil
}

func rarityOrZero(a *datatypes.Achievement) float64 {
	if a.Rarity == nil {
		return 0
	}
	return *a.Rarity
}
