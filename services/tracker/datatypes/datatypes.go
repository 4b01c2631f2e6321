// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes defines the shared data model for the completion tracker.
//
// These types are persisted as JSON by the ledger store and returned by the
// tracker facade, so field changes must stay backward compatible with data
// already on disk.
package datatypes

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// NoDescription is the placeholder used when no provider reported a
// description for an achievement.
const NoDescription = "No description available"

// Achievement is the canonical unit of trackable progress.
//
// Name is the dedup key across providers and is case-sensitive as received.
// Identity fields (Name, Description, Rarity, Source, DateAdded) are never
// mutated after creation; only Completed toggles.
type Achievement struct {
	// Name is the achievement's display name, unique within one game.
	Name string `json:"name"`

	// Description explains how to earn the achievement.
	// Defaults to NoDescription when no provider reports one.
	Description string `json:"description"`

	// Rarity is the percentage (0-100) of players who earned the
	// achievement. Nil when no provider reported it.
	Rarity *float64 `json:"rarity,omitempty"`

	// Source identifies the provider the record came from.
	Source string `json:"source,omitempty"`

	// Completed is the user's completion flag.
	Completed bool `json:"completed"`

	// DateAdded is when the achievement was first aggregated.
	DateAdded time.Time `json:"date_added"`
}

// TrackedGame is a user's subscription to one title.
//
// Achievement IDs are assigned sequentially starting at "1" at creation time
// and are never reused or renumbered, so chat users can refer to them by the
// short numeric handle.
type TrackedGame struct {
	// DisplayName preserves the original-case game name as entered.
	DisplayName string `json:"name"`

	// Achievements maps a stable string ID ("1".."N") to the achievement.
	Achievements map[string]*Achievement `json:"achievements"`

	// Guide is the lazily generated completion guide. Empty until populated.
	Guide string `json:"guide,omitempty"`

	// GameInfo is an opaque metadata blob (release date, rating, platforms,
	// genres). The tracker passes it through without interpreting it.
	GameInfo json.RawMessage `json:"game_info,omitempty"`

	// StartedDate is when tracking began.
	StartedDate time.Time `json:"started_date"`

	// Seq is a store-assigned per-ledger insertion sequence used to keep
	// ListForUser in insertion order. Managed by the ledger store.
	Seq uint64 `json:"seq"`
}

// AchievementIDs returns the game's achievement IDs in insertion order.
//
// IDs are numeric strings, so insertion order is numeric order. Non-numeric
// IDs (which the tracker never assigns) sort after numeric ones.
func (g *TrackedGame) AchievementIDs() []string {
	ids := make([]string, 0, len(g.Achievements))
	for id := range g.Achievements {
		ids = append(ids, id)
	}
	sortIDs(ids)
	return ids
}

// AchievementNames returns achievement names in insertion order.
// Used to build guide-generation prompts.
func (g *TrackedGame) AchievementNames() []string {
	ids := g.AchievementIDs()
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		names = append(names, g.Achievements[id].Name)
	}
	return names
}

// FoldName returns the case-insensitive canonical form of a game name, used
// as the ledger lookup key. Exactly one TrackedGame may exist per
// (user, folded name) pair.
func FoldName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func sortIDs(ids []string) {
	// Insertion sort is fine here; games rarely have more than a few
	// hundred achievements.
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && idLess(ids[j], ids[j-1]); j-- {
			ids[j], ids[j-1] = ids[j-1], ids[j]
		}
	}
}

func idLess(a, b string) bool {
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)
	switch {
	case errA == nil && errB == nil:
		return na < nb
	case errA == nil:
		return true
	case errB == nil:
		return false
	default:
		return a < b
	}
}
