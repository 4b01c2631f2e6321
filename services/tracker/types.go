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
	"encoding/json"
	"time"
)

// AddGameSummary reports what happened during AddGame. The game is created
// even when every external source failed; ManualMode tells the presentation
// layer to explain that achievements must be tracked by hand.
type AddGameSummary struct {
	// Game is the display name as entered.
	Game string `json:"game"`

	// AchievementCount is the total after dedup.
	AchievementCount int `json:"achievement_count"`

	// SourceCounts is achievements contributed per provider after dedup.
	SourceCounts map[string]int `json:"source_counts,omitempty"`

	// SourceErrors maps failed providers to their error text.
	SourceErrors map[string]string `json:"source_errors,omitempty"`

	// GuideGenerated reports whether the best-effort guide pass succeeded.
	GuideGenerated bool `json:"guide_generated"`

	// MetadataFetched reports whether the optional metadata pass succeeded.
	MetadataFetched bool `json:"metadata_fetched"`

	// ManualMode is true when zero achievements were aggregated.
	ManualMode bool `json:"manual_mode"`

	// StartedDate is when tracking began.
	StartedDate time.Time `json:"started_date"`
}

// GameView is the structured result of ShowGame.
type GameView struct {
	Game         string               `json:"game"`
	Progress     Progress             `json:"progress"`
	Achievements []OrderedAchievement `json:"achievements"`
	Guide        string               `json:"guide,omitempty"`
	GameInfo     json.RawMessage      `json:"game_info,omitempty"`
	StartedDate  time.Time            `json:"started_date"`
}

// CheckResult is the structured result of CheckAchievement.
type CheckResult struct {
	AchievementID   string   `json:"achievement_id"`
	AchievementName string   `json:"achievement_name"`
	Completed       bool     `json:"completed"`
	Progress        Progress `json:"progress"`
}

// GameSummary is one row of ListGames.
type GameSummary struct {
	Game     string   `json:"game"`
	Progress Progress `json:"progress"`
}
