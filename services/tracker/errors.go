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

import "errors"

// Sentinel errors for the tracker service. Ledger identity errors
// (already-tracked, not-tracked) live in the store package; guide failures
// in the guide package. Handlers map all of them to HTTP statuses.
var (
	// ErrAchievementNotFound indicates the achievement ID is absent from
	// the game's achievement mapping.
	ErrAchievementNotFound = errors.New("achievement not found")
)
