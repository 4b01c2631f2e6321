// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation provides input validation utilities for user-provided
// identifiers and names.
//
// User IDs and game names end up in ledger keys and provider query strings,
// so they are bounded and character-restricted here before anything else
// touches them.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// userIDPattern matches chat-platform user identifiers: digits (Discord
// snowflakes) or a conservative alphanumeric handle. Max 64 characters.
var userIDPattern = regexp.MustCompile(`^[A-Za-z0-9_\-]{1,64}$`)

// MaxGameNameLength bounds free-text game names. The longest real store
// listings are well under this.
const MaxGameNameLength = 200

// ValidateUserID validates a user identifier.
//
// Valid IDs are 1-64 characters of letters, digits, underscore, or hyphen.
func ValidateUserID(userID string) error {
	if userID == "" {
		return fmt.Errorf("user ID cannot be empty")
	}
	if !userIDPattern.MatchString(userID) {
		return fmt.Errorf("invalid user ID format: %q (must be 1-64 alphanumeric chars, underscores, or hyphens)", userID)
	}
	return nil
}

// ValidateGameName validates a free-text game name.
//
// Names keep their original case and punctuation (providers match by
// substring), but must be non-empty, valid UTF-8, bounded in length, and
// free of control characters.
func ValidateGameName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("game name cannot be empty")
	}
	if !utf8.ValidString(name) {
		return fmt.Errorf("game name is not valid UTF-8")
	}
	if utf8.RuneCountInString(name) > MaxGameNameLength {
		return fmt.Errorf("game name too long: %d runes (max %d)", utf8.RuneCountInString(name), MaxGameNameLength)
	}
	for _, r := range name {
		if r < 0x20 || r == 0x7f {
			return fmt.Errorf("game name contains control characters")
		}
	}
	return nil
}
