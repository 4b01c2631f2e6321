// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateUserID(t *testing.T) {
	tests := []struct {
		name    string
		userID  string
		wantErr bool
	}{
		{"discord snowflake", "123456789012345678", false},
		{"alphanumeric handle", "alice_bob-42", false},
		{"single char", "a", false},
		{"max length", strings.Repeat("x", 64), false},
		{"empty", "", true},
		{"too long", strings.Repeat("x", 65), true},
		{"spaces", "bad user", true},
		{"path traversal", "../etc", true},
		{"slash", "a/b", true},
		{"unicode", "usér", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUserID(tt.userID)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateGameName(t *testing.T) {
	tests := []struct {
		name     string
		gameName string
		wantErr  bool
	}{
		{"simple", "Hades", false},
		{"punctuation", "Marvel's Spider-Man: Miles Morales", false},
		{"unicode", "ニーア オートマタ", false},
		{"max length", strings.Repeat("x", MaxGameNameLength), false},
		{"empty", "", true},
		{"whitespace only", "   ", true},
		{"too long", strings.Repeat("x", MaxGameNameLength+1), true},
		{"invalid utf8", string([]byte{0xff, 0xfe}), true},
		{"newline", "Hades\ngame", true},
		{"null byte", "Hades\x00", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateGameName(tt.gameName)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
