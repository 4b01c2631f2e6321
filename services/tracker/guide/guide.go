// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package guide generates and caches LLM-written completion guides.
//
// The generator is an opaque, potentially slow, potentially failing
// external call. Its failures surface as ErrUnavailable and never block or
// invalidate achievement tracking: a tracked game without a guide is fully
// functional.
package guide

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrUnavailable indicates guide generation failed. Callers downgrade to
// "no guide" rather than failing the surrounding operation.
var ErrUnavailable = errors.New("guide unavailable")

// Generator produces a completion guide for a game given its achievement
// names. Implementations must honor ctx cancellation.
type Generator interface {
	Generate(ctx context.Context, gameName string, achievementNames []string) (string, error)
}

// buildPrompt renders the guide-generation prompt.
func buildPrompt(gameName string, achievementNames []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Create a detailed completion guide for %s with these achievements:\n", gameName)
	for _, name := range achievementNames {
		fmt.Fprintf(&b, "- %s\n", name)
	}
	b.WriteString(`
Include:
1. Optimal achievement order
2. Any missable achievements
3. Prerequisites or requirements
4. Estimated completion time
5. Tips and strategies

Format with clear sections and bullet points.
`)
	return b.String()
}
