// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package guide

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/AleutianAI/completionist/services/tracker/datatypes"
	"github.com/AleutianAI/completionist/services/tracker/store"
)

// Cache lazily obtains and stores one generated guide per tracked game.
// A populated guide is returned unchanged; regeneration never happens.
type Cache struct {
	ledger store.Ledger
	logger *slog.Logger
}

// NewCache creates a guide cache over the given ledger.
func NewCache(ledger store.Ledger, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{ledger: ledger, logger: logger}
}

// GetOrGenerate returns the game's guide, generating and persisting it on
// first request.
//
// Generation failure returns ErrUnavailable (wrapping the cause) and leaves
// the game's tracking state untouched. Ledger lookup errors (ErrNotTracked)
// pass through unchanged.
func (c *Cache) GetOrGenerate(ctx context.Context, userID, folded string, gen Generator) (string, error) {
	game, err := c.ledger.Get(ctx, userID, folded)
	if err != nil {
		return "", err
	}
	if game.Guide != "" {
		return game.Guide, nil
	}
	if gen == nil {
		return "", fmt.Errorf("%w: no generator configured", ErrUnavailable)
	}

	text, err := gen.Generate(ctx, game.DisplayName, game.AchievementNames())
	if err != nil {
		c.logger.Warn("guide generation failed",
			"user", userID, "game", game.DisplayName, "error", err)
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	// Persist through the ledger so the guide survives restarts. A second
	// caller racing this one may have stored a guide already; first write
	// wins and the stored text is what everyone sees.
	updated, err := c.ledger.Mutate(ctx, userID, folded, func(g *datatypes.TrackedGame) error {
		if g.Guide == "" {
			g.Guide = text
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return updated.Guide, nil
}
