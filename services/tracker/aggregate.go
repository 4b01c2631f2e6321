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
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/completionist/services/tracker/datatypes"
	"github.com/AleutianAI/completionist/services/tracker/provider"
)

// DefaultProviderTimeout bounds one provider fetch. A provider that blows
// the timeout fails alone; the other providers' results still count.
const DefaultProviderTimeout = 45 * time.Second

// Aggregator merges achievement lists from all configured providers into
// one canonical, deduplicated list.
//
// Providers run concurrently but are merged in the fixed order they were
// configured in, so dedup is deterministic regardless of completion timing.
type Aggregator struct {
	// providers in priority order: earlier providers win dedup ties.
	providers []provider.Provider
	timeout   time.Duration
	logger    *slog.Logger
}

// AggregateResult is the outcome of one aggregation pass. Aggregation
// never fails as a whole: when every provider fails, Achievements is empty
// and SourceErrors records why.
type AggregateResult struct {
	// Achievements is the merged, deduplicated list in merge order.
	Achievements []datatypes.Achievement

	// SourceCounts is the number of achievements each source contributed
	// after dedup.
	SourceCounts map[string]int

	// SourceErrors records per-provider failures absorbed during the pass.
	SourceErrors map[string]error
}

// NewAggregator creates an aggregator over the given providers. Order
// expresses priority: when two providers report the same achievement name,
// the earlier provider's record wins.
func NewAggregator(providers []provider.Provider, timeout time.Duration, logger *slog.Logger) *Aggregator {
	if timeout <= 0 {
		timeout = DefaultProviderTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{providers: providers, timeout: timeout, logger: logger}
}

// Aggregate fetches from all providers concurrently, waits for every fetch
// to settle, and merges the successful results.
//
// Dedup is first-seen-wins keyed on exact (case-sensitive) name equality.
// Two providers naming the same achievement with different capitalization
// are intentionally not merged; see the dedup note in DESIGN.md before
// changing that.
func (a *Aggregator) Aggregate(ctx context.Context, gameName string) *AggregateResult {
	fetched := make([][]provider.RawAchievement, len(a.providers))
	fetchErrs := make([]error, len(a.providers))

	g, gCtx := errgroup.WithContext(ctx)
	for i, p := range a.providers {
		i, p := i, p
		g.Go(func() error {
			fetchCtx, cancel := context.WithTimeout(gCtx, a.timeout)
			defer cancel()

			records, err := p.Fetch(fetchCtx, gameName)
			if err != nil {
				fetchErrs[i] = err
				providerFailuresTotal.WithLabelValues(p.Name()).Inc()
				a.logger.Warn("provider fetch failed",
					"provider", p.Name(), "game", gameName, "error", err)
				return nil // Never propagate - provider failures are non-fatal
			}
			fetched[i] = records
			return nil
		})
	}
	// Wait for all providers (errors captured per slot, never returned)
	_ = g.Wait()

	result := &AggregateResult{
		SourceCounts: make(map[string]int),
		SourceErrors: make(map[string]error),
	}

	now := time.Now().UTC()
	seen := make(map[string]struct{})
	for i, p := range a.providers {
		if fetchErrs[i] != nil {
			result.SourceErrors[p.Name()] = fetchErrs[i]
			continue
		}
		for _, raw := range fetched[i] {
			if _, dup := seen[raw.Name]; dup {
				continue
			}
			seen[raw.Name] = struct{}{}

			ach := datatypes.Achievement{
				Name:        raw.Name,
				Description: raw.Description,
				Rarity:      raw.Rarity,
				Source:      p.Name(),
				DateAdded:   now,
			}
			if ach.Description == "" {
				ach.Description = datatypes.NoDescription
			}
			result.Achievements = append(result.Achievements, ach)
			result.SourceCounts[p.Name()]++
		}
	}

	aggregatedAchievements.Observe(float64(len(result.Achievements)))
	a.logger.Info("aggregated achievements",
		"game", gameName,
		"total", len(result.Achievements),
		"failed_sources", len(result.SourceErrors))
	return result
}
