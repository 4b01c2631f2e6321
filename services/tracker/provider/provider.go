// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package provider contains adapters for external achievement sources.
//
// Each adapter normalizes one provider's raw records into RawAchievement and
// isolates that provider's failure modes. Two outcomes are deliberately
// distinct:
//
//   - "game not found at this provider" is a normal outcome: the adapter
//     returns an empty slice and a nil error.
//   - transport or parse failure returns a *Error, which the aggregator
//     treats as a partial-source failure (that source contributes zero
//     achievements; aggregation as a whole never fails).
//
// Adapters never default fields the provider does not expose; canonical
// defaults are applied downstream when the aggregated Achievement is built.
package provider

import (
	"context"
	"fmt"
	"net/http"
)

// RawAchievement is one normalized achievement record from a provider.
// Fields the provider does not expose stay zero/nil rather than defaulted.
type RawAchievement struct {
	Name        string
	Description string
	Rarity      *float64
}

// Provider fetches achievement records for a free-text game name.
type Provider interface {
	// Name returns the stable provider identifier (e.g. "steam", "rawg").
	// It is recorded as the Source on aggregated achievements.
	Name() string

	// Fetch resolves the game name against the provider's catalog using
	// case-insensitive substring matching and returns its achievements.
	// An unmatched name returns (nil, nil). Only genuine transport or
	// parse failures return an error, always a *Error.
	Fetch(ctx context.Context, gameName string) ([]RawAchievement, error)
}

// MetadataFetcher fetches an opaque game-metadata blob (release date,
// rating, platforms, genres). The tracker stores it without interpretation.
// An unmatched name returns (nil, nil).
type MetadataFetcher interface {
	Metadata(ctx context.Context, gameName string) ([]byte, error)
}

// HTTPClient allows injecting mock HTTP clients for testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Error is a provider-scoped failure. The aggregator absorbs it into "zero
// achievements from this source" instead of failing the whole aggregation.
type Error struct {
	// Source is the provider identifier.
	Source string
	// Op names the failing step (e.g. "applist", "schema", "search").
	Op string
	// Err is the underlying cause.
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("provider %s: %s: %v", e.Source, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
