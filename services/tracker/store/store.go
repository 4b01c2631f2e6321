// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package store persists the completion ledger.
//
// The ledger maps (user ID, folded game name) to a TrackedGame. Two backends
// are provided: a BadgerDB store for production (in-memory mode for tests)
// and a single-document JSON file store matching the legacy on-disk layout.
//
// Every successful Create, Mutate, and Remove durably persists the change
// before returning, and writes are all-or-nothing: a crash mid-write never
// leaves a corrupted or half-written durable copy. Mutations targeting the
// same key are linearized through a striped lock set; operations on
// different keys may proceed in parallel.
package store

import (
	"context"
	"errors"

	"github.com/AleutianAI/completionist/services/tracker/datatypes"
)

// Sentinel errors for ledger operations.
var (
	// ErrAlreadyTracked indicates a game already exists for that
	// (user, folded name) key.
	ErrAlreadyTracked = errors.New("game already tracked")

	// ErrNotTracked indicates no game exists for that key.
	ErrNotTracked = errors.New("game not tracked")

	// ErrPersistence indicates the durable write failed. The operation
	// was not applied; callers must surface this rather than report a
	// silently-unsaved success.
	ErrPersistence = errors.New("ledger persistence failed")
)

// Entry pairs a folded game name with its tracked game, as returned by
// ListForUser.
type Entry struct {
	Folded string
	Game   *datatypes.TrackedGame
}

// MutateFunc is applied to a stored TrackedGame under the key's lock.
// Returning an error aborts the mutation; nothing is persisted and the
// error is returned to the caller unchanged.
type MutateFunc func(*datatypes.TrackedGame) error

// Ledger is the durable store of all users' tracked games.
//
// All mutation after creation must go through Mutate so that concurrent
// read-modify-write cycles on the same key cannot lose updates.
type Ledger interface {
	// Get returns the tracked game for the key, or ErrNotTracked.
	// The returned game is a copy; mutating it does not affect the store.
	Get(ctx context.Context, userID, folded string) (*datatypes.TrackedGame, error)

	// Create stores a new tracked game. Fails with ErrAlreadyTracked when
	// an entry already exists for the key.
	Create(ctx context.Context, userID, folded string, game *datatypes.TrackedGame) error

	// Mutate applies fn to the stored game and persists the result
	// atomically. Fails with ErrNotTracked when absent. Returns the
	// updated game on success.
	Mutate(ctx context.Context, userID, folded string, fn MutateFunc) (*datatypes.TrackedGame, error)

	// Remove deletes the entry, or fails with ErrNotTracked.
	Remove(ctx context.Context, userID, folded string) error

	// ListForUser returns the user's games in insertion order.
	ListForUser(ctx context.Context, userID string) ([]Entry, error)

	// Close releases backend resources.
	Close() error
}
