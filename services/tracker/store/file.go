// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/AleutianAI/completionist/services/tracker/datatypes"
)

// FileLedger is a single-document JSON file Ledger, compatible with the
// legacy user_games.json layout: user ID -> folded game name -> game.
//
// The whole document is held in memory and rewritten on every mutation
// using a temp-file-then-atomic-rename, so a crash mid-write leaves either
// the old or the new document, never a torn one. Because every mutation
// rewrites the full document, a single mutex serializes all writers; the
// Badger backend is the one to use when cross-key write parallelism
// matters.
type FileLedger struct {
	path string

	mu   sync.RWMutex
	data map[string]map[string]*datatypes.TrackedGame
	seq  uint64
}

// OpenFile opens (or initializes) a file-backed ledger at path. A missing
// file is a normal first run and yields an empty ledger.
func OpenFile(path string) (*FileLedger, error) {
	l := &FileLedger{
		path: path,
		data: make(map[string]map[string]*datatypes.TrackedGame),
	}

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read ledger file %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, &l.data); err != nil {
		return nil, fmt.Errorf("parse ledger file %s: %w", path, err)
	}

	for _, games := range l.data {
		for _, g := range games {
			if g.Seq > l.seq {
				l.seq = g.Seq
			}
		}
	}
	return l, nil
}

// Get implements Ledger.
func (l *FileLedger) Get(ctx context.Context, userID, folded string) (*datatypes.TrackedGame, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	g, ok := l.data[userID][folded]
	if !ok {
		return nil, ErrNotTracked
	}
	return copyGame(g)
}

// Create implements Ledger.
func (l *FileLedger) Create(ctx context.Context, userID, folded string, game *datatypes.TrackedGame) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.data[userID][folded]; ok {
		return ErrAlreadyTracked
	}

	stored, err := copyGame(game)
	if err != nil {
		return fmt.Errorf("%w: create %s/%s: %v", ErrPersistence, userID, folded, err)
	}
	l.seq++
	stored.Seq = l.seq

	if l.data[userID] == nil {
		l.data[userID] = make(map[string]*datatypes.TrackedGame)
	}
	l.data[userID][folded] = stored

	if err := l.persistLocked(); err != nil {
		delete(l.data[userID], folded)
		l.seq--
		return err
	}
	game.Seq = stored.Seq
	return nil
}

// Mutate implements Ledger.
func (l *FileLedger) Mutate(ctx context.Context, userID, folded string, fn MutateFunc) (*datatypes.TrackedGame, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	current, ok := l.data[userID][folded]
	if !ok {
		return nil, ErrNotTracked
	}

	// Work on a copy so an aborting fn or failed persist leaves the
	// in-memory ledger untouched.
	working, err := copyGame(current)
	if err != nil {
		return nil, fmt.Errorf("%w: mutate %s/%s: %v", ErrPersistence, userID, folded, err)
	}
	if err := fn(working); err != nil {
		return nil, err
	}

	l.data[userID][folded] = working
	if err := l.persistLocked(); err != nil {
		l.data[userID][folded] = current
		return nil, err
	}
	return copyGame(working)
}

// Remove implements Ledger.
func (l *FileLedger) Remove(ctx context.Context, userID, folded string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	current, ok := l.data[userID][folded]
	if !ok {
		return ErrNotTracked
	}

	delete(l.data[userID], folded)
	if err := l.persistLocked(); err != nil {
		l.data[userID][folded] = current
		return err
	}
	return nil
}

// ListForUser implements Ledger.
func (l *FileLedger) ListForUser(ctx context.Context, userID string) ([]Entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	games := l.data[userID]
	entries := make([]Entry, 0, len(games))
	for folded, g := range games {
		cp, err := copyGame(g)
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry{Folded: folded, Game: cp})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Game.Seq < entries[j].Game.Seq
	})
	return entries, nil
}

// Close implements Ledger. The file store holds no open handles.
func (l *FileLedger) Close() error { return nil }

// persistLocked writes the full document durably. Callers hold l.mu.
func (l *FileLedger) persistLocked() error {
	raw, err := json.MarshalIndent(l.data, "", "    ")
	if err != nil {
		return fmt.Errorf("%w: encode ledger: %v", ErrPersistence, err)
	}

	// Write to a temp file in the same directory, fsync, then rename over
	// the live document so the swap is atomic.
	dir := filepath.Dir(l.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(l.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %v", ErrPersistence, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("%w: write ledger: %v", ErrPersistence, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("%w: sync ledger: %v", ErrPersistence, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("%w: close ledger temp file: %v", ErrPersistence, err)
	}
	if err := os.Rename(tmpPath, l.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("%w: finalize ledger: %v", ErrPersistence, err)
	}
	return nil
}

// copyGame deep-copies a game via JSON so callers never share pointers
// with the store's in-memory state.
func copyGame(g *datatypes.TrackedGame) (*datatypes.TrackedGame, error) {
	raw, err := json.Marshal(g)
	if err != nil {
		return nil, err
	}
	cp := new(datatypes.TrackedGame)
	if err := json.Unmarshal(raw, cp); err != nil {
		return nil, err
	}
	return cp, nil
}
