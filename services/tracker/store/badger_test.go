// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/completionist/services/tracker/datatypes"
)

func newGame(name string, achievements int) *datatypes.TrackedGame {
	g := &datatypes.TrackedGame{
		DisplayName:  name,
		Achievements: make(map[string]*datatypes.Achievement, achievements),
		StartedDate:  time.Now().UTC(),
	}
	for i := 1; i <= achievements; i++ {
		g.Achievements[strconv.Itoa(i)] = &datatypes.Achievement{
			Name:        "Achievement " + strconv.Itoa(i),
			Description: datatypes.NoDescription,
			Source:      "test",
		}
	}
	return g
}

func openMemLedger(t *testing.T) *BadgerLedger {
	t.Helper()
	l, err := OpenBadger(InMemoryBadgerConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestBadgerLedger_CreateGet(t *testing.T) {
	l := openMemLedger(t)
	ctx := context.Background()

	require.NoError(t, l.Create(ctx, "alice", "hades", newGame("Hades", 2)))

	got, err := l.Get(ctx, "alice", "hades")
	require.NoError(t, err)
	assert.Equal(t, "Hades", got.DisplayName)
	assert.Len(t, got.Achievements, 2)
}

func TestBadgerLedger_GetNotTracked(t *testing.T) {
	l := openMemLedger(t)
	_, err := l.Get(context.Background(), "alice", "nothing")
	assert.ErrorIs(t, err, ErrNotTracked)
}

func TestBadgerLedger_CreateDuplicate(t *testing.T) {
	l := openMemLedger(t)
	ctx := context.Background()

	require.NoError(t, l.Create(ctx, "alice", "hades", newGame("Hades", 1)))
	err := l.Create(ctx, "alice", "hades", newGame("HADES", 1))
	require.ErrorIs(t, err, ErrAlreadyTracked)

	// Original entry untouched.
	got, err := l.Get(ctx, "alice", "hades")
	require.NoError(t, err)
	assert.Equal(t, "Hades", got.DisplayName)
}

func TestBadgerLedger_MutatePersists(t *testing.T) {
	l := openMemLedger(t)
	ctx := context.Background()
	require.NoError(t, l.Create(ctx, "alice", "hades", newGame("Hades", 2)))

	updated, err := l.Mutate(ctx, "alice", "hades", func(g *datatypes.TrackedGame) error {
		g.Achievements["1"].Completed = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, updated.Achievements["1"].Completed)

	got, err := l.Get(ctx, "alice", "hades")
	require.NoError(t, err)
	assert.True(t, got.Achievements["1"].Completed)
	assert.False(t, got.Achievements["2"].Completed)
}

func TestBadgerLedger_MutateAbort(t *testing.T) {
	l := openMemLedger(t)
	ctx := context.Background()
	require.NoError(t, l.Create(ctx, "alice", "hades", newGame("Hades", 1)))

	sentinel := errors.New("nope")
	_, err := l.Mutate(ctx, "alice", "hades", func(g *datatypes.TrackedGame) error {
		g.Achievements["1"].Completed = true
		return sentinel
	})
	// fn's error passes through unwrapped and nothing persists.
	require.ErrorIs(t, err, sentinel)
	assert.NotErrorIs(t, err, ErrPersistence)

	got, err := l.Get(ctx, "alice", "hades")
	require.NoError(t, err)
	assert.False(t, got.Achievements["1"].Completed)
}

func TestBadgerLedger_MutateNotTracked(t *testing.T) {
	l := openMemLedger(t)
	_, err := l.Mutate(context.Background(), "alice", "nothing",
		func(g *datatypes.TrackedGame) error { return nil })
	assert.ErrorIs(t, err, ErrNotTracked)
}

func TestBadgerLedger_Remove(t *testing.T) {
	l := openMemLedger(t)
	ctx := context.Background()
	require.NoError(t, l.Create(ctx, "alice", "hades", newGame("Hades", 1)))

	require.NoError(t, l.Remove(ctx, "alice", "hades"))
	_, err := l.Get(ctx, "alice", "hades")
	assert.ErrorIs(t, err, ErrNotTracked)

	assert.ErrorIs(t, l.Remove(ctx, "alice", "hades"), ErrNotTracked)
}

func TestBadgerLedger_ListForUserOrder(t *testing.T) {
	l := openMemLedger(t)
	ctx := context.Background()

	// Folded keys sort differently than insertion order on purpose.
	for _, name := range []string{"zelda", "axiom verge", "hades"} {
		require.NoError(t, l.Create(ctx, "alice", name, newGame(name, 1)))
	}
	require.NoError(t, l.Create(ctx, "bob", "celeste", newGame("celeste", 1)))

	entries, err := l.ListForUser(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "zelda", entries[0].Folded)
	assert.Equal(t, "axiom verge", entries[1].Folded)
	assert.Equal(t, "hades", entries[2].Folded)
}

func TestBadgerLedger_ReopenPreservesStateAndOrder(t *testing.T) {
	dir := t.TempDir()
	cfg := BadgerConfig{Path: dir}
	ctx := context.Background()

	l, err := OpenBadger(cfg)
	require.NoError(t, err)
	require.NoError(t, l.Create(ctx, "alice", "zelda", newGame("Zelda", 1)))
	require.NoError(t, l.Create(ctx, "alice", "hades", newGame("Hades", 2)))
	_, err = l.Mutate(ctx, "alice", "hades", func(g *datatypes.TrackedGame) error {
		g.Achievements["1"].Completed = true
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, l.Close())

	l, err = OpenBadger(cfg)
	require.NoError(t, err)
	defer func() { _ = l.Close() }()

	got, err := l.Get(ctx, "alice", "hades")
	require.NoError(t, err)
	assert.True(t, got.Achievements["1"].Completed)

	// Insertion order survives restart, and the restored sequence counter
	// keeps new entries at the end.
	require.NoError(t, l.Create(ctx, "alice", "celeste", newGame("Celeste", 1)))
	entries, err := l.ListForUser(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "zelda", entries[0].Folded)
	assert.Equal(t, "hades", entries[1].Folded)
	assert.Equal(t, "celeste", entries[2].Folded)
}

// TestBadgerLedger_ConcurrentMutates hammers one key with concurrent
// read-modify-writes; the per-key lock must prevent lost updates.
func TestBadgerLedger_ConcurrentMutates(t *testing.T) {
	l := openMemLedger(t)
	ctx := context.Background()

	const n = 50
	g := newGame("Hades", n)
	require.NoError(t, l.Create(ctx, "alice", "hades", g))

	var wg sync.WaitGroup
	for i := 1; i <= n; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.Mutate(ctx, "alice", "hades", func(g *datatypes.TrackedGame) error {
				g.Achievements[strconv.Itoa(i)].Completed = true
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := l.Get(ctx, "alice", "hades")
	require.NoError(t, err)
	for id, ach := range got.Achievements {
		assert.True(t, ach.Completed, "achievement %s lost its update", id)
	}
}
