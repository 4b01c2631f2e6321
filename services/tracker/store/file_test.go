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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/completionist/services/tracker/datatypes"
)

func openFileLedger(t *testing.T) (*FileLedger, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "user_games.json")
	l, err := OpenFile(path)
	require.NoError(t, err)
	return l, path
}

func TestFileLedger_MissingFileIsEmpty(t *testing.T) {
	l, path := openFileLedger(t)

	entries, err := l.ListForUser(context.Background(), "alice")
	require.NoError(t, err)
	assert.Empty(t, entries)

	// Opening never creates the file; the first write does.
	_, err = os.Stat(path)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFileLedger_RoundTrip(t *testing.T) {
	l, path := openFileLedger(t)
	ctx := context.Background()

	require.NoError(t, l.Create(ctx, "alice", "hades", newGame("Hades", 2)))
	_, err := l.Mutate(ctx, "alice", "hades", func(g *datatypes.TrackedGame) error {
		g.Achievements["2"].Completed = true
		return nil
	})
	require.NoError(t, err)

	// Fresh open from the same file sees the persisted state.
	reloaded, err := OpenFile(path)
	require.NoError(t, err)
	got, err := reloaded.Get(ctx, "alice", "hades")
	require.NoError(t, err)
	assert.Equal(t, "Hades", got.DisplayName)
	assert.False(t, got.Achievements["1"].Completed)
	assert.True(t, got.Achievements["2"].Completed)
}

func TestFileLedger_NoTempFilesLeftBehind(t *testing.T) {
	l, path := openFileLedger(t)
	ctx := context.Background()

	require.NoError(t, l.Create(ctx, "alice", "hades", newGame("Hades", 1)))
	require.NoError(t, l.Remove(ctx, "alice", "hades"))

	files, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, filepath.Base(path), files[0].Name())
}

func TestFileLedger_MutateAbortLeavesStateUntouched(t *testing.T) {
	l, path := openFileLedger(t)
	ctx := context.Background()
	require.NoError(t, l.Create(ctx, "alice", "hades", newGame("Hades", 1)))

	sentinel := errors.New("nope")
	_, err := l.Mutate(ctx, "alice", "hades", func(g *datatypes.TrackedGame) error {
		g.Achievements["1"].Completed = true
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)

	// Neither the in-memory state nor the file changed.
	got, err := l.Get(ctx, "alice", "hades")
	require.NoError(t, err)
	assert.False(t, got.Achievements["1"].Completed)

	reloaded, err := OpenFile(path)
	require.NoError(t, err)
	got, err = reloaded.Get(ctx, "alice", "hades")
	require.NoError(t, err)
	assert.False(t, got.Achievements["1"].Completed)
}

func TestFileLedger_CallersNeverShareState(t *testing.T) {
	l, _ := openFileLedger(t)
	ctx := context.Background()
	require.NoError(t, l.Create(ctx, "alice", "hades", newGame("Hades", 1)))

	got, err := l.Get(ctx, "alice", "hades")
	require.NoError(t, err)
	got.Achievements["1"].Completed = true

	// Mutating the returned copy does not leak into the store.
	again, err := l.Get(ctx, "alice", "hades")
	require.NoError(t, err)
	assert.False(t, again.Achievements["1"].Completed)
}

func TestFileLedger_ListOrderSurvivesReload(t *testing.T) {
	l, path := openFileLedger(t)
	ctx := context.Background()

	for _, name := range []string{"zelda", "axiom verge", "hades"} {
		require.NoError(t, l.Create(ctx, "alice", name, newGame(name, 1)))
	}

	reloaded, err := OpenFile(path)
	require.NoError(t, err)
	require.NoError(t, reloaded.Create(ctx, "alice", "celeste", newGame("celeste", 1)))

	entries, err := reloaded.ListForUser(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, entries, 4)
	assert.Equal(t, "zelda", entries[0].Folded)
	assert.Equal(t, "axiom verge", entries[1].Folded)
	assert.Equal(t, "hades", entries[2].Folded)
	assert.Equal(t, "celeste", entries[3].Folded)
}

func TestFileLedger_CorruptFileFailsOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "user_games.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	_, err := OpenFile(path)
	assert.Error(t, err)
}
