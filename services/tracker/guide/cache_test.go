// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package guide

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/completionist/services/tracker/datatypes"
	"github.com/AleutianAI/completionist/services/tracker/store"
)

type stubGenerator struct {
	text  string
	err   error
	calls int
}

func (s *stubGenerator) Generate(ctx context.Context, gameName string, achievementNames []string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.text, nil
}

func newCacheFixture(t *testing.T, existingGuide string) (*Cache, store.Ledger) {
	t.Helper()
	ledger, err := store.OpenBadger(store.InMemoryBadgerConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = ledger.Close() })

	game := &datatypes.TrackedGame{
		DisplayName: "Hades",
		Guide:       existingGuide,
		Achievements: map[string]*datatypes.Achievement{
			"1": {Name: "Is There No Escape?"},
		},
	}
	require.NoError(t, ledger.Create(context.Background(), "alice", "hades", game))
	return NewCache(ledger, nil), ledger
}

func TestGetOrGenerate_CachedGuideUnchanged(t *testing.T) {
	cache, _ := newCacheFixture(t, "existing guide text")
	gen := &stubGenerator{text: "freshly generated"}

	text, err := cache.GetOrGenerate(context.Background(), "alice", "hades", gen)
	require.NoError(t, err)
	assert.Equal(t, "existing guide text", text)
	assert.Zero(t, gen.calls)
}

func TestGetOrGenerate_GeneratesAndPersists(t *testing.T) {
	cache, ledger := newCacheFixture(t, "")
	gen := &stubGenerator{text: "step one: escape"}

	text, err := cache.GetOrGenerate(context.Background(), "alice", "hades", gen)
	require.NoError(t, err)
	assert.Equal(t, "step one: escape", text)
	assert.Equal(t, 1, gen.calls)

	// The guide is durable: a direct ledger read sees it.
	game, err := ledger.Get(context.Background(), "alice", "hades")
	require.NoError(t, err)
	assert.Equal(t, "step one: escape", game.Guide)

	// Subsequent requests hit the cache.
	text, err = cache.GetOrGenerate(context.Background(), "alice", "hades", gen)
	require.NoError(t, err)
	assert.Equal(t, "step one: escape", text)
	assert.Equal(t, 1, gen.calls)
}

func TestGetOrGenerate_GeneratorFailure(t *testing.T) {
	cache, ledger := newCacheFixture(t, "")
	gen := &stubGenerator{err: errors.New("model overloaded")}

	_, err := cache.GetOrGenerate(context.Background(), "alice", "hades", gen)
	require.ErrorIs(t, err, ErrUnavailable)

	// Failure leaves the game unguided but otherwise intact.
	game, err := ledger.Get(context.Background(), "alice", "hades")
	require.NoError(t, err)
	assert.Empty(t, game.Guide)
	assert.Len(t, game.Achievements, 1)
}

func TestGetOrGenerate_NilGenerator(t *testing.T) {
	cache, _ := newCacheFixture(t, "")
	_, err := cache.GetOrGenerate(context.Background(), "alice", "hades", nil)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestGetOrGenerate_UntrackedGame(t *testing.T) {
	cache, _ := newCacheFixture(t, "")
	gen := &stubGenerator{text: "never used"}

	_, err := cache.GetOrGenerate(context.Background(), "alice", "celeste", gen)
	assert.ErrorIs(t, err, store.ErrNotTracked)
	assert.Zero(t, gen.calls)
}

func TestBuildPrompt(t *testing.T) {
	prompt := buildPrompt("Hades", []string{"Is There No Escape?", "The Useless Trinket"})
	assert.Contains(t, prompt, "completion guide for Hades")
	assert.Contains(t, prompt, "- Is There No Escape?")
	assert.Contains(t, prompt, "- The Useless Trinket")
	assert.Contains(t, prompt, "Optimal achievement order")
	assert.Contains(t, prompt, "missable")
}
