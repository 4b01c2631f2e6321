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
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/completionist/services/tracker/datatypes"
)

// ledgerPrefix namespaces ledger keys inside the database.
const ledgerPrefix = "ledger/"

// BadgerConfig holds configuration for a Badger-backed ledger.
type BadgerConfig struct {
	// Path is the directory for database files.
	// Required unless InMemory is true.
	Path string

	// InMemory enables in-memory mode (no disk persistence).
	// Useful for testing.
	InMemory bool

	// SyncWrites enables synchronous writes for durability.
	// Default true for production; tests disable it for speed.
	SyncWrites bool

	// Logger receives Badger's internal log output.
	// If nil, Badger's internal logging is disabled.
	Logger *slog.Logger
}

// DefaultBadgerConfig returns production defaults: durable synchronous
// writes at the given path.
func DefaultBadgerConfig(path string) BadgerConfig {
	return BadgerConfig{Path: path, SyncWrites: true}
}

// InMemoryBadgerConfig returns a configuration for tests: in-memory, no
// sync, no disk I/O.
func InMemoryBadgerConfig() BadgerConfig {
	return BadgerConfig{InMemory: true}
}

// badgerLogger adapts slog.Logger to Badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// BadgerLedger is a Badger-backed Ledger. One key per (user, folded name);
// values are the JSON-encoded TrackedGame. Each operation commits in a
// single Badger transaction, which gives the all-or-nothing durable write
// the ledger contract requires.
type BadgerLedger struct {
	db    *badger.DB
	locks stripedLocks
	seq   atomic.Uint64
}

// OpenBadger opens a Badger-backed ledger with the given configuration.
// The caller must Close the ledger when done.
func OpenBadger(cfg BadgerConfig) (*BadgerLedger, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent ledger")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create ledger directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites)
	opts = opts.WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open ledger database: %w", err)
	}

	l := &BadgerLedger{db: db}
	if err := l.restoreSeq(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return l, nil
}

// restoreSeq seeds the insertion-sequence counter from existing entries so
// ordering survives process restarts.
func (l *BadgerLedger) restoreSeq() error {
	return l.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(ledgerPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		var max uint64
		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var g datatypes.TrackedGame
				if err := json.Unmarshal(val, &g); err != nil {
					return fmt.Errorf("corrupt ledger entry %q: %w", it.Item().Key(), err)
				}
				if g.Seq > max {
					max = g.Seq
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		l.seq.Store(max)
		return nil
	})
}

func ledgerKey(userID, folded string) []byte {
	return []byte(ledgerPrefix + userID + "/" + folded)
}

// Get implements Ledger.
func (l *BadgerLedger) Get(ctx context.Context, userID, folded string) (*datatypes.TrackedGame, error) {
	var game *datatypes.TrackedGame
	err := l.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(ledgerKey(userID, folded))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotTracked
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			game = new(datatypes.TrackedGame)
			return json.Unmarshal(val, game)
		})
	})
	if err != nil {
		return nil, err
	}
	return game, nil
}

// Create implements Ledger.
func (l *BadgerLedger) Create(ctx context.Context, userID, folded string, game *datatypes.TrackedGame) error {
	unlock := l.locks.lock(userID, folded)
	defer unlock()

	key := ledgerKey(userID, folded)
	err := l.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err == nil {
			return ErrAlreadyTracked
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		game.Seq = l.seq.Add(1)
		val, err := json.Marshal(game)
		if err != nil {
			return err
		}
		return txn.Set(key, val)
	})
	if err != nil && !errors.Is(err, ErrAlreadyTracked) {
		return fmt.Errorf("%w: create %s/%s: %v", ErrPersistence, userID, folded, err)
	}
	return err
}

// Mutate implements Ledger. fn runs under the key's lock; an error from fn
// aborts the transaction without persisting.
func (l *BadgerLedger) Mutate(ctx context.Context, userID, folded string, fn MutateFunc) (*datatypes.TrackedGame, error) {
	unlock := l.locks.lock(userID, folded)
	defer unlock()

	key := ledgerKey(userID, folded)
	var (
		updated *datatypes.TrackedGame
		fnErr   error
	)
	err := l.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotTracked
		}
		if err != nil {
			return err
		}

		game := new(datatypes.TrackedGame)
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, game)
		}); err != nil {
			return err
		}

		if err := fn(game); err != nil {
			fnErr = err
			return err
		}

		val, err := json.Marshal(game)
		if err != nil {
			return err
		}
		if err := txn.Set(key, val); err != nil {
			return err
		}
		updated = game
		return nil
	})
	if err != nil {
		// fn's own error (e.g. achievement not found) passes through
		// untouched; the transaction was discarded without persisting.
		if fnErr != nil || errors.Is(err, ErrNotTracked) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: mutate %s/%s: %v", ErrPersistence, userID, folded, err)
	}
	return updated, nil
}

// Remove implements Ledger.
func (l *BadgerLedger) Remove(ctx context.Context, userID, folded string) error {
	unlock := l.locks.lock(userID, folded)
	defer unlock()

	key := ledgerKey(userID, folded)
	err := l.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotTracked
		} else if err != nil {
			return err
		}
		return txn.Delete(key)
	})
	if err != nil && !errors.Is(err, ErrNotTracked) {
		return fmt.Errorf("%w: remove %s/%s: %v", ErrPersistence, userID, folded, err)
	}
	return err
}

// ListForUser implements Ledger. Order is insertion order, recovered from
// the per-entry sequence number.
func (l *BadgerLedger) ListForUser(ctx context.Context, userID string) ([]Entry, error) {
	prefix := []byte(ledgerPrefix + userID + "/")
	var entries []Entry
	err := l.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			folded := strings.TrimPrefix(string(item.Key()), string(prefix))
			game := new(datatypes.TrackedGame)
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, game)
			}); err != nil {
				return err
			}
			entries = append(entries, Entry{Folded: folded, Game: game})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Game.Seq < entries[j].Game.Seq
	})
	return entries, nil
}

// Close implements Ledger.
func (l *BadgerLedger) Close() error {
	return l.db.Close()
}
