// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package tracker aggregates achievement metadata from external providers
// and maintains each user's durable completion ledger.
//
// The Service type is the single API surface the presentation layer calls.
// Everything else in this service tree is an implementation detail:
// provider adapters, the ledger store, the guide cache.
package tracker

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/completionist/services/tracker/datatypes"
	"github.com/AleutianAI/completionist/services/tracker/guide"
	"github.com/AleutianAI/completionist/services/tracker/provider"
	"github.com/AleutianAI/completionist/services/tracker/store"
)

var serviceTracer = otel.Tracer("tracker.service")

// DefaultGuideTimeout bounds one guide-generation call. Exceeding it fails
// that call only, never the surrounding command.
const DefaultGuideTimeout = 90 * time.Second

// ServiceConfig configures the tracker facade.
type ServiceConfig struct {
	// Ledger is the durable store. Required.
	Ledger store.Ledger

	// Aggregator merges provider results. Required.
	Aggregator *Aggregator

	// Generator produces completion guides. Optional: when nil, games are
	// created without guides and Guide requests fail with
	// guide.ErrUnavailable.
	Generator guide.Generator

	// Metadata fetches the optional game-info blob. Optional.
	Metadata provider.MetadataFetcher

	// GuideTimeout bounds one guide-generation call.
	// Default: DefaultGuideTimeout.
	GuideTimeout time.Duration

	// Logger receives structured service logs. Default: slog.Default().
	Logger *slog.Logger
}

// Service is the query/command facade over the tracking engine.
type Service struct {
	ledger       store.Ledger
	agg          *Aggregator
	generator    guide.Generator
	metadata     provider.MetadataFetcher
	guides       *guide.Cache
	guideTimeout time.Duration
	logger       *slog.Logger
}

// NewService creates the facade. Ledger and Aggregator are required.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Ledger == nil {
		return nil, errors.New("ledger is required")
	}
	if cfg.Aggregator == nil {
		return nil, errors.New("aggregator is required")
	}
	if cfg.GuideTimeout <= 0 {
		cfg.GuideTimeout = DefaultGuideTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Service{
		ledger:       cfg.Ledger,
		agg:          cfg.Aggregator,
		generator:    cfg.Generator,
		metadata:     cfg.Metadata,
		guides:       guide.NewCache(cfg.Ledger, cfg.Logger),
		guideTimeout: cfg.GuideTimeout,
		logger:       cfg.Logger,
	}, nil
}

// AddGame starts tracking a game for the user.
//
// Achievements are aggregated from all providers; the guide and metadata
// passes are best-effort and never fail the command. Total external failure
// degrades to manual mode (zero achievements, no guide) but the game is
// still created. Fails with store.ErrAlreadyTracked when the user already
// tracks the folded name.
func (s *Service) AddGame(ctx context.Context, userID, name string) (summary *AddGameSummary, err error) {
	ctx, span := serviceTracer.Start(ctx, "tracker.AddGame")
	defer span.End()
	defer s.observe("add_game", time.Now(), &err)
	span.SetAttributes(attribute.String("game", name))

	folded := datatypes.FoldName(name)
	if _, getErr := s.ledger.Get(ctx, userID, folded); getErr == nil {
		return nil, store.ErrAlreadyTracked
	} else if !errors.Is(getErr, store.ErrNotTracked) {
		return nil, getErr
	}

	res := s.agg.Aggregate(ctx, name)

	now := time.Now().UTC()
	game := &datatypes.TrackedGame{
		DisplayName:  name,
		Achievements: make(map[string]*datatypes.Achievement, len(res.Achievements)),
		StartedDate:  now,
	}
	for i := range res.Achievements {
		ach := res.Achievements[i]
		game.Achievements[strconv.Itoa(i+1)] = &ach
	}

	summary = &AddGameSummary{
		Game:             name,
		AchievementCount: len(res.Achievements),
		SourceCounts:     res.SourceCounts,
		ManualMode:       len(res.Achievements) == 0,
		StartedDate:      now,
	}
	if len(res.SourceErrors) > 0 {
		summary.SourceErrors = make(map[string]string, len(res.SourceErrors))
		for source, srcErr := range res.SourceErrors {
			summary.SourceErrors[source] = srcErr.Error()
		}
	}

	if s.metadata != nil {
		if blob, mdErr := s.metadata.Metadata(ctx, name); mdErr != nil {
			s.logger.Warn("metadata fetch failed", "game", name, "error", mdErr)
		} else if blob != nil {
			game.GameInfo = blob
			summary.MetadataFetched = true
		}
	}

	if s.generator != nil && len(res.Achievements) > 0 {
		guideCtx, cancel := context.WithTimeout(ctx, s.guideTimeout)
		text, genErr := s.generator.Generate(guideCtx, name, game.AchievementNames())
		cancel()
		if genErr != nil {
			guideGenerationsTotal.WithLabelValues("error").Inc()
			s.logger.Warn("guide generation failed during add",
				"game", name, "error", genErr)
		} else {
			guideGenerationsTotal.WithLabelValues("ok").Inc()
			game.Guide = text
			summary.GuideGenerated = true
		}
	}

	if err = s.ledger.Create(ctx, userID, folded, game); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	s.logger.Info("game added",
		"user", userID,
		"game", name,
		"achievements", summary.AchievementCount,
		"manual_mode", summary.ManualMode,
		"guide", summary.GuideGenerated)
	return summary, nil
}

// ShowGame returns the game's progress, display-ordered achievements, and
// guide (when present). Fails with store.ErrNotTracked.
func (s *Service) ShowGame(ctx context.Context, userID, name string) (view *GameView, err error) {
	ctx, span := serviceTracer.Start(ctx, "tracker.ShowGame")
	defer span.End()
	defer s.observe("show_game", time.Now(), &err)

	game, err := s.ledger.Get(ctx, userID, datatypes.FoldName(name))
	if err != nil {
		return nil, err
	}
	return &GameView{
		Game:         game.DisplayName,
		Progress:     ComputeProgress(game),
		Achievements: OrderForDisplay(game),
		Guide:        game.Guide,
		GameInfo:     game.GameInfo,
		StartedDate:  game.StartedDate,
	}, nil
}

// CheckAchievement toggles one achievement's completion flag and returns
// the new state with recomputed progress. The read-modify-write runs under
// the ledger's per-key lock, so two concurrent toggles for the same
// achievement can never lose an update. Fails with store.ErrNotTracked or
// ErrAchievementNotFound; a failed toggle persists nothing.
func (s *Service) CheckAchievement(ctx context.Context, userID, name, achievementID string) (result *CheckResult, err error) {
	ctx, span := serviceTracer.Start(ctx, "tracker.CheckAchievement")
	defer span.End()
	defer s.observe("check_achievement", time.Now(), &err)

	updated, err := s.ledger.Mutate(ctx, userID, datatypes.FoldName(name),
		func(g *datatypes.TrackedGame) error {
			_, toggleErr := ToggleAchievement(g, achievementID)
			return toggleErr
		})
	if err != nil {
		return nil, err
	}

	ach := updated.Achievements[achievementID]
	result = &CheckResult{
		AchievementID:   achievementID,
		AchievementName: ach.Name,
		Completed:       ach.Completed,
		Progress:        ComputeProgress(updated),
	}
	s.logger.Info("achievement toggled",
		"user", userID,
		"game", updated.DisplayName,
		"achievement", ach.Name,
		"completed", ach.Completed)
	return result, nil
}

// ListGames returns the user's tracked games with progress, in the order
// they were added.
func (s *Service) ListGames(ctx context.Context, userID string) (games []GameSummary, err error) {
	ctx, span := serviceTracer.Start(ctx, "tracker.ListGames")
	defer span.End()
	defer s.observe("list_games", time.Now(), &err)

	entries, err := s.ledger.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	games = make([]GameSummary, 0, len(entries))
	for _, e := range entries {
		games = append(games, GameSummary{
			Game:     e.Game.DisplayName,
			Progress: ComputeProgress(e.Game),
		})
	}
	return games, nil
}

// RemoveGame stops tracking a game. Fails with store.ErrNotTracked.
func (s *Service) RemoveGame(ctx context.Context, userID, name string) (err error) {
	ctx, span := serviceTracer.Start(ctx, "tracker.RemoveGame")
	defer span.End()
	defer s.observe("remove_game", time.Now(), &err)

	if err = s.ledger.Remove(ctx, userID, datatypes.FoldName(name)); err != nil {
		return err
	}
	s.logger.Info("game removed", "user", userID, "game", name)
	return nil
}

// Guide returns the game's completion guide, generating and caching it on
// first request (e.g. when the best-effort pass during AddGame failed).
// Fails with store.ErrNotTracked or guide.ErrUnavailable.
func (s *Service) Guide(ctx context.Context, userID, name string) (text string, err error) {
	ctx, span := serviceTracer.Start(ctx, "tracker.Guide")
	defer span.End()
	defer s.observe("guide", time.Now(), &err)

	guideCtx, cancel := context.WithTimeout(ctx, s.guideTimeout)
	defer cancel()
	text, err = s.guides.GetOrGenerate(guideCtx, userID, datatypes.FoldName(name), s.generator)
	if err != nil {
		if errors.Is(err, guide.ErrUnavailable) {
			guideGenerationsTotal.WithLabelValues("error").Inc()
		}
		return "", err
	}
	return text, nil
}

// observe records command latency and outcome. Used via defer with a named
// error return.
func (s *Service) observe(command string, start time.Time, err *error) {
	status := "ok"
	if *err != nil {
		status = "error"
	}
	commandDuration.WithLabelValues(command, status).Observe(time.Since(start).Seconds())
}
