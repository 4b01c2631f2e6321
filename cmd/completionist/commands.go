// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/AleutianAI/completionist/pkg/logging"
	"github.com/AleutianAI/completionist/services/tracker"
	"github.com/AleutianAI/completionist/services/tracker/guide"
	"github.com/AleutianAI/completionist/services/tracker/provider"
	"github.com/AleutianAI/completionist/services/tracker/store"
)

var rootCmd = &cobra.Command{
	Use:   "completionist",
	Short: "Game completion tracking service",
	Long: `Completionist tracks per-user progress toward 100% completion of
video games. It aggregates achievements from external providers, keeps a
durable completion ledger, and generates LLM-written completion guides.`,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the tracker HTTP service",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runServe(); err != nil {
			log.Fatalf("serve: %v", err)
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the service version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(tracker.ServiceVersion)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

func runServe() error {
	logger, err := logging.New(logging.Config{
		Level:   logging.ParseLevel(config.Logging.Level),
		LogDir:  config.Logging.Dir,
		Service: "tracker",
		JSON:    config.Logging.JSON,
	})
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer logger.Close()

	shutdownTracing, err := initTracing()
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer shutdownTracing()

	ledger, err := openLedger(logger)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer ledger.Close()

	var providers []provider.Provider
	var metadata provider.MetadataFetcher
	if config.Providers.Steam.Enabled {
		providers = append(providers, provider.NewSteam(os.Getenv("STEAM_API_KEY"), logger.Logger))
	}
	if config.Providers.RAWG.Enabled {
		rawg := provider.NewRAWG(os.Getenv("RAWG_API_KEY"), logger.Logger)
		providers = append(providers, rawg)
		metadata = rawg
	}
	if len(providers) == 0 {
		logger.Warn("no providers enabled, all games will be tracked manually")
	}

	generator, err := buildGenerator()
	if err != nil {
		// A missing API key degrades to manual guides; it should not
		// keep the tracker from starting.
		logger.Warn("guide generator unavailable", "error", err)
	}

	agg := tracker.NewAggregator(providers,
		time.Duration(config.Providers.TimeoutSeconds)*time.Second, logger.Logger)

	svc, err := tracker.NewService(tracker.ServiceConfig{
		Ledger:       ledger,
		Aggregator:   agg,
		Generator:    generator,
		Metadata:     metadata,
		GuideTimeout: time.Duration(config.Guide.TimeoutSeconds) * time.Second,
		Logger:       logger.Logger,
	})
	if err != nil {
		return err
	}

	handlers := tracker.NewHandlers(svc)

	router := gin.Default()
	router.GET("/healthz", handlers.HandleHealth)
	router.GET("/readyz", handlers.HandleReady)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/v1")
	tracker.RegisterRoutes(v1, handlers)

	logger.Info("starting tracker server", "port", config.Server.Port)
	if err := router.Run(":" + config.Server.Port); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

func openLedger(logger *logging.Logger) (store.Ledger, error) {
	switch config.Store.Backend {
	case "file":
		return store.OpenFile(config.Store.Path)
	default:
		cfg := store.DefaultBadgerConfig(config.Store.Path)
		cfg.Logger = logger.Logger
		return store.OpenBadger(cfg)
	}
}

func buildGenerator() (guide.Generator, error) {
	switch config.Guide.Backend {
	case "openai":
		gen, err := guide.NewOpenAIGenerator()
		if err != nil {
			return nil, err
		}
		return gen, nil
	case "none":
		return nil, nil
	default:
		gen, err := guide.NewAnthropicGenerator()
		if err != nil {
			return nil, err
		}
		return gen, nil
	}
}

// initTracing wires a stdout span exporter. Appropriate for single-node
// deployments; swap the exporter for OTLP when running behind a collector.
func initTracing() (func(), error) {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(tp)
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tp.Shutdown(ctx)
	}, nil
}
