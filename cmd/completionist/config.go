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
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
)

var configPath string

// Config is the top-level service configuration, loaded from config.yaml.
// API keys are not stored here; they come from the environment or
// container secrets (see the guide and provider constructors).
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Store     StoreConfig     `yaml:"store"`
	Providers ProvidersConfig `yaml:"providers"`
	Guide     GuideConfig     `yaml:"guide"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Port string `yaml:"port" validate:"required,numeric"`
}

// StoreConfig selects and configures the ledger backend.
type StoreConfig struct {
	// Backend is "badger" or "file".
	Backend string `yaml:"backend" validate:"required,oneof=badger file"`

	// Path is the badger directory or the JSON file path.
	Path string `yaml:"path" validate:"required"`
}

// ProvidersConfig configures achievement sources. Order here is priority
// order for dedup; steam is processed before rawg.
type ProvidersConfig struct {
	Steam          ProviderConfig `yaml:"steam"`
	RAWG           ProviderConfig `yaml:"rawg"`
	TimeoutSeconds int            `yaml:"timeout_seconds" validate:"gte=0,lte=600"`
}

// ProviderConfig enables one provider.
type ProviderConfig struct {
	Enabled bool `yaml:"enabled"`
}

// GuideConfig selects the guide generator backend.
type GuideConfig struct {
	// Backend is "anthropic", "openai", or "none".
	Backend        string `yaml:"backend" validate:"required,oneof=anthropic openai none"`
	TimeoutSeconds int    `yaml:"timeout_seconds" validate:"gte=0,lte=600"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	JSON  bool   `yaml:"json"`
	Dir   string `yaml:"dir"`
}

// applyDefaults fills unset fields with sensible defaults so a minimal
// config.yaml works out of the box.
func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8085"
	}
	if c.Store.Backend == "" {
		c.Store.Backend = "badger"
	}
	if c.Store.Path == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			c.Store.Path = home + "/.completionist/ledger"
		} else {
			c.Store.Path = "./ledger"
		}
		if c.Store.Backend == "file" {
			c.Store.Path += ".json"
		}
	}
	if c.Guide.Backend == "" {
		c.Guide.Backend = "anthropic"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate checks the configuration with struct tags.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}
