// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	// SteamSource is the provider identifier recorded on achievements.
	SteamSource = "steam"

	defaultSteamBaseURL = "https://api.steampowered.com"

	// The app list is a multi-megabyte payload; Steam throttles callers
	// that hammer it. One request per 30s is plenty for a chat bot.
	steamCatalogInterval = 30 * time.Second
)

// steamAppList mirrors ISteamApps/GetAppList/v2.
type steamAppList struct {
	AppList struct {
		Apps []struct {
			AppID int    `json:"appid"`
			Name  string `json:"name"`
		} `json:"apps"`
	} `json:"applist"`
}

// steamSchema mirrors ISteamUserStats/GetSchemaForGame/v2.
type steamSchema struct {
	Game struct {
		AvailableGameStats struct {
			Achievements []struct {
				// Name is Steam's internal API name (e.g. "ACH_WIN_ONE").
				Name        string `json:"name"`
				DisplayName string `json:"displayName"`
				Description string `json:"description"`
			} `json:"achievements"`
		} `json:"availableGameStats"`
	} `json:"game"`
}

// steamGlobalPercentages mirrors GetGlobalAchievementPercentagesForApp/v2.
type steamGlobalPercentages struct {
	AchievementPercentages struct {
		Achievements []struct {
			Name    string  `json:"name"`
			Percent float64 `json:"percent"`
		} `json:"achievements"`
	} `json:"achievementpercentages"`
}

// Steam fetches achievements from the Steam Web API.
//
// Resolution is a case-insensitive substring match against the full app
// list, taking the first hit, then the game's achievement schema joined
// with global completion percentages for rarity.
type Steam struct {
	client  HTTPClient
	apiKey  string
	baseURL string
	limiter *rate.Limiter
	logger  *slog.Logger
}

// SteamOption configures a Steam provider.
type SteamOption func(*Steam)

// WithSteamHTTPClient injects a custom HTTP client (used in tests).
func WithSteamHTTPClient(c HTTPClient) SteamOption {
	return func(s *Steam) { s.client = c }
}

// WithSteamBaseURL overrides the API base URL (used in tests).
func WithSteamBaseURL(u string) SteamOption {
	return func(s *Steam) { s.baseURL = strings.TrimRight(u, "/") }
}

// NewSteam creates a Steam provider. apiKey is the Steam Web API key;
// requests to keyed endpoints fail upstream without it.
func NewSteam(apiKey string, logger *slog.Logger, opts ...SteamOption) *Steam {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Steam{
		client:  &http.Client{Timeout: 30 * time.Second},
		apiKey:  apiKey,
		baseURL: defaultSteamBaseURL,
		limiter: rate.NewLimiter(rate.Every(steamCatalogInterval), 1),
		logger:  logger.With("provider", SteamSource),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name implements Provider.
func (s *Steam) Name() string { return SteamSource }

// Fetch implements Provider.
func (s *Steam) Fetch(ctx context.Context, gameName string) ([]RawAchievement, error) {
	appID, found, err := s.resolveAppID(ctx, gameName)
	if err != nil {
		return nil, err
	}
	if !found {
		s.logger.Debug("game not in steam catalog", "game", gameName)
		return nil, nil
	}

	schemaURL := fmt.Sprintf("%s/ISteamUserStats/GetSchemaForGame/v2/?key=%s&appid=%d",
		s.baseURL, url.QueryEscape(s.apiKey), appID)
	var schema steamSchema
	if err := s.getJSON(ctx, "schema", schemaURL, &schema); err != nil {
		return nil, err
	}

	achievements := schema.Game.AvailableGameStats.Achievements
	if len(achievements) == 0 {
		return nil, nil
	}

	// Rarity comes from a separate, unkeyed endpoint. A failure here is a
	// genuine provider failure: the schema fetch already succeeded, so a
	// broken percentages call means the source is misbehaving.
	statsURL := fmt.Sprintf("%s/ISteamUserStats/GetGlobalAchievementPercentagesForApp/v2/?gameid=%d",
		s.baseURL, appID)
	var stats steamGlobalPercentages
	if err := s.getJSON(ctx, "percentages", statsURL, &stats); err != nil {
		return nil, err
	}

	rarityByAPIName := make(map[string]float64, len(stats.AchievementPercentages.Achievements))
	for _, a := range stats.AchievementPercentages.Achievements {
		rarityByAPIName[a.Name] = a.Percent
	}

	out := make([]RawAchievement, 0, len(achievements))
	for _, a := range achievements {
		name := a.DisplayName
		if name == "" {
			name = a.Name
		}
		raw := RawAchievement{
			Name:        name,
			Description: a.Description,
		}
		if pct, ok := rarityByAPIName[a.Name]; ok {
			p := pct
			raw.Rarity = &p
		}
		out = append(out, raw)
	}

	s.logger.Info("fetched steam achievements",
		"game", gameName, "app_id", appID, "count", len(out))
	return out, nil
}

// resolveAppID maps a free-text name to a Steam app ID via the app list.
// Returns found=false when no catalog entry matches.
func (s *Steam) resolveAppID(ctx context.Context, gameName string) (int, bool, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return 0, false, &Error{Source: SteamSource, Op: "applist", Err: err}
	}

	var apps steamAppList
	listURL := s.baseURL + "/ISteamApps/GetAppList/v2/"
	if err := s.getJSON(ctx, "applist", listURL, &apps); err != nil {
		return 0, false, err
	}

	needle := strings.ToLower(gameName)
	for _, app := range apps.AppList.Apps {
		if strings.Contains(strings.ToLower(app.Name), needle) {
			return app.AppID, true, nil
		}
	}
	return 0, false, nil
}

func (s *Steam) getJSON(ctx context.Context, op, rawURL string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return &Error{Source: SteamSource, Op: op, Err: err}
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return &Error{Source: SteamSource, Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &Error{Source: SteamSource, Op: op,
			Err: fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))}
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return &Error{Source: SteamSource, Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
