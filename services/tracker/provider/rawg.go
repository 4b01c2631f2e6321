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
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	// RAWGSource is the provider identifier recorded on achievements.
	RAWGSource = "rawg"

	defaultRAWGBaseURL = "https://api.rawg.io"

	// RAWG's free tier allows 20k requests/month; one request per second
	// keeps a busy bot well inside that.
	rawgRequestInterval = time.Second
)

// rawgSearchResponse mirrors GET /api/games?search=.
type rawgSearchResponse struct {
	Results []struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	} `json:"results"`
}

// rawgAchievementsResponse mirrors GET /api/games/{id}/achievements.
// RAWG reports percent as a decimal string (e.g. "12.50").
type rawgAchievementsResponse struct {
	Results []struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Percent     string `json:"percent"`
	} `json:"results"`
	Next string `json:"next"`
}

// rawgGameDetail is the subset of GET /api/games/{id} the tracker passes
// through as opaque game metadata.
type rawgGameDetail struct {
	Released  string   `json:"released,omitempty"`
	Rating    float64  `json:"rating,omitempty"`
	Platforms []string `json:"platforms,omitempty"`
	Genres    []string `json:"genres,omitempty"`
}

// RAWG fetches achievements and game metadata from the RAWG video game
// database. It implements both Provider and MetadataFetcher.
type RAWG struct {
	client  HTTPClient
	apiKey  string
	baseURL string
	limiter *rate.Limiter
	logger  *slog.Logger
}

// RAWGOption configures a RAWG provider.
type RAWGOption func(*RAWG)

// WithRAWGHTTPClient injects a custom HTTP client (used in tests).
func WithRAWGHTTPClient(c HTTPClient) RAWGOption {
	return func(r *RAWG) { r.client = c }
}

// WithRAWGBaseURL overrides the API base URL (used in tests).
func WithRAWGBaseURL(u string) RAWGOption {
	return func(r *RAWG) { r.baseURL = strings.TrimRight(u, "/") }
}

// NewRAWG creates a RAWG provider with the given API key.
func NewRAWG(apiKey string, logger *slog.Logger, opts ...RAWGOption) *RAWG {
	if logger == nil {
		logger = slog.Default()
	}
	r := &RAWG{
		client:  &http.Client{Timeout: 30 * time.Second},
		apiKey:  apiKey,
		baseURL: defaultRAWGBaseURL,
		limiter: rate.NewLimiter(rate.Every(rawgRequestInterval), 2),
		logger:  logger.With("provider", RAWGSource),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Name implements Provider.
func (r *RAWG) Name() string { return RAWGSource }

// Fetch implements Provider.
func (r *RAWG) Fetch(ctx context.Context, gameName string) ([]RawAchievement, error) {
	id, found, err := r.resolveGameID(ctx, gameName)
	if err != nil {
		return nil, err
	}
	if !found {
		r.logger.Debug("game not in rawg catalog", "game", gameName)
		return nil, nil
	}

	achURL := fmt.Sprintf("%s/api/games/%d/achievements?key=%s&page_size=100",
		r.baseURL, id, url.QueryEscape(r.apiKey))
	var resp rawgAchievementsResponse
	if err := r.getJSON(ctx, "achievements", achURL, &resp); err != nil {
		return nil, err
	}

	out := make([]RawAchievement, 0, len(resp.Results))
	for _, a := range resp.Results {
		raw := RawAchievement{
			Name:        a.Name,
			Description: a.Description,
		}
		if pct, err := strconv.ParseFloat(a.Percent, 64); err == nil {
			raw.Rarity = &pct
		}
		out = append(out, raw)
	}

	r.logger.Info("fetched rawg achievements",
		"game", gameName, "game_id", id, "count", len(out))
	return out, nil
}

// Metadata implements MetadataFetcher. The returned blob is opaque to the
// tracker; it is stored on the game and passed through to callers.
func (r *RAWG) Metadata(ctx context.Context, gameName string) ([]byte, error) {
	id, found, err := r.resolveGameID(ctx, gameName)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	detailURL := fmt.Sprintf("%s/api/games/%d?key=%s", r.baseURL, id, url.QueryEscape(r.apiKey))

	// RAWG nests platform and genre names; flatten them so the stored
	// blob stays small and stable.
	var detail struct {
		Released  string  `json:"released"`
		Rating    float64 `json:"rating"`
		Platforms []struct {
			Platform struct {
				Name string `json:"name"`
			} `json:"platform"`
		} `json:"platforms"`
		Genres []struct {
			Name string `json:"name"`
		} `json:"genres"`
	}
	if err := r.getJSON(ctx, "detail", detailURL, &detail); err != nil {
		return nil, err
	}

	info := rawgGameDetail{
		Released: detail.Released,
		Rating:   detail.Rating,
	}
	for _, p := range detail.Platforms {
		info.Platforms = append(info.Platforms, p.Platform.Name)
	}
	for _, g := range detail.Genres {
		info.Genres = append(info.Genres, g.Name)
	}

	blob, err := json.Marshal(info)
	if err != nil {
		return nil, &Error{Source: RAWGSource, Op: "detail", Err: err}
	}
	return blob, nil
}

// resolveGameID maps a free-text name to a RAWG game ID via search.
// Returns found=false when no result matches case-insensitively.
func (r *RAWG) resolveGameID(ctx context.Context, gameName string) (int, bool, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return 0, false, &Error{Source: RAWGSource, Op: "search", Err: err}
	}

	searchURL := fmt.Sprintf("%s/api/games?key=%s&search=%s&page_size=20",
		r.baseURL, url.QueryEscape(r.apiKey), url.QueryEscape(gameName))
	var resp rawgSearchResponse
	if err := r.getJSON(ctx, "search", searchURL, &resp); err != nil {
		return 0, false, err
	}

	needle := strings.ToLower(gameName)
	for _, res := range resp.Results {
		if strings.Contains(strings.ToLower(res.Name), needle) {
			return res.ID, true, nil
		}
	}
	return 0, false, nil
}

func (r *RAWG) getJSON(ctx context.Context, op, rawURL string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return &Error{Source: RAWGSource, Op: op, Err: err}
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return &Error{Source: RAWGSource, Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &Error{Source: RAWGSource, Op: op,
			Err: fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))}
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return &Error{Source: RAWGSource, Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
