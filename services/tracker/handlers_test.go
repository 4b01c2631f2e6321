// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package tracker

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/completionist/services/tracker/provider"
)

func newTestRouter(t *testing.T, cfg ServiceConfig) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc := newTestService(t, cfg)

	router := gin.New()
	handlers := NewHandlers(svc)
	router.GET("/healthz", handlers.HandleHealth)
	router.GET("/readyz", handlers.HandleReady)
	RegisterRoutes(router.Group("/v1"), handlers)
	return router
}

func doRequest(t *testing.T, router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHandleHealth(t *testing.T) {
	router := newTestRouter(t, ServiceConfig{})

	w := doRequest(t, router, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, ServiceVersion, resp.Version)
}

func TestHandleAddGame(t *testing.T) {
	router := newTestRouter(t, ServiceConfig{
		Aggregator: NewAggregator([]provider.Provider{twoAchievementProvider()}, 0, nil),
	})

	w := doRequest(t, router, http.MethodPost, "/v1/users/alice/games", `{"name":"Hades"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var summary AddGameSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.Equal(t, "Hades", summary.Game)
	assert.Equal(t, 2, summary.AchievementCount)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestHandleAddGame_Duplicate(t *testing.T) {
	router := newTestRouter(t, ServiceConfig{
		Aggregator: NewAggregator([]provider.Provider{twoAchievementProvider()}, 0, nil),
	})

	w := doRequest(t, router, http.MethodPost, "/v1/users/alice/games", `{"name":"Hades"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doRequest(t, router, http.MethodPost, "/v1/users/alice/games", `{"name":"hades"}`)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "ALREADY_TRACKED", decodeError(t, w).Code)
}

func TestHandleAddGame_BadRequests(t *testing.T) {
	router := newTestRouter(t, ServiceConfig{})

	tests := []struct {
		name     string
		path     string
		body     string
		wantCode string
	}{
		{"missing name", "/v1/users/alice/games", `{}`, "INVALID_REQUEST"},
		{"not json", "/v1/users/alice/games", `name=Hades`, "INVALID_REQUEST"},
		{"blank name", "/v1/users/alice/games", `{"name":"   "}`, "INVALID_GAME_NAME"},
		{"bad user", "/v1/users/bad%20user/games", `{"name":"Hades"}`, "INVALID_USER_ID"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(t, router, http.MethodPost, tt.path, tt.body)
			require.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.wantCode, decodeError(t, w).Code)
		})
	}
}

func TestHandleShowGame_NotTracked(t *testing.T) {
	router := newTestRouter(t, ServiceConfig{})

	w := doRequest(t, router, http.MethodGet, "/v1/users/alice/games/Nothing", "")
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_TRACKED", decodeError(t, w).Code)
}

func TestHandleCheckAchievement(t *testing.T) {
	router := newTestRouter(t, ServiceConfig{
		Aggregator: NewAggregator([]provider.Provider{twoAchievementProvider()}, 0, nil),
	})
	doRequest(t, router, http.MethodPost, "/v1/users/alice/games", `{"name":"Hades"}`)

	w := doRequest(t, router, http.MethodPost,
		"/v1/users/alice/games/Hades/achievements/1/toggle", "")
	require.Equal(t, http.StatusOK, w.Code)

	var result CheckResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.True(t, result.Completed)
	assert.Equal(t, 1, result.Progress.Completed)

	// Unknown achievement ID maps to 404.
	w = doRequest(t, router, http.MethodPost,
		"/v1/users/alice/games/Hades/achievements/99/toggle", "")
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "ACHIEVEMENT_NOT_FOUND", decodeError(t, w).Code)
}

func TestHandleListGames(t *testing.T) {
	router := newTestRouter(t, ServiceConfig{
		Aggregator: NewAggregator([]provider.Provider{twoAchievementProvider()}, 0, nil),
	})
	doRequest(t, router, http.MethodPost, "/v1/users/alice/games", `{"name":"Hades"}`)
	doRequest(t, router, http.MethodPost, "/v1/users/alice/games", `{"name":"Celeste"}`)

	w := doRequest(t, router, http.MethodGet, "/v1/users/alice/games", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Games []GameSummary `json:"games"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Games, 2)
	assert.Equal(t, "Hades", resp.Games[0].Game)
	assert.Equal(t, "Celeste", resp.Games[1].Game)
}

func TestHandleRemoveGame(t *testing.T) {
	router := newTestRouter(t, ServiceConfig{
		Aggregator: NewAggregator([]provider.Provider{twoAchievementProvider()}, 0, nil),
	})
	doRequest(t, router, http.MethodPost, "/v1/users/alice/games", `{"name":"Hades"}`)

	w := doRequest(t, router, http.MethodDelete, "/v1/users/alice/games/Hades", "")
	require.Equal(t, http.StatusNoContent, w.Code)

	w = doRequest(t, router, http.MethodDelete, "/v1/users/alice/games/Hades", "")
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_TRACKED", decodeError(t, w).Code)
}

func TestHandleGuide_Unavailable(t *testing.T) {
	router := newTestRouter(t, ServiceConfig{
		Aggregator: NewAggregator([]provider.Provider{twoAchievementProvider()}, 0, nil),
	})
	doRequest(t, router, http.MethodPost, "/v1/users/alice/games", `{"name":"Hades"}`)

	// No generator configured: guide requests degrade to 502.
	w := doRequest(t, router, http.MethodGet, "/v1/users/alice/games/Hades/guide", "")
	require.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "GUIDE_UNAVAILABLE", decodeError(t, w).Code)
}

func TestHandleGuide(t *testing.T) {
	router := newTestRouter(t, ServiceConfig{
		Aggregator: NewAggregator([]provider.Provider{twoAchievementProvider()}, 0, nil),
		Generator:  &fakeGenerator{text: "Beat Hades 10 times."},
	})
	doRequest(t, router, http.MethodPost, "/v1/users/alice/games", `{"name":"Hades"}`)

	w := doRequest(t, router, http.MethodGet, "/v1/users/alice/games/Hades/guide", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Guide string `json:"guide"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Beat Hades 10 times.", resp.Guide)
}

func TestRequestIDPassthrough(t *testing.T) {
	router := newTestRouter(t, ServiceConfig{})

	req := httptest.NewRequest(http.MethodGet, "/v1/users/alice/games", nil)
	req.Header.Set("X-Request-ID", "req-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "req-123", w.Header().Get("X-Request-ID"))
}
