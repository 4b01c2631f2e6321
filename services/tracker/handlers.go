// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tracker

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AleutianAI/completionist/pkg/validation"
	"github.com/AleutianAI/completionist/services/tracker/guide"
	"github.com/AleutianAI/completionist/services/tracker/store"
)

// ServiceVersion is the tracker service version.
const ServiceVersion = "0.1.0"

// ErrorResponse is the JSON error envelope all handlers return.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// AddGameRequest is the body of POST /v1/users/:user/games.
type AddGameRequest struct {
	Name string `json:"name" binding:"required"`
}

// HealthResponse is returned by the health and readiness endpoints.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// Handlers contains the HTTP handlers for the tracker service.
type Handlers struct {
	svc *Service
}

// NewHandlers creates handlers for the given service.
func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

// HandleAddGame handles POST /v1/users/:user/games.
//
// Response:
//
//	201 Created: AddGameSummary
//	400 Bad Request: invalid body or identifiers
//	409 Conflict: game already tracked
//	500 Internal Server Error: persistence failure
func (h *Handlers) HandleAddGame(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleAddGame")

	userID, ok := h.bindUser(c, logger)
	if !ok {
		return
	}

	var req AddGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}
	if err := validation.ValidateGameName(req.Name); err != nil {
		logger.Warn("Invalid game name", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: err.Error(),
			Code:  "INVALID_GAME_NAME",
		})
		return
	}

	logger.Info("Adding game", "user", userID, "game", req.Name)

	summary, err := h.svc.AddGame(c.Request.Context(), userID, req.Name)
	if err != nil {
		h.writeError(c, logger, err, "ADD_FAILED")
		return
	}
	c.JSON(http.StatusCreated, summary)
}

// HandleShowGame handles GET /v1/users/:user/games/:name.
func (h *Handlers) HandleShowGame(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleShowGame")

	userID, ok := h.bindUser(c, logger)
	if !ok {
		return
	}

	view, err := h.svc.ShowGame(c.Request.Context(), userID, c.Param("name"))
	if err != nil {
		h.writeError(c, logger, err, "SHOW_FAILED")
		return
	}
	c.JSON(http.StatusOK, view)
}

// HandleCheckAchievement handles
// POST /v1/users/:user/games/:name/achievements/:id/toggle.
func (h *Handlers) HandleCheckAchievement(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleCheckAchievement")

	userID, ok := h.bindUser(c, logger)
	if !ok {
		return
	}

	result, err := h.svc.CheckAchievement(c.Request.Context(), userID, c.Param("name"), c.Param("id"))
	if err != nil {
		h.writeError(c, logger, err, "CHECK_FAILED")
		return
	}
	c.JSON(http.StatusOK, result)
}

// HandleListGames handles GET /v1/users/:user/games.
func (h *Handlers) HandleListGames(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleListGames")

	userID, ok := h.bindUser(c, logger)
	if !ok {
		return
	}

	games, err := h.svc.ListGames(c.Request.Context(), userID)
	if err != nil {
		h.writeError(c, logger, err, "LIST_FAILED")
		return
	}
	c.JSON(http.StatusOK, gin.H{"games": games})
}

// HandleRemoveGame handles DELETE /v1/users/:user/games/:name.
func (h *Handlers) HandleRemoveGame(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleRemoveGame")

	userID, ok := h.bindUser(c, logger)
	if !ok {
		return
	}

	if err := h.svc.RemoveGame(c.Request.Context(), userID, c.Param("name")); err != nil {
		h.writeError(c, logger, err, "REMOVE_FAILED")
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleGuide handles GET /v1/users/:user/games/:name/guide.
func (h *Handlers) HandleGuide(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleGuide")

	userID, ok := h.bindUser(c, logger)
	if !ok {
		return
	}

	text, err := h.svc.Guide(c.Request.Context(), userID, c.Param("name"))
	if err != nil {
		h.writeError(c, logger, err, "GUIDE_FAILED")
		return
	}
	c.JSON(http.StatusOK, gin.H{"guide": text})
}

// HandleHealth handles GET /healthz.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok", Version: ServiceVersion})
}

// HandleReady handles GET /readyz.
func (h *Handlers) HandleReady(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ready", Version: ServiceVersion})
}

// bindUser validates the :user path parameter.
func (h *Handlers) bindUser(c *gin.Context, logger *slog.Logger) (string, bool) {
	userID := c.Param("user")
	if err := validation.ValidateUserID(userID); err != nil {
		logger.Warn("Invalid user ID", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: err.Error(),
			Code:  "INVALID_USER_ID",
		})
		return "", false
	}
	return userID, true
}

// writeError maps service errors to HTTP statuses.
func (h *Handlers) writeError(c *gin.Context, logger *slog.Logger, err error, fallbackCode string) {
	statusCode := http.StatusInternalServerError
	errCode := fallbackCode

	switch {
	case errors.Is(err, store.ErrAlreadyTracked):
		statusCode = http.StatusConflict
		errCode = "ALREADY_TRACKED"
	case errors.Is(err, store.ErrNotTracked):
		statusCode = http.StatusNotFound
		errCode = "NOT_TRACKED"
	case errors.Is(err, ErrAchievementNotFound):
		statusCode = http.StatusNotFound
		errCode = "ACHIEVEMENT_NOT_FOUND"
	case errors.Is(err, guide.ErrUnavailable):
		statusCode = http.StatusBadGateway
		errCode = "GUIDE_UNAVAILABLE"
	case errors.Is(err, store.ErrPersistence):
		errCode = "PERSISTENCE_FAILED"
	}

	logger.Error("Request failed", "error", err, "status", statusCode)
	c.JSON(statusCode, ErrorResponse{Error: err.Error(), Code: errCode})
}

// getOrCreateRequestID gets or creates a request ID.
func getOrCreateRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header("X-Request-ID", requestID)
	return requestID
}
