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
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all tracker routes with the router group.
//
// Endpoints (each maps 1:1 to a facade operation):
//
//	POST   /v1/users/:user/games - Start tracking a game
//	GET    /v1/users/:user/games - List tracked games with progress
//	GET    /v1/users/:user/games/:name - Show one game's progress
//	DELETE /v1/users/:user/games/:name - Stop tracking a game
//	POST   /v1/users/:user/games/:name/achievements/:id/toggle - Toggle completion
//	GET    /v1/users/:user/games/:name/guide - Fetch (or generate) the guide
//
// Health endpoints are registered on the root router by the caller.
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	users := rg.Group("/users/:user")
	{
		users.POST("/games", handlers.HandleAddGame)
		users.GET("/games", handlers.HandleListGames)
		users.GET("/games/:name", handlers.HandleShowGame)
		users.DELETE("/games/:name", handlers.HandleRemoveGame)
		users.POST("/games/:name/achievements/:id/toggle", handlers.HandleCheckAchievement)
		users.GET("/games/:name/guide", handlers.HandleGuide)
	}
}
