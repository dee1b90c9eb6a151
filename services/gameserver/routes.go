// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package gameserver

import "github.com/gin-gonic/gin"

// RegisterRoutes registers the game API with the router.
//
// Description:
//
//	Registers the /v1/* endpoints the hosted game server exposes:
//
//	POST /v1/register - Register a player, mint an API token
//	POST /v1/select_starting_node - Pick the player's first node
//	POST /v1/restart - Reset progress, keep registration
//	GET  /v1/status/:player_id - Player score, budget, holdings
//	GET  /v1/graph - The static network graph
//	POST /v1/claim_edge - Submit a distillation circuit for an edge
//	GET  /v1/leaderboard - Current standings
//	GET  /v1/health - Health check
//
// Example:
//
//	srv := gameserver.NewServer(gameserver.DefaultConfig(), gameserver.DemoGraph())
//	router := gin.New()
//	gameserver.RegisterRoutes(router.Group("/v1"), gameserver.NewHandlers(srv))
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	rg.POST("/register", handlers.HandleRegister)
	rg.POST("/select_starting_node", handlers.HandleSelectStartingNode)
	rg.POST("/restart", handlers.HandleRestart)
	rg.GET("/status/:player_id", handlers.HandleStatus)
	rg.GET("/graph", handlers.HandleGraph)
	rg.POST("/claim_edge", handlers.HandleClaimEdge)
	rg.GET("/leaderboard", handlers.HandleLeaderboard)
	rg.GET("/health", handlers.HandleHealth)
}
