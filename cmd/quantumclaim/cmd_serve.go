// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/QuantumClaim/pkg/logging"
	"github.com/AleutianAI/QuantumClaim/services/gameserver"
)

// runServeCommand starts the local reference game server.
func runServeCommand(cmd *cobra.Command, args []string) {
	logger := logging.New(logging.Config{
		Service: "gameserver",
		LogDir:  logDir,
	})
	defer logger.Close()

	srv := gameserver.NewServer(gameserver.Config{
		InitialBudget: serveBudget,
		Seed:          serveSeed,
		Deterministic: serveFixed,
		Logger:        logger,
	}, gameserver.DemoGraph())

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	gameserver.RegisterRoutes(router.Group("/v1"), gameserver.NewHandlers(srv))
	if serveMetrics {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	logger.Info("game server listening",
		"addr", serveAddr,
		"deterministic", serveFixed,
		"seed", serveSeed,
	)
	if err := router.Run(serveAddr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
