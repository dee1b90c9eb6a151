// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	serverURL   string
	playerID    string
	playerName  string
	apiToken    string
	configPath  string
	agentType   string
	iterations  int
	startNode   string
	noSim       bool
	jsonOutput  bool
	logDir      string
	metricsAddr string

	serveAddr    string
	serveSeed    int64
	serveBudget  int
	serveFixed   bool
	serveMetrics bool

	rootCmd = &cobra.Command{
		Use:   "quantumclaim",
		Short: "A cli to run the QuantumClaim distillation game agent",
		Long: `QuantumClaim plays a network-claiming game: capture graph edges by
submitting entanglement-distillation circuits that clear per-edge
fidelity thresholds without draining the Bell-pair budget.`,
	}

	// --- Agent ---
	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the autonomous agent against a game server",
		Run:   runAgentCommand, // Defined in cmd_run.go
	}

	// --- Local Server ---
	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Start the local reference game server",
		Run:   runServeCommand, // Defined in cmd_serve.go
	}

	// --- Queries ---
	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show the player's score, budget, and holdings",
		Run:   runStatusCommand, // Defined in cmd_info.go
	}

	leaderboardCmd = &cobra.Command{
		Use:   "leaderboard",
		Short: "Show the current standings",
		Run:   runLeaderboardCommand, // Defined in cmd_info.go
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "Base URL of the game server")
	rootCmd.PersistentFlags().StringVar(&playerID, "player-id", "", "Player identifier")
	rootCmd.PersistentFlags().StringVar(&apiToken, "token", "", "API token (minted on register when empty)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Emit JSON output")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "", "Directory for dated JSON log files")

	runCmd.Flags().StringVar(&playerName, "name", "", "Display name (defaults to the player id)")
	runCmd.Flags().StringVar(&configPath, "config", "", "Path to a YAML agent configuration")
	runCmd.Flags().StringVar(&agentType, "agent-type", "", "Agent preset: default, aggressive, conservative")
	runCmd.Flags().IntVar(&iterations, "iterations", 0, "Override the iteration cap")
	runCmd.Flags().StringVar(&startNode, "start-node", "", "Starting node (best candidate when empty)")
	runCmd.Flags().BoolVar(&noSim, "no-sim", false, "Skip the local simulation gate")
	runCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Expose Prometheus metrics on this address")

	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "Listen address")
	serveCmd.Flags().Int64Var(&serveSeed, "seed", 1, "Seed for the claim-roll RNG")
	serveCmd.Flags().IntVar(&serveBudget, "budget", 100, "Initial Bell-pair budget per player")
	serveCmd.Flags().BoolVar(&serveFixed, "deterministic", false, "Resolve claims by estimate instead of rolling")
	serveCmd.Flags().BoolVar(&serveMetrics, "metrics", false, "Expose /metrics")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(leaderboardCmd)
}
