// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/QuantumClaim/pkg/logging"
)

// queryTimeout bounds the one-shot query commands.
const queryTimeout = 30 * time.Second

// runStatusCommand prints the player's current standing.
func runStatusCommand(cmd *cobra.Command, args []string) {
	if playerID == "" {
		fmt.Fprintln(os.Stderr, "Error: --player-id is required")
		os.Exit(1)
	}

	logger := logging.New(logging.Config{Service: "cli", Quiet: true})
	defer logger.Close()

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	status, err := newGameClient(logger).Status(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if jsonOutput {
		printJSON(status)
		return
	}
	fmt.Printf("Player %s (%s)\n", status.PlayerID, status.Name)
	fmt.Printf("  Score:   %d\n", status.Score)
	fmt.Printf("  Budget:  %d\n", status.Budget)
	fmt.Printf("  Nodes:   %s\n", strings.Join(status.OwnedNodes, ", "))
	fmt.Printf("  Edges:   %d\n", len(status.OwnedEdges))
}

// runLeaderboardCommand prints the current standings.
func runLeaderboardCommand(cmd *cobra.Command, args []string) {
	logger := logging.New(logging.Config{Service: "cli", Quiet: true})
	defer logger.Close()

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	entries, err := newGameClient(logger).Leaderboard(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if jsonOutput {
		printJSON(entries)
		return
	}
	for i, e := range entries {
		fmt.Printf("%2d. %-20s %-20s score %4d\n", i+1, e.PlayerID, e.Name, e.Score)
	}
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
