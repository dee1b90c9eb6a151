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
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/QuantumClaim/pkg/logging"
	"github.com/AleutianAI/QuantumClaim/services/agent"
	"github.com/AleutianAI/QuantumClaim/services/game"
)

// runAgentCommand registers the player if needed, picks a starting
// node, and runs the autonomous control loop until it stops.
func runAgentCommand(cmd *cobra.Command, args []string) {
	if playerID == "" {
		fmt.Fprintln(os.Stderr, "Error: --player-id is required")
		os.Exit(1)
	}

	logger := logging.New(logging.Config{
		Service: "agent",
		LogDir:  logDir,
	})
	defer logger.Close()

	cfg, err := resolveAgentConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := newGameClient(logger)
	if err := ensurePlayer(ctx, client); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	var metrics *agent.Metrics
	if metricsAddr != "" {
		metrics = agent.NewMetrics(prometheus.DefaultRegisterer)
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(metricsAddr, mux); err != nil {
				logger.Warn("metrics listener stopped", "error", err)
			}
		}()
	}

	orch, err := agent.NewOrchestrator(cfg, client, agent.Options{
		Logger:  logger,
		Metrics: metrics,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	summary, err := orch.RunAutonomous(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	printSummary(summary)
}

// resolveAgentConfig layers the config file, preset, and flag
// overrides.
func resolveAgentConfig() (agent.Config, error) {
	cfg := agent.DefaultConfig()
	if configPath != "" {
		loaded, err := agent.LoadConfig(configPath)
		if err != nil {
			return agent.Config{}, err
		}
		cfg = loaded
	}
	if agentType != "" {
		cfg = agent.ConfigForType(agent.AgentType(agentType))
	}
	if iterations > 0 {
		cfg.MaxIterations = iterations
	}
	if noSim {
		cfg.EnableSimulation = false
	}
	return cfg, cfg.Validate()
}

// newGameClient builds the API client from the persistent flags.
func newGameClient(logger *logging.Logger) *game.Client {
	ccfg := game.DefaultClientConfig(serverURL)
	ccfg.PlayerID = playerID
	ccfg.APIToken = apiToken
	ccfg.Logger = logger
	return game.NewClient(ccfg)
}

// ensurePlayer registers the player (an existing registration is
// accepted) and selects a starting node if none is set yet.
func ensurePlayer(ctx context.Context, client *game.Client) error {
	name := playerName
	if name == "" {
		name = playerID
	}

	result, err := client.Register(ctx, playerID, name, "remote")
	if err != nil {
		return fmt.Errorf("register: %w", err)
	}

	status, err := client.Status(ctx)
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}
	if status.StartingNode != "" {
		return nil
	}

	node := startNode
	if node == "" {
		node, err = bestStartingNode(ctx, client, result.StartingNodes)
		if err != nil {
			return err
		}
	}
	if err := client.SelectStartingNode(ctx, node); err != nil {
		return fmt.Errorf("select starting node: %w", err)
	}
	return nil
}

// bestStartingNode picks the candidate with the highest utility plus
// bonus yield.
func bestStartingNode(ctx context.Context, client *game.Client, candidates []string) (string, error) {
	graph, err := client.Graph(ctx, true)
	if err != nil {
		return "", fmt.Errorf("graph: %w", err)
	}
	if len(candidates) == 0 {
		for _, n := range graph.Nodes {
			candidates = append(candidates, n.NodeID)
		}
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("no starting node candidates")
	}

	best := candidates[0]
	bestValue := -1.0
	for _, id := range candidates {
		node, ok := graph.Node(id)
		if !ok {
			continue
		}
		value := float64(node.UtilityQubits) + 0.5*float64(node.BonusBellPairs)
		if value > bestValue {
			best, bestValue = id, value
		}
	}
	return best, nil
}

// printSummary writes the run report in the requested format.
func printSummary(summary agent.Summary) {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(summary); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	fmt.Printf("Run finished: %s\n", summary.StopReason)
	fmt.Printf("  Iterations:   %d (%d claimed, %d failed, %d skipped)\n",
		summary.Iterations, summary.Claims, summary.FailedClaims, summary.Skips)
	fmt.Printf("  Score:        %d\n", summary.FinalScore)
	fmt.Printf("  Budget:       %d (%d pairs spent)\n", summary.FinalBudget, summary.PairsSpent)
	fmt.Printf("  Nodes owned:  %s\n", strings.Join(summary.OwnedNodes, ", "))
	fmt.Printf("  Edges owned:  %d\n", len(summary.OwnedEdges))
}
