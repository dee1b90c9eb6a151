// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package gameserver is a local reference implementation of the game
// server API. It exists so the agent can be exercised end to end
// without the hosted server: same endpoints, same envelope, same claim
// semantics (LOCC re-validation, stochastic post-selection, budget
// charged only on success).
package gameserver

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/google/uuid"

	"github.com/AleutianAI/QuantumClaim/pkg/logging"
	"github.com/AleutianAI/QuantumClaim/services/distillation"
	"github.com/AleutianAI/QuantumClaim/services/game"
)

// =============================================================================
// Server Configuration
// =============================================================================

// Config configures the reference server.
type Config struct {
	// InitialBudget is the Bell-pair budget granted at registration.
	// Default: 100.
	InitialBudget int

	// Seed seeds the post-selection RNG. Zero means a fixed default
	// seed, keeping local games reproducible.
	Seed int64

	// Deterministic disables the stochastic post-selection roll: a
	// claim succeeds whenever the estimated fidelity clears the edge
	// threshold. Used by the end-to-end tests.
	Deterministic bool

	// InputFidelity overrides the difficulty-based input noise
	// inference when > 0.
	InputFidelity float64

	// Logger receives request logs. Default logger when nil.
	Logger *logging.Logger
}

// DefaultConfig returns the standard local-server settings.
func DefaultConfig() Config {
	return Config{InitialBudget: 100, Seed: 1}
}

// =============================================================================
// Server State
// =============================================================================

// playerState is the server-side record for one registered player.
type playerState struct {
	PlayerID     string
	Name         string
	Location     string
	Token        string
	Score        int
	Budget       int
	StartingNode string
	Active       bool
	OwnedNodes   map[string]bool
	OwnedEdges   map[string]bool
}

// Server holds the game state behind the HTTP handlers.
//
// Thread Safety: all state access goes through the mutex; gin invokes
// handlers concurrently.
type Server struct {
	cfg   Config
	log   *logging.Logger
	graph *game.Graph
	sim   *distillation.Simulator

	mu      sync.Mutex
	players map[string]*playerState
	rng     *rand.Rand
}

// NewServer creates a reference server over the given graph.
func NewServer(cfg Config, graph *game.Graph) *Server {
	def := DefaultConfig()
	if cfg.InitialBudget <= 0 {
		cfg.InitialBudget = def.InitialBudget
	}
	if cfg.Seed == 0 {
		cfg.Seed = def.Seed
	}
	log := cfg.Logger
	if log == nil {
		log = logging.Default()
	}

	return &Server{
		cfg:   cfg,
		log:   log,
		graph: graph,
		sim: distillation.NewSimulator(distillation.SimulatorConfig{
			InputFidelity: cfg.InputFidelity,
		}),
		players: make(map[string]*playerState),
		rng:     rand.New(rand.NewSource(cfg.Seed)),
	}
}

// DemoGraph returns the small network used by the local server when no
// graph file is supplied.
func DemoGraph() *game.Graph {
	return &game.Graph{
		Nodes: []game.Node{
			{NodeID: "alpha", UtilityQubits: 0, BonusBellPairs: 0},
			{NodeID: "bravo", UtilityQubits: 8, BonusBellPairs: 2},
			{NodeID: "charlie", UtilityQubits: 12, BonusBellPairs: 0},
			{NodeID: "delta", UtilityQubits: 15, BonusBellPairs: 4},
			{NodeID: "echo", UtilityQubits: 20, BonusBellPairs: 0},
			{NodeID: "foxtrot", UtilityQubits: 10, BonusBellPairs: 2},
		},
		Edges: []game.Edge{
			{EdgeID: [2]string{"alpha", "bravo"}, DifficultyRating: 2, BaseThreshold: 0.75},
			{EdgeID: [2]string{"alpha", "charlie"}, DifficultyRating: 4, BaseThreshold: 0.82},
			{EdgeID: [2]string{"bravo", "delta"}, DifficultyRating: 5, BaseThreshold: 0.86},
			{EdgeID: [2]string{"charlie", "delta"}, DifficultyRating: 6, BaseThreshold: 0.88},
			{EdgeID: [2]string{"delta", "echo"}, DifficultyRating: 8, BaseThreshold: 0.91},
			{EdgeID: [2]string{"charlie", "foxtrot"}, DifficultyRating: 3, BaseThreshold: 0.80},
		},
	}
}

// =============================================================================
// Player Operations
// =============================================================================

// register creates a player record and mints its API token.
func (s *Server) register(playerID, name, location string) (*playerState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.players[playerID]; ok {
		return nil, game.ServerError("PLAYER_EXISTS", fmt.Sprintf("player %q already registered", playerID))
	}

	p := &playerState{
		PlayerID:   playerID,
		Name:       name,
		Location:   location,
		Token:      uuid.NewString(),
		Budget:     s.cfg.InitialBudget,
		OwnedNodes: make(map[string]bool),
		OwnedEdges: make(map[string]bool),
	}
	s.players[playerID] = p
	s.log.Info("player registered", "player_id", playerID, "budget", p.Budget)
	return p, nil
}

// authenticate resolves a player and checks its bearer token.
func (s *Server) authenticate(playerID, token string) (*playerState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.players[playerID]
	if !ok {
		return nil, game.ServerError("NOT_REGISTERED", fmt.Sprintf("unknown player %q", playerID))
	}
	if token == "" || token != p.Token {
		return nil, game.ServerError("AUTH_FAILED", "invalid or missing API token")
	}
	return p, nil
}

// selectStartingNode assigns the player's first node.
func (s *Server) selectStartingNode(p *playerState, nodeID string) error {
	if _, ok := s.graph.Node(nodeID); !ok {
		return game.ServerError("INVALID_NODE", fmt.Sprintf("unknown node %q", nodeID))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if p.StartingNode != "" {
		return game.ServerError("ALREADY_STARTED", "starting node already selected")
	}
	p.StartingNode = nodeID
	p.OwnedNodes[nodeID] = true
	p.Active = true
	return nil
}

// restart resets a player's progress but keeps the registration.
func (s *Server) restart(p *playerState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p.Score = 0
	p.Budget = s.cfg.InitialBudget
	p.StartingNode = ""
	p.Active = false
	p.OwnedNodes = make(map[string]bool)
	p.OwnedEdges = make(map[string]bool)
}

// status snapshots the player's public state.
func (s *Server) status(p *playerState) game.PlayerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	nodes := make([]string, 0, len(p.OwnedNodes))
	for n := range p.OwnedNodes {
		nodes = append(nodes, n)
	}

	edges := make([][2]string, 0, len(p.OwnedEdges))
	for key := range p.OwnedEdges {
		for _, e := range s.graph.Edges {
			if e.Key() == key {
				edges = append(edges, e.EdgeID)
				break
			}
		}
	}

	return game.PlayerStatus{
		PlayerID:     p.PlayerID,
		Name:         p.Name,
		Score:        p.Score,
		Budget:       p.Budget,
		IsActive:     p.Active,
		StartingNode: p.StartingNode,
		OwnedNodes:   nodes,
		OwnedEdges:   edges,
	}
}

// leaderboard snapshots every player's standing; the handler sorts by
// score.
func (s *Server) leaderboard() []game.LeaderboardEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make([]game.LeaderboardEntry, 0, len(s.players))
	for _, p := range s.players {
		entries = append(entries, game.LeaderboardEntry{
			PlayerID: p.PlayerID,
			Name:     p.Name,
			Score:    p.Score,
		})
	}
	return entries
}

// =============================================================================
// Claim Semantics
// =============================================================================

// claim validates and resolves one claim attempt. Budget is charged
// only when the claim lands.
func (s *Server) claim(p *playerState, edgeKey [2]string, wire []distillation.WireOp, flagBit, numPairs int) (game.ClaimResult, error) {
	edge, ok := s.graph.EdgeBetween(edgeKey[0], edgeKey[1])
	if !ok {
		return game.ClaimResult{}, game.ServerError("INVALID_EDGE",
			fmt.Sprintf("no edge between %q and %q", edgeKey[0], edgeKey[1]))
	}

	if numPairs < distillation.MinPairs || numPairs > distillation.MaxPairs {
		return game.ClaimResult{}, game.ServerError("INVALID_PAIR_COUNT",
			fmt.Sprintf("num_bell_pairs %d outside [%d, %d]", numPairs, distillation.MinPairs, distillation.MaxPairs))
	}

	ops, err := distillation.ParseWire(wire)
	if err != nil {
		return game.ClaimResult{}, game.ServerError("INVALID_CIRCUIT", err.Error())
	}

	prep, body := splitPrepLayer(ops, numPairs)
	circuit := &distillation.Circuit{
		Protocol:   inferProtocol(body, numPairs),
		PairCount:  numPairs,
		QubitCount: 2 * numPairs,
		Prep:       prep,
		Ops:        body,
		FlagBit:    flagBit,
	}
	if valid, reason := s.sim.Validate(circuit, numPairs); !valid {
		return game.ClaimResult{}, game.ServerError("INVALID_CIRCUIT", reason)
	}
	if flagBit < 0 || flagBit >= circuit.MeasureCount() {
		return game.ClaimResult{}, game.ServerError("INVALID_CIRCUIT",
			fmt.Sprintf("flag_bit %d outside classical register of size %d", flagBit, circuit.MeasureCount()))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if p.OwnedNodes[edge.EdgeID[0]] == p.OwnedNodes[edge.EdgeID[1]] {
		return game.ClaimResult{}, game.ServerError("EDGE_NOT_CLAIMABLE",
			fmt.Sprintf("edge %s is not adjacent to exactly one owned node", edge.Key()))
	}
	if p.Budget < numPairs {
		return game.ClaimResult{}, game.ServerError("INSUFFICIENT_BUDGET",
			fmt.Sprintf("need %d pairs, have %d", numPairs, p.Budget))
	}

	inputFidelity := s.sim.InferInputNoise(edge.DifficultyRating)
	fidelity := distillation.EstimateOutputFidelity(inputFidelity, numPairs, circuit.Protocol)
	successProb := distillation.EstimateSuccessProbability(numPairs, circuit.Protocol)

	result := game.ClaimResult{
		Fidelity:           fidelity,
		SuccessProbability: successProb,
		Threshold:          edge.BaseThreshold,
	}

	if fidelity < edge.BaseThreshold {
		s.log.Info("claim failed", "edge_id", edge.Key(), "player_id", p.PlayerID,
			"fidelity", fidelity, "threshold", edge.BaseThreshold)
		return result, nil
	}
	if !s.cfg.Deterministic && s.rng.Float64() >= successProb {
		s.log.Info("claim failed post-selection", "edge_id", edge.Key(),
			"player_id", p.PlayerID, "success_prob", successProb)
		return result, nil
	}

	target := edge.EdgeID[0]
	if p.OwnedNodes[target] {
		target = edge.EdgeID[1]
	}
	node, _ := s.graph.Node(target)

	p.Budget -= numPairs
	p.Budget += node.BonusBellPairs
	p.Score += node.UtilityQubits
	p.OwnedNodes[target] = true
	p.OwnedEdges[edge.Key()] = true

	result.Claimed = true
	result.PairsSpent = numPairs

	s.log.Info("edge claimed", "edge_id", edge.Key(), "player_id", p.PlayerID,
		"target", target, "score", p.Score, "budget", p.Budget)
	return result, nil
}

// splitPrepLayer separates the leading Bell-preparation operations
// from the distillation body. Prep operations are H on an A-side qubit
// k or CX from k to its partner 2N-1-k; the layer ends at the first
// operation matching neither shape. Entanglement distribution is
// environmental, so these placeholders are exempt from the LOCC check.
func splitPrepLayer(ops []distillation.Op, pairCount int) (prep, body []distillation.Op) {
	n := pairCount
	i := 0
	for ; i < len(ops); i++ {
		op := ops[i]
		switch op.Kind {
		case distillation.OpH:
			if len(op.Targets) == 1 && op.Targets[0] < n && len(op.Controls) == 0 {
				continue
			}
		case distillation.OpCX:
			if len(op.Controls) == 1 && len(op.Targets) == 1 {
				c, t := op.Controls[0], op.Targets[0]
				if c < n && t == 2*n-1-c {
					continue
				}
			}
		}
		break
	}
	return ops[:i], ops[i:]
}

// inferProtocol classifies the distillation body: Hadamards on B-side
// qubits only appear in the basis-rotated parity rounds, so their
// presence marks DEJMPS.
func inferProtocol(body []distillation.Op, pairCount int) distillation.Protocol {
	for _, op := range body {
		if op.Kind == distillation.OpH && len(op.Targets) == 1 && op.Targets[0] >= pairCount {
			return distillation.ProtocolDEJMPS
		}
	}
	return distillation.ProtocolBBPSSW
}
