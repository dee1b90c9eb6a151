// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package game holds the shared domain types and the HTTP client for the
// entanglement-distillation game server.
//
// The wire field names (node_id, utility_qubits, difficulty_rating, ...)
// follow the server's JSON contract and must not be renamed.
package game

import (
	"fmt"
	"strings"
)

// =============================================================================
// Graph
// =============================================================================

// Node is a network node. Claiming the edge into a node credits its
// UtilityQubits to the player's score and its BonusBellPairs to the
// player's budget.
type Node struct {
	NodeID         string `json:"node_id"`
	UtilityQubits  int    `json:"utility_qubits"`
	BonusBellPairs int    `json:"bonus_bell_pairs"`
}

// Edge is an undirected link between two nodes. DifficultyRating is in
// [1, 10]; BaseThreshold is the fidelity a distillation attempt must
// reach for the claim to count.
type Edge struct {
	EdgeID           [2]string `json:"edge_id"`
	DifficultyRating int       `json:"difficulty_rating"`
	BaseThreshold    float64   `json:"base_threshold"`
}

// Key returns the canonical identifier for the edge: its endpoints
// sorted lexicographically and joined with a dash.
func (e Edge) Key() string {
	return EdgeKey(e.EdgeID[0], e.EdgeID[1])
}

// EdgeKey builds the canonical identifier for an undirected edge.
func EdgeKey(a, b string) string {
	if strings.Compare(a, b) > 0 {
		a, b = b, a
	}
	return a + "-" + b
}

// Touches reports whether the edge has node as an endpoint.
func (e Edge) Touches(node string) bool {
	return e.EdgeID[0] == node || e.EdgeID[1] == node
}

// Other returns the endpoint opposite to node. It returns an empty
// string when node is not an endpoint of the edge.
func (e Edge) Other(node string) string {
	switch node {
	case e.EdgeID[0]:
		return e.EdgeID[1]
	case e.EdgeID[1]:
		return e.EdgeID[0]
	}
	return ""
}

// Graph is the static network snapshot served by /v1/graph. It does not
// change during a game; clients cache it and refresh on demand.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Node looks up a node by identifier.
func (g *Graph) Node(id string) (Node, bool) {
	for _, n := range g.Nodes {
		if n.NodeID == id {
			return n, true
		}
	}
	return Node{}, false
}

// EdgeBetween looks up the edge joining a and b, in either order.
func (g *Graph) EdgeBetween(a, b string) (Edge, bool) {
	key := EdgeKey(a, b)
	for _, e := range g.Edges {
		if e.Key() == key {
			return e, true
		}
	}
	return Edge{}, false
}

// ClaimableEdges returns the edges with exactly one endpoint in owned.
// Edges fully inside or fully outside the owned set cannot be claimed.
func (g *Graph) ClaimableEdges(owned map[string]bool) []Edge {
	var claimable []Edge
	for _, e := range g.Edges {
		if owned[e.EdgeID[0]] != owned[e.EdgeID[1]] {
			claimable = append(claimable, e)
		}
	}
	return claimable
}

// =============================================================================
// Player Status
// =============================================================================

// PlayerStatus is the per-player view served by /v1/status/{player}.
type PlayerStatus struct {
	PlayerID     string      `json:"player_id"`
	Name         string      `json:"name"`
	Score        int         `json:"score"`
	Budget       int         `json:"budget"`
	IsActive     bool        `json:"is_active"`
	StartingNode string      `json:"starting_node"`
	OwnedNodes   []string    `json:"owned_nodes"`
	OwnedEdges   [][2]string `json:"owned_edges"`
}

// OwnedNodeSet returns the owned nodes as a lookup set.
func (s *PlayerStatus) OwnedNodeSet() map[string]bool {
	owned := make(map[string]bool, len(s.OwnedNodes))
	for _, n := range s.OwnedNodes {
		owned[n] = true
	}
	return owned
}

// OwnsEdge reports whether the player owns the edge between a and b.
func (s *PlayerStatus) OwnsEdge(a, b string) bool {
	key := EdgeKey(a, b)
	for _, e := range s.OwnedEdges {
		if EdgeKey(e[0], e[1]) == key {
			return true
		}
	}
	return false
}

// =============================================================================
// API Results
// =============================================================================

// RegisterResult is the payload of a successful /v1/register call.
type RegisterResult struct {
	APIToken      string   `json:"api_token"`
	InitialBudget int      `json:"initial_budget"`
	StartingNodes []string `json:"starting_node_candidates"`
}

// ClaimResult is the payload returned by /v1/claim_edge. Claimed=false
// with an empty ErrorCode means the distillation attempt itself failed
// (fidelity below threshold or post-selection miss), which costs
// nothing and may be retried.
type ClaimResult struct {
	Claimed            bool    `json:"claimed"`
	Fidelity           float64 `json:"fidelity"`
	SuccessProbability float64 `json:"success_probability"`
	Threshold          float64 `json:"threshold"`
	PairsSpent         int     `json:"pairs_spent"`
	ErrorCode          string  `json:"-"`
	ErrorMessage       string  `json:"-"`
}

// Reason summarizes a failed claim for logging.
func (r ClaimResult) Reason() string {
	if r.Claimed {
		return "claimed"
	}
	if r.ErrorCode != "" {
		return fmt.Sprintf("%s: %s", r.ErrorCode, r.ErrorMessage)
	}
	return fmt.Sprintf("fidelity %.3f below threshold %.3f", r.Fidelity, r.Threshold)
}

// LeaderboardEntry is one row of /v1/leaderboard.
type LeaderboardEntry struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	Score    int    `json:"score"`
}
