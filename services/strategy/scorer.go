// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package strategy implements the decision layer of the agent: edge
// scoring, budget admission control, resource planning, and protocol
// selection. All of it is synchronous and non-blocking; the
// orchestrator calls into it between game-client round trips.
package strategy

import (
	"sort"

	"github.com/AleutianAI/QuantumClaim/services/distillation"
	"github.com/AleutianAI/QuantumClaim/services/game"
)

// =============================================================================
// Weights
// =============================================================================

// Weights tunes the multi-factor priority formula. Aggressive profiles
// raise Utility; conservative profiles raise Cost and Difficulty.
type Weights struct {
	Utility     float64
	Difficulty  float64
	Cost        float64
	SuccessProb float64
}

// DefaultWeights returns the standard scoring weights.
func DefaultWeights() Weights {
	return Weights{Utility: 1.0, Difficulty: 0.5, Cost: 0.3, SuccessProb: 0.4}
}

// AggressiveWeights chases utility and discounts effort.
func AggressiveWeights() Weights {
	return Weights{Utility: 1.5, Difficulty: 0.2, Cost: 0.2, SuccessProb: 0.3}
}

// ConservativeWeights penalizes cost and difficulty heavily.
func ConservativeWeights() Weights {
	return Weights{Utility: 0.8, Difficulty: 0.8, Cost: 0.6, SuccessProb: 0.7}
}

// =============================================================================
// Edge Scoring
// =============================================================================

// EdgeScore is the ranking record for one claimable edge. It is
// ephemeral; a fresh set is computed every ranking pass from the
// current graph and status snapshots.
type EdgeScore struct {
	EdgeID       string
	Edge         game.Edge
	TargetNodeID string

	Priority             float64
	ExpectedUtility      float64
	ExpectedCost         int
	ROI                  float64
	EstimatedSuccessProb float64

	// Snapshot of the inputs the scores were computed from.
	Utility    int
	Bonus      int
	Difficulty int
	Threshold  float64
}

// Scorer ranks claimable edges with a linear combination of expected
// utility, success probability, difficulty, and Bell-pair cost.
type Scorer struct {
	weights Weights
}

// NewScorer creates a Scorer. Zero-valued weights fall back to the
// defaults.
func NewScorer(w Weights) *Scorer {
	if w == (Weights{}) {
		w = DefaultWeights()
	}
	return &Scorer{weights: w}
}

// ExpectedCost estimates the Bell pairs an edge will consume:
// 2 + ceil(difficulty/2), plus one for thresholds above 0.85.
func ExpectedCost(difficulty int, threshold float64) int {
	cost := 2 + (difficulty+1)/2
	if threshold > 0.85 {
		cost++
	}
	return cost
}

// nominalRankingPairs is the flat pair count the success estimate is
// seeded with during ranking. Every edge is judged at the same circuit
// size so priorities stay comparable; the planner picks the real
// allocation later.
const nominalRankingPairs = 3

// ScoreEdge computes the priority record for a single edge.
//
// # Description
//
// The success estimate reuses the simulator's closed-form success
// probability at nominalRankingPairs, with the protocol a first
// attempt at this edge would pick.
//
// expectedUtility = (utility + 0.5*bonus) * successProb
// expectedCost    = 2 + ceil(difficulty/2) + (threshold > 0.85 ? 1 : 0)
// ROI             = expectedUtility / max(expectedCost, 1)
// priority        = wU*expectedUtility + wS*successProb*10
//                 - wD*difficulty - wC*expectedCost + 2*ROI
func (s *Scorer) ScoreEdge(edge game.Edge, graph *game.Graph, owned map[string]bool) EdgeScore {
	targetID := edge.EdgeID[1]
	if !owned[edge.EdgeID[0]] {
		targetID = edge.EdgeID[0]
	}

	score := EdgeScore{
		EdgeID:       edge.Key(),
		Edge:         edge,
		TargetNodeID: targetID,
		Difficulty:   edge.DifficultyRating,
		Threshold:    edge.BaseThreshold,
	}

	target, ok := graph.Node(targetID)
	if !ok {
		return score
	}
	score.Utility = target.UtilityQubits
	score.Bonus = target.BonusBellPairs

	protocol := FirstAttemptProtocol(edge.DifficultyRating, edge.BaseThreshold, false)
	score.EstimatedSuccessProb = distillation.EstimateSuccessProbability(nominalRankingPairs, protocol)

	score.ExpectedCost = ExpectedCost(edge.DifficultyRating, edge.BaseThreshold)
	score.ExpectedUtility = (float64(score.Utility) + 0.5*float64(score.Bonus)) * score.EstimatedSuccessProb

	denom := score.ExpectedCost
	if denom < 1 {
		denom = 1
	}
	score.ROI = score.ExpectedUtility / float64(denom)

	score.Priority = s.weights.Utility*score.ExpectedUtility +
		s.weights.SuccessProb*score.EstimatedSuccessProb*10 -
		s.weights.Difficulty*float64(score.Difficulty) -
		s.weights.Cost*float64(score.ExpectedCost) +
		2.0*score.ROI

	return score
}

// RankEdges scores every claimable edge and sorts by descending
// priority. Ties break on higher ROI, then lower difficulty, then
// lexicographic edge id.
func (s *Scorer) RankEdges(claimable []game.Edge, graph *game.Graph, status *game.PlayerStatus) []EdgeScore {
	owned := status.OwnedNodeSet()

	scores := make([]EdgeScore, 0, len(claimable))
	for _, e := range claimable {
		scores = append(scores, s.ScoreEdge(e, graph, owned))
	}

	sort.SliceStable(scores, func(i, j int) bool {
		a, b := scores[i], scores[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if a.ROI != b.ROI {
			return a.ROI > b.ROI
		}
		if a.Difficulty != b.Difficulty {
			return a.Difficulty < b.Difficulty
		}
		return a.EdgeID < b.EdgeID
	})

	return scores
}

// SelectBestEdge returns the highest-ranked edge whose expected cost
// leaves at least minReserve pairs in the budget, or ok=false when no
// edge is affordable.
func (s *Scorer) SelectBestEdge(claimable []game.Edge, graph *game.Graph, status *game.PlayerStatus, minReserve int) (EdgeScore, bool) {
	for _, score := range s.RankEdges(claimable, graph, status) {
		if status.Budget-score.ExpectedCost >= minReserve {
			return score, true
		}
	}
	return EdgeScore{}, false
}
