// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package strategy

import (
	"math"
	"testing"

	"github.com/AleutianAI/QuantumClaim/services/game"
)

func threeEdgeGraph() *game.Graph {
	return &game.Graph{
		Nodes: []game.Node{
			{NodeID: "S", UtilityQubits: 0},
			{NodeID: "B1", UtilityQubits: 10},
			{NodeID: "B2", UtilityQubits: 15},
			{NodeID: "B3", UtilityQubits: 5},
		},
		Edges: []game.Edge{
			{EdgeID: [2]string{"S", "B1"}, DifficultyRating: 2, BaseThreshold: 0.80},
			{EdgeID: [2]string{"S", "B2"}, DifficultyRating: 7, BaseThreshold: 0.90},
			{EdgeID: [2]string{"S", "B3"}, DifficultyRating: 1, BaseThreshold: 0.70},
		},
	}
}

func TestExpectedCost(t *testing.T) {
	tests := []struct {
		name       string
		difficulty int
		threshold  float64
		want       int
	}{
		{"easy edge", 1, 0.70, 3},
		{"mid difficulty", 5, 0.80, 5},
		{"even difficulty", 4, 0.80, 4},
		{"threshold surcharge", 2, 0.86, 4},
		{"no surcharge at 0.85", 2, 0.85, 3},
		{"hard tight edge", 7, 0.90, 7},
		{"maximum", 10, 0.90, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExpectedCost(tt.difficulty, tt.threshold); got != tt.want {
				t.Errorf("ExpectedCost(%d, %.2f) = %d, want %d",
					tt.difficulty, tt.threshold, got, tt.want)
			}
		})
	}
}

func TestScorer_ScoreEdge_TargetSelection(t *testing.T) {
	g := threeEdgeGraph()
	s := NewScorer(DefaultWeights())
	owned := map[string]bool{"S": true}

	score := s.ScoreEdge(g.Edges[0], g, owned)
	if score.TargetNodeID != "B1" {
		t.Errorf("target = %q, want B1", score.TargetNodeID)
	}
	if score.Utility != 10 {
		t.Errorf("utility = %d, want 10", score.Utility)
	}
	if score.EdgeID != "B1-S" {
		t.Errorf("edge id = %q, want B1-S", score.EdgeID)
	}
}

func TestScorer_ScoreEdge_Components(t *testing.T) {
	g := threeEdgeGraph()
	s := NewScorer(DefaultWeights())
	owned := map[string]bool{"S": true}

	// Easy edge: BBPSSW at the nominal 3 pairs, p = 0.70^2.
	score := s.ScoreEdge(g.Edges[0], g, owned)
	if math.Abs(score.EstimatedSuccessProb-0.49) > 1e-9 {
		t.Errorf("success prob = %v, want 0.49", score.EstimatedSuccessProb)
	}
	if score.ExpectedCost != 3 {
		t.Errorf("expected cost = %d, want 3", score.ExpectedCost)
	}
	if math.Abs(score.ExpectedUtility-4.9) > 1e-9 {
		t.Errorf("expected utility = %v, want 4.9", score.ExpectedUtility)
	}
	if math.Abs(score.ROI-4.9/3.0) > 1e-9 {
		t.Errorf("ROI = %v, want %v", score.ROI, 4.9/3.0)
	}

	// Hard edge: DEJMPS at the nominal 3 pairs, p = 0.75^2.
	hard := s.ScoreEdge(g.Edges[1], g, owned)
	wantProb := math.Pow(0.75, 2)
	if math.Abs(hard.EstimatedSuccessProb-wantProb) > 1e-9 {
		t.Errorf("success prob = %v, want %v", hard.EstimatedSuccessProb, wantProb)
	}
	if hard.ExpectedCost != 7 {
		t.Errorf("expected cost = %d, want 7", hard.ExpectedCost)
	}
}

func TestScorer_RankEdges_Ordering(t *testing.T) {
	g := threeEdgeGraph()
	s := NewScorer(DefaultWeights())
	status := &game.PlayerStatus{Budget: 50, OwnedNodes: []string{"S"}}

	ranked := s.RankEdges(g.Edges, g, status)
	if len(ranked) != 3 {
		t.Fatalf("ranked %d edges, want 3", len(ranked))
	}

	want := []string{"B1-S", "B2-S", "B3-S"}
	for i, id := range want {
		if ranked[i].EdgeID != id {
			t.Errorf("rank %d = %q (priority %.3f), want %q",
				i, ranked[i].EdgeID, ranked[i].Priority, id)
		}
	}

	// At the flat nominal pair count the high-utility edge pays for its
	// difficulty and cost but still clears the low-payoff easy edge.
	if ranked[0].Priority <= ranked[1].Priority || ranked[1].Priority <= ranked[2].Priority {
		t.Errorf("priorities not strictly descending: %.3f, %.3f, %.3f",
			ranked[0].Priority, ranked[1].Priority, ranked[2].Priority)
	}
}

func TestScorer_RankEdges_PriorityValues(t *testing.T) {
	g := threeEdgeGraph()
	s := NewScorer(DefaultWeights())
	status := &game.PlayerStatus{Budget: 50, OwnedNodes: []string{"S"}}

	ranked := s.RankEdges(g.Edges, g, status)

	tests := []struct {
		edgeID string
		want   float64
	}{
		{"B1-S", 8.226667},
		{"B2-S", 7.498214},
		{"B3-S", 4.643333},
	}

	byID := make(map[string]EdgeScore, len(ranked))
	for _, score := range ranked {
		byID[score.EdgeID] = score
	}

	for _, tt := range tests {
		score, ok := byID[tt.edgeID]
		if !ok {
			t.Fatalf("edge %q missing from ranking", tt.edgeID)
		}
		if math.Abs(score.Priority-tt.want) > 1e-5 {
			t.Errorf("priority(%s) = %.6f, want %.6f", tt.edgeID, score.Priority, tt.want)
		}
	}
}

func TestScorer_RankEdges_TieBreaks(t *testing.T) {
	// Two structurally identical edges differ only in id; the
	// lexicographically smaller key must rank first.
	g := &game.Graph{
		Nodes: []game.Node{
			{NodeID: "S"},
			{NodeID: "A", UtilityQubits: 10},
			{NodeID: "B", UtilityQubits: 10},
		},
		Edges: []game.Edge{
			{EdgeID: [2]string{"S", "B"}, DifficultyRating: 2, BaseThreshold: 0.80},
			{EdgeID: [2]string{"S", "A"}, DifficultyRating: 2, BaseThreshold: 0.80},
		},
	}
	s := NewScorer(DefaultWeights())
	status := &game.PlayerStatus{Budget: 50, OwnedNodes: []string{"S"}}

	ranked := s.RankEdges(g.Edges, g, status)
	if ranked[0].EdgeID != "A-S" || ranked[1].EdgeID != "B-S" {
		t.Errorf("tie-break order = %q, %q, want A-S, B-S", ranked[0].EdgeID, ranked[1].EdgeID)
	}
}

func TestScorer_ScoreEdge_BonusCountsHalf(t *testing.T) {
	g := &game.Graph{
		Nodes: []game.Node{
			{NodeID: "S"},
			{NodeID: "T", UtilityQubits: 10, BonusBellPairs: 4},
		},
		Edges: []game.Edge{
			{EdgeID: [2]string{"S", "T"}, DifficultyRating: 2, BaseThreshold: 0.80},
		},
	}
	s := NewScorer(DefaultWeights())

	score := s.ScoreEdge(g.Edges[0], g, map[string]bool{"S": true})
	want := (10 + 0.5*4) * 0.49
	if math.Abs(score.ExpectedUtility-want) > 1e-9 {
		t.Errorf("expected utility = %v, want %v", score.ExpectedUtility, want)
	}
}

func TestScorer_ScoreEdge_UnknownTarget(t *testing.T) {
	g := &game.Graph{
		Nodes: []game.Node{{NodeID: "S"}},
		Edges: []game.Edge{
			{EdgeID: [2]string{"S", "ghost"}, DifficultyRating: 3, BaseThreshold: 0.80},
		},
	}
	s := NewScorer(DefaultWeights())

	score := s.ScoreEdge(g.Edges[0], g, map[string]bool{"S": true})
	if score.Priority != 0 || score.ExpectedUtility != 0 {
		t.Errorf("unknown target scored %v / %v, want zeros", score.Priority, score.ExpectedUtility)
	}
}

func TestScorer_SelectBestEdge(t *testing.T) {
	g := threeEdgeGraph()
	s := NewScorer(DefaultWeights())

	t.Run("picks top ranked when affordable", func(t *testing.T) {
		status := &game.PlayerStatus{Budget: 50, OwnedNodes: []string{"S"}}
		best, ok := s.SelectBestEdge(g.Edges, g, status, 10)
		if !ok {
			t.Fatal("expected a selection")
		}
		if best.EdgeID != "B1-S" {
			t.Errorf("selected %q, want B1-S", best.EdgeID)
		}
	})

	t.Run("skips unaffordable edges", func(t *testing.T) {
		// Budget 13, reserve 10: only cost-3 edges fit.
		status := &game.PlayerStatus{Budget: 13, OwnedNodes: []string{"S"}}
		best, ok := s.SelectBestEdge(g.Edges, g, status, 10)
		if !ok {
			t.Fatal("expected a selection")
		}
		if best.ExpectedCost+10 > status.Budget {
			t.Errorf("selected cost %d exceeds budget %d minus reserve", best.ExpectedCost, status.Budget)
		}
	})

	t.Run("returns false when nothing is affordable", func(t *testing.T) {
		status := &game.PlayerStatus{Budget: 11, OwnedNodes: []string{"S"}}
		if _, ok := s.SelectBestEdge(g.Edges, g, status, 10); ok {
			t.Error("expected no selection at budget 11 with reserve 10")
		}
	})

	t.Run("empty claimable list", func(t *testing.T) {
		status := &game.PlayerStatus{Budget: 50, OwnedNodes: []string{"S"}}
		if _, ok := s.SelectBestEdge(nil, g, status, 10); ok {
			t.Error("expected no selection from empty list")
		}
	})
}

func TestNewScorer_ZeroWeightsFallBack(t *testing.T) {
	s := NewScorer(Weights{})
	if s.weights != DefaultWeights() {
		t.Errorf("weights = %+v, want defaults", s.weights)
	}
}
