// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package strategy

import "github.com/AleutianAI/QuantumClaim/services/distillation"

// =============================================================================
// Resource Planner
// =============================================================================

// NominalPairs is the pair count a first attempt would request before
// the budget clamp: a difficulty-banded base (2 for difficulty <= 3,
// 3 for <= 6, 4 above) plus one for thresholds over 0.85 and another
// for thresholds over 0.92.
func NominalPairs(difficulty int, threshold float64) int {
	base := 4
	switch {
	case difficulty <= 3:
		base = 2
	case difficulty <= 6:
		base = 3
	}

	pairs := base
	if threshold > 0.85 {
		pairs++
	}
	if threshold > 0.92 {
		pairs++
	}
	return pairs
}

// Planner chooses the Bell-pair count for each claim attempt.
//
// Retries escalate monotonically: each failed attempt adds one pair to
// the next request until the ceiling of 8 or the budget clamp engages.
type Planner struct{}

// NewPlanner creates a Planner.
func NewPlanner() *Planner {
	return &Planner{}
}

// PairCount returns the Bell pairs to allocate for an attempt.
//
// # Inputs
//
//   - score: the edge under attempt.
//   - currentBudget: remaining Bell pairs.
//   - attemptNumber: the AttemptRecord counter, 0 on the first try.
//
// # Outputs
//
//   - int: pair count in [2, min(8, budget/2)]; the lower bound wins
//     when the budget clamp drops below it.
func (p *Planner) PairCount(score EdgeScore, currentBudget, attemptNumber int) int {
	pairs := NominalPairs(score.Difficulty, score.Threshold) + attemptNumber

	affordable := currentBudget / 2
	if affordable > distillation.MaxPairs {
		affordable = distillation.MaxPairs
	}
	if pairs > affordable {
		pairs = affordable
	}
	if pairs < distillation.MinPairs {
		pairs = distillation.MinPairs
	}
	return pairs
}
