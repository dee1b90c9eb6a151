// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package agent

import (
	"github.com/AleutianAI/QuantumClaim/services/distillation"
	"github.com/AleutianAI/QuantumClaim/services/game"
	"github.com/AleutianAI/QuantumClaim/services/strategy"
)

// =============================================================================
// Stop Reasons
// =============================================================================

// StopReason explains why the control loop terminated.
type StopReason string

const (
	// StopNoClaimableEdges means no unowned edge touches an owned node.
	// Edges that remain but are unaffordable stop the run with
	// StopBudgetExhausted instead.
	StopNoClaimableEdges StopReason = "no_claimable_edges"

	// StopBudgetExhausted means the budget fell below the reserve.
	StopBudgetExhausted StopReason = "budget_exhausted"

	// StopMaxIterations means the iteration cap was reached.
	StopMaxIterations StopReason = "max_iterations_reached"

	// StopCancelled means the run context was cancelled.
	StopCancelled StopReason = "cancelled"

	// StopTransportFailure means the server became unreachable.
	StopTransportFailure StopReason = "transport_failure"

	// StopInvalidCircuit means a circuit build was rejected by the
	// builder. The planner clamps allocations into the builder's
	// range, so this signals a programming error rather than a game
	// condition.
	StopInvalidCircuit StopReason = "invalid_input"
)

// String returns the stop reason as a string.
func (r StopReason) String() string {
	return string(r)
}

// =============================================================================
// Iteration Outcomes
// =============================================================================

// Outcome classifies a single control-loop iteration.
type Outcome string

const (
	// OutcomeClaimed means the claim succeeded and the edge is owned.
	OutcomeClaimed Outcome = "claimed"

	// OutcomeFailed means the claim was submitted and rejected, the
	// distillation roll failed, or the submission hit a transport error.
	OutcomeFailed Outcome = "failed"

	// OutcomeSkipped means a gate rejected the iteration before
	// submission. No pairs were spent.
	OutcomeSkipped Outcome = "skipped"
)

// AttemptLog records one control-loop iteration for the run summary.
type AttemptLog struct {
	// Iteration is the 0-indexed loop iteration.
	Iteration int `json:"iteration"`

	// EdgeID identifies the targeted edge (canonical "a-b" key).
	EdgeID string `json:"edge_id,omitempty"`

	// TargetNode is the node the claim would capture.
	TargetNode string `json:"target_node,omitempty"`

	// Protocol is the distillation protocol used, if the iteration
	// reached strategy selection.
	Protocol string `json:"protocol,omitempty"`

	// PairCount is the number of Bell pairs allocated.
	PairCount int `json:"pair_count,omitempty"`

	// Outcome is claimed, failed, or skipped.
	Outcome Outcome `json:"outcome"`

	// PairsSpent is the budget charged (successful claims only).
	PairsSpent int `json:"pairs_spent,omitempty"`

	// Fidelity is the server-reported output fidelity, when submitted.
	Fidelity float64 `json:"fidelity,omitempty"`

	// Threshold is the edge's fidelity threshold, when submitted.
	Threshold float64 `json:"threshold,omitempty"`

	// Reason explains skips and failures.
	Reason string `json:"reason,omitempty"`
}

// Summary is the final report of an autonomous run.
type Summary struct {
	// PlayerID is the player the agent ran as.
	PlayerID string `json:"player_id"`

	// Iterations is the number of control-loop iterations executed.
	Iterations int `json:"iterations"`

	// Claims is the number of successful edge claims.
	Claims int `json:"claims"`

	// FailedClaims is the number of submitted claims that did not
	// capture an edge.
	FailedClaims int `json:"failed_claims"`

	// Skips is the number of iterations rejected before submission.
	Skips int `json:"skips"`

	// PairsSpent is the total Bell pairs charged across the run.
	PairsSpent int `json:"pairs_spent"`

	// FinalScore is the player's score when the loop stopped.
	FinalScore int `json:"final_score"`

	// FinalBudget is the remaining Bell-pair budget.
	FinalBudget int `json:"final_budget"`

	// RiskTolerance is the budget manager's final ROI floor.
	RiskTolerance float64 `json:"risk_tolerance"`

	// OwnedNodes lists the nodes held when the loop stopped.
	OwnedNodes []string `json:"owned_nodes"`

	// OwnedEdges lists the edges held when the loop stopped.
	OwnedEdges [][2]string `json:"owned_edges"`

	// StopReason explains why the loop terminated.
	StopReason StopReason `json:"stop_reason"`

	// DurationMs is the wall-clock run time in milliseconds.
	DurationMs int64 `json:"duration_ms"`

	// Attempts is the per-iteration log.
	Attempts []AttemptLog `json:"attempts"`
}

// =============================================================================
// Loop State
// =============================================================================

// loopState carries one iteration's working data between stages.
//
// A fresh loopState is built at the top of every iteration; stages
// mutate it in sequence and the orchestrator folds the result into the
// run summary.
type loopState struct {
	iteration int

	status game.PlayerStatus
	graph  *game.Graph

	target     strategy.EdgeScore
	haveTarget bool

	pairCount int
	protocol  distillation.Protocol
	circuit   distillation.Circuit

	verdict distillation.Verdict

	submitted bool
	result    game.ClaimResult

	stop    StopReason
	outcome Outcome

	// skipGate labels the rejecting gate for metrics (budget,
	// simulation, transport).
	skipGate   string
	skipReason string
}

// terminal reports whether a stage set a stop reason.
func (st *loopState) terminal() bool {
	return st.stop != ""
}

// attemptLog converts the iteration state into its summary entry.
func (st *loopState) attemptLog() AttemptLog {
	entry := AttemptLog{
		Iteration: st.iteration,
		Outcome:   st.outcome,
		Reason:    st.skipReason,
	}
	if st.haveTarget {
		entry.EdgeID = st.target.EdgeID
		entry.TargetNode = st.target.TargetNodeID
	}
	if st.pairCount > 0 {
		entry.PairCount = st.pairCount
		entry.Protocol = st.protocol.String()
	}
	if st.submitted {
		entry.Fidelity = st.result.Fidelity
		entry.Threshold = st.result.Threshold
		entry.PairsSpent = st.result.PairsSpent
		if !st.result.Claimed && entry.Reason == "" {
			entry.Reason = st.result.Reason()
		}
	}
	return entry
}
