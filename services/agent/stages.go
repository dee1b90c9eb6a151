// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package agent

import (
	"context"

	"github.com/AleutianAI/QuantumClaim/services/distillation"
)

// =============================================================================
// Control-Loop Stages
// =============================================================================
//
// Each iteration runs six stages in order. A stage either advances the
// loopState or ends the iteration: setting st.stop terminates the run,
// setting st.outcome without st.submitted records a skip. Stage
// functions return false when the iteration should not proceed to the
// next stage.

// stageEdgeSelection picks the target edge from the status and graph
// that refreshState loaded.
//
// Stops the run when no edge is claimable or the budget fell below the
// reserve. Skips the iteration when the budget manager rejects the
// best candidate.
func (o *Orchestrator) stageEdgeSelection(st *loopState) bool {
	claimable := st.graph.ClaimableEdges(st.status.OwnedNodeSet())
	if len(claimable) == 0 {
		st.stop = StopNoClaimableEdges
		return false
	}
	if st.status.Budget < o.budget.MinReserve() {
		st.stop = StopBudgetExhausted
		return false
	}

	target, ok := o.scorer.SelectBestEdge(claimable, st.graph, &st.status, o.budget.MinReserve())
	if !ok {
		// Edges remain but none is affordable above the reserve.
		st.stop = StopBudgetExhausted
		return false
	}
	st.target = target
	st.haveTarget = true

	if ok, reason := o.budget.ShouldAttempt(target, st.status.Budget); !ok {
		st.outcome = OutcomeSkipped
		st.skipGate = "budget"
		st.skipReason = reason
		o.log.Info("skipping edge",
			"edge", target.EdgeID,
			"reason", reason,
		)
		return false
	}
	return true
}

// stageResourceAllocation sizes the Bell-pair allocation for the
// attempt, escalating with the per-edge retry count.
func (o *Orchestrator) stageResourceAllocation(st *loopState) bool {
	attempt := o.budget.AttemptCount(st.target.EdgeID)
	st.pairCount = o.planner.PairCount(st.target, st.status.Budget, attempt)
	return true
}

// stageDistillationStrategy selects the protocol and builds the
// circuit.
func (o *Orchestrator) stageDistillationStrategy(st *loopState) bool {
	st.protocol = o.budget.NextProtocol(st.target, o.cfg.PreferDEJMPS)

	circuit, err := distillation.Build(st.protocol, st.pairCount)
	if err != nil {
		// The planner clamps into the builder's range; a rejected
		// build is a programming error, not a game condition, so the
		// run stops rather than skipping the iteration.
		st.stop = StopInvalidCircuit
		st.skipReason = err.Error()
		o.log.Error("circuit build failed",
			"edge", st.target.EdgeID,
			"pairs", st.pairCount,
			"error", err,
		)
		return false
	}
	st.circuit = circuit
	return true
}

// stageSimulationCheck gates the submission through the local
// simulator estimate. Disabled via Config.EnableSimulation.
func (o *Orchestrator) stageSimulationCheck(st *loopState) bool {
	if !o.cfg.EnableSimulation {
		return true
	}

	inputFidelity := o.sim.InferInputNoise(st.target.Difficulty)
	st.verdict = o.sim.ShouldSubmit(&st.circuit, st.circuit.FlagBit,
		st.pairCount, st.target.Threshold, inputFidelity)
	o.metrics.RecordFidelityEstimate(st.verdict.EstimatedFidelity)

	if !st.verdict.Submit {
		st.outcome = OutcomeSkipped
		st.skipGate = "simulation"
		st.skipReason = st.verdict.Reason
		o.log.Info("simulation rejected circuit",
			"edge", st.target.EdgeID,
			"estimated_fidelity", st.verdict.EstimatedFidelity,
			"threshold", st.target.Threshold,
			"reason", st.verdict.Reason,
		)
		return false
	}
	return true
}

// stageExecution submits the claim.
//
// A transport error counts as a failed attempt at the edge: it uses up
// one of the edge's retries but charges no pairs locally, since whether
// the server processed the claim is unknown. The failure streak decides
// between retrying next iteration and terminating the run.
func (o *Orchestrator) stageExecution(ctx context.Context, st *loopState) bool {
	result, err := o.client.ClaimEdge(ctx, st.target.Edge,
		st.circuit.Wire(), st.circuit.FlagBit, st.pairCount)
	if err != nil {
		st.outcome = OutcomeFailed
		st.skipReason = err.Error()
		o.budget.RecordAttempt(st.target.EdgeID, st.protocol, false, 0)
		o.metrics.RecordClaim(st.protocol.String(), false, 0)
		o.transportFailures++
		if o.transportFailures >= maxTransportFailures {
			st.stop = StopTransportFailure
		}
		o.log.Warn("claim submission failed",
			"edge", st.target.EdgeID,
			"consecutive_failures", o.transportFailures,
			"error", err,
		)
		return false
	}
	o.transportFailures = 0

	st.submitted = true
	st.result = result
	if result.Claimed {
		st.outcome = OutcomeClaimed
	} else {
		st.outcome = OutcomeFailed
	}
	return true
}

// stageUpdateState records the attempt, refreshes status, and adapts
// the risk tolerance to the drained budget.
func (o *Orchestrator) stageUpdateState(ctx context.Context, st *loopState) bool {
	o.budget.RecordAttempt(st.target.EdgeID, st.protocol,
		st.result.Claimed, st.result.PairsSpent)
	o.metrics.RecordClaim(st.protocol.String(), st.result.Claimed,
		st.result.PairsSpent)

	if st.result.Claimed {
		o.log.Info("edge claimed",
			"edge", st.target.EdgeID,
			"node", st.target.TargetNodeID,
			"protocol", st.protocol.String(),
			"pairs_spent", st.result.PairsSpent,
			"fidelity", st.result.Fidelity,
		)
	} else {
		o.log.Info("claim rejected",
			"edge", st.target.EdgeID,
			"protocol", st.protocol.String(),
			"fidelity", st.result.Fidelity,
			"threshold", st.result.Threshold,
			"reason", st.result.Reason(),
		)
	}

	status, err := o.client.Status(ctx)
	if err != nil {
		o.transportFailures++
		if o.transportFailures >= maxTransportFailures {
			st.stop = StopTransportFailure
		}
		o.log.Warn("status refresh failed", "error", err)
		return false
	}
	o.transportFailures = 0
	st.status = status

	o.budget.AdjustRiskTolerance(status.Budget, o.initialBudget)
	o.metrics.RecordStatus(status.Budget, status.Score)
	o.metrics.SetRiskTolerance(o.budget.RiskTolerance())
	return true
}

// refreshState pulls status and graph before stage one runs. The graph
// is static, so only the first iteration forces a fetch.
func (o *Orchestrator) refreshState(ctx context.Context, st *loopState) bool {
	status, err := o.client.Status(ctx)
	if err != nil {
		st.outcome = OutcomeSkipped
		st.skipGate = "transport"
		st.skipReason = err.Error()
		o.transportFailures++
		if o.transportFailures >= maxTransportFailures {
			st.stop = StopTransportFailure
		}
		o.log.Warn("status fetch failed", "error", err)
		return false
	}
	st.status = status

	graph, err := o.client.Graph(ctx, st.iteration == 0)
	if err != nil {
		st.outcome = OutcomeSkipped
		st.skipGate = "transport"
		st.skipReason = err.Error()
		o.transportFailures++
		if o.transportFailures >= maxTransportFailures {
			st.stop = StopTransportFailure
		}
		o.log.Warn("graph fetch failed", "error", err)
		return false
	}
	o.transportFailures = 0
	st.graph = graph

	o.metrics.RecordStatus(status.Budget, status.Score)
	return true
}
