// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package agent drives the autonomous claiming loop.
//
// The orchestrator runs a fixed stage pipeline per iteration: edge
// selection, resource allocation, distillation strategy, simulation
// check, execution, and state update. Stages communicate through a
// per-iteration loopState; the budget manager and scorer carry state
// across iterations.
//
// # Thread Safety
//
// An Orchestrator runs one loop at a time. RunAutonomous must not be
// called concurrently on the same instance.
package agent

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/QuantumClaim/pkg/logging"
	"github.com/AleutianAI/QuantumClaim/services/distillation"
	"github.com/AleutianAI/QuantumClaim/services/game"
	"github.com/AleutianAI/QuantumClaim/services/strategy"
)

// =============================================================================
// Orchestrator
// =============================================================================

// maxTransportFailures is the consecutive-failure streak that
// terminates the run. Isolated failures are retried on the next
// iteration.
const maxTransportFailures = 3

// GameClient is the server surface the control loop depends on.
// *game.Client satisfies it; tests substitute a scripted fake.
type GameClient interface {
	// Status returns the player's current standing.
	Status(ctx context.Context) (game.PlayerStatus, error)

	// Graph returns the network graph, fetching when force is set or
	// no cached copy exists.
	Graph(ctx context.Context, force bool) (*game.Graph, error)

	// ClaimEdge submits a distillation circuit for an edge. A non-nil
	// error means transport failure; server rejects come back inside
	// the ClaimResult.
	ClaimEdge(ctx context.Context, edge game.Edge, circuit []distillation.WireOp, flagBit, numPairs int) (game.ClaimResult, error)
}

var _ GameClient = (*game.Client)(nil)

// Options carries the optional collaborators of an Orchestrator.
// Zero-value fields fall back to defaults.
type Options struct {
	// Logger receives structured loop events. Defaults to the package
	// default logger.
	Logger *logging.Logger

	// Metrics receives loop counters and gauges. Nil disables metric
	// recording.
	Metrics *Metrics

	// Simulator overrides the local estimate simulator.
	Simulator *distillation.Simulator
}

// Orchestrator owns the autonomous control loop.
type Orchestrator struct {
	cfg     Config
	client  GameClient
	scorer  *strategy.Scorer
	budget  *strategy.Manager
	planner *strategy.Planner
	sim     *distillation.Simulator
	log     *logging.Logger
	metrics *Metrics
	tracer  trace.Tracer

	initialBudget     int
	transportFailures int
}

// NewOrchestrator wires the loop from a validated configuration.
func NewOrchestrator(cfg Config, client GameClient, opts Options) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if client == nil {
		return nil, fmt.Errorf("agent: nil game client")
	}

	log := opts.Logger
	if log == nil {
		log = logging.Default()
	}
	sim := opts.Simulator
	if sim == nil {
		sim = distillation.NewSimulator(distillation.DefaultSimulatorConfig())
	}

	return &Orchestrator{
		cfg:     cfg,
		client:  client,
		scorer:  strategy.NewScorer(cfg.Weights()),
		budget:  strategy.NewManager(cfg.BudgetConfig()),
		planner: strategy.NewPlanner(),
		sim:     sim,
		log:     log.With("component", "agent"),
		metrics: opts.Metrics,
		tracer:  otel.Tracer("quantumclaim/agent"),
	}, nil
}

// RunAutonomous executes the control loop until a stop condition.
//
// # Description
//
// Iterates up to Config.MaxIterations. Each iteration refreshes server
// state, selects the best claimable edge, sizes and builds a circuit,
// optionally simulates it, submits the claim, and folds the result
// into the budget manager. The loop stops on no claimable edges, an
// exhausted budget, the iteration cap, context cancellation, or a
// streak of transport failures.
//
// # Outputs
//
//   - Summary: the run report, valid even on error.
//   - error: non-nil only when the initial server contact fails.
func (o *Orchestrator) RunAutonomous(ctx context.Context) (Summary, error) {
	start := time.Now()

	status, err := o.client.Status(ctx)
	if err != nil {
		return Summary{StopReason: StopTransportFailure}, fmt.Errorf("initial status: %w", err)
	}
	o.initialBudget = status.Budget
	o.transportFailures = 0
	o.metrics.SetRiskTolerance(o.budget.RiskTolerance())

	o.log.Info("starting autonomous run",
		"player_id", status.PlayerID,
		"agent_type", string(o.cfg.AgentType),
		"budget", status.Budget,
		"max_iterations", o.cfg.MaxIterations,
	)

	summary := Summary{
		PlayerID: status.PlayerID,
	}
	lastStatus := status

	for i := 0; i < o.cfg.MaxIterations; i++ {
		if ctx.Err() != nil {
			summary.StopReason = StopCancelled
			break
		}

		st := &loopState{iteration: i}
		o.runIteration(ctx, st)
		summary.Iterations++

		if st.status.PlayerID != "" {
			lastStatus = st.status
		}
		if ctx.Err() != nil && !st.terminal() {
			st.stop = StopCancelled
		}

		if st.outcome != "" {
			summary.Attempts = append(summary.Attempts, st.attemptLog())
			o.metrics.RecordIteration(string(st.outcome))
			switch st.outcome {
			case OutcomeClaimed:
				summary.Claims++
				summary.PairsSpent += st.result.PairsSpent
			case OutcomeFailed:
				summary.FailedClaims++
			case OutcomeSkipped:
				summary.Skips++
				o.metrics.RecordSkip(st.skipGate)
			}
		}

		if st.terminal() {
			summary.StopReason = st.stop
			break
		}
	}

	if summary.StopReason == "" {
		summary.StopReason = StopMaxIterations
	}

	summary.FinalScore = lastStatus.Score
	summary.FinalBudget = lastStatus.Budget
	summary.RiskTolerance = o.budget.RiskTolerance()
	summary.OwnedNodes = lastStatus.OwnedNodes
	summary.OwnedEdges = lastStatus.OwnedEdges
	summary.DurationMs = time.Since(start).Milliseconds()

	o.log.Info("autonomous run complete",
		"iterations", summary.Iterations,
		"claims", summary.Claims,
		"failed_claims", summary.FailedClaims,
		"skips", summary.Skips,
		"score", summary.FinalScore,
		"budget", summary.FinalBudget,
		"stop_reason", summary.StopReason.String(),
	)
	return summary, nil
}

// runIteration drives one pass through the stage pipeline.
func (o *Orchestrator) runIteration(ctx context.Context, st *loopState) {
	iterCtx, span := o.tracer.Start(ctx, "agent.iteration",
		trace.WithAttributes(attribute.Int("iteration", st.iteration)))
	defer func() {
		span.SetAttributes(attribute.String("outcome", string(st.outcome)))
		if st.haveTarget {
			span.SetAttributes(attribute.String("edge", st.target.EdgeID))
		}
		if st.terminal() {
			span.SetAttributes(attribute.String("stop_reason", st.stop.String()))
		}
		span.End()
	}()

	_ = o.refreshState(iterCtx, st) &&
		o.stageEdgeSelection(st) &&
		o.stageResourceAllocation(st) &&
		o.stageDistillationStrategy(st) &&
		o.stageSimulationCheck(st) &&
		o.stageExecution(iterCtx, st) &&
		o.stageUpdateState(iterCtx, st)
}
