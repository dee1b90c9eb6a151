// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package agent

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Metric Definitions
// =============================================================================

// Namespace for all metrics
const metricsNamespace = "quantumclaim"

// Subsystem for agent loop metrics
const agentSubsystem = "agent"

// Metrics holds the Prometheus metrics for the agent control loop.
//
// # Thread Safety
//
// All operations are thread-safe via Prometheus's internal locking.
type Metrics struct {
	// IterationsTotal counts control-loop iterations by outcome.
	// Labels: outcome (claimed, failed, skipped)
	IterationsTotal *prometheus.CounterVec

	// ClaimsTotal counts claim submissions by protocol and result.
	// Labels: protocol (bbpssw, dejmps), result (success, failure)
	ClaimsTotal *prometheus.CounterVec

	// SkipsTotal counts skipped iterations by gate.
	// Labels: gate (budget, simulation, transport)
	SkipsTotal *prometheus.CounterVec

	// PairsSpentTotal counts Bell pairs charged on successful claims.
	PairsSpentTotal prometheus.Counter

	// Budget tracks the remaining Bell-pair budget.
	Budget prometheus.Gauge

	// Score tracks the player's score.
	Score prometheus.Gauge

	// RiskTolerance tracks the budget manager's current ROI floor.
	RiskTolerance prometheus.Gauge

	// EstimatedFidelity observes the simulator's fidelity estimate for
	// submitted circuits.
	EstimatedFidelity prometheus.Histogram
}

// NewMetrics creates and registers the agent metrics with the given
// registerer. Pass prometheus.DefaultRegisterer in production; tests
// use a fresh registry to avoid duplicate registration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		IterationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: agentSubsystem,
			Name:      "iterations_total",
			Help:      "Control-loop iterations by outcome.",
		}, []string{"outcome"}),

		ClaimsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: agentSubsystem,
			Name:      "claims_total",
			Help:      "Claim submissions by protocol and result.",
		}, []string{"protocol", "result"}),

		SkipsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: agentSubsystem,
			Name:      "skips_total",
			Help:      "Skipped iterations by rejecting gate.",
		}, []string{"gate"}),

		PairsSpentTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: agentSubsystem,
			Name:      "pairs_spent_total",
			Help:      "Bell pairs charged on successful claims.",
		}),

		Budget: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: agentSubsystem,
			Name:      "budget",
			Help:      "Remaining Bell-pair budget.",
		}),

		Score: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: agentSubsystem,
			Name:      "score",
			Help:      "Current player score.",
		}),

		RiskTolerance: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: agentSubsystem,
			Name:      "risk_tolerance",
			Help:      "Current ROI floor of the budget manager.",
		}),

		EstimatedFidelity: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: agentSubsystem,
			Name:      "estimated_fidelity",
			Help:      "Simulator fidelity estimates for submitted circuits.",
			Buckets:   prometheus.LinearBuckets(0.5, 0.05, 10),
		}),
	}
}

// RecordStatus updates the budget and score gauges from a status
// snapshot.
func (m *Metrics) RecordStatus(budget, score int) {
	if m == nil {
		return
	}
	m.Budget.Set(float64(budget))
	m.Score.Set(float64(score))
}

// RecordClaim updates the claim counters for one execution.
func (m *Metrics) RecordClaim(protocol string, success bool, pairsSpent int) {
	if m == nil {
		return
	}
	result := "failure"
	if success {
		result = "success"
		m.PairsSpentTotal.Add(float64(pairsSpent))
	}
	m.ClaimsTotal.WithLabelValues(protocol, result).Inc()
}

// RecordFidelityEstimate observes one simulator fidelity estimate.
func (m *Metrics) RecordFidelityEstimate(fidelity float64) {
	if m == nil {
		return
	}
	m.EstimatedFidelity.Observe(fidelity)
}

// SetRiskTolerance updates the risk-tolerance gauge.
func (m *Metrics) SetRiskTolerance(risk float64) {
	if m == nil {
		return
	}
	m.RiskTolerance.Set(risk)
}

// RecordSkip updates the skip counter for one rejected iteration.
func (m *Metrics) RecordSkip(gate string) {
	if m == nil {
		return
	}
	m.SkipsTotal.WithLabelValues(gate).Inc()
}

// RecordIteration updates the iteration counter.
func (m *Metrics) RecordIteration(outcome string) {
	if m == nil {
		return
	}
	m.IterationsTotal.WithLabelValues(outcome).Inc()
}
