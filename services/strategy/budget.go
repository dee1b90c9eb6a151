// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package strategy

import (
	"fmt"
	"sync"

	"github.com/AleutianAI/QuantumClaim/services/distillation"
)

// =============================================================================
// Budget Manager Configuration
// =============================================================================

// BudgetConfig allows configuring admission-control behavior.
type BudgetConfig struct {
	// MinReserve is the Bell-pair floor the manager refuses to dip
	// below (default: 10).
	MinReserve int

	// MaxRetriesPerEdge caps attempts at a single edge (default: 3).
	MaxRetriesPerEdge int

	// RiskTolerance is the minimum ROI the manager approves, in [0, 1]
	// (default: 0.5).
	RiskTolerance float64

	// MinSuccessProb is the floor on estimated post-selection success
	// (default: 0.20).
	MinSuccessProb float64

	// AdaptiveRisk enables risk-tolerance adjustment as the budget
	// shrinks (default: true).
	AdaptiveRisk bool
}

// DefaultBudgetConfig returns production defaults.
func DefaultBudgetConfig() BudgetConfig {
	return BudgetConfig{
		MinReserve:        10,
		MaxRetriesPerEdge: 3,
		RiskTolerance:     0.5,
		MinSuccessProb:    0.20,
		AdaptiveRisk:      true,
	}
}

// =============================================================================
// Attempt Records
// =============================================================================

// AttemptRecord is the per-edge attempt ledger. It persists across
// iterations; Attempts always equals Successes + Failures, and
// Successes never exceeds one because a claimed edge leaves the
// claimable set.
type AttemptRecord struct {
	Attempts        int
	Successes       int
	Failures        int
	TotalPairsSpent int

	// LastProtocol is the protocol of the most recent attempt. Valid
	// only when Attempts > 0.
	LastProtocol distillation.Protocol
}

// =============================================================================
// Budget Manager
// =============================================================================

// Manager is the admission controller: it decides whether an edge is
// worth an attempt given retry history, remaining budget, and the
// current risk posture.
//
// Thread Safety: Safe for concurrent use via mutex.
type Manager struct {
	mu            sync.Mutex
	cfg           BudgetConfig
	riskTolerance float64
	records       map[string]*AttemptRecord
}

// NewManager creates a budget manager with the given config.
// Zero-valued MaxRetriesPerEdge, RiskTolerance and MinSuccessProb fall
// back to defaults; MinReserve falls back only when negative, so a zero
// reserve is kept.
func NewManager(cfg BudgetConfig) *Manager {
	def := DefaultBudgetConfig()
	if cfg.MaxRetriesPerEdge <= 0 {
		cfg.MaxRetriesPerEdge = def.MaxRetriesPerEdge
	}
	if cfg.RiskTolerance <= 0 {
		cfg.RiskTolerance = def.RiskTolerance
	}
	if cfg.MinSuccessProb <= 0 {
		cfg.MinSuccessProb = def.MinSuccessProb
	}
	if cfg.MinReserve < 0 {
		cfg.MinReserve = def.MinReserve
	}

	return &Manager{
		cfg:           cfg,
		riskTolerance: cfg.RiskTolerance,
		records:       make(map[string]*AttemptRecord),
	}
}

// ShouldAttempt decides whether to attempt claiming an edge.
//
// # Description
//
// Rejects, in order: retry limit reached; budget after the attempt
// would fall below the reserve; negative expected value; ROI below the
// current risk tolerance; success probability below the floor. The
// reason string is recorded by the orchestrator when an iteration is
// skipped.
//
// # Outputs
//
//   - bool: true if the attempt is approved.
//   - string: rejection reason, "approved" on success.
func (m *Manager) ShouldAttempt(score EdgeScore, currentBudget int) (bool, string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rec, ok := m.records[score.EdgeID]; ok && rec.Attempts >= m.cfg.MaxRetriesPerEdge {
		return false, fmt.Sprintf("max retries (%d) reached", m.cfg.MaxRetriesPerEdge)
	}

	if currentBudget-score.ExpectedCost < m.cfg.MinReserve {
		return false, fmt.Sprintf("insufficient budget (need %d, have %d)",
			score.ExpectedCost+m.cfg.MinReserve, currentBudget)
	}

	expectedValue := score.ExpectedUtility - float64(score.ExpectedCost)
	if expectedValue <= 0 {
		return false, fmt.Sprintf("negative expected value (%.2f)", expectedValue)
	}

	if score.ROI < m.riskTolerance {
		return false, fmt.Sprintf("ROI (%.2f) below risk tolerance (%.2f)", score.ROI, m.riskTolerance)
	}

	if score.EstimatedSuccessProb < m.cfg.MinSuccessProb {
		return false, fmt.Sprintf("success probability too low (%.2f)", score.EstimatedSuccessProb)
	}

	return true, "approved"
}

// RecordAttempt updates the edge's attempt ledger. Pairs are charged to
// TotalPairsSpent only on success; the server does not bill failed
// attempts.
func (m *Manager) RecordAttempt(edgeID string, protocol distillation.Protocol, success bool, pairsSpent int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[edgeID]
	if !ok {
		rec = &AttemptRecord{}
		m.records[edgeID] = rec
	}

	rec.Attempts++
	rec.LastProtocol = protocol
	if success {
		rec.Successes++
		rec.TotalPairsSpent += pairsSpent
	} else {
		rec.Failures++
	}
}

// Record returns a copy of the edge's attempt ledger. The zero record
// is returned for edges never attempted.
func (m *Manager) Record(edgeID string) AttemptRecord {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rec, ok := m.records[edgeID]; ok {
		return *rec
	}
	return AttemptRecord{}
}

// AttemptCount returns the number of attempts made at an edge.
func (m *Manager) AttemptCount(edgeID string) int {
	return m.Record(edgeID).Attempts
}

// NextProtocol picks the protocol for the edge's next attempt: the
// first-attempt rule when the edge is untouched, otherwise the
// alternate of the protocol last tried at that edge.
func (m *Manager) NextProtocol(score EdgeScore, preferDEJMPS bool) distillation.Protocol {
	rec := m.Record(score.EdgeID)
	if rec.Attempts == 0 {
		return FirstAttemptProtocol(score.Difficulty, score.Threshold, preferDEJMPS)
	}
	return RetryProtocol(rec.LastProtocol)
}

// AdjustRiskTolerance tightens the ROI floor as the budget drains:
// 0.4 while at least half the initial budget remains, 0.6 down to a
// fifth, 0.8 below that. No-op when AdaptiveRisk is disabled.
func (m *Manager) AdjustRiskTolerance(currentBudget, initialBudget int) {
	if !m.cfg.AdaptiveRisk {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	denom := initialBudget
	if denom < 1 {
		denom = 1
	}
	ratio := float64(currentBudget) / float64(denom)

	switch {
	case ratio >= 0.50:
		m.riskTolerance = 0.4
	case ratio >= 0.20:
		m.riskTolerance = 0.6
	default:
		m.riskTolerance = 0.8
	}
}

// RiskTolerance returns the current ROI floor.
func (m *Manager) RiskTolerance() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.riskTolerance
}

// MinReserve returns the configured budget floor.
func (m *Manager) MinReserve() int {
	return m.cfg.MinReserve
}
