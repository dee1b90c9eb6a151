// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package distillation

import (
	"fmt"
	"math"
)

// =============================================================================
// Simulator Configuration
// =============================================================================

// SimulatorConfig tunes the pre-submission gate.
type SimulatorConfig struct {
	// SafetyMargin is subtracted from the edge threshold before the
	// fidelity comparison. Default 0.03.
	SafetyMargin float64

	// MinSuccessProb is the floor on estimated post-selection success.
	// Default 0.10.
	MinSuccessProb float64

	// InputFidelity, when > 0, overrides the difficulty-based noise
	// inference. The inference is a heuristic with no ground truth;
	// this knob allows empirical re-tuning. Default 0 (infer).
	InputFidelity float64
}

// DefaultSimulatorConfig returns the standard gate settings.
func DefaultSimulatorConfig() SimulatorConfig {
	return SimulatorConfig{
		SafetyMargin:   0.03,
		MinSuccessProb: 0.10,
	}
}

// =============================================================================
// Simulator
// =============================================================================

// Simulator is an analytical, O(1)-per-call estimator that gates
// submission before spending budget on likely failures.
//
// It performs no state-vector evolution. Fidelity and success
// probability come from closed-form recurrences; validation checks
// structural and LOCC constraints only.
type Simulator struct {
	cfg SimulatorConfig
}

// NewSimulator creates a Simulator with the given configuration.
// Zero-valued margin and floor fields fall back to defaults.
func NewSimulator(cfg SimulatorConfig) *Simulator {
	def := DefaultSimulatorConfig()
	if cfg.SafetyMargin == 0 {
		cfg.SafetyMargin = def.SafetyMargin
	}
	if cfg.MinSuccessProb == 0 {
		cfg.MinSuccessProb = def.MinSuccessProb
	}
	return &Simulator{cfg: cfg}
}

// Verdict is the outcome of a ShouldSubmit call.
//
// Submit=false is not an error; it is a reject whose Reason string is
// recorded by the orchestrator as a skipped iteration.
type Verdict struct {
	Submit             bool
	Reason             string
	EstimatedFidelity  float64
	SuccessProbability float64
	InputFidelity      float64
}

// Validate checks structural and LOCC constraints.
//
// # Description
//
// Checks, in order: qubit count equals 2*pairCount; every operation
// uses a known gate kind; every multi-qubit distillation operation has
// all operand indices on one side of the A/B partition. The Bell
// preparation layer is exempt from the partition check: entanglement
// distribution is environmental and the prep operations exist only for
// structural symmetry.
//
// Validate is pure; repeated calls return identical results.
//
// # Outputs
//
//   - bool: true if the circuit passes all checks.
//   - string: structural reason for the failure, empty on success.
func (s *Simulator) Validate(c *Circuit, pairCount int) (bool, string) {
	expected := 2 * pairCount
	if c.QubitCount != expected {
		return false, fmt.Sprintf("expected %d qubits, got %d", expected, c.QubitCount)
	}

	n := pairCount
	for i, op := range c.Ops {
		if op.Kind.String() == "unknown" {
			return false, fmt.Sprintf("op %d: unsupported gate kind %d", i, int(op.Kind))
		}

		operands := make([]int, 0, len(op.Targets)+len(op.Controls))
		operands = append(operands, op.Targets...)
		operands = append(operands, op.Controls...)
		for _, q := range operands {
			if q < 0 || q >= c.QubitCount {
				return false, fmt.Sprintf("op %d (%s): qubit %d out of range", i, op.Kind, q)
			}
		}

		// Single-qubit gates and measurements are unconstrained.
		if len(operands) < 2 {
			continue
		}

		onA := operands[0] < n
		for _, q := range operands[1:] {
			if (q < n) != onA {
				return false, fmt.Sprintf(
					"LOCC violation: gate %s crosses A/B boundary (%v)", op.Kind, operands)
			}
		}
	}

	return true, ""
}

// EstimateOutputFidelity applies the distillation recurrence
// F_out = F^2 / (F^2 + (1-F)^2) once per round, with round count
// pairCount - 1, and clamps the result to [0, 1].
//
// The per-pair round count is a pessimistic approximation (one
// recurrence round jointly consumes all pairs in practice), preserved
// because it is what gates the submission decision.
func EstimateOutputFidelity(inputFidelity float64, pairCount int, protocol Protocol) float64 {
	f := inputFidelity
	rounds := pairCount - 1
	for i := 0; i < rounds; i++ {
		denom := f*f + (1-f)*(1-f)
		if denom == 0 {
			break
		}
		f = f * f / denom
	}
	return math.Max(0, math.Min(1, f))
}

// EstimateSuccessProbability returns the heuristic post-selection
// success estimate base^(pairCount-1), base 0.70 for BBPSSW and 0.75
// for DEJMPS.
func EstimateSuccessProbability(pairCount int, protocol Protocol) float64 {
	base := 0.70
	if protocol == ProtocolDEJMPS {
		base = 0.75
	}
	return math.Pow(base, float64(pairCount-1))
}

// InferInputNoise maps an edge difficulty rating to the input fidelity
// used to seed the estimate: F_in = max(0.55, 0.95 - 0.04*difficulty).
//
// When the simulator was configured with an InputFidelity override,
// that value is returned instead.
func (s *Simulator) InferInputNoise(difficulty int) float64 {
	if s.cfg.InputFidelity > 0 {
		return s.cfg.InputFidelity
	}
	return math.Max(0.55, 0.95-0.04*float64(difficulty))
}

// ShouldSubmit decides whether a circuit is worth submitting.
//
// # Description
//
// Accepts iff Validate passes, the estimated output fidelity clears
// threshold - SafetyMargin, and the estimated success probability
// clears MinSuccessProb. The returned Verdict carries the estimates
// either way so the caller can log them.
//
// # Inputs
//
//   - c: the candidate circuit.
//   - flagBit: post-selection flag index (carried into logs).
//   - pairCount: Bell pairs allocated to this attempt.
//   - threshold: the edge's fidelity requirement.
//   - inputFidelity: seed fidelity, normally from InferInputNoise.
func (s *Simulator) ShouldSubmit(c *Circuit, flagBit, pairCount int, threshold, inputFidelity float64) Verdict {
	v := Verdict{InputFidelity: inputFidelity}

	if ok, reason := s.Validate(c, pairCount); !ok {
		v.Reason = fmt.Sprintf("invalid circuit: %s", reason)
		return v
	}

	v.EstimatedFidelity = EstimateOutputFidelity(inputFidelity, pairCount, c.Protocol)
	v.SuccessProbability = EstimateSuccessProbability(pairCount, c.Protocol)

	if v.EstimatedFidelity < threshold-s.cfg.SafetyMargin {
		v.Reason = fmt.Sprintf("estimated fidelity (%.3f) below threshold (%.3f)",
			v.EstimatedFidelity, threshold)
		return v
	}

	if v.SuccessProbability < s.cfg.MinSuccessProb {
		v.Reason = fmt.Sprintf("success probability too low (%.3f)", v.SuccessProbability)
		return v
	}

	v.Submit = true
	v.Reason = "simulation passed"
	return v
}
