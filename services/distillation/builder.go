// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package distillation

// =============================================================================
// Noise Hints
// =============================================================================

// NoiseHint steers adaptive protocol selection.
type NoiseHint string

const (
	// NoiseDepolarizing is symmetric noise; BBPSSW territory.
	NoiseDepolarizing NoiseHint = "depolarizing"

	// NoisePhase is Z-dominated noise; DEJMPS territory.
	NoisePhase NoiseHint = "phase"

	// NoiseBitFlip is X-dominated noise; handled by BBPSSW.
	NoiseBitFlip NoiseHint = "bitflip"

	// NoiseHighThreshold marks edges whose fidelity threshold is high
	// enough that the stronger DEJMPS checks pay off.
	NoiseHighThreshold NoiseHint = "high-threshold"
)

// =============================================================================
// Builders
// =============================================================================

// BuildBBPSSW constructs a BBPSSW distillation circuit.
//
// # Description
//
// For each ancilla pair k (k = 0..N-2), a bilateral CNOT is emitted:
// CNOT from qubit k to qubit N-1 on the A side and CNOT from qubit
// 2N-1-k to qubit N on the B side. All 2(N-1) ancilla qubits are then
// measured. The kept pair is (N-1, N).
//
// # Inputs
//
//   - pairCount: number of raw Bell pairs, in [2, 8].
//
// # Outputs
//
//   - Circuit: the structural circuit, prep layer included.
//   - error: ErrPairCount if pairCount is out of range.
func BuildBBPSSW(pairCount int) (Circuit, error) {
	if err := checkPairCount(pairCount); err != nil {
		return Circuit{}, err
	}

	n := pairCount
	keptA := n - 1
	keptB := n

	ops := make([]Op, 0, 4*(n-1))

	// Bilateral CNOT parity checks, one per ancilla pair.
	for k := 0; k < n-1; k++ {
		ops = append(ops, cnot(k, keptA))
		ops = append(ops, cnot(2*n-1-k, keptB))
	}

	// Measure all ancillas. Classical indices follow emission order,
	// so the first measured ancilla (A side of pair 0) lands at index 0.
	classical := 0
	for k := 0; k < n-1; k++ {
		ops = append(ops, measure(k, classical))
		classical++
		ops = append(ops, measure(2*n-1-k, classical))
		classical++
	}

	return Circuit{
		Protocol:   ProtocolBBPSSW,
		PairCount:  n,
		QubitCount: 2 * n,
		Prep:       bellPrep(n),
		Ops:        ops,
		FlagBit:    0,
	}, nil
}

// BuildDEJMPS constructs a DEJMPS distillation circuit.
//
// # Description
//
// Same layout as BBPSSW but with two parity-check rounds: a Z-basis
// round of bilateral CNOTs, then an X-basis round where the CNOTs are
// conjugated by Hadamards on ancillas and kept pair. Measurements are
// taken after the second round's rotation is undone.
//
// # Inputs
//
//   - pairCount: number of raw Bell pairs, in [2, 8].
//
// # Outputs
//
//   - Circuit: the structural circuit, prep layer included.
//   - error: ErrPairCount if pairCount is out of range.
func BuildDEJMPS(pairCount int) (Circuit, error) {
	if err := checkPairCount(pairCount); err != nil {
		return Circuit{}, err
	}

	n := pairCount
	keptA := n - 1
	keptB := n

	ops := make([]Op, 0, 12*(n-1))

	// Round 1: Z-basis parity check.
	for k := 0; k < n-1; k++ {
		ops = append(ops, cnot(k, keptA))
		ops = append(ops, cnot(2*n-1-k, keptB))
	}

	// Round 2: X-basis parity check, Hadamard-conjugated.
	for k := 0; k < n-1; k++ {
		ops = append(ops, single(OpH, k))
		ops = append(ops, single(OpH, 2*n-1-k))
	}
	ops = append(ops, single(OpH, keptA))
	ops = append(ops, single(OpH, keptB))

	for k := 0; k < n-1; k++ {
		ops = append(ops, cnot(k, keptA))
		ops = append(ops, cnot(2*n-1-k, keptB))
	}

	for k := 0; k < n-1; k++ {
		ops = append(ops, single(OpH, k))
		ops = append(ops, single(OpH, 2*n-1-k))
	}
	ops = append(ops, single(OpH, keptA))
	ops = append(ops, single(OpH, keptB))

	// Measure all ancillas.
	classical := 0
	for k := 0; k < n-1; k++ {
		ops = append(ops, measure(k, classical))
		classical++
		ops = append(ops, measure(2*n-1-k, classical))
		classical++
	}

	return Circuit{
		Protocol:   ProtocolDEJMPS,
		PairCount:  n,
		QubitCount: 2 * n,
		Prep:       bellPrep(n),
		Ops:        ops,
		FlagBit:    0,
	}, nil
}

// BuildAdaptive dispatches to the protocol suited to the noise hint:
// DEJMPS for phase or high-threshold noise, BBPSSW otherwise.
func BuildAdaptive(pairCount int, hint NoiseHint) (Circuit, error) {
	switch hint {
	case NoisePhase, NoiseHighThreshold:
		return BuildDEJMPS(pairCount)
	default:
		return BuildBBPSSW(pairCount)
	}
}

// Build constructs a circuit for an explicit protocol choice.
func Build(protocol Protocol, pairCount int) (Circuit, error) {
	if protocol == ProtocolDEJMPS {
		return BuildDEJMPS(pairCount)
	}
	return BuildBBPSSW(pairCount)
}
