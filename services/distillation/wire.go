// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package distillation

import "fmt"

// =============================================================================
// Wire Format
// =============================================================================

// WireOp is the JSON representation of a single circuit operation as
// submitted to the game server.
//
// The classical register has size equal to the number of measure
// operations; classicalTarget indexes into it and is present only on
// measure operations.
type WireOp struct {
	Op              string    `json:"op"`
	Targets         []int     `json:"targets"`
	Controls        []int     `json:"controls,omitempty"`
	Parameters      []float64 `json:"parameters,omitempty"`
	ClassicalTarget *int      `json:"classicalTarget,omitempty"`
}

// Wire flattens the circuit (prep layer first, then distillation
// operations) into the ordered wire operation list.
func (c *Circuit) Wire() []WireOp {
	all := c.AllOps()
	wire := make([]WireOp, 0, len(all))
	for _, op := range all {
		w := WireOp{
			Op:      op.Kind.String(),
			Targets: append([]int(nil), op.Targets...),
		}
		if len(op.Controls) > 0 {
			w.Controls = append([]int(nil), op.Controls...)
		}
		if len(op.Params) > 0 {
			w.Parameters = append([]float64(nil), op.Params...)
		}
		if op.Kind == OpMeasure {
			classical := op.Classical
			w.ClassicalTarget = &classical
		}
		wire = append(wire, w)
	}
	return wire
}

// ParseWire reconstructs an operation list from its wire form. Used by
// the local reference game server to re-validate submitted circuits.
func ParseWire(wire []WireOp) ([]Op, error) {
	ops := make([]Op, 0, len(wire))
	for i, w := range wire {
		kind, ok := opKindFromWire(w.Op)
		if !ok {
			return nil, fmt.Errorf("wire op %d: unknown operation %q", i, w.Op)
		}
		if len(w.Targets) == 0 {
			return nil, fmt.Errorf("wire op %d (%s): no targets", i, w.Op)
		}
		op := Op{
			Kind:      kind,
			Targets:   append([]int(nil), w.Targets...),
			Classical: -1,
		}
		if len(w.Controls) > 0 {
			op.Controls = append([]int(nil), w.Controls...)
		}
		if len(w.Parameters) > 0 {
			op.Params = append([]float64(nil), w.Parameters...)
		}
		if kind == OpMeasure {
			if w.ClassicalTarget == nil {
				return nil, fmt.Errorf("wire op %d: measure without classicalTarget", i)
			}
			op.Classical = *w.ClassicalTarget
		}
		ops = append(ops, op)
	}
	return ops, nil
}
