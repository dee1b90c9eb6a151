// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package strategy

import "github.com/AleutianAI/QuantumClaim/services/distillation"

// =============================================================================
// Protocol Selection
// =============================================================================

// FirstAttemptProtocol picks the protocol for the first attempt at an
// edge: DEJMPS for hard edges (difficulty >= 7) or tight thresholds
// (>= 0.9), BBPSSW otherwise. preferDEJMPS forces DEJMPS regardless.
func FirstAttemptProtocol(difficulty int, threshold float64, preferDEJMPS bool) distillation.Protocol {
	if preferDEJMPS {
		return distillation.ProtocolDEJMPS
	}
	if difficulty >= 7 || threshold >= 0.9 {
		return distillation.ProtocolDEJMPS
	}
	return distillation.ProtocolBBPSSW
}

// RetryProtocol alternates away from the protocol used on the previous
// attempt at the same edge.
func RetryProtocol(last distillation.Protocol) distillation.Protocol {
	return last.Alternate()
}
