// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package agent

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

// TestMetrics_NilReceiverIsNoOp pins the contract that a disabled
// metrics sink never panics.
func TestMetrics_NilReceiverIsNoOp(t *testing.T) {
	var m *Metrics

	m.RecordStatus(50, 10)
	m.RecordClaim("bbpssw", true, 3)
	m.RecordFidelityEstimate(0.9)
	m.SetRiskTolerance(0.4)
	m.RecordSkip("budget")
	m.RecordIteration("claimed")
}

func TestMetrics_RecordClaim(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordClaim("bbpssw", true, 3)
	m.RecordClaim("dejmps", false, 4)

	assert.Equal(t, float64(1),
		testutil.ToFloat64(m.ClaimsTotal.WithLabelValues("bbpssw", "success")))
	assert.Equal(t, float64(1),
		testutil.ToFloat64(m.ClaimsTotal.WithLabelValues("dejmps", "failure")))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.PairsSpentTotal))
}

func TestMetrics_RecordStatus(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordStatus(42, 17)
	m.SetRiskTolerance(0.6)

	assert.Equal(t, float64(42), testutil.ToFloat64(m.Budget))
	assert.Equal(t, float64(17), testutil.ToFloat64(m.Score))
	assert.Equal(t, float64(0.6), testutil.ToFloat64(m.RiskTolerance))
}
