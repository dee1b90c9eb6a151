// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package agent

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/QuantumClaim/services/strategy"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, AgentDefault, cfg.AgentType)
	assert.Equal(t, 50, cfg.MaxIterations)
	assert.True(t, cfg.EnableSimulation)
	assert.True(t, cfg.AdaptiveRisk)
	assert.Equal(t, 10, cfg.MinReserve)
	assert.Equal(t, 3, cfg.MaxRetriesPerEdge)
	assert.Equal(t, 0.5, cfg.RiskTolerance)
	assert.False(t, cfg.PreferDEJMPS)

	require.NoError(t, cfg.Validate())
}

func TestConfigForType(t *testing.T) {
	tests := []struct {
		agentType    AgentType
		minReserve   int
		maxRetries   int
		risk         float64
		preferDEJMPS bool
	}{
		{AgentDefault, 10, 3, 0.5, false},
		{AgentAggressive, 5, 2, 0.3, true},
		{AgentConservative, 20, 4, 0.7, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.agentType), func(t *testing.T) {
			cfg := ConfigForType(tt.agentType)
			assert.Equal(t, tt.agentType, cfg.AgentType)
			assert.Equal(t, tt.minReserve, cfg.MinReserve)
			assert.Equal(t, tt.maxRetries, cfg.MaxRetriesPerEdge)
			assert.Equal(t, tt.risk, cfg.RiskTolerance)
			assert.Equal(t, tt.preferDEJMPS, cfg.PreferDEJMPS)
			require.NoError(t, cfg.Validate())
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown agent type", func(c *Config) { c.AgentType = "reckless" }},
		{"zero iterations", func(c *Config) { c.MaxIterations = 0 }},
		{"negative reserve", func(c *Config) { c.MinReserve = -1 }},
		{"zero retries", func(c *Config) { c.MaxRetriesPerEdge = 0 }},
		{"risk above one", func(c *Config) { c.RiskTolerance = 1.5 }},
		{"negative risk", func(c *Config) { c.RiskTolerance = -0.1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestConfig_Weights(t *testing.T) {
	assert.Equal(t, strategy.DefaultWeights(), ConfigForType(AgentDefault).Weights())
	assert.Equal(t, strategy.AggressiveWeights(), ConfigForType(AgentAggressive).Weights())
	assert.Equal(t, strategy.ConservativeWeights(), ConfigForType(AgentConservative).Weights())
}

func TestConfig_BudgetConfig(t *testing.T) {
	cfg := ConfigForType(AgentConservative)
	bc := cfg.BudgetConfig()

	assert.Equal(t, 20, bc.MinReserve)
	assert.Equal(t, 4, bc.MaxRetriesPerEdge)
	assert.Equal(t, 0.7, bc.RiskTolerance)
	assert.Equal(t, 0.20, bc.MinSuccessProb)
	assert.True(t, bc.AdaptiveRisk)
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agent.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// TestLoadConfig_OverlaysPreset checks that file values land on top of
// the preset named by agent_type rather than the default preset.
func TestLoadConfig_OverlaysPreset(t *testing.T) {
	path := writeConfigFile(t, "agent_type: aggressive\nmax_iterations: 10\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, AgentAggressive, cfg.AgentType)
	assert.Equal(t, 10, cfg.MaxIterations)
	assert.Equal(t, 5, cfg.MinReserve)
	assert.Equal(t, 0.3, cfg.RiskTolerance)
	assert.True(t, cfg.PreferDEJMPS)
}

func TestLoadConfig_FileOverridesPresetField(t *testing.T) {
	path := writeConfigFile(t, "agent_type: conservative\nmin_reserve: 30\nrisk_tolerance: 0.9\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.MinReserve)
	assert.Equal(t, 0.9, cfg.RiskTolerance)
	assert.Equal(t, 4, cfg.MaxRetriesPerEdge)
}

func TestLoadConfig_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.Error(t, err)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := LoadConfig(writeConfigFile(t, "agent_type: [not\n"))
		assert.Error(t, err)
	})

	t.Run("invalid values", func(t *testing.T) {
		_, err := LoadConfig(writeConfigFile(t, "agent_type: default\nrisk_tolerance: 2.0\n"))
		assert.Error(t, err)
	})
}
