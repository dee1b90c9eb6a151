// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package agent

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/QuantumClaim/services/strategy"
)

// =============================================================================
// Agent Configuration
// =============================================================================

// AgentType selects a weight/reserve preset.
type AgentType string

const (
	// AgentDefault balances utility against cost.
	AgentDefault AgentType = "default"

	// AgentAggressive chases utility with a thin reserve.
	AgentAggressive AgentType = "aggressive"

	// AgentConservative protects the budget and avoids hard edges.
	AgentConservative AgentType = "conservative"
)

// Config is the full configuration surface of the autonomous agent.
type Config struct {
	// AgentType selects the scoring and budget preset.
	AgentType AgentType `yaml:"agent_type" validate:"oneof=default aggressive conservative"`

	// MaxIterations is the hard cap on control-loop iterations.
	MaxIterations int `yaml:"max_iterations" validate:"gt=0"`

	// EnableSimulation gates submissions through the local simulator.
	// When false every built circuit is submitted.
	EnableSimulation bool `yaml:"enable_simulation"`

	// AdaptiveRisk tightens the ROI floor as the budget drains.
	AdaptiveRisk bool `yaml:"adaptive_risk"`

	// MinReserve is the Bell-pair floor never spent into.
	MinReserve int `yaml:"min_reserve" validate:"gte=0"`

	// MaxRetriesPerEdge caps attempts at a single edge.
	MaxRetriesPerEdge int `yaml:"max_retries_per_edge" validate:"gte=1"`

	// RiskTolerance is the starting ROI floor, in [0, 1].
	RiskTolerance float64 `yaml:"risk_tolerance" validate:"gte=0,lte=1"`

	// PreferDEJMPS forces DEJMPS on every first attempt.
	PreferDEJMPS bool `yaml:"prefer_dejmps"`
}

// DefaultConfig returns the balanced preset.
func DefaultConfig() Config {
	return Config{
		AgentType:         AgentDefault,
		MaxIterations:     50,
		EnableSimulation:  true,
		AdaptiveRisk:      true,
		MinReserve:        10,
		MaxRetriesPerEdge: 3,
		RiskTolerance:     0.5,
	}
}

// ConfigForType returns the preset for the given agent type.
func ConfigForType(agentType AgentType) Config {
	cfg := DefaultConfig()
	cfg.AgentType = agentType

	switch agentType {
	case AgentAggressive:
		cfg.MinReserve = 5
		cfg.MaxRetriesPerEdge = 2
		cfg.RiskTolerance = 0.3
		cfg.PreferDEJMPS = true
	case AgentConservative:
		cfg.MinReserve = 20
		cfg.MaxRetriesPerEdge = 4
		cfg.RiskTolerance = 0.7
	}
	return cfg
}

// Weights returns the scoring weights for the configured agent type.
func (c Config) Weights() strategy.Weights {
	switch c.AgentType {
	case AgentAggressive:
		return strategy.AggressiveWeights()
	case AgentConservative:
		return strategy.ConservativeWeights()
	default:
		return strategy.DefaultWeights()
	}
}

// BudgetConfig maps the agent configuration onto the budget manager.
func (c Config) BudgetConfig() strategy.BudgetConfig {
	return strategy.BudgetConfig{
		MinReserve:        c.MinReserve,
		MaxRetriesPerEdge: c.MaxRetriesPerEdge,
		RiskTolerance:     c.RiskTolerance,
		MinSuccessProb:    0.20,
		AdaptiveRisk:      c.AdaptiveRisk,
	}
}

var validate = validator.New()

// Validate checks the configuration against its constraints.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid agent config: %w", err)
	}
	return nil
}

// LoadConfig reads a YAML config file and overlays it on the preset
// selected by its agent_type field.
func LoadConfig(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	// First pass pulls the agent type so file values overlay the right
	// preset rather than the default one.
	var probe struct {
		AgentType AgentType `yaml:"agent_type"`
	}
	if err := yaml.Unmarshal(raw, &probe); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	cfg := DefaultConfig()
	if probe.AgentType != "" {
		cfg = ConfigForType(probe.AgentType)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
