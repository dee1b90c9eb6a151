// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package game

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/AleutianAI/QuantumClaim/pkg/logging"
	"github.com/AleutianAI/QuantumClaim/services/distillation"
)

// =============================================================================
// Client Configuration
// =============================================================================

// ClientConfig configures the game server client.
type ClientConfig struct {
	// BaseURL is the game server root (e.g., "http://localhost:8420").
	BaseURL string

	// APIToken authenticates requests once the player is registered.
	APIToken string

	// PlayerID identifies the player on status and claim calls.
	PlayerID string

	// Timeout bounds each HTTP request. Default: 30s.
	Timeout time.Duration

	// RetryAttempts is the total tries per retryable request: the
	// first try plus up to three retries. Default: 4.
	RetryAttempts int

	// RetryInitialBackoff is the wait before the first retry; each
	// subsequent wait multiplies by RetryMultiplier (100ms, 400ms,
	// 1.6s with defaults). Default: 100ms.
	RetryInitialBackoff time.Duration

	// RetryMultiplier scales the backoff between retries. Default: 4.0.
	RetryMultiplier float64

	// HTTPClient overrides the underlying transport. Mainly for tests.
	HTTPClient *http.Client

	// Logger receives request-level debug logs. Default logger when nil.
	Logger *logging.Logger
}

// DefaultClientConfig returns production defaults for the given server.
func DefaultClientConfig(baseURL string) ClientConfig {
	return ClientConfig{
		BaseURL:             baseURL,
		Timeout:             30 * time.Second,
		RetryAttempts:       4,
		RetryInitialBackoff: 100 * time.Millisecond,
		RetryMultiplier:     4.0,
	}
}

// =============================================================================
// Client
// =============================================================================

// Client talks to the game server's /v1 API.
//
// Read-style calls (status, graph, leaderboard) and registration retry
// transient transport failures with exponential backoff. ClaimEdge is
// deliberately single-shot: a retried claim whose first send actually
// landed would double-submit, and the orchestrator already treats a
// transport failure there as a failed attempt.
//
// Thread Safety: Safe for concurrent use; the graph cache is guarded
// by a mutex.
type Client struct {
	cfg  ClientConfig
	http *http.Client
	log  *logging.Logger

	mu          sync.Mutex
	cachedGraph *Graph
}

// NewClient creates a game client. Zero-valued timeout and retry
// fields fall back to defaults.
func NewClient(cfg ClientConfig) *Client {
	def := DefaultClientConfig(cfg.BaseURL)
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = def.RetryAttempts
	}
	if cfg.RetryInitialBackoff == 0 {
		cfg.RetryInitialBackoff = def.RetryInitialBackoff
	}
	if cfg.RetryMultiplier < 1 {
		cfg.RetryMultiplier = def.RetryMultiplier
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	log := cfg.Logger
	if log == nil {
		log = logging.Default()
	}

	return &Client{cfg: cfg, http: httpClient, log: log}
}

// PlayerID returns the registered player identifier.
func (c *Client) PlayerID() string {
	return c.cfg.PlayerID
}

// =============================================================================
// Wire Envelope
// =============================================================================

type envelope struct {
	OK    bool            `json:"ok"`
	Data  json.RawMessage `json:"data"`
	Error *wireError      `json:"error"`
}

type wireError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (c *Client) headers(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIToken)
	}
}

// do performs one HTTP round trip and decodes the response envelope.
// A non-OK envelope becomes a ServerError; transport and decode
// failures become TransportError.
func (c *Client) do(ctx context.Context, method, path string, payload any) (json.RawMessage, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, NewError(CategoryInvalidInput, "encode request: %v", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
	if err != nil {
		return nil, NewError(CategoryInvalidInput, "build request: %v", err)
	}
	c.headers(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, TransportError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, TransportError(err)
	}

	if resp.StatusCode >= 500 {
		return nil, &Error{
			Category: CategoryTransport,
			Code:     "HTTP_ERROR",
			Message:  fmt.Sprintf("HTTP %d", resp.StatusCode),
		}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, TransportError(fmt.Errorf("decode response: %w", err))
	}
	if !env.OK {
		if env.Error != nil {
			return nil, ServerError(env.Error.Code, env.Error.Message)
		}
		return nil, ServerError("REQUEST_FAILED", fmt.Sprintf("HTTP %d", resp.StatusCode))
	}
	return env.Data, nil
}

// doRetry wraps do with exponential backoff on transport failures.
// Server rejects and invalid-input errors are permanent.
func (c *Client) doRetry(ctx context.Context, method, path string, payload any) (json.RawMessage, error) {
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = c.cfg.RetryInitialBackoff
	expo.Multiplier = c.cfg.RetryMultiplier
	expo.MaxInterval = 5 * time.Second
	expo.RandomizationFactor = 0

	return backoff.Retry(ctx, func() (json.RawMessage, error) {
		data, err := c.do(ctx, method, path, payload)
		if err != nil && !IsRetryable(err) {
			return nil, backoff.Permanent(err)
		}
		return data, err
	}, backoff.WithBackOff(expo), backoff.WithMaxTries(uint(c.cfg.RetryAttempts)))
}

// =============================================================================
// API Methods
// =============================================================================

// Register creates the player on the server and captures the returned
// API token. A PLAYER_EXISTS reject is a soft success: the player is
// already registered and the configured token stays in effect.
func (c *Client) Register(ctx context.Context, playerID, name, location string) (RegisterResult, error) {
	payload := map[string]string{
		"player_id": playerID,
		"name":      name,
		"location":  location,
	}

	data, err := c.doRetry(ctx, http.MethodPost, "/v1/register", payload)
	if err != nil {
		var ge *Error
		if errors.As(err, &ge) && ge.Code == "PLAYER_EXISTS" {
			c.cfg.PlayerID = playerID
			c.log.Info("player already registered", "player_id", playerID)
			return RegisterResult{}, nil
		}
		return RegisterResult{}, err
	}

	var result RegisterResult
	if err := json.Unmarshal(data, &result); err != nil {
		return RegisterResult{}, TransportError(fmt.Errorf("decode register result: %w", err))
	}

	c.cfg.PlayerID = playerID
	if result.APIToken != "" {
		c.cfg.APIToken = result.APIToken
	}
	c.log.Info("registered player",
		"player_id", playerID,
		"initial_budget", result.InitialBudget,
		"token_present", result.APIToken != "")
	return result, nil
}

// SelectStartingNode picks the player's starting node.
func (c *Client) SelectStartingNode(ctx context.Context, nodeID string) error {
	payload := map[string]string{"player_id": c.cfg.PlayerID, "node_id": nodeID}
	_, err := c.doRetry(ctx, http.MethodPost, "/v1/select_starting_node", payload)
	return err
}

// Restart resets game progress, keeping the player registration.
func (c *Client) Restart(ctx context.Context) error {
	payload := map[string]string{"player_id": c.cfg.PlayerID}
	_, err := c.doRetry(ctx, http.MethodPost, "/v1/restart", payload)
	return err
}

// Status fetches the player's current score, budget, and holdings.
func (c *Client) Status(ctx context.Context) (PlayerStatus, error) {
	data, err := c.doRetry(ctx, http.MethodGet, "/v1/status/"+c.cfg.PlayerID, nil)
	if err != nil {
		return PlayerStatus{}, err
	}

	var status PlayerStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return PlayerStatus{}, TransportError(fmt.Errorf("decode status: %w", err))
	}
	return status, nil
}

// Graph returns the network graph, cached after the first fetch. The
// graph is static for the duration of a game; force refetches anyway.
func (c *Client) Graph(ctx context.Context, force bool) (*Graph, error) {
	c.mu.Lock()
	if !force && c.cachedGraph != nil {
		g := c.cachedGraph
		c.mu.Unlock()
		return g, nil
	}
	c.mu.Unlock()

	data, err := c.doRetry(ctx, http.MethodGet, "/v1/graph", nil)
	if err != nil {
		return nil, err
	}

	var g Graph
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, TransportError(fmt.Errorf("decode graph: %w", err))
	}

	c.mu.Lock()
	c.cachedGraph = &g
	c.mu.Unlock()
	return &g, nil
}

// ClaimableEdges returns the edges adjacent to exactly one owned node.
func (c *Client) ClaimableEdges(ctx context.Context) ([]Edge, error) {
	status, err := c.Status(ctx)
	if err != nil {
		return nil, err
	}
	graph, err := c.Graph(ctx, false)
	if err != nil {
		return nil, err
	}
	return graph.ClaimableEdges(status.OwnedNodeSet()), nil
}

// claimRequest is the /v1/claim_edge payload.
type claimRequest struct {
	PlayerID     string                `json:"player_id"`
	Edge         [2]string             `json:"edge"`
	NumBellPairs int                   `json:"num_bell_pairs"`
	Circuit      []distillation.WireOp `json:"circuit"`
	FlagBit      int                   `json:"flag_bit"`
}

// ClaimEdge submits a distillation circuit for the edge.
//
// # Description
//
// Single-shot: no transport retry (see Client doc). A server reject is
// returned as a ClaimResult carrying the error code rather than an
// error, so the caller can record it as a failed attempt and move on.
// Only transport failures surface as errors.
func (c *Client) ClaimEdge(ctx context.Context, edge Edge, circuit []distillation.WireOp, flagBit, numPairs int) (ClaimResult, error) {
	payload := claimRequest{
		PlayerID:     c.cfg.PlayerID,
		Edge:         edge.EdgeID,
		NumBellPairs: numPairs,
		Circuit:      circuit,
		FlagBit:      flagBit,
	}

	c.log.Debug("claim submitted",
		"edge_id", edge.Key(),
		"num_pairs", numPairs,
		"flag_bit", flagBit,
		"ops", len(circuit))

	data, err := c.do(ctx, http.MethodPost, "/v1/claim_edge", payload)
	if err != nil {
		var ge *Error
		if errors.As(err, &ge) && ge.Category != CategoryTransport {
			return ClaimResult{ErrorCode: ge.Code, ErrorMessage: ge.Message}, nil
		}
		return ClaimResult{}, err
	}

	var result ClaimResult
	if err := json.Unmarshal(data, &result); err != nil {
		return ClaimResult{}, TransportError(fmt.Errorf("decode claim result: %w", err))
	}
	return result, nil
}

// Leaderboard fetches the current standings.
func (c *Client) Leaderboard(ctx context.Context) ([]LeaderboardEntry, error) {
	data, err := c.doRetry(ctx, http.MethodGet, "/v1/leaderboard", nil)
	if err != nil {
		return nil, err
	}

	var entries []LeaderboardEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, TransportError(fmt.Errorf("decode leaderboard: %w", err))
	}
	return entries, nil
}
