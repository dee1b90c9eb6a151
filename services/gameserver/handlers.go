// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package gameserver

import (
	"errors"
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/QuantumClaim/pkg/validation"
	"github.com/AleutianAI/QuantumClaim/services/distillation"
	"github.com/AleutianAI/QuantumClaim/services/game"
)

// =============================================================================
// Handlers
// =============================================================================

// Handlers contains the HTTP handlers for the reference game server.
type Handlers struct {
	srv *Server
}

// NewHandlers creates handlers backed by the given server state.
func NewHandlers(srv *Server) *Handlers {
	return &Handlers{srv: srv}
}

// =============================================================================
// Envelope Helpers
// =============================================================================

func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "data": data})
}

func respondError(c *gin.Context, status int, err error) {
	code, message := "REQUEST_FAILED", err.Error()
	var ge *game.Error
	if errors.As(err, &ge) {
		code, message = ge.Code, ge.Message
	}
	c.JSON(status, gin.H{
		"ok":    false,
		"error": gin.H{"code": code, "message": message},
	})
}

// bearerToken extracts the Authorization bearer token, if present.
func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

// =============================================================================
// Request Types
// =============================================================================

type registerRequest struct {
	PlayerID string `json:"player_id" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Location string `json:"location"`
}

type selectNodeRequest struct {
	PlayerID string `json:"player_id" binding:"required"`
	NodeID   string `json:"node_id" binding:"required"`
}

type restartRequest struct {
	PlayerID string `json:"player_id" binding:"required"`
}

type claimEdgeRequest struct {
	PlayerID     string                `json:"player_id" binding:"required"`
	Edge         [2]string             `json:"edge"`
	NumBellPairs int                   `json:"num_bell_pairs"`
	Circuit      []distillation.WireOp `json:"circuit"`
	FlagBit      int                   `json:"flag_bit"`
}

// =============================================================================
// Endpoint Handlers
// =============================================================================

// HandleRegister handles POST /v1/register.
func (h *Handlers) HandleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, game.NewError(game.CategoryInvalidInput, "%v", err))
		return
	}
	if err := validation.ValidatePlayerID(req.PlayerID); err != nil {
		respondError(c, http.StatusBadRequest, game.ServerError("INVALID_PLAYER_ID", err.Error()))
		return
	}
	if req.Location == "" {
		req.Location = "remote"
	}

	p, err := h.srv.register(req.PlayerID, req.Name, req.Location)
	if err != nil {
		respondError(c, http.StatusConflict, err)
		return
	}

	candidates := make([]string, 0, len(h.srv.graph.Nodes))
	for _, n := range h.srv.graph.Nodes {
		candidates = append(candidates, n.NodeID)
	}

	respondOK(c, game.RegisterResult{
		APIToken:      p.Token,
		InitialBudget: p.Budget,
		StartingNodes: candidates,
	})
}

// HandleSelectStartingNode handles POST /v1/select_starting_node.
func (h *Handlers) HandleSelectStartingNode(c *gin.Context) {
	var req selectNodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, game.NewError(game.CategoryInvalidInput, "%v", err))
		return
	}

	p, err := h.srv.authenticate(req.PlayerID, bearerToken(c))
	if err != nil {
		respondError(c, http.StatusUnauthorized, err)
		return
	}

	if err := h.srv.selectStartingNode(p, req.NodeID); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	respondOK(c, gin.H{"starting_node": req.NodeID})
}

// HandleRestart handles POST /v1/restart.
func (h *Handlers) HandleRestart(c *gin.Context) {
	var req restartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, game.NewError(game.CategoryInvalidInput, "%v", err))
		return
	}

	p, err := h.srv.authenticate(req.PlayerID, bearerToken(c))
	if err != nil {
		respondError(c, http.StatusUnauthorized, err)
		return
	}

	h.srv.restart(p)
	respondOK(c, gin.H{"restarted": true})
}

// HandleStatus handles GET /v1/status/:player_id.
func (h *Handlers) HandleStatus(c *gin.Context) {
	playerID := c.Param("player_id")

	h.srv.mu.Lock()
	p, ok := h.srv.players[playerID]
	h.srv.mu.Unlock()
	if !ok {
		respondError(c, http.StatusNotFound,
			game.ServerError("NOT_REGISTERED", "unknown player "+playerID))
		return
	}

	respondOK(c, h.srv.status(p))
}

// HandleGraph handles GET /v1/graph.
func (h *Handlers) HandleGraph(c *gin.Context) {
	respondOK(c, h.srv.graph)
}

// HandleClaimEdge handles POST /v1/claim_edge.
func (h *Handlers) HandleClaimEdge(c *gin.Context) {
	var req claimEdgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, game.NewError(game.CategoryInvalidInput, "%v", err))
		return
	}

	p, err := h.srv.authenticate(req.PlayerID, bearerToken(c))
	if err != nil {
		respondError(c, http.StatusUnauthorized, err)
		return
	}

	result, err := h.srv.claim(p, req.Edge, req.Circuit, req.FlagBit, req.NumBellPairs)
	if err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	respondOK(c, result)
}

// HandleLeaderboard handles GET /v1/leaderboard.
func (h *Handlers) HandleLeaderboard(c *gin.Context) {
	entries := h.srv.leaderboard()
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].PlayerID < entries[j].PlayerID
	})
	respondOK(c, entries)
}

// HandleHealth handles GET /v1/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	respondOK(c, gin.H{"status": "healthy"})
}
