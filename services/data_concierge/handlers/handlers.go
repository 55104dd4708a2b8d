// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package handlers contains the HTTP handlers for the data concierge.
package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AleutianAI/AleutianData/services/data_concierge/datatypes"
	"github.com/AleutianAI/AleutianData/services/data_concierge/export"
	"github.com/AleutianAI/AleutianData/services/data_concierge/router"
	"github.com/AleutianAI/AleutianData/services/data_concierge/session"
)

// ServiceVersion is the data concierge service version.
const ServiceVersion = "0.1.0"

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Handlers contains the HTTP handlers for the concierge.
type Handlers struct {
	router    *router.Router
	sessions  *session.Store
	downloads *export.TokenStore
}

// NewHandlers creates handlers for the given router and session store.
// The download store may be nil when exports are delivered inline only.
func NewHandlers(rt *router.Router, sessions *session.Store, downloads *export.TokenStore) *Handlers {
	return &Handlers{router: rt, sessions: sessions, downloads: downloads}
}

// HandleChat handles POST /v1/concierge/chat.
//
// Response:
//
//	200 OK: ConciergeResponse
//	400 Bad Request: Validation error
func (h *Handlers) HandleChat(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleChat")
	start := time.Now()

	var req datatypes.ConciergeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}
	req.EnsureDefaults()
	if req.RequestID == "" {
		req.RequestID = requestID
	}
	if err := req.Validate(); err != nil {
		logger.Warn("Request validation failed", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: err.Error(),
			Code:  "VALIDATION_FAILED",
		})
		return
	}

	instructions := h.router.Handle(c.Request.Context(), &req)

	resp := datatypes.NewConciergeResponse(req.RequestID, instructions)
	resp.ProcessingTimeMs = time.Since(start).Milliseconds()
	logger.Info("Chat handled",
		"conversation_id", req.ConversationID,
		"instructions", len(instructions),
		"duration_ms", resp.ProcessingTimeMs)
	c.JSON(http.StatusOK, resp)
}

// HandleDownload handles GET /v1/downloads/:token. Expired or unknown
// tokens are a 404.
func (h *Handlers) HandleDownload(c *gin.Context) {
	token := c.Param("token")
	if h.downloads == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Downloads are not enabled", Code: "NOT_FOUND"})
		return
	}
	d, ok := h.downloads.Get(token)
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Unknown or expired download", Code: "NOT_FOUND"})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+d.Filename+`"`)
	c.Data(http.StatusOK, d.Mime, d.Bytes)
}

// HandleSessionReset handles POST /v1/concierge/sessions/reset. Clears
// all session memory; test suites and demos hit this between cases.
func (h *Handlers) HandleSessionReset(c *gin.Context) {
	h.sessions.Reset()
	slog.Info("Session memory cleared")
	c.JSON(http.StatusOK, gin.H{"status": "reset"})
}

// HandleHealth handles GET /healthz.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": ServiceVersion,
	})
}

func getOrCreateRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header("X-Request-ID", requestID)
	return requestID
}
