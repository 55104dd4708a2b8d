// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers the concierge routes with the router group.
//
// Endpoints:
//
//	POST /v1/concierge/chat - Classify a message and answer it
//	POST /v1/concierge/sessions/reset - Clear all session memory
//	GET  /v1/downloads/:token - Resolve a download token
func RegisterRoutes(rg *gin.RouterGroup, h *Handlers) {
	concierge := rg.Group("/concierge")
	{
		concierge.POST("/chat", h.HandleChat)
		concierge.POST("/sessions/reset", h.HandleSessionReset)
	}
	rg.GET("/downloads/:token", h.HandleDownload)
}
