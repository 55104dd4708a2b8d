// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package data_concierge assembles the conversational tabular-data
// query engine: the intent router, the data gateway, session memory,
// and export delivery, behind one HTTP service.
package data_concierge

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AleutianAI/AleutianData/services/data_concierge/export"
	"github.com/AleutianAI/AleutianData/services/data_concierge/gateway"
	"github.com/AleutianAI/AleutianData/services/data_concierge/handlers"
	"github.com/AleutianAI/AleutianData/services/data_concierge/knowledge"
	"github.com/AleutianAI/AleutianData/services/data_concierge/observability"
	"github.com/AleutianAI/AleutianData/services/data_concierge/router"
	"github.com/AleutianAI/AleutianData/services/data_concierge/session"
)

// ServiceConfig configures the data concierge service.
type ServiceConfig struct {
	// StoreBaseURL is the backing records store, e.g.
	// "http://records-store:9180".
	StoreBaseURL string

	// KnowledgePath is an optional yaml knowledge file. Empty means
	// compiled-in defaults.
	KnowledgePath string

	// DownloadBasePath is the public path downloads are served under.
	// Default: /v1/downloads
	DownloadBasePath string

	// DownloadTTL is how long a download token stays valid.
	// Default: 15 minutes
	DownloadTTL time.Duration

	// InlineCeiling caps inline data-URL exports, in bytes.
	// Default: 2MiB
	InlineCeiling int

	// FullContext makes unclassified messages carry a whole-dataset
	// snapshot for the generator. Default: off.
	FullContext bool

	// Sheet is the optional spreadsheet codec. Nil means XLSX requests
	// fall back to CSV.
	Sheet export.SheetCodec
}

// DefaultServiceConfig returns sensible defaults.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		StoreBaseURL:     "http://localhost:9180",
		DownloadBasePath: "/v1/downloads",
		DownloadTTL:      export.DefaultTTL,
		InlineCeiling:    export.DefaultInlineCeiling,
	}
}

// Service is the wired concierge.
type Service struct {
	config    ServiceConfig
	sessions  *session.Store
	downloads *export.TokenStore
	router    *router.Router
}

// NewService wires the engine stack from the config.
func NewService(cfg ServiceConfig) (*Service, error) {
	def := DefaultServiceConfig()
	if cfg.StoreBaseURL == "" {
		cfg.StoreBaseURL = def.StoreBaseURL
	}
	if cfg.DownloadBasePath == "" {
		cfg.DownloadBasePath = def.DownloadBasePath
	}
	if cfg.DownloadTTL == 0 {
		cfg.DownloadTTL = def.DownloadTTL
	}
	if cfg.InlineCeiling == 0 {
		cfg.InlineCeiling = def.InlineCeiling
	}

	kb, err := knowledge.Load(cfg.KnowledgePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load the knowledge base: %w", err)
	}

	metrics := observability.NewMetrics()
	store := gateway.New(gateway.Config{
		BaseURL: cfg.StoreBaseURL,
		Metrics: metrics,
	})

	sessions := session.NewStore()
	downloads := export.NewTokenStore(cfg.DownloadBasePath)
	materializer := export.Materializer{
		Sheet:         cfg.Sheet,
		Issuer:        downloads,
		InlineCeiling: cfg.InlineCeiling,
		TTL:           cfg.DownloadTTL,
	}

	rt := router.New(router.Config{
		Gateway:     store,
		Sessions:    sessions,
		Export:      materializer,
		Sheet:       cfg.Sheet,
		KB:          kb,
		Metrics:     metrics,
		FullContext: cfg.FullContext,
	})

	return &Service{
		config:    cfg,
		sessions:  sessions,
		downloads: downloads,
		router:    rt,
	}, nil
}

// Router exposes the intent router for one-shot CLI use.
func (s *Service) Router() *router.Router { return s.router }

// BuildEngine assembles the gin engine with all routes registered.
func (s *Service) BuildEngine() *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())

	h := handlers.NewHandlers(s.router, s.sessions, s.downloads)
	v1 := engine.Group("/v1")
	handlers.RegisterRoutes(v1, h)

	engine.GET("/healthz", h.HandleHealth)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return engine
}

// Run serves HTTP on the given address until the listener fails.
func (s *Service) Run(addr string) error {
	engine := s.BuildEngine()
	slog.Info("Data concierge listening",
		"addr", addr,
		"store", s.config.StoreBaseURL,
		"full_context", s.config.FullContext)
	return engine.Run(addr)
}
