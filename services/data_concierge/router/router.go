// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package router classifies each incoming message against an ordered
// list of intent rules and dispatches to the engines. Routing order is
// significant because the patterns overlap; the order lives in one
// place and is covered by a test so a reorder cannot slip through
// unnoticed.
package router

import (
	"context"
	"log/slog"
	"regexp"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/AleutianAI/AleutianData/services/data_concierge/datatypes"
	"github.com/AleutianAI/AleutianData/services/data_concierge/export"
	"github.com/AleutianAI/AleutianData/services/data_concierge/knowledge"
	"github.com/AleutianAI/AleutianData/services/data_concierge/session"
	"github.com/AleutianAI/AleutianData/services/data_concierge/temporal"
)

var tracer = otel.Tracer("aleutian.data_concierge.router")

// Fetcher is the slice of the data gateway the router needs.
type Fetcher interface {
	FetchRecent(ctx context.Context, limit int) []datatypes.Row
	FetchFull(ctx context.Context, r *temporal.Range) []datatypes.Row
	FetchByKey(ctx context.Context, key string) (datatypes.Row, error)
	FetchRecentByStatus(ctx context.Context, n int, status datatypes.Status) []datatypes.Row
}

// IntentRecorder counts classified intents.
type IntentRecorder interface {
	ObserveIntent(intent string)
}

// ExportRecorder additionally counts materialized export bytes. A
// recorder that implements it gets export observations for free.
type ExportRecorder interface {
	ObserveExport(format string, bytes int)
}

// Config wires the router's collaborators. Gateway and Sessions are
// required; everything else has a usable zero value.
type Config struct {
	Gateway  Fetcher
	Sessions *session.Store
	Export   export.Materializer
	Sheet    export.SheetCodec
	KB       knowledge.Base
	Metrics  IntentRecorder

	// FullContext makes the fallback branch emit a whole-dataset
	// snapshot instead of staying silent.
	FullContext bool

	// Now is injectable for range-resolution tests.
	Now func() time.Time
}

// Router is the engine entry point. One instance serves all sessions.
type Router struct {
	cfg Config
}

func New(cfg Config) *Router {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if len(cfg.KB.Capabilities) == 0 {
		cfg.KB = knowledge.Default()
	}
	return &Router{cfg: cfg}
}

// turn carries one classified request through a handler.
type turn struct {
	req  *datatypes.ConciergeRequest
	text string
	key  session.Key
	now  time.Time
}

// intentRule pairs a name with its predicate and handler. Handlers
// return instructions, never errors: every failure path inside a
// branch degrades to an apologetic instruction instead.
type intentRule struct {
	name   string
	match  func(rt *Router, t *turn) bool
	handle func(rt *Router, ctx context.Context, t *turn) []datatypes.Instruction
}

// rules is the routing order. Earlier entries win; reordering changes
// behavior, so TestRoutingOrder pins the sequence.
var rules = []intentRule{
	{"export", (*Router).matchExport, (*Router).handleExport},
	{"compare", (*Router).matchCompare, (*Router).handleCompare},
	{"help", (*Router).matchHelp, (*Router).handleHelp},
	{"service", (*Router).matchService, (*Router).handleService},
	{"brand", (*Router).matchBrand, (*Router).handleBrand},
	{"key_lookup", (*Router).matchKeyLookup, (*Router).handleKeyLookup},
	{"temporal", (*Router).matchTemporal, (*Router).handleTemporal},
	{"oldest", (*Router).matchOldest, (*Router).handleOldest},
	{"top_latest", (*Router).matchTopLatest, (*Router).handleTopLatest},
	{"fallback", (*Router).matchFallback, (*Router).handleFallback},
}

// Handle classifies the newest user message and runs the first rule
// that matches. The returned list may be empty; it is never an error.
func (rt *Router) Handle(ctx context.Context, req *datatypes.ConciergeRequest) []datatypes.Instruction {
	ctx, span := tracer.Start(ctx, "router.Handle")
	defer span.End()

	t := &turn{
		req:  req,
		text: req.LatestUserText(),
		key:  session.DeriveKey(req.ConversationID, req.Messages),
		now:  rt.cfg.Now(),
	}

	for i := range rules {
		r := &rules[i]
		if !r.match(rt, t) {
			continue
		}
		span.SetAttributes(attribute.String("concierge.intent", r.name))
		if rt.cfg.Metrics != nil {
			rt.cfg.Metrics.ObserveIntent(r.name)
		}
		slog.Debug("intent classified",
			"intent", r.name,
			"conversation_id", t.key.ConversationID,
			"thread_id", t.key.ThreadID)
		return r.handle(rt, ctx, t)
	}
	return nil
}

// Intents returns the routing order by name, for tests and the help
// endpoint.
func Intents() []string {
	names := make([]string, len(rules))
	for i, r := range rules {
		names[i] = r.name
	}
	return names
}

var (
	reExportVerb = regexp.MustCompile(`(?i)\b(export|download|save|dump)\b`)
	reExportAs   = regexp.MustCompile(`(?i)\bas\s+(?:an?\s+)?(csv|xlsx|xls|excel|spreadsheet|sheet)\b`)
	reSheetWord  = regexp.MustCompile(`(?i)\b(xlsx|xls|excel|spreadsheet|sheet)\b`)
	reExportAll  = regexp.MustCompile(`(?i)\b(everything|all (the )?(data|records|rows)|full (dataset|data))\b`)
	reUploadWord = regexp.MustCompile(`(?i)\b(the\s+)?(file|upload|attachment)\b`)

	reCompare = regexp.MustCompile(`(?i)\b(compare|diff|difference|reconcile|what(?:'s| is| has)? changed)\b`)

	reHelp    = regexp.MustCompile(`(?i)\b(what can (i|you)\b|help\b|capabilit|how do i use)`)
	reService = regexp.MustCompile(`(?i)\b(weather|forecast|what time is it|directions|traffic|map of|news today)\b`)
	reBrand   = regexp.MustCompile(`(?i)\b(who are you|what are you|about you|your company|which brand)\b`)

	reKey = regexp.MustCompile(`(?i)\b([a-z]{2,6}-\d{2,})\b`)

	reOldest = regexp.MustCompile(`(?i)\b(oldest|earliest|first (record|entry|row|transaction))\b`)

	reTopVerb = regexp.MustCompile(`(?i)\b(top|latest|newest|most recent|recent|last)\b`)
	reTopN    = regexp.MustCompile(`(?i)\b(?:top|latest|newest|recent|last)\s+(\d{1,3})\b`)

	reStatusPending    = regexp.MustCompile(`(?i)\bpending\b`)
	reStatusRegistered = regexp.MustCompile(`(?i)\bregist`)
)

func (rt *Router) matchExport(t *turn) bool {
	return reExportVerb.MatchString(t.text) || reExportAs.MatchString(t.text)
}

func (rt *Router) matchCompare(t *turn) bool {
	return reCompare.MatchString(t.text)
}

func (rt *Router) matchHelp(t *turn) bool {
	return reHelp.MatchString(t.text)
}

func (rt *Router) matchService(t *turn) bool {
	return reService.MatchString(t.text)
}

func (rt *Router) matchBrand(t *turn) bool {
	if reBrand.MatchString(t.text) {
		return true
	}
	_, ok := rt.cfg.KB.Lookup(t.text)
	return ok
}

func (rt *Router) matchKeyLookup(t *turn) bool {
	return reKey.MatchString(t.text)
}

func (rt *Router) matchTemporal(t *turn) bool {
	if temporal.ParseRange(t.text, t.now) != nil {
		return true
	}
	_, ok := temporal.DetectGranularity(t.text)
	return ok
}

func (rt *Router) matchOldest(t *turn) bool {
	return reOldest.MatchString(t.text)
}

func (rt *Router) matchTopLatest(t *turn) bool {
	return reTopVerb.MatchString(t.text)
}

func (rt *Router) matchFallback(t *turn) bool {
	return true
}

// requestedN extracts an explicit count from "latest 5" style text.
func requestedN(text string, fallback int) int {
	m := reTopN.FindStringSubmatch(text)
	if m == nil {
		return fallback
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

// requestedStatus extracts an optional status filter.
func requestedStatus(text string) (datatypes.Status, bool) {
	switch {
	case reStatusPending.MatchString(text):
		return datatypes.StatusPending, true
	case reStatusRegistered.MatchString(text):
		return datatypes.StatusRegistered, true
	}
	return "", false
}

// requestedFormat picks the export format from the text.
func requestedFormat(text string) string {
	if reSheetWord.MatchString(text) {
		return export.FormatSheet
	}
	return export.FormatCSV
}
