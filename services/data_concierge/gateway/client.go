// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package gateway fetches rows from the backing store over HTTP JSON.
//
// The store exposes three logical operations: a recent-sorted list, a
// range-scoped full fetch, and a single-key lookup. The store is not
// trusted to honor range parameters or sort keys, so the gateway always
// re-filters and re-sorts locally. Every failure path degrades to an
// empty row list; nothing here surfaces an error to the router except
// the explicit not-found marker on key lookups.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/AleutianAI/AleutianData/pkg/validation"
	"github.com/AleutianAI/AleutianData/services/data_concierge/datatypes"
	"github.com/AleutianAI/AleutianData/services/data_concierge/temporal"
)

var tracer = otel.Tracer("aleutian.data_concierge.gateway")

// ErrNotFound marks a byKey miss. Absence is a normal outcome, not a
// failure; the router turns it into a normal instruction message.
var ErrNotFound = errors.New("record not found")

// Recorder receives store-call latency observations. Nil recorders are
// allowed.
type Recorder interface {
	ObserveStoreRequest(op string, seconds float64)
}

// Config wires the gateway to the backing store.
type Config struct {
	// BaseURL is the store root, e.g. "http://records-store:9180".
	BaseURL string

	// ListPath serves the recent-sorted page. Default /v1/records.
	ListPath string

	// FullPath serves the full dataset. Default /v1/records/full.
	FullPath string

	// ByKeyPath serves a single record; the key is appended as a path
	// segment. Default /v1/records.
	ByKeyPath string

	// HTTPClient overrides the default client (10s timeout).
	HTTPClient *http.Client

	// Metrics is optional.
	Metrics Recorder
}

// Client is the data access gateway. Safe for concurrent use.
type Client struct {
	base    string
	list    string
	full    string
	byKey   string
	http    *http.Client
	metrics Recorder
}

// New builds a gateway client, applying path defaults.
func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	withDefault := func(v, d string) string {
		if v == "" {
			return d
		}
		return v
	}
	return &Client{
		base:    cfg.BaseURL,
		list:    withDefault(cfg.ListPath, "/v1/records"),
		full:    withDefault(cfg.FullPath, "/v1/records/full"),
		byKey:   withDefault(cfg.ByKeyPath, "/v1/records"),
		http:    httpClient,
		metrics: cfg.Metrics,
	}
}

type rowsEnvelope struct {
	Rows []datatypes.Row `json:"rows"`
}

// FetchRecent returns the most recent rows, newest first, at most limit.
//
// The upstream sort key may not be the field our accessor resolves, so
// the page is re-sorted locally by resolved timestamp before truncation.
// Rows with no resolvable timestamp sink to the end.
func (c *Client) FetchRecent(ctx context.Context, limit int) []datatypes.Row {
	ctx, span := tracer.Start(ctx, "gateway.FetchRecent")
	defer span.End()
	span.SetAttributes(attribute.Int("limit", limit))

	if limit <= 0 {
		limit = 10
	}
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("sortBy", "receivedAt")
	q.Set("order", "desc")

	rows := c.fetchRows(ctx, "list", c.base+c.list+"?"+q.Encode())
	SortByTimestampDesc(rows)
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows
}

// FetchFull returns the full dataset, optionally scoped to r.
//
// The range parameters are passed upstream as a hint, but local
// re-filtering is mandatory, not an optimization: the result is always
// the intersection with r regardless of what the store did.
func (c *Client) FetchFull(ctx context.Context, r *temporal.Range) []datatypes.Row {
	ctx, span := tracer.Start(ctx, "gateway.FetchFull")
	defer span.End()

	q := url.Values{}
	q.Set("limit", "0")
	if r != nil {
		if r.SinceMs != nil {
			q.Set("sinceMs", strconv.FormatInt(*r.SinceMs, 10))
		}
		if r.UntilMs != nil {
			q.Set("untilMs", strconv.FormatInt(*r.UntilMs, 10))
		}
	}
	rows := c.fetchRows(ctx, "full", c.base+c.full+"?"+q.Encode())
	if r == nil {
		return rows
	}
	return FilterByRange(rows, *r)
}

// FetchByKey looks up a single record. A 404 surfaces as ErrNotFound.
func (c *Client) FetchByKey(ctx context.Context, key string) (datatypes.Row, error) {
	ctx, span := tracer.Start(ctx, "gateway.FetchByKey")
	defer span.End()

	key, err := validation.SanitizeReference(key)
	if err != nil {
		return nil, ErrNotFound
	}
	target := c.base + c.byKey + "/" + url.PathEscape(key)
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build byKey request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		slog.Error("store byKey call failed", "key", key, "error", err)
		span.RecordError(err)
		return nil, fmt.Errorf("store byKey call: %w", err)
	}
	defer resp.Body.Close()
	c.observe("byKey", time.Since(start))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode != http.StatusOK:
		slog.Error("store byKey returned non-2xx", "key", key, "status", resp.StatusCode)
		return nil, fmt.Errorf("store byKey status %d", resp.StatusCode)
	}

	var row datatypes.Row
	if err := json.NewDecoder(resp.Body).Decode(&row); err != nil {
		slog.Error("store byKey body undecodable", "key", key, "error", err)
		return nil, fmt.Errorf("decode byKey body: %w", err)
	}
	return row, nil
}

// statusOverFetchFactor and statusOverFetchFloor size the page requested
// when a status filter is applied. Status is not a server-side filter,
// so the gateway over-fetches before filtering. This bounds, but does
// not guarantee, getting enough matching rows; a rare status can still
// under-return. Known approximation.
const (
	statusOverFetchFactor = 5
	statusOverFetchFloor  = 10
)

// FetchRecentByStatus returns up to n recent rows carrying the given
// status, newest first.
func (c *Client) FetchRecentByStatus(ctx context.Context, n int, status datatypes.Status) []datatypes.Row {
	if n <= 0 {
		n = 10
	}
	fetch := n * statusOverFetchFactor
	if fetch < n+statusOverFetchFloor {
		fetch = n + statusOverFetchFloor
	}
	rows := c.FetchRecent(ctx, fetch)
	out := make([]datatypes.Row, 0, n)
	for _, row := range rows {
		if row.Status() == status {
			out = append(out, row)
			if len(out) == n {
				break
			}
		}
	}
	return out
}

func (c *Client) fetchRows(ctx context.Context, op, target string) []datatypes.Row {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		slog.Error("build store request failed", "op", op, "error", err)
		return nil
	}
	resp, err := c.http.Do(req)
	if err != nil {
		slog.Error("store call failed", "op", op, "url", target, "error", err)
		return nil
	}
	defer resp.Body.Close()
	c.observe(op, time.Since(start))

	if resp.StatusCode != http.StatusOK {
		slog.Error("store returned non-2xx", "op", op, "status", resp.StatusCode)
		return nil
	}
	var env rowsEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		slog.Error("store body undecodable", "op", op, "error", err)
		return nil
	}
	return env.Rows
}

func (c *Client) observe(op string, d time.Duration) {
	if c.metrics != nil {
		c.metrics.ObserveStoreRequest(op, d.Seconds())
	}
}

// FilterByRange keeps the rows whose resolved timestamp falls inside r.
// Rows with no resolvable timestamp are excluded, never defaulted to the
// epoch. Filtering is idempotent: applying it twice with the same range
// yields the same rows.
func FilterByRange(rows []datatypes.Row, r temporal.Range) []datatypes.Row {
	out := make([]datatypes.Row, 0, len(rows))
	for _, row := range rows {
		ms, ok := row.Timestamp()
		if !ok {
			continue
		}
		if r.Contains(ms) {
			out = append(out, row)
		}
	}
	return out
}

// SortByTimestampDesc orders rows newest first, stably; rows without a
// resolvable timestamp keep their relative order at the end.
func SortByTimestampDesc(rows []datatypes.Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		mi, oki := rows[i].Timestamp()
		mj, okj := rows[j].Timestamp()
		if oki != okj {
			return oki
		}
		return mi > mj
	})
}
