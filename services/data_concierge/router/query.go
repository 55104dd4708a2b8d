// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package router

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/AleutianData/services/data_concierge/aggregate"
	"github.com/AleutianAI/AleutianData/services/data_concierge/datatypes"
	"github.com/AleutianAI/AleutianData/services/data_concierge/export"
	"github.com/AleutianAI/AleutianData/services/data_concierge/gateway"
	"github.com/AleutianAI/AleutianData/services/data_concierge/session"
	"github.com/AleutianAI/AleutianData/services/data_concierge/temporal"
)

const (
	defaultTopN = 5
	hotsetSize  = 20
)

// handleKeyLookup fetches one record by the identifier found in the
// text. Absence is a normal outcome, answered in words.
func (rt *Router) handleKeyLookup(ctx context.Context, t *turn) []datatypes.Instruction {
	key := reKey.FindString(t.text)
	row, err := rt.cfg.Gateway.FetchByKey(ctx, key)
	if err != nil {
		if errors.Is(err, gateway.ErrNotFound) {
			return []datatypes.Instruction{datatypes.Verbatim(
				fmt.Sprintf("I could not find a record for %q.", key))}
		}
		return []datatypes.Instruction{datatypes.Verbatim(
			fmt.Sprintf("Sorry, the lookup for %q failed. Please try again.", key))}
	}
	return rt.presentRecord(t, row)
}

// handleOldest answers "oldest record" by scanning the full dataset
// for the smallest resolvable timestamp.
func (rt *Router) handleOldest(ctx context.Context, t *turn) []datatypes.Instruction {
	rows := rt.cfg.Gateway.FetchFull(ctx, nil)
	var oldest datatypes.Row
	var oldestMs int64
	for _, row := range rows {
		ms, ok := row.Timestamp()
		if !ok {
			continue
		}
		if oldest == nil || ms < oldestMs {
			oldest, oldestMs = row, ms
		}
	}
	if oldest == nil {
		return []datatypes.Instruction{datatypes.Verbatim("I could not find any dated records.")}
	}
	return rt.presentRecord(t, oldest)
}

// handleTopLatest serves "latest N", with an optional status filter.
func (rt *Router) handleTopLatest(ctx context.Context, t *turn) []datatypes.Instruction {
	state := rt.cfg.Sessions.Get(t.key)
	fallbackN := state.LastTopN
	if fallbackN == 0 {
		fallbackN = defaultTopN
	}
	n := requestedN(t.text, fallbackN)

	var rows []datatypes.Row
	label := fmt.Sprintf("latest %d", n)
	if status, ok := requestedStatus(t.text); ok {
		rows = rt.cfg.Gateway.FetchRecentByStatus(ctx, n, status)
		label = fmt.Sprintf("latest %d %s", n, strings.ToLower(string(status)))
	} else {
		rows = rt.cfg.Gateway.FetchRecent(ctx, n)
	}
	if len(rows) == 0 {
		return []datatypes.Instruction{datatypes.Verbatim("No matching records found.")}
	}

	headers := export.HeaderOrder(rows, nil)
	agg := datatypes.Aggregation{
		Columns: headers,
		Rows:    export.RowTuples(rows, headers),
		Name:    strings.ReplaceAll(label, " ", "-"),
	}
	rt.cfg.Sessions.Apply(t.key, session.Update{TopN: n, Aggregation: &agg})
	return []datatypes.Instruction{datatypes.Verbatim(
		fmt.Sprintf("Here are the %s records:\n\n%s", label, datatypes.RenderTable(agg)))}
}

// handleTemporal serves range and bucketed queries. A granularity with
// no usable range falls back to that granularity's default window,
// except "per year", which reports the years actually present in the
// data.
func (rt *Router) handleTemporal(ctx context.Context, t *turn) []datatypes.Instruction {
	r := temporal.ParseRange(t.text, t.now)
	g, hasG := temporal.DetectGranularity(t.text)

	if hasG {
		agg, resolved := rt.resolveBucketed(ctx, t, r, g)
		rt.rememberAggregation(t, agg, resolved, g)
		heading := fmt.Sprintf("Records %s:", describeScope(resolved, g))
		return []datatypes.Instruction{datatypes.Verbatim(
			heading + "\n\n" + datatypes.RenderTable(agg))}
	}

	// Range only: answer with a count and the status mix, and remember
	// the rows as the exportable table.
	rows := rt.cfg.Gateway.FetchFull(ctx, r)
	summary := aggregate.Present(rows)
	headers := export.HeaderOrder(rows, nil)
	agg := datatypes.Aggregation{
		Columns: headers,
		Rows:    export.RowTuples(rows, headers),
		Name:    scopeName(r.Label),
	}
	rt.cfg.Sessions.Apply(t.key, session.Update{Range: r, Aggregation: &agg})
	return []datatypes.Instruction{datatypes.Verbatim(fmt.Sprintf(
		"%s: %d records (%d registered, %d pending).",
		capitalize(r.Label), summary.Total, summary.Registered, summary.Pending))}
}

// handleFallback emits a whole-dataset snapshot when full-context mode
// is on, and nothing otherwise.
func (rt *Router) handleFallback(ctx context.Context, t *turn) []datatypes.Instruction {
	if !rt.cfg.FullContext {
		return nil
	}

	var full, hot []datatypes.Row
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		full = rt.cfg.Gateway.FetchFull(gctx, nil)
		return nil
	})
	g.Go(func() error {
		hot = rt.cfg.Gateway.FetchRecent(gctx, hotsetSize)
		return nil
	})
	_ = g.Wait()

	payload := struct {
		Summary aggregate.Summary `json:"summary"`
		Hotset  []datatypes.Row   `json:"hotset"`
	}{aggregate.Present(full), hot}
	return []datatypes.Instruction{datatypes.SystemNote(
		"Current dataset snapshot for grounding:\n" +
			datatypes.FencedJSON(datatypes.PayloadDeepFetch, payload))}
}

// resolveBucketed fetches and buckets rows for a granularity. A nil
// range means no explicit window was given: "per year" then reports
// the years present in the whole dataset, every other granularity uses
// its default lookback window.
func (rt *Router) resolveBucketed(ctx context.Context, t *turn, r *temporal.Range, g temporal.Granularity) (datatypes.Aggregation, *temporal.Range) {
	if r == nil {
		if g == temporal.Year {
			rows := rt.cfg.Gateway.FetchFull(ctx, nil)
			return aggregate.ByYearPresent(rows), nil
		}
		d := temporal.DefaultRange(g, t.now)
		r = &d
	}
	rows := rt.cfg.Gateway.FetchFull(ctx, r)
	return aggregate.ByBucket(rows, *r, g), r
}

// rememberAggregation writes the rendered table to session memory as
// the branch's last act, so a following bare "export" is unambiguous.
func (rt *Router) rememberAggregation(t *turn, agg datatypes.Aggregation, r *temporal.Range, g temporal.Granularity) {
	rt.cfg.Sessions.Apply(t.key, session.Update{
		Range:       r,
		Granularity: g,
		Aggregation: &agg,
	})
}

// presentRecord renders a single row as a field table plus a fenced
// payload the downstream renderer can parse.
func (rt *Router) presentRecord(t *turn, row datatypes.Row) []datatypes.Instruction {
	flat := row.Flatten()
	fields := make([]string, 0, len(flat))
	for name := range flat {
		fields = append(fields, name)
	}
	sort.Strings(fields)

	tuples := make([][]string, 0, len(fields))
	for _, f := range fields {
		tuples = append(tuples, []string{f, flat.FieldString(f)})
	}
	agg := datatypes.Aggregation{Columns: []string{"Field", "Value"}, Rows: tuples, Name: "record"}
	rt.cfg.Sessions.SetAggregation(t.key, agg)

	return []datatypes.Instruction{
		datatypes.Verbatim(datatypes.RenderTable(agg)),
		datatypes.SystemNote(datatypes.FencedJSON(datatypes.PayloadFields, flat)),
	}
}

func describeScope(r *temporal.Range, g temporal.Granularity) string {
	if r == nil || r.Label == "" {
		return "per " + string(g)
	}
	return "per " + string(g) + ", " + r.Label
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
