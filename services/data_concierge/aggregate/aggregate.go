// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package aggregate buckets row sets by time granularity and status,
// and summarizes whole datasets for fallback replies.
package aggregate

import (
	"sort"
	"strconv"
	"time"

	"github.com/AleutianAI/AleutianData/services/data_concierge/datatypes"
	"github.com/AleutianAI/AleutianData/services/data_concierge/temporal"
)

// ByBucket buckets rows over a closed range into one tuple per bucket,
// start through end inclusive, zero-filling empty buckets so consumers
// never see gaps. An open range is first closed over the data itself.
//
// Bucket membership uses floor semantics only: a row belongs to the
// bucket whose aligned start is the greatest aligned time at or before
// the row's timestamp.
//
// Columns: <Granularity>, Total, Registered, Pending.
func ByBucket(rows []datatypes.Row, r temporal.Range, g temporal.Granularity) datatypes.Aggregation {
	r = CloseOver(rows, r)
	agg := datatypes.Aggregation{
		Columns: []string{g.Label(), "Total", "Registered", "Pending"},
		Name:    "per-" + string(g),
	}
	if !r.Closed() {
		// No range and no dated rows: nothing to bucket.
		return agg
	}

	type tally struct{ total, registered, pending int }
	counts := make(map[int64]*tally)
	for _, row := range rows {
		ms, ok := row.Timestamp()
		if !ok || !r.Contains(ms) {
			continue
		}
		bucket := g.Align(time.UnixMilli(ms).UTC()).UnixMilli()
		c := counts[bucket]
		if c == nil {
			c = &tally{}
			counts[bucket] = c
		}
		c.total++
		if row.Status() == datatypes.StatusRegistered {
			c.registered++
		} else {
			c.pending++
		}
	}

	for _, start := range temporal.Series(r, g) {
		c := counts[start.UnixMilli()]
		if c == nil {
			c = &tally{}
		}
		agg.Rows = append(agg.Rows, []string{
			g.Describe(start),
			strconv.Itoa(c.total),
			strconv.Itoa(c.registered),
			strconv.Itoa(c.pending),
		})
	}
	return agg
}

// ByYearPresent tallies rows per calendar year actually present in the
// data, chronologically, with no zero-fill and no status split. This is
// the shape of a bare "per year" question over the whole dataset, and it
// exports with the header Year,Total exactly.
func ByYearPresent(rows []datatypes.Row) datatypes.Aggregation {
	counts := make(map[int]int)
	for _, row := range rows {
		ms, ok := row.Timestamp()
		if !ok {
			continue
		}
		counts[time.UnixMilli(ms).UTC().Year()]++
	}
	years := make([]int, 0, len(counts))
	for y := range counts {
		years = append(years, y)
	}
	sort.Ints(years)

	agg := datatypes.Aggregation{Columns: []string{"Year", "Total"}, Name: "per-year"}
	for _, y := range years {
		agg.Rows = append(agg.Rows, []string{strconv.Itoa(y), strconv.Itoa(counts[y])})
	}
	return agg
}

// CloseOver fills any open end of r from the data: the earliest and
// latest resolvable timestamps. A fully open range over undatable rows
// stays open.
func CloseOver(rows []datatypes.Row, r temporal.Range) temporal.Range {
	if r.Closed() {
		return r
	}
	var minMs, maxMs int64
	seen := false
	for _, row := range rows {
		ms, ok := row.Timestamp()
		if !ok {
			continue
		}
		if !seen || ms < minMs {
			minMs = ms
		}
		if !seen || ms > maxMs {
			maxMs = ms
		}
		seen = true
	}
	if !seen {
		return r
	}
	if r.SinceMs == nil {
		s := minMs
		r.SinceMs = &s
	}
	if r.UntilMs == nil {
		u := maxMs
		r.UntilMs = &u
	}
	return r
}
