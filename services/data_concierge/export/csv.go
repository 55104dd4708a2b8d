// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package export turns aggregations and raw row sets into downloadable
// CSV or spreadsheet files with deterministic headers, and resolves a
// download reference for the produced bytes.
package export

import (
	"bytes"
	"encoding/csv"
	"sort"
	"strings"

	"github.com/AleutianAI/AleutianData/services/data_concierge/datatypes"
)

// CSVBytes encodes the table with the header row first. Fields are
// quoted only when they contain a comma, quote, or newline, with
// embedded quotes doubled; the standard minimal dialect, no exotics.
func CSVBytes(columns []string, rows [][]string) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write(columns)
	for _, row := range rows {
		_ = w.Write(row)
	}
	w.Flush()
	return buf.Bytes()
}

// preferredHeaderPrefix orders identifier-like and time-like columns
// first in exports of raw rows.
var preferredHeaderPrefix = []string{
	"trn", "TRN",
	"transactionNumber", "transaction_number",
	"reference",
	"id", "ID",
	"receivedAt", "received_at",
	"date",
	"timestamp",
	"createdAt", "created_at",
	"status", "stage", "state",
}

// HeaderOrder selects export headers for raw rows. Precedence: a
// non-empty override (e.g. a previously uploaded file's column order),
// else the first-seen key union of the rows with the preferred prefix
// hoisted to the front.
func HeaderOrder(rows []datatypes.Row, override []string) []string {
	if len(override) > 0 {
		return override
	}
	seen := make(map[string]bool)
	var union []string
	for _, row := range rows {
		flat := row.Flatten()
		// First-seen order needs a stable walk; map order is not stable,
		// so probe the preferred names first and gather the rest sorted
		// per row.
		for _, k := range sortedKeys(flat) {
			if !seen[k] {
				seen[k] = true
				union = append(union, k)
			}
		}
	}

	inUnion := make(map[string]bool, len(union))
	for _, k := range union {
		inUnion[k] = true
	}
	var out []string
	taken := make(map[string]bool)
	for _, k := range preferredHeaderPrefix {
		if inUnion[k] && !taken[k] {
			taken[k] = true
			out = append(out, k)
		}
	}
	for _, k := range union {
		if !taken[k] {
			taken[k] = true
			out = append(out, k)
		}
	}
	return out
}

// RowTuples renders rows as string tuples under the given headers.
func RowTuples(rows []datatypes.Row, headers []string) [][]string {
	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		tuple := make([]string, len(headers))
		for i, h := range headers {
			tuple[i] = row.FieldString(h)
		}
		out = append(out, tuple)
	}
	return out
}

// Filename derives the export filename from the aggregation's name
// hint, else from its first column label ("Year" implies a per-year
// export).
func Filename(agg datatypes.Aggregation, format string) string {
	base := agg.Name
	if base == "" && len(agg.Columns) > 0 {
		base = "per-" + strings.ToLower(agg.Columns[0])
	}
	if base == "" {
		base = "export"
	}
	return base + "." + format
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
