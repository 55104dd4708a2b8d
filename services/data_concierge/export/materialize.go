// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package export

import (
	"encoding/base64"
	"log/slog"
	"strings"
	"time"

	"github.com/AleutianAI/AleutianData/services/data_concierge/datatypes"
)

const (
	// DefaultInlineCeiling caps inline data URLs when no link issuer is
	// configured.
	DefaultInlineCeiling = 2 * 1024 * 1024

	// DefaultTTL is how long issued download links live.
	DefaultTTL = 15 * time.Minute

	mimeCSV   = "text/csv"
	mimeSheet = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	FormatCSV   = "csv"
	FormatSheet = "xlsx"
)

// Result is one materialized export. When TooLarge is set, URL is empty
// and Suggestions carries concrete narrowings for the user; the engine
// never emits a broken or silently truncated link.
type Result struct {
	URL         string
	Filename    string
	Mime        string
	Format      string
	Size        int
	TooLarge    bool
	Suggestions []string
}

// Materializer produces export files. Zero value works: no sheet
// capability (CSV fallback), no link issuer (inline data URLs), default
// ceiling.
type Materializer struct {
	// Sheet encodes spreadsheets; nil means unavailable.
	Sheet SheetCodec

	// Issuer registers bytes for download; nil falls back to inline
	// data URLs under the ceiling.
	Issuer LinkIssuer

	// InlineCeiling caps the inline fallback; zero means the default.
	InlineCeiling int

	// TTL for issued links; zero means the default.
	TTL time.Duration
}

// Aggregation materializes a rendered aggregation verbatim: the CSV
// header row and row order match the aggregation's columns and rows
// byte for byte.
func (m Materializer) Aggregation(agg datatypes.Aggregation, format string) Result {
	return m.materialize(agg.Columns, agg.Rows, Filename(agg, normalizeFormat(format)), format)
}

// Rows materializes raw rows under a derived or overridden header
// order.
func (m Materializer) Rows(rows []datatypes.Row, headerOverride []string, name, format string) Result {
	headers := HeaderOrder(rows, headerOverride)
	if name == "" {
		name = "export"
	}
	return m.materialize(headers, RowTuples(rows, headers), name+"."+normalizeFormat(format), format)
}

// Table materializes an explicit columns/rows table under the given
// base name.
func (m Materializer) Table(columns []string, rows [][]string, name, format string) Result {
	if name == "" {
		name = "export"
	}
	return m.materialize(columns, rows, name+"."+normalizeFormat(format), format)
}

func (m Materializer) materialize(columns []string, rows [][]string, filename, format string) Result {
	format = normalizeFormat(format)
	mime := mimeCSV
	var payload []byte

	if format == FormatSheet {
		codec := m.Sheet
		if codec == nil {
			codec = UnavailableSheetCodec{}
		}
		b, err := codec.Encode(columns, rows)
		if err != nil {
			// Capability missing or broken: fall back to CSV bytes
			// silently. Logged, never surfaced as a user error.
			slog.Warn("spreadsheet encode unavailable, falling back to csv", "error", err)
			format = FormatCSV
			filename = strings.TrimSuffix(filename, "."+FormatSheet) + "." + FormatCSV
		} else {
			payload = b
			mime = mimeSheet
		}
	}
	if payload == nil {
		payload = CSVBytes(columns, rows)
	}

	res := Result{Filename: filename, Mime: mime, Format: format, Size: len(payload)}

	if m.Issuer != nil {
		ttl := m.TTL
		if ttl == 0 {
			ttl = DefaultTTL
		}
		url, err := m.Issuer.Register(payload, filename, mime, ttl)
		if err == nil {
			res.URL = url
			return res
		}
		slog.Error("download link registration failed, trying inline", "error", err)
	}

	ceiling := m.InlineCeiling
	if ceiling == 0 {
		ceiling = DefaultInlineCeiling
	}
	if len(payload) <= ceiling {
		res.URL = "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(payload)
		return res
	}

	res.TooLarge = true
	res.Suggestions = narrowingSuggestions()
	return res
}

// narrowingSuggestions are the concrete scope reductions offered when
// an export is too large to deliver.
func narrowingSuggestions() []string {
	return []string{
		`narrow to a single year, e.g. "export 2024"`,
		`narrow to a month, e.g. "export March 2025 as csv"`,
		`narrow to a recent window, e.g. "export the last 90 days"`,
		`export bucketed totals instead of raw rows, e.g. "export per month"`,
	}
}

func normalizeFormat(format string) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatSheet, "excel", "xls", "spreadsheet", "sheet":
		return FormatSheet
	default:
		return FormatCSV
	}
}
