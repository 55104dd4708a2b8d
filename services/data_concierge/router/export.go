// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package router

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/AleutianAI/AleutianData/services/data_concierge/aggregate"
	"github.com/AleutianAI/AleutianData/services/data_concierge/datatypes"
	"github.com/AleutianAI/AleutianData/services/data_concierge/diffing"
	"github.com/AleutianAI/AleutianData/services/data_concierge/export"
	"github.com/AleutianAI/AleutianData/services/data_concierge/session"
	"github.com/AleutianAI/AleutianData/services/data_concierge/temporal"
)

// handleExport resolves what "export" refers to, in this order: a
// fresh attachment, an explicit "everything", a freshly resolved
// temporal scope, the remembered upload, the last rendered
// aggregation, and finally everything as the documented default for a
// bare export with no history.
func (rt *Router) handleExport(ctx context.Context, t *turn) []datatypes.Instruction {
	format := requestedFormat(t.text)

	if len(t.req.Attachments) > 0 {
		if u, err := rt.decodeUpload(t.req.Attachments[0]); err == nil {
			rt.cfg.Sessions.Apply(t.key, session.Update{Upload: u})
			return rt.deliver(t, rt.cfg.Export.Table(u.Headers, uploadTuples(*u), exportName(u.Name), format))
		} else {
			slog.Warn("attachment decode failed during export", "name", t.req.Attachments[0].Name, "error", err)
			return []datatypes.Instruction{datatypes.Verbatim(
				"I could not read that file. CSV and XLSX attachments are supported.")}
		}
	}

	if reExportAll.MatchString(t.text) {
		return rt.exportEverything(ctx, t, format)
	}

	if r := temporal.ParseRange(t.text, t.now); r != nil {
		return rt.exportScope(ctx, t, r, format)
	}
	if g, ok := temporal.DetectGranularity(t.text); ok {
		agg, r := rt.resolveBucketed(ctx, t, nil, g)
		rt.rememberAggregation(t, agg, r, g)
		return rt.deliver(t, rt.cfg.Export.Aggregation(agg, format))
	}

	state := rt.cfg.Sessions.Get(t.key)

	if reUploadWord.MatchString(t.text) && state.LastUpload != nil {
		u := state.LastUpload
		return rt.deliver(t, rt.cfg.Export.Table(u.Headers, uploadTuples(*u), exportName(u.Name), format))
	}

	if state.LastAggregation != nil {
		return rt.deliver(t, rt.cfg.Export.Aggregation(*state.LastAggregation, format))
	}

	// Bare export with nothing remembered defaults to everything.
	return rt.exportEverything(ctx, t, format)
}

func (rt *Router) exportEverything(ctx context.Context, t *turn, format string) []datatypes.Instruction {
	rows := rt.cfg.Gateway.FetchFull(ctx, nil)
	if len(rows) == 0 {
		return []datatypes.Instruction{datatypes.Verbatim("There is no data to export right now.")}
	}
	return rt.deliver(t, rt.cfg.Export.Rows(rows, nil, "all-records", format))
}

// exportScope exports a freshly resolved temporal window, bucketed
// when the text names a granularity and raw otherwise.
func (rt *Router) exportScope(ctx context.Context, t *turn, r *temporal.Range, format string) []datatypes.Instruction {
	rows := rt.cfg.Gateway.FetchFull(ctx, r)
	if len(rows) == 0 {
		return []datatypes.Instruction{datatypes.Verbatim(
			fmt.Sprintf("No records found %s, so there is nothing to export.", r.Label))}
	}
	if g, ok := temporal.DetectGranularity(t.text); ok {
		agg := aggregate.ByBucket(rows, *r, g)
		rt.rememberAggregation(t, agg, r, g)
		return rt.deliver(t, rt.cfg.Export.Aggregation(agg, format))
	}
	rt.cfg.Sessions.Apply(t.key, session.Update{Range: r})
	return rt.deliver(t, rt.cfg.Export.Rows(rows, nil, scopeName(r.Label), format))
}

// deliver turns a materializer result into instructions: a verbatim
// link line on success, or the narrowing suggestions when the payload
// was too large to hand over.
func (rt *Router) deliver(t *turn, res export.Result) []datatypes.Instruction {
	if res.TooLarge {
		var sb strings.Builder
		sb.WriteString("That export is too large to deliver directly. Try narrowing the request:\n")
		for _, s := range res.Suggestions {
			sb.WriteString("- ")
			sb.WriteString(s)
			sb.WriteString("\n")
		}
		return []datatypes.Instruction{datatypes.Verbatim(strings.TrimRight(sb.String(), "\n"))}
	}
	if er, ok := rt.cfg.Metrics.(ExportRecorder); ok {
		er.ObserveExport(res.Format, res.Size)
	}
	return []datatypes.Instruction{datatypes.Verbatim(
		fmt.Sprintf("Your export is ready: [%s](%s) (%d bytes).", res.Filename, res.URL, res.Size))}
}

// decodeUpload reads an attachment into tabular form. Spreadsheets go
// through the injected codec when one is wired; everything else is
// treated as CSV.
func (rt *Router) decodeUpload(att datatypes.Attachment) (*diffing.Upload, error) {
	raw, err := att.Bytes()
	if err != nil {
		return nil, err
	}
	if isSheetAttachment(att) && rt.cfg.Sheet != nil {
		headers, rows, err := rt.cfg.Sheet.Decode(raw)
		if err != nil {
			return nil, err
		}
		return &diffing.Upload{Name: att.Name, Headers: headers, Rows: rows}, nil
	}
	u, err := diffing.ParseCSV(att.Name, raw)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func isSheetAttachment(att datatypes.Attachment) bool {
	if strings.Contains(att.Mime, "spreadsheet") || strings.Contains(att.Mime, "ms-excel") {
		return true
	}
	lower := strings.ToLower(att.Name)
	return strings.HasSuffix(lower, ".xlsx") || strings.HasSuffix(lower, ".xls")
}

// uploadTuples projects an upload's row maps onto its header order.
func uploadTuples(u diffing.Upload) [][]string {
	tuples := make([][]string, 0, len(u.Rows))
	for _, row := range u.Rows {
		tuple := make([]string, len(u.Headers))
		for i, h := range u.Headers {
			tuple[i] = row[h]
		}
		tuples = append(tuples, tuple)
	}
	return tuples
}

func exportName(filename string) string {
	base := filename
	if i := strings.LastIndex(base, "."); i > 0 {
		base = base[:i]
	}
	if base == "" {
		return "upload"
	}
	return base
}

func scopeName(label string) string {
	s := strings.TrimSpace(strings.ToLower(label))
	s = strings.ReplaceAll(s, " ", "-")
	if s == "" {
		return "export"
	}
	return s
}
