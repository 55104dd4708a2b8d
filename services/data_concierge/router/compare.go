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

	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/AleutianData/services/data_concierge/datatypes"
	"github.com/AleutianAI/AleutianData/services/data_concierge/diffing"
	"github.com/AleutianAI/AleutianData/services/data_concierge/session"
)

// displayKeyLimit caps how many keys a compare reply enumerates per
// section. The full report stays available for export.
const displayKeyLimit = 10

// handleCompare diffs an uploaded file against the current data. The
// upload comes from a fresh attachment or the remembered one; with
// neither, the reply asks for a file instead of erroring.
func (rt *Router) handleCompare(ctx context.Context, t *turn) []datatypes.Instruction {
	var upload *diffing.Upload
	if len(t.req.Attachments) > 0 {
		u, err := rt.decodeUpload(t.req.Attachments[0])
		if err != nil {
			slog.Warn("attachment decode failed during compare", "name", t.req.Attachments[0].Name, "error", err)
			return []datatypes.Instruction{datatypes.Verbatim(
				"I could not read that file. CSV and XLSX attachments are supported.")}
		}
		upload = u
	} else if state := rt.cfg.Sessions.Get(t.key); state.LastUpload != nil {
		upload = state.LastUpload
	} else {
		return []datatypes.Instruction{datatypes.Verbatim(
			"Please attach the CSV or XLSX file you would like me to compare against the current data.")}
	}

	// Canonicalizing the upload and fetching the baseline are
	// independent; run them side by side.
	var baseline []datatypes.Row
	var uploadCanon []diffing.CanonicalRow
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		baseline = rt.cfg.Gateway.FetchFull(gctx, nil)
		return nil
	})
	g.Go(func() error {
		uploadCanon = upload.Canonical()
		return nil
	})
	_ = g.Wait()

	baseCanon := make([]diffing.CanonicalRow, 0, len(baseline))
	for _, row := range baseline {
		baseCanon = append(baseCanon, diffing.CanonicalizeStoreRow(row))
	}

	report := diffing.Diff(baseCanon, uploadCanon)
	rt.cfg.Sessions.Apply(t.key, session.Update{
		Upload:      upload,
		Aggregation: reportAggregation(report),
	})

	return []datatypes.Instruction{
		datatypes.Verbatim(renderReport(upload.Name, len(uploadCanon), len(baseCanon), report)),
		datatypes.SystemNote(datatypes.FencedJSON(datatypes.PayloadFields, report)),
	}
}

// renderReport builds the human-readable compare summary, truncating
// key lists for display.
func renderReport(name string, uploadN, baselineN int, report diffing.Report) string {
	newN, updatedN, deletedN := report.Counts()
	var sb strings.Builder
	fmt.Fprintf(&sb, "Compared %s (%d rows) against the current data (%d records):\n",
		name, uploadN, baselineN)

	fmt.Fprintf(&sb, "- New: %d", newN)
	if newN > 0 {
		fmt.Fprintf(&sb, " (%s)", strings.Join(diffing.TruncateKeys(diffing.Keys(report.New), displayKeyLimit), ", "))
	}
	sb.WriteString("\n")

	fmt.Fprintf(&sb, "- Updated: %d\n", updatedN)
	for i, kd := range report.Updated {
		if i == displayKeyLimit {
			fmt.Fprintf(&sb, "  - ... %d more\n", updatedN-displayKeyLimit)
			break
		}
		sb.WriteString("  - ")
		sb.WriteString(kd.Key)
		sb.WriteString(": ")
		parts := make([]string, 0, len(kd.Changes)+1)
		for _, c := range kd.Changes {
			parts = append(parts, fmt.Sprintf("%s %q -> %q", c.Field, c.Before, c.After))
		}
		if n := len(kd.NewlyPopulated); n > 0 {
			parts = append(parts, fmt.Sprintf("%d field(s) newly populated", n))
		}
		sb.WriteString(strings.Join(parts, "; "))
		sb.WriteString("\n")
	}

	fmt.Fprintf(&sb, "- Deleted: %d", deletedN)
	if deletedN > 0 {
		fmt.Fprintf(&sb, " (%s)", strings.Join(diffing.TruncateKeys(diffing.Keys(report.Deleted), displayKeyLimit), ", "))
	}
	return sb.String()
}

// reportAggregation flattens the full, untruncated report into an
// exportable table.
func reportAggregation(report diffing.Report) *datatypes.Aggregation {
	agg := &datatypes.Aggregation{
		Columns: []string{"Key", "Change", "Field", "Before", "After"},
		Name:    "compare-report",
	}
	for _, row := range report.New {
		agg.Rows = append(agg.Rows, []string{row.Key, "new", "", "", ""})
	}
	for _, kd := range report.Updated {
		for _, c := range kd.Changes {
			agg.Rows = append(agg.Rows, []string{kd.Key, "changed", c.Field, c.Before, c.After})
		}
		for _, f := range kd.NewlyPopulated {
			agg.Rows = append(agg.Rows, []string{kd.Key, "newly populated", f, "", ""})
		}
	}
	for _, row := range report.Deleted {
		agg.Rows = append(agg.Rows, []string{row.Key, "deleted", "", "", ""})
	}
	return agg
}
