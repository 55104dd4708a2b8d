// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package diffing

import (
	"fmt"
	"sort"
)

// FieldChange is one before/after difference on a field both sides
// carry.
type FieldChange struct {
	Field  string `json:"field"`
	Before string `json:"before"`
	After  string `json:"after"`
}

// KeyDiff collects what changed for one key present on both sides.
//
// Changes and NewlyPopulated are deliberately distinct: "field changed"
// and "field was absent then appeared" are different user-facing claims
// and are never conflated.
type KeyDiff struct {
	Key            string        `json:"key"`
	Changes        []FieldChange `json:"changes,omitempty"`
	NewlyPopulated []string      `json:"newly_populated,omitempty"`
}

// Report is the full, untruncated diff between a baseline and an
// upload. List order is first-seen order from the source iteration:
// upload order for New and Updated, baseline order for Deleted.
type Report struct {
	New     []CanonicalRow `json:"new"`
	Updated []KeyDiff      `json:"updated"`
	Deleted []CanonicalRow `json:"deleted"`
}

// Counts returns the three headline numbers.
func (r Report) Counts() (newN, updatedN, deletedN int) {
	return len(r.New), len(r.Updated), len(r.Deleted)
}

// Diff classifies every canonical key across baseline and upload.
//
// A key only in the upload is New; only in the baseline, Deleted. A key
// on both sides is Updated iff it has at least one field change or one
// newly populated field; keys with neither are silently skipped, never
// reported as "(no update)".
func Diff(baseline, upload []CanonicalRow) Report {
	var report Report

	baseIndex := make(map[string]CanonicalRow, len(baseline))
	var baseOrder []string
	for _, row := range baseline {
		if row.Key == "" {
			continue
		}
		if _, dup := baseIndex[row.Key]; dup {
			continue
		}
		baseIndex[row.Key] = row
		baseOrder = append(baseOrder, row.Key)
	}

	uploadKeys := make(map[string]bool, len(upload))
	for _, row := range upload {
		if row.Key == "" || uploadKeys[row.Key] {
			continue
		}
		uploadKeys[row.Key] = true

		base, exists := baseIndex[row.Key]
		if !exists {
			report.New = append(report.New, row)
			continue
		}
		if kd := compareKey(row.Key, base, row); kd != nil {
			report.Updated = append(report.Updated, *kd)
		}
	}

	for _, key := range baseOrder {
		if !uploadKeys[key] {
			report.Deleted = append(report.Deleted, baseIndex[key])
		}
	}
	return report
}

// compareKey diffs one key present on both sides. Fields existing in
// both canonical maps with differing values become Changes; fields only
// on the upload side with a non-empty value become NewlyPopulated. Nil
// means nothing to report.
func compareKey(key string, base, up CanonicalRow) *KeyDiff {
	kd := KeyDiff{Key: key}

	fields := make([]string, 0, len(up.Fields))
	for f := range up.Fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	for _, f := range fields {
		after := up.Fields[f]
		before, inBase := base.Fields[f]
		switch {
		case inBase && before != after:
			kd.Changes = append(kd.Changes, FieldChange{Field: f, Before: before, After: after})
		case !inBase && after != "":
			kd.NewlyPopulated = append(kd.NewlyPopulated, f)
		}
	}

	if len(kd.Changes) == 0 && len(kd.NewlyPopulated) == 0 {
		return nil
	}
	return &kd
}

// TruncateKeys renders at most limit keys with a "... N more" tail. The
// full set stays available on the report for export.
func TruncateKeys(keys []string, limit int) []string {
	if limit <= 0 || len(keys) <= limit {
		return keys
	}
	out := make([]string, limit, limit+1)
	copy(out, keys[:limit])
	return append(out, fmt.Sprintf("... %d more", len(keys)-limit))
}

// Keys extracts the key list from canonical rows, preserving order.
func Keys(rows []CanonicalRow) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Key)
	}
	return out
}

// UpdatedKeys extracts the key list from key diffs, preserving order.
func UpdatedKeys(diffs []KeyDiff) []string {
	out := make([]string, 0, len(diffs))
	for _, d := range diffs {
		out = append(out, d.Key)
	}
	return out
}
