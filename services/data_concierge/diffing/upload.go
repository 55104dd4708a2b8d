// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package diffing

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
)

// Upload is a decoded uploaded file: original headers in file order plus
// one field map per data row.
type Upload struct {
	Name    string
	Headers []string
	Rows    []map[string]string
}

// CanonicalHeaders returns the canonical form of the upload's headers,
// in file order, duplicates collapsed.
func (u Upload) CanonicalHeaders() []string {
	seen := make(map[string]bool, len(u.Headers))
	out := make([]string, 0, len(u.Headers))
	for _, h := range u.Headers {
		cf := CanonicalField(h)
		if cf == "" || seen[cf] {
			continue
		}
		seen[cf] = true
		out = append(out, cf)
	}
	return out
}

// Canonical projects every upload row onto the canonical key space, in
// file order.
func (u Upload) Canonical() []CanonicalRow {
	out := make([]CanonicalRow, 0, len(u.Rows))
	for _, r := range u.Rows {
		out = append(out, Canonicalize(r))
	}
	return out
}

// ParseCSV decodes CSV bytes into an upload. The first record is the
// header row. Quoted fields containing commas, newlines, and doubled
// quotes are handled by the standard dialect; ragged rows are tolerated
// (short rows leave trailing fields absent).
func ParseCSV(name string, data []byte) (Upload, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return Upload{}, fmt.Errorf("parse csv %q: %w", name, err)
	}
	if len(records) == 0 {
		return Upload{}, fmt.Errorf("parse csv %q: empty file", name)
	}

	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = strings.TrimSpace(h)
	}

	up := Upload{Name: name, Headers: headers}
	for _, record := range records[1:] {
		row := make(map[string]string, len(headers))
		for i, h := range headers {
			if h == "" || i >= len(record) {
				continue
			}
			row[h] = record[i]
		}
		up.Rows = append(up.Rows, row)
	}
	return up, nil
}
