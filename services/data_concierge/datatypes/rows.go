// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes provides the shared data structures for the data
// concierge service: backing-store rows with heuristic accessors, chat
// request/response types, and the instruction messages handed to the
// presentation layer.
package datatypes

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/AleutianAI/AleutianData/services/data_concierge/temporal"
)

// Row is an opaque record from the backing store. Rows are never
// mutated; every derived value goes through an accessor.
type Row map[string]any

// Status is the two-valued classification derived from a status-like
// field.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusRegistered Status = "REGISTERED"
)

// Flatten merges a base/derived envelope into a flat row. Derived values
// override base values; a row without the envelope is returned as-is.
// The merge preserves the base row and copies, it never mutates.
func (r Row) Flatten() Row {
	base, hasBase := r["base"].(map[string]any)
	derived, hasDerived := r["derived"].(map[string]any)
	if !hasBase && !hasDerived {
		return r
	}
	flat := make(Row, len(r)+len(base)+len(derived))
	for k, v := range base {
		flat[k] = v
	}
	for k, v := range derived {
		flat[k] = v
	}
	for k, v := range r {
		if k == "base" || k == "derived" {
			continue
		}
		flat[k] = v
	}
	return flat
}

// timestampFields are the candidate paths probed for a row timestamp, in
// order. The first value that parses wins.
var timestampFields = []string{
	"receivedAt", "received_at",
	"timestamp",
	"createdAt", "created_at",
	"date",
	"updatedAt", "updated_at",
}

// keyFields are the candidate paths probed for a row's natural key.
var keyFields = []string{
	"trn", "TRN",
	"transactionNumber", "transaction_number",
	"reference",
	"id", "ID",
}

// statusFields are probed in order; matching is case-insensitive on the
// key so that STAGE and Status both resolve.
var statusFields = []string{"status", "stage", "state"}

var registeredPattern = regexp.MustCompile(`(?i)regist|complete|success|approved|settled`)

// Timestamp resolves the row's timestamp in UTC epoch milliseconds by
// probing the candidate fields in order. The second return is false when
// no candidate parses; such rows are excluded from time-scoped work.
func (r Row) Timestamp() (int64, bool) {
	flat := r.Flatten()
	for _, field := range timestampFields {
		v, ok := flat[field]
		if !ok {
			continue
		}
		if ms, parsed := temporal.ParseTimestamp(v); parsed {
			return ms, true
		}
	}
	return 0, false
}

// Status classifies the row as REGISTERED or PENDING from the first
// status-like field. Rows without one are PENDING.
func (r Row) Status() Status {
	flat := r.Flatten()
	for _, want := range statusFields {
		for k, v := range flat {
			if !strings.EqualFold(k, want) {
				continue
			}
			if s, ok := v.(string); ok && registeredPattern.MatchString(s) {
				return StatusRegistered
			}
			return StatusPending
		}
	}
	return StatusPending
}

// Key resolves the row's natural key (a transaction reference or id).
// Empty when no candidate field holds a usable value.
func (r Row) Key() string {
	flat := r.Flatten()
	for _, field := range keyFields {
		switch v := flat[field].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%f", v), "0"), ".")
		case int, int64:
			return fmt.Sprintf("%v", v)
		}
	}
	return ""
}

// FieldString renders an arbitrary field value for presentation. Missing
// and nil values render empty.
func (r Row) FieldString(field string) string {
	v, ok := r.Flatten()[field]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%v", t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// Aggregation is a rendered tabular summary: ordered column labels plus
// ordered string tuples. Row order is presentation order and is carried
// verbatim into any export.
//
// Invariant: every tuple has exactly len(Columns) cells.
type Aggregation struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`

	// Name is an optional filename hint for "export it".
	Name string `json:"name,omitempty"`
}

// Valid reports whether every row tuple matches the column count.
func (a Aggregation) Valid() bool {
	for _, row := range a.Rows {
		if len(row) != len(a.Columns) {
			return false
		}
	}
	return true
}
