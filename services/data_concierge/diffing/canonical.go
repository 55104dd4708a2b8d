// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package diffing aligns an uploaded row set against the baseline
// dataset on a shared canonical key space and classifies every key as
// New, Updated, or Deleted.
//
// Uploaded files and the backing store rarely agree on column names
// ("TRN #", "Transaction Number", "trn"), so both sides are first
// canonicalized: field names are lowercased, stripped to alphanumerics,
// and collapsed through a fixed alias table; values are trimmed and
// null-ish literals emptied.
package diffing

import (
	"regexp"
	"sort"
	"strings"

	"github.com/AleutianAI/AleutianData/services/data_concierge/datatypes"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// fieldAliases collapses known column-name synonyms onto one canonical
// field. Keys are already normalized (lowercase alphanumeric). The
// mapping is many-to-one and stable.
var fieldAliases = map[string]string{
	"trn":                  "trn",
	"trnno":                "trn",
	"trnnumber":            "trn",
	"txn":                  "trn",
	"txnnumber":            "trn",
	"transactionnumber":    "trn",
	"transactionno":        "trn",
	"transactionref":       "trn",
	"transactionreference": "trn",
	"reference":            "trn",
	"refno":                "trn",

	"status":        "status",
	"stage":         "status",
	"state":         "status",
	"currentstatus": "status",
	"recordstatus":  "status",

	"product":     "product",
	"producttype": "product",
	"productname": "product",

	"amount":      "amount",
	"amt":         "amount",
	"value":       "amount",
	"totalamount": "amount",

	"date":         "date",
	"receivedat":   "date",
	"receiveddate": "date",
	"createdat":    "date",
	"createddate":  "date",
	"timestamp":    "date",

	"name":         "name",
	"customername": "name",
	"clientname":   "name",
	"applicant":    "name",
}

// emptyLiterals are value spellings treated as absent.
var emptyLiterals = map[string]bool{
	"null": true, "undefined": true, "n/a": true, "na": true, "nan": true, "-": true,
}

// alwaysTrack holds canonical fields whose emptiness is still tracked.
// Identifier-like fields stay in the canonical map even when blank, so
// that a truly new identifier is caught; routine blank columns are
// dropped to avoid "field newly populated" noise.
var alwaysTrack = map[string]bool{
	"trn": true,
	"id":  true,
}

// CanonicalField normalizes a column name: lowercase, alphanumerics
// only, alias-mapped. Same input always maps to the same output.
func CanonicalField(name string) string {
	n := nonAlnum.ReplaceAllString(strings.ToLower(name), "")
	if alias, ok := fieldAliases[n]; ok {
		return alias
	}
	return n
}

// NormalizeValue trims a raw cell and empties null-ish literals.
func NormalizeValue(v string) string {
	v = strings.TrimSpace(v)
	if emptyLiterals[strings.ToLower(v)] {
		return ""
	}
	return v
}

// CanonicalRow is one record projected onto the canonical key space.
type CanonicalRow struct {
	// Key is the record's natural key, taken from the canonical trn or
	// id field.
	Key string

	// Fields maps canonical field names to normalized values. A field
	// survives only if non-empty or always-tracked.
	Fields map[string]string
}

// Canonicalize projects a field map (e.g. one parsed CSV row) onto the
// canonical space.
func Canonicalize(fields map[string]string) CanonicalRow {
	out := CanonicalRow{Fields: make(map[string]string, len(fields))}
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	// Deterministic resolution when two source columns collapse onto the
	// same canonical field: first non-empty writer in sorted name order.
	sort.Strings(names)
	for _, name := range names {
		cf := CanonicalField(name)
		if cf == "" {
			continue
		}
		v := NormalizeValue(fields[name])
		if v == "" && !alwaysTrack[cf] {
			continue
		}
		if existing, ok := out.Fields[cf]; ok && existing != "" {
			continue
		}
		out.Fields[cf] = v
	}
	if k, ok := out.Fields["trn"]; ok && k != "" {
		out.Key = k
	} else if k, ok := out.Fields["id"]; ok {
		out.Key = k
	}
	return out
}

// CanonicalizeStoreRow projects a backing-store row, flattening any
// base/derived envelope first.
func CanonicalizeStoreRow(r datatypes.Row) CanonicalRow {
	flat := r.Flatten()
	fields := make(map[string]string, len(flat))
	for name := range flat {
		fields[name] = r.FieldString(name)
	}
	cr := Canonicalize(fields)
	if cr.Key == "" {
		cr.Key = r.Key()
	}
	return cr
}
