// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package diffing

import (
	"reflect"
	"testing"

	"github.com/AleutianAI/AleutianData/services/data_concierge/datatypes"
)

func TestCanonicalField(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"TRN #", "trn"},
		{"Transaction Number", "trn"},
		{"transaction_number", "trn"},
		{"Reference", "trn"},
		{"trn", "trn"},
		{"STAGE", "status"},
		{"Current Status", "status"},
		{"Product Type", "product"},
		{"Received At", "date"},
		{"Total Amount", "amount"},
		{"Widget Count", "widgetcount"},
	}
	for _, tt := range tests {
		if got := CanonicalField(tt.in); got != tt.want {
			t.Errorf("CanonicalField(%q) = %q, want %q", tt.in, got, tt.want)
		}
		// Stability: same input, same output.
		if again := CanonicalField(tt.in); again != tt.want {
			t.Errorf("CanonicalField(%q) unstable: %q then %q", tt.in, tt.want, again)
		}
	}
}

func TestNormalizeValue(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  spaced  ", "spaced"},
		{"null", ""},
		{"NULL", ""},
		{"undefined", ""},
		{"N/A", ""},
		{"na", ""},
		{"NaN", ""},
		{"-", ""},
		{"0", "0"},
		{"real value", "real value"},
	}
	for _, tt := range tests {
		if got := NormalizeValue(tt.in); got != tt.want {
			t.Errorf("NormalizeValue(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCanonicalizeDropsBlankNonTrackedFields(t *testing.T) {
	row := Canonicalize(map[string]string{
		"TRN #":   "AB-1",
		"Product": "null",
		"Notes":   "   ",
	})
	if row.Key != "AB-1" {
		t.Fatalf("Key = %q, want AB-1", row.Key)
	}
	if _, ok := row.Fields["product"]; ok {
		t.Error("blank product must be dropped from the canonical map")
	}
	if _, ok := row.Fields["trn"]; !ok {
		t.Error("identifier fields are always tracked")
	}
}

func TestCanonicalizeStoreRow(t *testing.T) {
	row := CanonicalizeStoreRow(datatypes.Row{
		"base":    map[string]any{"trn": "AB-1", "stage": "Pending"},
		"derived": map[string]any{"stage": "Registered"},
	})
	if row.Key != "AB-1" {
		t.Fatalf("Key = %q", row.Key)
	}
	if row.Fields["status"] != "Registered" {
		t.Errorf("status = %q, want derived value", row.Fields["status"])
	}
}

func TestDiffScenario(t *testing.T) {
	// Baseline has AB-1 (stage Pending, no product) and AB-2. The upload
	// carries AB-1 with a changed stage plus a newly present product, and
	// a wholly new AB-3. AB-2 is absent from the upload.
	baseline := []CanonicalRow{
		Canonicalize(map[string]string{"TRN": "AB-1", "STAGE": "Pending"}),
		Canonicalize(map[string]string{"TRN": "AB-2", "STAGE": "Registered"}),
	}
	upload := []CanonicalRow{
		Canonicalize(map[string]string{"TRN": "AB-1", "STAGE": "Registered", "PRODUCT": "Widget"}),
		Canonicalize(map[string]string{"TRN": "AB-3", "STAGE": "Pending", "PRODUCT": "Gadget"}),
	}

	report := Diff(baseline, upload)

	if got := Keys(report.New); !reflect.DeepEqual(got, []string{"AB-3"}) {
		t.Errorf("New = %v", got)
	}
	if got := Keys(report.Deleted); !reflect.DeepEqual(got, []string{"AB-2"}) {
		t.Errorf("Deleted = %v", got)
	}
	if len(report.Updated) != 1 {
		t.Fatalf("Updated = %d entries, want 1", len(report.Updated))
	}

	kd := report.Updated[0]
	if kd.Key != "AB-1" {
		t.Errorf("Updated key = %q", kd.Key)
	}
	if len(kd.Changes) != 1 || kd.Changes[0] != (FieldChange{Field: "status", Before: "Pending", After: "Registered"}) {
		t.Errorf("Changes = %+v", kd.Changes)
	}
	if !reflect.DeepEqual(kd.NewlyPopulated, []string{"product"}) {
		t.Errorf("NewlyPopulated = %v", kd.NewlyPopulated)
	}
	// The newly populated field must not also appear as a change.
	for _, ch := range kd.Changes {
		if ch.Field == "product" {
			t.Error("newly populated field leaked into the change list")
		}
	}
}

func TestDiffNoOpSymmetry(t *testing.T) {
	baseline := []CanonicalRow{
		Canonicalize(map[string]string{"TRN": "AB-1", "STAGE": "Pending", "PRODUCT": "Widget"}),
		Canonicalize(map[string]string{"TRN": "AB-2", "STAGE": "Registered"}),
	}
	// Identical canonical data under different header spellings.
	upload := []CanonicalRow{
		Canonicalize(map[string]string{"Transaction Number": "AB-1", "Status": "Pending", "Product Type": "Widget"}),
		Canonicalize(map[string]string{"TRN #": "AB-2", "Current Status": "Registered"}),
	}

	report := Diff(baseline, upload)
	if n, u, d := report.Counts(); n != 0 || u != 0 || d != 0 {
		t.Errorf("no-op diff = (%d new, %d updated, %d deleted), want zeros", n, u, d)
	}
}

func TestDiffSkipsSilentKeysAndEmptyKeys(t *testing.T) {
	baseline := []CanonicalRow{
		Canonicalize(map[string]string{"TRN": "AB-1", "STAGE": "Pending"}),
	}
	upload := []CanonicalRow{
		Canonicalize(map[string]string{"TRN": "AB-1", "STAGE": "Pending"}),
		Canonicalize(map[string]string{"STAGE": "Registered"}), // no key
	}
	report := Diff(baseline, upload)
	if n, u, d := report.Counts(); n != 0 || u != 0 || d != 0 {
		t.Errorf("silent key reported: (%d, %d, %d)", n, u, d)
	}
}

func TestTruncateKeys(t *testing.T) {
	keys := []string{"a", "b", "c", "d", "e"}
	got := TruncateKeys(keys, 3)
	want := []string{"a", "b", "c", "... 2 more"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("TruncateKeys = %v, want %v", got, want)
	}
	if got := TruncateKeys(keys, 10); !reflect.DeepEqual(got, keys) {
		t.Errorf("short lists pass through, got %v", got)
	}
}

func TestParseCSVQuotedFields(t *testing.T) {
	data := []byte("TRN,Name,Notes\nAB-1,\"Smith, Jane\",\"line one\nline two\"\nAB-2,\"He said \"\"hi\"\"\",plain\n")
	up, err := ParseCSV("upload.csv", data)
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}
	if !reflect.DeepEqual(up.Headers, []string{"TRN", "Name", "Notes"}) {
		t.Fatalf("Headers = %v", up.Headers)
	}
	if len(up.Rows) != 2 {
		t.Fatalf("Rows = %d, want 2", len(up.Rows))
	}
	if up.Rows[0]["Name"] != "Smith, Jane" {
		t.Errorf("embedded comma mangled: %q", up.Rows[0]["Name"])
	}
	if up.Rows[0]["Notes"] != "line one\nline two" {
		t.Errorf("embedded newline mangled: %q", up.Rows[0]["Notes"])
	}
	if up.Rows[1]["Name"] != `He said "hi"` {
		t.Errorf("doubled quotes mangled: %q", up.Rows[1]["Name"])
	}

	if _, err := ParseCSV("empty.csv", nil); err == nil {
		t.Error("empty file must error")
	}

	canon := up.CanonicalHeaders()
	if !reflect.DeepEqual(canon, []string{"trn", "name", "notes"}) {
		t.Errorf("CanonicalHeaders = %v", canon)
	}
}
