// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlattenEnvelope(t *testing.T) {
	row := Row{
		"base": map[string]any{
			"trn":    "AB-10001",
			"status": "PENDING",
			"amount": 100.0,
		},
		"derived": map[string]any{
			"status": "REGISTERED",
		},
		"receivedAt": "2025-01-02",
	}

	flat := row.Flatten()
	assert.Equal(t, "AB-10001", flat["trn"])
	assert.Equal(t, "REGISTERED", flat["status"], "derived must override base")
	assert.Equal(t, 100.0, flat["amount"])
	assert.Equal(t, "2025-01-02", flat["receivedAt"])

	// The original envelope is untouched.
	assert.Contains(t, row, "base")

	plain := Row{"trn": "X"}
	assert.Equal(t, plain, plain.Flatten(), "flat rows pass through")
}

func TestRowTimestampCandidates(t *testing.T) {
	wantMs := time.Date(2025, 3, 25, 0, 0, 0, 0, time.UTC).UnixMilli()

	tests := []struct {
		name string
		row  Row
	}{
		{"receivedAt iso", Row{"receivedAt": "2025-03-25"}},
		{"snake case", Row{"received_at": "2025-03-25"}},
		{"epoch seconds", Row{"timestamp": float64(wantMs / 1000)}},
		{"createdAt slash", Row{"createdAt": "25/03/2025"}},
		{"date month name", Row{"date": "Mar 25, 2025"}},
		{"nested base", Row{"base": map[string]any{"receivedAt": "2025-03-25"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ms, ok := tt.row.Timestamp()
			require.True(t, ok)
			assert.Equal(t, wantMs, ms)
		})
	}

	// First parseable candidate wins even when a later one exists.
	row := Row{"receivedAt": "not a date", "createdAt": "2025-03-25"}
	ms, ok := row.Timestamp()
	require.True(t, ok)
	assert.Equal(t, wantMs, ms)

	_, ok = Row{"product": "widget"}.Timestamp()
	assert.False(t, ok, "rows without any timestamp candidate are excluded")
}

func TestRowStatus(t *testing.T) {
	tests := []struct {
		name string
		row  Row
		want Status
	}{
		{"registered", Row{"status": "Registered"}, StatusRegistered},
		{"completed counts", Row{"STAGE": "Completed"}, StatusRegistered},
		{"approved counts", Row{"state": "approved"}, StatusRegistered},
		{"pending", Row{"status": "In Review"}, StatusPending},
		{"no status field", Row{"trn": "X"}, StatusPending},
		{"status beats stage", Row{"status": "pending", "stage": "registered"}, StatusPending},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.row.Status())
		})
	}
}

func TestRowKey(t *testing.T) {
	assert.Equal(t, "AB-10001", Row{"trn": "AB-10001"}.Key())
	assert.Equal(t, "R-7", Row{"reference": "R-7"}.Key())
	assert.Equal(t, "42", Row{"id": float64(42)}.Key())
	assert.Equal(t, "T-1", Row{"trn": "T-1", "id": "I-2"}.Key(), "trn outranks id")
	assert.Equal(t, "", Row{"product": "widget"}.Key())
	assert.Equal(t, "", Row{"trn": "   "}.Key(), "blank keys are unusable")
}

func TestAggregationValid(t *testing.T) {
	agg := Aggregation{Columns: []string{"Year", "Total"}, Rows: [][]string{{"2024", "3"}}}
	assert.True(t, agg.Valid())
	agg.Rows = append(agg.Rows, []string{"2025"})
	assert.False(t, agg.Valid())
}
