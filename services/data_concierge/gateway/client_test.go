// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianData/services/data_concierge/datatypes"
	"github.com/AleutianAI/AleutianData/services/data_concierge/temporal"
)

func ms(y int, m time.Month, d int) int64 {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).UnixMilli()
}

type fakeStore struct {
	rows      []datatypes.Row
	lastLimit int
	byKey     map[string]datatypes.Row
}

func (f *fakeStore) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/records/full", func(w http.ResponseWriter, r *http.Request) {
		// The fake store deliberately ignores sinceMs/untilMs: range
		// enforcement is the client's job.
		json.NewEncoder(w).Encode(map[string]any{"rows": f.rows})
	})
	mux.HandleFunc("/v1/records/", func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Path[len("/v1/records/"):]
		row, ok := f.byKey[key]
		if !ok {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(row)
	})
	mux.HandleFunc("/v1/records", func(w http.ResponseWriter, r *http.Request) {
		f.lastLimit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
		json.NewEncoder(w).Encode(map[string]any{"rows": f.rows})
	})
	return mux
}

func newTestClient(t *testing.T, store *fakeStore) *Client {
	t.Helper()
	srv := httptest.NewServer(store.handler())
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL})
}

func TestFetchRecentResortsLocally(t *testing.T) {
	// The store returns rows in a "wrong" order: its sort key is not the
	// field the accessor resolves.
	store := &fakeStore{rows: []datatypes.Row{
		{"trn": "B", "receivedAt": "2024-06-01"},
		{"trn": "C", "receivedAt": "2025-01-01"},
		{"trn": "A", "receivedAt": "2023-01-01"},
	}}
	client := newTestClient(t, store)

	rows := client.FetchRecent(context.Background(), 2)
	require.Len(t, rows, 2)
	assert.Equal(t, "C", rows[0].Key())
	assert.Equal(t, "B", rows[1].Key())
}

func TestFetchFullRefiltersEvenWhenStoreFilters(t *testing.T) {
	inRange := datatypes.Row{"trn": "IN", "receivedAt": "2024-06-15"}
	outRange := datatypes.Row{"trn": "OUT", "receivedAt": "2020-01-01"}
	noDate := datatypes.Row{"trn": "NODATE"}
	store := &fakeStore{rows: []datatypes.Row{inRange, outRange, noDate}}
	client := newTestClient(t, store)

	r := temporal.NewRange(
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
	)
	rows := client.FetchFull(context.Background(), &r)
	require.Len(t, rows, 1)
	assert.Equal(t, "IN", rows[0].Key())

	// Idempotent intersection: filtering the already-filtered result with
	// the same range changes nothing.
	again := FilterByRange(rows, r)
	assert.Equal(t, rows, again)
}

func TestFetchFullNilRangePassesThrough(t *testing.T) {
	store := &fakeStore{rows: []datatypes.Row{
		{"trn": "A", "receivedAt": "2024-06-15"},
		{"trn": "NODATE"},
	}}
	client := newTestClient(t, store)

	rows := client.FetchFull(context.Background(), nil)
	assert.Len(t, rows, 2, "no range means no local exclusion")
}

func TestFetchByKey(t *testing.T) {
	store := &fakeStore{byKey: map[string]datatypes.Row{
		"AB-10001": {"trn": "AB-10001", "status": "Registered"},
	}}
	client := newTestClient(t, store)

	row, err := client.FetchByKey(context.Background(), "AB-10001")
	require.NoError(t, err)
	assert.Equal(t, "AB-10001", row.Key())

	_, err = client.FetchByKey(context.Background(), "MISSING")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFetchByKeyRejectsBadReferences(t *testing.T) {
	client := New(Config{BaseURL: "http://127.0.0.1:1"})

	for _, key := range []string{"../etc/passwd", "ab 42", ""} {
		_, err := client.FetchByKey(context.Background(), key)
		assert.ErrorIs(t, err, ErrNotFound, "key %q must be refused before any request", key)
	}
}

func TestFetchRecentByStatusOverFetches(t *testing.T) {
	var rows []datatypes.Row
	for i := 0; i < 40; i++ {
		status := "Pending"
		if i%4 == 0 {
			status = "Registered"
		}
		rows = append(rows, datatypes.Row{
			"trn":        "T-" + strconv.Itoa(i),
			"status":     status,
			"receivedAt": ms(2025, time.January, 1) + int64(i)*86400000,
		})
	}
	store := &fakeStore{rows: rows}
	client := newTestClient(t, store)

	got := client.FetchRecentByStatus(context.Background(), 3, datatypes.StatusRegistered)
	require.Len(t, got, 3)
	for _, row := range got {
		assert.Equal(t, datatypes.StatusRegistered, row.Status())
	}
	assert.Equal(t, 15, store.lastLimit, "requests 5x the asked-for rows")

	client.FetchRecentByStatus(context.Background(), 1, datatypes.StatusPending)
	assert.Equal(t, 11, store.lastLimit, "small requests over-fetch at least n+10")
}

func TestFetchDegradesToEmptyOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)
	client := New(Config{BaseURL: srv.URL})

	assert.Empty(t, client.FetchRecent(context.Background(), 5))
	assert.Empty(t, client.FetchFull(context.Background(), nil))
	_, err := client.FetchByKey(context.Background(), "X")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestFilterByRangeProperties(t *testing.T) {
	rows := []datatypes.Row{
		{"trn": "A", "receivedAt": "2024-03-01"},
		{"trn": "B", "receivedAt": "2019-03-01"},
		{"trn": "C", "receivedAt": "garbage"},
	}
	r := temporal.NewRange(
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
	)
	once := FilterByRange(rows, r)
	twice := FilterByRange(once, r)
	assert.Equal(t, once, twice)
	require.Len(t, once, 1)
	assert.Equal(t, "A", once[0].Key())
}
