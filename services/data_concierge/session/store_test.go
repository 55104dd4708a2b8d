// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianData/services/data_concierge/datatypes"
	"github.com/AleutianAI/AleutianData/services/data_concierge/temporal"
)

func TestDeriveKey(t *testing.T) {
	messages := []datatypes.Message{
		{ID: "m1", Role: "user", Content: "old thread"},
		{ID: "m2", Role: "assistant", Content: "reply"},
		{ID: "m3", Role: "user", Content: "newest"},
	}
	k := DeriveKey("conv-1", messages)
	assert.Equal(t, Key{ConversationID: "conv-1", ThreadID: "m3"}, k)

	// No ids: fall back to a position marker.
	noIDs := []datatypes.Message{{Role: "user", Content: "hi"}}
	k = DeriveKey("", noIDs)
	assert.Equal(t, Key{ConversationID: "default", ThreadID: "pos:1"}, k)

	// A longer visible thread gets a different fallback key.
	k2 := DeriveKey("", append(noIDs, datatypes.Message{Role: "assistant"}, datatypes.Message{Role: "user"}))
	assert.NotEqual(t, k.ThreadID, k2.ThreadID)
}

func TestThreadScoping(t *testing.T) {
	store := NewStore()
	a := Key{ConversationID: "conv-1", ThreadID: "t1"}
	b := Key{ConversationID: "conv-1", ThreadID: "t2"}

	store.SetAggregation(a, datatypes.Aggregation{Columns: []string{"Year", "Total"}, Name: "per-year"})

	_, ok := store.Aggregation(b)
	assert.False(t, ok, "distinct threads under one conversation never share memory")

	got, ok := store.Aggregation(a)
	require.True(t, ok)
	assert.Equal(t, "per-year", got.Name)
}

func TestApplyShallowMerge(t *testing.T) {
	store := NewStore()
	k := Key{ConversationID: "c", ThreadID: "t"}

	r := temporal.DefaultRange(temporal.Month, time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC))
	store.Apply(k, Update{Range: &r, TopN: 5})
	store.Apply(k, Update{Granularity: temporal.Month})

	st := store.Get(k)
	require.NotNil(t, st.LastRange, "earlier fields survive later partial updates")
	assert.Equal(t, 5, st.LastTopN)
	assert.Equal(t, temporal.Month, st.LastGranularity)
}

func TestReset(t *testing.T) {
	store := NewStore()
	k := Key{ConversationID: "c", ThreadID: "t"}
	store.SetAggregation(k, datatypes.Aggregation{Columns: []string{"Year"}})
	require.Equal(t, 1, store.Len())

	store.Reset()
	assert.Equal(t, 0, store.Len())
	_, ok := store.Aggregation(k)
	assert.False(t, ok)
}
