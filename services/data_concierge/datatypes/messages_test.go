// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerbatimToken(t *testing.T) {
	in := Verbatim("final table")
	assert.Equal(t, RoleAssistant, in.Role)
	assert.True(t, strings.HasPrefix(in.Content, VerbatimToken))
}

func TestFencedJSONRoundTrip(t *testing.T) {
	payload := map[string]any{"total": 7.0, "scope": "Feb to Aug 2025"}
	content := "summary follows\n" + FencedJSON(PayloadDeepFetch, payload) + "\ntrailing prose"

	var out map[string]any
	require.NoError(t, ExtractFencedJSON(content, PayloadDeepFetch, &out))
	assert.Equal(t, payload, out)

	assert.Error(t, ExtractFencedJSON(content, PayloadFields, &out),
		"a differently labeled fence must not match")
	assert.Error(t, ExtractFencedJSON("```DEEP_FETCH_JSON\n{", PayloadDeepFetch, &out))
}

func TestRenderTable(t *testing.T) {
	agg := Aggregation{
		Columns: []string{"Month", "Total"},
		Rows:    [][]string{{"Feb 2025", "1"}, {"Mar 2025", "0"}},
	}
	got := RenderTable(agg)
	lines := strings.Split(strings.TrimRight(got, "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "| Month | Total |", lines[0])
	assert.Equal(t, "| Feb 2025 | 1 |", lines[2])
	assert.Equal(t, "| Mar 2025 | 0 |", lines[3])
}

func TestConciergeRequestDefaults(t *testing.T) {
	req := &ConciergeRequest{Messages: []Message{{Role: "user", Content: "hi"}}}
	req.EnsureDefaults()
	assert.NotEmpty(t, req.RequestID)
	assert.NotZero(t, req.Timestamp)
	assert.Equal(t, "default", req.ConversationID)
	require.NoError(t, req.Validate())

	bad := &ConciergeRequest{Messages: []Message{{Role: "robot", Content: "hi"}}}
	bad.EnsureDefaults()
	assert.Error(t, bad.Validate())
}

func TestLatestUserText(t *testing.T) {
	req := &ConciergeRequest{Messages: []Message{
		{Role: "user", Content: "first"},
		{Role: "assistant", Content: "reply"},
		{Role: "user", Content: "second"},
		{Role: "assistant", Content: "reply 2"},
	}}
	assert.Equal(t, "second", req.LatestUserText())
	assert.Equal(t, "", (&ConciergeRequest{}).LatestUserText())
}
