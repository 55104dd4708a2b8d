// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianData/services/data_concierge/datatypes"
	"github.com/AleutianAI/AleutianData/services/data_concierge/export"
	"github.com/AleutianAI/AleutianData/services/data_concierge/gateway"
	"github.com/AleutianAI/AleutianData/services/data_concierge/router"
	"github.com/AleutianAI/AleutianData/services/data_concierge/session"
	"github.com/AleutianAI/AleutianData/services/data_concierge/temporal"
)

type stubFetcher struct {
	rows []datatypes.Row
}

func (s stubFetcher) FetchRecent(context.Context, int) []datatypes.Row { return s.rows }
func (s stubFetcher) FetchFull(context.Context, *temporal.Range) []datatypes.Row {
	return s.rows
}
func (s stubFetcher) FetchByKey(context.Context, string) (datatypes.Row, error) {
	return nil, gateway.ErrNotFound
}
func (s stubFetcher) FetchRecentByStatus(context.Context, int, datatypes.Status) []datatypes.Row {
	return s.rows
}

func newTestEngine(t *testing.T) (*gin.Engine, *export.TokenStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	sessions := session.NewStore()
	downloads := export.NewTokenStore("/v1/downloads")
	rt := router.New(router.Config{
		Gateway: stubFetcher{rows: []datatypes.Row{
			{"trn": "AB-1", "receivedAt": "2025-03-01", "status": "registered"},
		}},
		Sessions: sessions,
		Export:   export.Materializer{Issuer: downloads},
	})

	engine := gin.New()
	h := NewHandlers(rt, sessions, downloads)
	v1 := engine.Group("/v1")
	RegisterRoutes(v1, h)
	engine.GET("/healthz", h.HandleHealth)
	return engine, downloads
}

func postChat(t *testing.T, engine *gin.Engine, text string) *httptest.ResponseRecorder {
	t.Helper()
	body := `{"conversation_id":"c1","messages":[{"id":"m1","role":"user","content":` +
		string(mustJSON(t, text)) + `}]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/concierge/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestChatEndpoint(t *testing.T) {
	engine, _ := newTestEngine(t)

	w := postChat(t, engine, "how many per year?")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	var resp datatypes.ConciergeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Instructions, 1)
	assert.Contains(t, resp.Instructions[0].Content, "| Year | Total |")
	assert.Contains(t, resp.Instructions[0].Content, "2025")
}

func TestChatRejectsBadBody(t *testing.T) {
	engine, _ := newTestEngine(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/concierge/chat", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "INVALID_REQUEST", resp.Code)
}

func TestChatRequiresMessages(t *testing.T) {
	engine, _ := newTestEngine(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/concierge/chat",
		strings.NewReader(`{"conversation_id":"c1","messages":[]}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDownloadRoundtrip(t *testing.T) {
	engine, downloads := newTestEngine(t)

	url, err := downloads.Register([]byte("Year,Total\n2025,1\n"), "per-year.csv", "text/csv", time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, url, nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Year,Total\n2025,1\n", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "per-year.csv")

	// Unknown token is a 404, not an error page.
	req = httptest.NewRequest(http.MethodGet, "/v1/downloads/not-a-token", nil)
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSessionReset(t *testing.T) {
	engine, _ := newTestEngine(t)

	// Seed session state through a query, then reset.
	postChat(t, engine, "per month between Feb and Aug 2025")

	req := httptest.NewRequest(http.MethodPost, "/v1/concierge/sessions/reset", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	// A bare "export it" now falls back to exporting everything.
	w = postChat(t, engine, "export it")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "all-records")
}

func TestHealthz(t *testing.T) {
	engine, _ := newTestEngine(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), ServiceVersion)
}
