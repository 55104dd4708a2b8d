// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package export

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrSheetUnavailable marks a deployment without spreadsheet encoding.
// The materializer falls back to CSV bytes; the export never fails
// outright for this reason.
var ErrSheetUnavailable = errors.New("spreadsheet encoding unavailable")

// SheetCodec is the injected spreadsheet capability. The engine never
// hard-depends on a spreadsheet library; deployments that want real
// xlsx output plug an implementation in here.
type SheetCodec interface {
	// Encode writes the table as spreadsheet bytes.
	Encode(columns []string, rows [][]string) ([]byte, error)

	// Decode reads the first worksheet, first row as headers.
	Decode(data []byte) (headers []string, rows []map[string]string, err error)
}

// UnavailableSheetCodec is the default capability: everything returns
// ErrSheetUnavailable.
type UnavailableSheetCodec struct{}

func (UnavailableSheetCodec) Encode([]string, [][]string) ([]byte, error) {
	return nil, ErrSheetUnavailable
}

func (UnavailableSheetCodec) Decode([]byte) ([]string, []map[string]string, error) {
	return nil, nil, ErrSheetUnavailable
}

// LinkIssuer registers produced bytes and returns a download URL.
type LinkIssuer interface {
	Register(b []byte, filename, mime string, ttl time.Duration) (string, error)
}

// Download is one registered file.
type Download struct {
	Bytes    []byte
	Filename string
	Mime     string
	expires  time.Time
}

// TokenStore is the built-in LinkIssuer: an in-memory token table
// served by the downloads handler. Safe for concurrent use.
type TokenStore struct {
	mu      sync.Mutex
	baseURL string
	files   map[string]Download
	now     func() time.Time
}

// NewTokenStore builds a token store issuing URLs under baseURL, e.g.
// "/v1/downloads".
func NewTokenStore(baseURL string) *TokenStore {
	return &TokenStore{
		baseURL: baseURL,
		files:   make(map[string]Download),
		now:     time.Now,
	}
}

// Register stores the bytes under a fresh token and returns its URL.
func (t *TokenStore) Register(b []byte, filename, mime string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sweepLocked()
	t.files[token] = Download{
		Bytes:    b,
		Filename: filename,
		Mime:     mime,
		expires:  t.now().Add(ttl),
	}
	return t.baseURL + "/" + token, nil
}

// Get resolves a token, honoring expiry.
func (t *TokenStore) Get(token string) (Download, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	d, ok := t.files[token]
	if !ok || t.now().After(d.expires) {
		delete(t.files, token)
		return Download{}, false
	}
	return d, true
}

// sweepLocked drops expired entries. Caller holds mu.
func (t *TokenStore) sweepLocked() {
	now := t.now()
	for token, d := range t.files {
		if now.After(d.expires) {
			delete(t.files, token)
		}
	}
}
