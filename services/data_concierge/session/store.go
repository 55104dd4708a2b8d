// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package session holds per-conversation-thread memory for the engine:
// the last resolved scope and the last rendered aggregation, so that a
// bare "export it" means whatever was just shown.
//
// The store lives for the process lifetime only; durable persistence is
// deliberately out of scope. Handlers run on per-request goroutines, so
// access is serialized with a mutex to keep the "last aggregation
// matches what the user just saw" invariant.
package session

import (
	"fmt"
	"sync"

	"github.com/AleutianAI/AleutianData/services/data_concierge/datatypes"
	"github.com/AleutianAI/AleutianData/services/data_concierge/diffing"
	"github.com/AleutianAI/AleutianData/services/data_concierge/temporal"
)

// Key identifies one visible thread inside one conversation.
type Key struct {
	ConversationID string
	ThreadID       string
}

// DeriveKey builds a session key from a request. The thread id is the
// id of the first user-authored message found scanning newest to
// oldest; conversations whose messages carry no ids fall back to a
// position marker so a brand-new visible thread still gets independent
// memory from an older one.
func DeriveKey(conversationID string, messages []datatypes.Message) Key {
	if conversationID == "" {
		conversationID = "default"
	}
	for i := len(messages) - 1; i >= 0; i-- {
		m := messages[i]
		if m.Role == "user" && m.ID != "" {
			return Key{ConversationID: conversationID, ThreadID: m.ID}
		}
	}
	return Key{ConversationID: conversationID, ThreadID: fmt.Sprintf("pos:%d", len(messages))}
}

// State is everything remembered for one thread. Zero value is an empty
// session.
type State struct {
	LastRange       *temporal.Range
	LastTopN        int
	LastGranularity temporal.Granularity
	LastAggregation *datatypes.Aggregation
	LastUpload      *diffing.Upload
}

// Update is a partial state; non-nil / non-zero fields overwrite.
type Update struct {
	Range       *temporal.Range
	TopN        int
	Granularity temporal.Granularity
	Aggregation *datatypes.Aggregation
	Upload      *diffing.Upload
}

// Store is the process-wide session memory. Safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	sessions map[Key]*State
}

// NewStore returns an empty session store.
func NewStore() *Store {
	return &Store{sessions: make(map[Key]*State)}
}

// Get returns a copy of the session state, creating the session lazily.
func (s *Store) Get(k Key) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.state(k)
}

// Apply shallow-merges an update into the session.
func (s *Store) Apply(k Key, u Update) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state(k)
	if u.Range != nil {
		st.LastRange = u.Range
	}
	if u.TopN > 0 {
		st.LastTopN = u.TopN
	}
	if u.Granularity != "" {
		st.LastGranularity = u.Granularity
	}
	if u.Aggregation != nil {
		st.LastAggregation = u.Aggregation
	}
	if u.Upload != nil {
		st.LastUpload = u.Upload
	}
}

// SetAggregation records the aggregation the user just saw. Every
// engine branch that renders a table calls this as its last act.
func (s *Store) SetAggregation(k Key, agg datatypes.Aggregation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state(k).LastAggregation = &agg
}

// Aggregation returns the remembered aggregation, or false.
func (s *Store) Aggregation(k Key) (datatypes.Aggregation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state(k)
	if st.LastAggregation == nil {
		return datatypes.Aggregation{}, false
	}
	return *st.LastAggregation, true
}

// Reset clears every session. Test isolation hook.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = make(map[Key]*State)
}

// Len reports how many sessions exist.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// state returns the live session, creating it lazily. Caller holds mu.
func (s *Store) state(k Key) *State {
	st, ok := s.sessions[k]
	if !ok {
		st = &State{}
		s.sessions[k] = st
	}
	return st
}
