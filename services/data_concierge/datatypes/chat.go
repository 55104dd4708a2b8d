// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// MaxAttachmentBytes caps a single uploaded file after base64 decoding.
const MaxAttachmentBytes = 8 * 1024 * 1024 // 8MB

var chatValidate = validator.New()

// Message is one turn of the conversation as seen by the engine.
type Message struct {
	ID      string `json:"id,omitempty"`
	Role    string `json:"role" validate:"required,oneof=user assistant system"`
	Content string `json:"content"`
}

// Attachment is an uploaded file. Data is either raw base64 or a full
// data URL; DecodeAttachment in the router strips the prefix.
type Attachment struct {
	Name string `json:"name" validate:"required"`
	Mime string `json:"mime"`
	Data string `json:"data" validate:"required"`
}

// Bytes decodes the attachment payload. A data-URL prefix
// ("data:<mime>;base64,") is stripped before decoding. Oversized
// payloads are rejected rather than truncated.
func (a Attachment) Bytes() ([]byte, error) {
	data := a.Data
	if strings.HasPrefix(data, "data:") {
		idx := strings.Index(data, ",")
		if idx < 0 {
			return nil, fmt.Errorf("attachment %q: malformed data URL", a.Name)
		}
		data = data[idx+1:]
	}
	b, err := base64.StdEncoding.DecodeString(strings.TrimSpace(data))
	if err != nil {
		return nil, fmt.Errorf("attachment %q: %w", a.Name, err)
	}
	if len(b) > MaxAttachmentBytes {
		return nil, fmt.Errorf("attachment %q exceeds %d bytes", a.Name, MaxAttachmentBytes)
	}
	return b, nil
}

// ConciergeRequest is the body of POST /v1/concierge/chat.
//
// ConversationID scopes session memory; an absent id maps to "default".
// Messages carry the visible thread newest-last; the engine only reads
// them for the latest user text and for thread-id derivation.
type ConciergeRequest struct {
	RequestID      string       `json:"request_id" validate:"omitempty,uuid4"`
	Timestamp      int64        `json:"timestamp"`
	ConversationID string       `json:"conversation_id"`
	Messages       []Message    `json:"messages" validate:"required,min=1,max=200,dive"`
	Attachments    []Attachment `json:"attachments,omitempty" validate:"omitempty,max=4,dive"`
}

// Validate checks the request against its validator tags.
func (r *ConciergeRequest) Validate() error {
	return chatValidate.Struct(r)
}

// EnsureDefaults fills the request id, timestamp, and conversation id
// when the client omitted them.
func (r *ConciergeRequest) EnsureDefaults() {
	if r.RequestID == "" {
		r.RequestID = uuid.NewString()
	}
	if r.Timestamp == 0 {
		r.Timestamp = time.Now().UnixMilli()
	}
	if r.ConversationID == "" {
		r.ConversationID = "default"
	}
}

// LatestUserText returns the content of the newest user-authored
// message, or empty when there is none.
func (r *ConciergeRequest) LatestUserText() string {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role == "user" {
			return r.Messages[i].Content
		}
	}
	return ""
}

// ConciergeResponse is the body returned by the chat endpoint: the
// ordered instruction list plus correlation ids.
type ConciergeResponse struct {
	ResponseID       string        `json:"response_id"`
	RequestID        string        `json:"request_id"`
	Timestamp        int64         `json:"timestamp"`
	Instructions     []Instruction `json:"instructions"`
	ProcessingTimeMs int64         `json:"processing_time_ms,omitempty"`
}

// NewConciergeResponse builds a response envelope with generated id and
// timestamp.
func NewConciergeResponse(requestID string, instructions []Instruction) *ConciergeResponse {
	return &ConciergeResponse{
		ResponseID:   uuid.NewString(),
		RequestID:    requestID,
		Timestamp:    time.Now().UnixMilli(),
		Instructions: instructions,
	}
}
