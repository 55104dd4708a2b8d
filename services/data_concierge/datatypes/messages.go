// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Instruction is one role-tagged message handed to the presentation
// layer. The engine only ever returns an ordered (possibly empty) list
// of these, never an error.
type Instruction struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleSystem    = "system"
	RoleAssistant = "assistant"
)

// VerbatimToken is the leading token that tells the downstream renderer
// to emit the rest of the content verbatim, bypassing any further
// generation. Deterministic outputs (exports, compare reports, tables)
// always carry it.
const VerbatimToken = "@@VERBATIM@@"

// Fenced payload labels. JSON payloads embedded in instruction text are
// fenced with these fixed names so a renderer can locate and parse them
// without ambiguity.
const (
	PayloadDeepFetch = "DEEP_FETCH_JSON"
	PayloadFields    = "FIELDS_JSON"
)

// Verbatim wraps content in a verbatim assistant instruction.
func Verbatim(content string) Instruction {
	return Instruction{Role: RoleAssistant, Content: VerbatimToken + "\n" + content}
}

// SystemNote wraps content in a system instruction for the generator.
func SystemNote(content string) Instruction {
	return Instruction{Role: RoleSystem, Content: content}
}

// FencedJSON renders v as a labeled fenced JSON block. Marshal failures
// degrade to an empty object; the fence is always well-formed.
func FencedJSON(label string, v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		b = []byte("{}")
	}
	return fmt.Sprintf("```%s\n%s\n```", label, b)
}

// ExtractFencedJSON finds the first fenced block with the given label
// and unmarshals it into out. Used by tests and by downstream renderers.
func ExtractFencedJSON(content, label string, out any) error {
	open := "```" + label
	start := strings.Index(content, open)
	if start < 0 {
		return fmt.Errorf("no %s block found", label)
	}
	rest := content[start+len(open):]
	end := strings.Index(rest, "```")
	if end < 0 {
		return fmt.Errorf("%s block not terminated", label)
	}
	return json.Unmarshal([]byte(strings.TrimSpace(rest[:end])), out)
}

// RenderTable renders an aggregation as a fixed markdown table. The row
// order is the aggregation's presentation order, verbatim.
func RenderTable(agg Aggregation) string {
	var b strings.Builder
	b.WriteString("| " + strings.Join(agg.Columns, " | ") + " |\n")
	b.WriteString("|" + strings.Repeat(" --- |", len(agg.Columns)) + "\n")
	for _, row := range agg.Rows {
		b.WriteString("| " + strings.Join(row, " | ") + " |\n")
	}
	return b.String()
}
