// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package knowledge holds the small, dataset-free answer base the
// concierge uses for capability listings and brand questions. The
// compiled-in defaults work out of the box; a yaml file can extend or
// replace them per deployment.
package knowledge

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Fact pairs trigger keywords with a canned answer. A fact matches
// when any keyword appears in the lowercased message text.
type Fact struct {
	Keywords []string `yaml:"keywords"`
	Answer   string   `yaml:"answer"`
}

// Brand identifies whose data the concierge speaks for.
type Brand struct {
	Name    string `yaml:"name"`
	Summary string `yaml:"summary"`
}

// Base is the full knowledge payload.
type Base struct {
	Brand        Brand    `yaml:"brand"`
	Capabilities []string `yaml:"capabilities"`
	Prompts      []string `yaml:"prompts"`
	Facts        []Fact   `yaml:"facts"`
}

// Default returns the compiled-in knowledge base.
func Default() Base {
	return Base{
		Brand: Brand{
			Name:    "Aleutian Data Concierge",
			Summary: "I answer questions over your registered records: counts, time breakdowns, file comparisons, and exports.",
		},
		Capabilities: []string{
			`count records in a window: "how many last year", "how many in March 2025"`,
			`break totals down by bucket: "per month between Feb and Aug 2025", "per year"`,
			`look up a single record by its reference`,
			`show the latest or oldest records: "latest 5 pending"`,
			`compare an uploaded CSV or spreadsheet against the current data`,
			`export what you just saw: "export it as xlsx", "download the last 90 days"`,
		},
		Prompts: []string{
			"how many records did we get per month this year?",
			"show the latest 10 registered",
			"compare this file to our data",
			"export everything as csv",
		},
		Facts: []Fact{
			{
				Keywords: []string{"who are you", "what are you", "about you"},
				Answer:   "I am the Aleutian data concierge. I work only with your registered records and never guess beyond them.",
			},
			{
				Keywords: []string{"how does export work", "download link"},
				Answer:   "Exports are built from exactly the table you last saw. Small files come back inline; larger ones get a short-lived download link.",
			},
		},
	}
}

// Load reads a yaml knowledge file, falling back to the compiled-in
// defaults when the path is empty or missing. Parse errors are real
// errors: a present but broken file should not be silently ignored.
func Load(path string) (Base, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return Base{}, fmt.Errorf("failed to read the knowledge file: %w", err)
	}
	b := Default()
	if err := yaml.Unmarshal(data, &b); err != nil {
		return Base{}, fmt.Errorf("failed to parse the knowledge file: %w", err)
	}
	return b, nil
}

// Lookup returns the first fact whose keywords appear in the text.
func (b Base) Lookup(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, f := range b.Facts {
		for _, kw := range f.Keywords {
			if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
				return f.Answer, true
			}
		}
	}
	return "", false
}

// CapabilityListing renders the meta/help reply as markdown bullets.
func (b Base) CapabilityListing() string {
	var sb strings.Builder
	sb.WriteString(b.Brand.Summary)
	sb.WriteString("\n\nYou can ask me to:\n")
	for _, c := range b.Capabilities {
		sb.WriteString("- ")
		sb.WriteString(c)
		sb.WriteString("\n")
	}
	if len(b.Prompts) > 0 {
		sb.WriteString("\nFor example:\n")
		for _, p := range b.Prompts {
			sb.WriteString("- ")
			sb.WriteString(p)
			sb.WriteString("\n")
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

// BrandAnswer is the reply for brand questions no fact covers.
func (b Base) BrandAnswer() string {
	return b.Brand.Name + ": " + b.Brand.Summary
}
