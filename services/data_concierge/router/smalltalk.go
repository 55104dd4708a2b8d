// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package router

import (
	"context"
	"strings"

	"github.com/AleutianAI/AleutianData/services/data_concierge/datatypes"
)

// handleHelp answers "what can I ask" with the capability listing.
// Never touches the dataset.
func (rt *Router) handleHelp(ctx context.Context, t *turn) []datatypes.Instruction {
	return []datatypes.Instruction{datatypes.Verbatim(rt.cfg.KB.CapabilityListing())}
}

// handleService declines off-topic service requests with a scoped
// disclaimer and a few on-topic suggestions.
func (rt *Router) handleService(ctx context.Context, t *turn) []datatypes.Instruction {
	var sb strings.Builder
	sb.WriteString("I only answer questions about your registered records, so I cannot help with that.")
	if prompts := rt.cfg.KB.Prompts; len(prompts) > 0 {
		sb.WriteString(" Here are some things I can do:\n")
		for _, p := range prompts {
			sb.WriteString("- ")
			sb.WriteString(p)
			sb.WriteString("\n")
		}
	}
	return []datatypes.Instruction{datatypes.Verbatim(strings.TrimRight(sb.String(), "\n"))}
}

// handleBrand serves knowledge-base answers.
func (rt *Router) handleBrand(ctx context.Context, t *turn) []datatypes.Instruction {
	if answer, ok := rt.cfg.KB.Lookup(t.text); ok {
		return []datatypes.Instruction{datatypes.Verbatim(answer)}
	}
	return []datatypes.Instruction{datatypes.Verbatim(rt.cfg.KB.BrandAnswer())}
}
