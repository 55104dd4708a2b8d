// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package validation provides input validation utilities for
// security-critical operations. User-provided identifiers end up in
// store URLs and export filenames; validating them first prevents path
// traversal and injection.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// referencePattern matches record reference keys as they appear in the
// store: an alphanumeric prefix, then digits, optionally separated by
// dots or hyphens (AB-1042, TRN.20250017). Max length 32.
var referencePattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9.\-]{0,31}$`)

// ValidateReference validates a record reference key.
//
// Valid references:
//   - 1-32 characters
//   - Uppercase letters A-Z and digits 0-9
//   - Dots (.) and hyphens (-) as separators
//
// Returns an error if the reference is invalid.
func ValidateReference(ref string) error {
	if ref == "" {
		return fmt.Errorf("reference cannot be empty")
	}
	if !referencePattern.MatchString(ref) {
		return fmt.Errorf("invalid reference format: %q (must be 1-32 uppercase alphanumeric chars, dots, or hyphens)", ref)
	}
	return nil
}

// SanitizeReference normalizes and validates a reference key. Returns
// the uppercase reference if valid, or an error if invalid.
func SanitizeReference(ref string) (string, error) {
	normalized := strings.ToUpper(strings.TrimSpace(ref))
	if err := ValidateReference(normalized); err != nil {
		return "", err
	}
	return normalized, nil
}
