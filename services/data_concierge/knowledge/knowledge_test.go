// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package knowledge

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultLookup(t *testing.T) {
	b := Default()

	answer, ok := b.Lookup("Hey, WHO ARE YOU exactly?")
	if !ok {
		t.Fatal("expected a fact match")
	}
	if !strings.Contains(answer, "concierge") {
		t.Errorf("unexpected answer: %q", answer)
	}

	if _, ok := b.Lookup("how many rows in march"); ok {
		t.Error("dataset questions must not match the knowledge base")
	}
}

func TestCapabilityListing(t *testing.T) {
	got := Default().CapabilityListing()
	for _, want := range []string{"You can ask me to:", "compare an uploaded", "For example:"} {
		if !strings.Contains(got, want) {
			t.Errorf("listing missing %q:\n%s", want, got)
		}
	}
	if strings.HasSuffix(got, "\n") {
		t.Error("listing should not end with a trailing newline")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kb.yaml")
	doc := `
brand:
  name: Acme Records
facts:
  - keywords: ["opening hours"]
    answer: "We never close."
`
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	b, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if b.Brand.Name != "Acme Records" {
		t.Errorf("brand name = %q", b.Brand.Name)
	}
	// Unset sections keep their compiled-in values.
	if len(b.Capabilities) == 0 {
		t.Error("capabilities should survive a partial file")
	}
	if _, ok := b.Lookup("what are your opening hours?"); !ok {
		t.Error("file facts should replace the default fact table")
	}
}

func TestLoadMissingAndBroken(t *testing.T) {
	b, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("missing file should fall back to defaults: %v", err)
	}
	if b.Brand.Name == "" {
		t.Error("defaults expected for a missing file")
	}

	broken := filepath.Join(t.TempDir(), "broken.yaml")
	if err := os.WriteFile(broken, []byte(":\n :::"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(broken); err == nil {
		t.Error("a present but unparseable file is an error")
	}
}
