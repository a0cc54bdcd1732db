// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package deploy

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewPathLayoutRejectsEmptyRoot(t *testing.T) {
	if _, err := NewPathLayout("", ""); err == nil {
		t.Fatal("NewPathLayout(\"\") expected error")
	}
}

func TestNewPathLayoutDefaultsLinkName(t *testing.T) {
	layout, err := NewPathLayout(t.TempDir(), "")
	if err != nil {
		t.Fatalf("NewPathLayout: %v", err)
	}
	if filepath.Base(layout.CurrentLink()) != defaultCurrentLinkName {
		t.Errorf("CurrentLink() base = %q, want %q", filepath.Base(layout.CurrentLink()), defaultCurrentLinkName)
	}
}

func TestPathLayoutDerivedPaths(t *testing.T) {
	root := t.TempDir()
	layout, err := NewPathLayout(root, "live")
	if err != nil {
		t.Fatalf("NewPathLayout: %v", err)
	}

	if layout.Root() != root {
		t.Errorf("Root() = %q, want %q", layout.Root(), root)
	}
	if want := filepath.Join(root, ".cache_clone"); layout.CloneCache() != want {
		t.Errorf("CloneCache() = %q, want %q", layout.CloneCache(), want)
	}
	if want := filepath.Join(root, "42"); layout.ReleaseDir(42) != want {
		t.Errorf("ReleaseDir(42) = %q, want %q", layout.ReleaseDir(42), want)
	}
	if want := filepath.Join(root, "live"); layout.CurrentLink() != want {
		t.Errorf("CurrentLink() = %q, want %q", layout.CurrentLink(), want)
	}
}

func TestCreateIfMissing(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nested", "deployments")
	layout, err := NewPathLayout(root, "")
	if err != nil {
		t.Fatalf("NewPathLayout: %v", err)
	}

	if err := layout.CreateIfMissing(); err != nil {
		t.Fatalf("CreateIfMissing: %v", err)
	}
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		t.Errorf("root %q was not created as a directory", root)
	}

	// Calling it again must not error.
	if err := layout.CreateIfMissing(); err != nil {
		t.Errorf("second CreateIfMissing: %v", err)
	}
}
