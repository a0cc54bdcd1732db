// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package deploy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/easybill/easydep/internal/release"
)

func TestSymlinkFlipCreatesCurrentLink(t *testing.T) {
	root := t.TempDir()
	layout, err := NewPathLayout(root, "current")
	if err != nil {
		t.Fatalf("NewPathLayout: %v", err)
	}
	releaseDir := filepath.Join(root, "5")
	if err := os.MkdirAll(releaseDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	stage := NewSymlinkFlip(layout, nil)
	ctx := NewExecutionContext(nil)
	pair := ReleaseWithPath{Release: release.Release{ID: 5}, Path: releaseDir}

	output, err := stage.Execute(ctx, pair)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if output != pair.Release {
		t.Errorf("Execute() output = %v, want %v", output, pair.Release)
	}

	target, err := os.Readlink(layout.CurrentLink())
	if err != nil {
		t.Fatalf("Readlink: %v", err)
	}
	if target != releaseDir {
		t.Errorf("current link target = %q, want %q", target, releaseDir)
	}
}

func TestSymlinkFlipReplacesExistingLink(t *testing.T) {
	root := t.TempDir()
	layout, err := NewPathLayout(root, "current")
	if err != nil {
		t.Fatalf("NewPathLayout: %v", err)
	}

	oldDir := filepath.Join(root, "4")
	newDir := filepath.Join(root, "5")
	for _, dir := range []string{oldDir, newDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %q: %v", dir, err)
		}
	}
	if err := os.Symlink(oldDir, layout.CurrentLink()); err != nil {
		t.Fatalf("seeding current link: %v", err)
	}

	stage := NewSymlinkFlip(layout, nil)
	ctx := NewExecutionContext(nil)
	pair := ReleaseWithPath{Release: release.Release{ID: 5}, Path: newDir}

	if _, err := stage.Execute(ctx, pair); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	target, err := os.Readlink(layout.CurrentLink())
	if err != nil {
		t.Fatalf("Readlink: %v", err)
	}
	if target != newDir {
		t.Errorf("current link target = %q, want %q", target, newDir)
	}
}

func TestSymlinkFlipCreatesAuxiliarySymlinks(t *testing.T) {
	root := t.TempDir()
	layout, err := NewPathLayout(root, "current")
	if err != nil {
		t.Fatalf("NewPathLayout: %v", err)
	}
	releaseDir := filepath.Join(root, "5")
	if err := os.MkdirAll(releaseDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	sharedTarget := filepath.Join(root, "shared")
	if err := os.MkdirAll(sharedTarget, 0o755); err != nil {
		t.Fatalf("mkdir shared: %v", err)
	}

	stage := NewSymlinkFlip(layout, map[string]string{"shared": sharedTarget})
	ctx := NewExecutionContext(nil)
	pair := ReleaseWithPath{Release: release.Release{ID: 5}, Path: releaseDir}

	if _, err := stage.Execute(ctx, pair); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	target, err := os.Readlink(filepath.Join(releaseDir, "shared"))
	if err != nil {
		t.Fatalf("Readlink(shared): %v", err)
	}
	if target != sharedTarget {
		t.Errorf("auxiliary link target = %q, want %q", target, sharedTarget)
	}
}
