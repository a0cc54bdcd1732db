// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package deploy

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/easybill/easydep/internal/release"
)

func seedReleaseDirs(t *testing.T, root string, ids ...int) {
	t.Helper()
	for _, id := range ids {
		dir := filepath.Join(root, strconv.Itoa(id))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %q: %v", dir, err)
		}
	}
}

func TestRetentionCleanupKeepsNewest(t *testing.T) {
	root := t.TempDir()
	seedReleaseDirs(t, root, 1, 2, 3, 4, 5)

	layout, err := NewPathLayout(root, "")
	if err != nil {
		t.Fatalf("NewPathLayout: %v", err)
	}
	stage := NewRetentionCleanup(layout, 2)
	ctx := NewExecutionContext(nil)

	output, err := stage.Execute(ctx, release.Release{ID: 5})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if output.(release.Release).ID != 5 {
		t.Errorf("Execute() output = %v", output)
	}

	for _, id := range []int{1, 2, 3} {
		if _, err := os.Stat(filepath.Join(root, strconv.Itoa(id))); !os.IsNotExist(err) {
			t.Errorf("release dir %d should have been removed", id)
		}
	}
	for _, id := range []int{4, 5} {
		if _, err := os.Stat(filepath.Join(root, strconv.Itoa(id))); err != nil {
			t.Errorf("release dir %d should have been kept: %v", id, err)
		}
	}
}

func TestRetentionCleanupDisabledWhenMaxIsZero(t *testing.T) {
	root := t.TempDir()
	seedReleaseDirs(t, root, 1, 2)

	layout, err := NewPathLayout(root, "")
	if err != nil {
		t.Fatalf("NewPathLayout: %v", err)
	}
	stage := NewRetentionCleanup(layout, 0)
	ctx := NewExecutionContext(nil)

	if _, err := stage.Execute(ctx, release.Release{ID: 2}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	for _, id := range []int{1, 2} {
		if _, err := os.Stat(filepath.Join(root, strconv.Itoa(id))); err != nil {
			t.Errorf("release dir %d should have been kept when retention is disabled: %v", id, err)
		}
	}
}

func TestRetentionCleanupIgnoresNonIntegerEntries(t *testing.T) {
	root := t.TempDir()
	seedReleaseDirs(t, root, 1, 2, 3)
	if err := os.MkdirAll(filepath.Join(root, ".cache_clone"), 0o755); err != nil {
		t.Fatalf("mkdir cache: %v", err)
	}
	if err := os.Symlink(filepath.Join(root, "3"), filepath.Join(root, "current")); err != nil {
		t.Fatalf("symlink: %v", err)
	}

	layout, err := NewPathLayout(root, "current")
	if err != nil {
		t.Fatalf("NewPathLayout: %v", err)
	}
	stage := NewRetentionCleanup(layout, 1)
	ctx := NewExecutionContext(nil)

	if _, err := stage.Execute(ctx, release.Release{ID: 3}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, ".cache_clone")); err != nil {
		t.Error(".cache_clone should never be touched by retention cleanup")
	}
}
