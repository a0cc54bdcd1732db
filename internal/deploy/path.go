// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package deploy

import (
	"fmt"
	"os"
	"path/filepath"
)

// cloneCacheDirName is the fixed name of the persistent base-clone cache
// directory inside the deployments root.
const cloneCacheDirName = ".cache_clone"

// defaultCurrentLinkName is used when the configuration does not
// override it.
const defaultCurrentLinkName = "current"

// PathLayout owns every absolute path the deployment engine touches. It
// is immutable after construction: root is normalized once, and every
// other path is derived from it with no further I/O until
// CreateIfMissing is called explicitly.
type PathLayout struct {
	root            string
	currentLinkName string
}

// NewPathLayout normalizes root to an absolute path and returns a
// PathLayout rooted there. currentLinkName defaults to "current" when
// empty. Returns a *ConfigError if root is empty or cannot be made
// absolute.
func NewPathLayout(root, currentLinkName string) (*PathLayout, error) {
	if root == "" {
		return nil, &ConfigError{Reason: "deployments root must not be empty"}
	}

	absolute, err := filepath.Abs(root)
	if err != nil {
		return nil, &ConfigError{Reason: fmt.Sprintf("resolving deployments root %q: %v", root, err)}
	}

	if currentLinkName == "" {
		currentLinkName = defaultCurrentLinkName
	}

	return &PathLayout{root: absolute, currentLinkName: currentLinkName}, nil
}

// Root returns the deployments root directory.
func (layout *PathLayout) Root() string { return layout.root }

// CloneCache returns the path of the persistent base-clone cache
// directory. The directory itself is not guaranteed to exist — RepoInit
// is responsible for distinguishing "never cloned" from "cache present".
func (layout *PathLayout) CloneCache() string {
	return filepath.Join(layout.root, cloneCacheDirName)
}

// ReleaseDir returns the per-release working-copy directory for the
// given release id. No I/O is performed.
func (layout *PathLayout) ReleaseDir(id int64) string {
	return filepath.Join(layout.root, fmt.Sprintf("%d", id))
}

// CurrentLink returns the path of the current-release symlink.
func (layout *PathLayout) CurrentLink() string {
	return filepath.Join(layout.root, layout.currentLinkName)
}

// CreateIfMissing creates root if it does not already exist. It does
// NOT create the clone-cache directory — that distinction lets RepoInit
// tell "never cloned" (directory absent) from "clone cache exists but is
// empty" (directory present).
func (layout *PathLayout) CreateIfMissing() error {
	if err := os.MkdirAll(layout.root, 0o755); err != nil {
		return &ConfigError{Reason: fmt.Sprintf("creating deployments root %q: %v", layout.root, err)}
	}
	return nil
}
