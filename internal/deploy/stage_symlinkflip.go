// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package deploy

import (
	"fmt"
	"os"
	"path/filepath"
)

// SymlinkFlip atomically replaces the current-release symlink
// to point at the release's directory, then creates any configured
// auxiliary symlinks inside it. Races are impossible because only one
// deployment mutates the filesystem at a time.
type SymlinkFlip struct {
	layout             *PathLayout
	additionalSymlinks map[string]string // relative name -> absolute target
}

func NewSymlinkFlip(layout *PathLayout, additionalSymlinks map[string]string) *SymlinkFlip {
	return &SymlinkFlip{layout: layout, additionalSymlinks: additionalSymlinks}
}

func (stage *SymlinkFlip) Name() string { return "SymlinkFlip" }

func (stage *SymlinkFlip) Execute(ctx *ExecutionContext, input any) (any, error) {
	pair, ok := input.(ReleaseWithPath)
	if !ok {
		return nil, &EmptyStageOutputError{Stage: stage.Name()}
	}

	currentLink := stage.layout.CurrentLink()
	if err := os.Remove(currentLink); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("removing existing current-release link %q: %w", currentLink, err)
	}
	if err := os.Symlink(pair.Path, currentLink); err != nil {
		return nil, fmt.Errorf("creating current-release link %q -> %q: %w", currentLink, pair.Path, err)
	}

	for relativeName, target := range stage.additionalSymlinks {
		linkPath := filepath.Join(pair.Path, relativeName)
		if err := os.Remove(linkPath); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("removing existing auxiliary link %q: %w", linkPath, err)
		}
		if err := os.Symlink(target, linkPath); err != nil {
			return nil, fmt.Errorf("creating auxiliary link %q -> %q: %w", linkPath, target, err)
		}
	}

	return pair.Release, nil
}
