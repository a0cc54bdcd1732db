// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package deploy

import (
	"fmt"
	"os"
	"path/filepath"
)

// WorkingCopyCleanup removes the ".git" metadata directory from the
// release working copy so the deploy script cannot invoke VCS commands
// against it. Idempotent.
type WorkingCopyCleanup struct{}

func NewWorkingCopyCleanup() *WorkingCopyCleanup { return &WorkingCopyCleanup{} }

func (stage *WorkingCopyCleanup) Name() string { return "WorkingCopyCleanup" }

func (stage *WorkingCopyCleanup) Execute(ctx *ExecutionContext, input any) (any, error) {
	pair, ok := input.(ReleaseWithPath)
	if !ok {
		return nil, &EmptyStageOutputError{Stage: stage.Name()}
	}

	gitDir := filepath.Join(pair.Path, ".git")
	if err := removeTreeForced(gitDir); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("removing VCS metadata at %q: %w", gitDir, err)
	}

	return pair, nil
}
