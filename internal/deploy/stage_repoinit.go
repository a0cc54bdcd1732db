// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package deploy

import (
	"context"
	"fmt"
	"os"

	"github.com/easybill/easydep/internal/gitrepo"
	"github.com/easybill/easydep/internal/release"
)

// RepoInit mints a fresh access token, clones the base cache on
// first use (or rewrites its remote URL on subsequent runs, since
// tokens rotate), copies the cache into the release directory, and
// registers a compensation that forcibly removes the release directory
// on cancel.
type RepoInit struct {
	layout  *PathLayout
	fetcher RepoFetcher
}

func NewRepoInit(layout *PathLayout, fetcher RepoFetcher) *RepoInit {
	return &RepoInit{layout: layout, fetcher: fetcher}
}

func (stage *RepoInit) Name() string { return "RepoInit" }

func (stage *RepoInit) Execute(ctx *ExecutionContext, input any) (any, error) {
	rel, ok := input.(release.Release)
	if !ok {
		return nil, &EmptyStageOutputError{Stage: stage.Name()}
	}

	token, err := stage.fetcher.AccessToken(context.Background())
	if err != nil {
		return nil, fmt.Errorf("minting access token: %w", err)
	}

	cachePath := stage.layout.CloneCache()
	if _, statErr := os.Stat(cachePath); os.IsNotExist(statErr) {
		if _, err := gitrepo.CloneBare(cachePath, rel.Owner, rel.RepoName, token); err != nil {
			// A half-populated cache would make every later deploy's
			// Open fail; removing it lets the next run retry the clone.
			_ = removeTreeForced(cachePath)
			return nil, err
		}
	} else {
		if _, err := gitrepo.Open(cachePath, rel.Owner, rel.RepoName, token); err != nil {
			return nil, err
		}
	}

	releaseDir := stage.layout.ReleaseDir(rel.ID)
	if err := os.MkdirAll(releaseDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating release directory %q: %w", releaseDir, err)
	}
	ctx.RegisterCompensation(func() {
		_ = removeTreeForced(releaseDir)
	})

	if err := copyTree(cachePath, releaseDir); err != nil {
		return nil, fmt.Errorf("copying clone cache into %q: %w", releaseDir, err)
	}

	return ReleaseWithPath{Release: rel, Path: releaseDir}, nil
}
