// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package deploy

import (
	"fmt"

	"github.com/easybill/easydep/internal/gitrepo"
)

// Checkout opens the repository at the release's working
// directory, fetches tags (pruning deleted refs), and hard-resets the
// worktree to the release's tag. It runs synchronously and
// uninterruptibly — cancellation during Checkout is reversed by
// RepoInit's compensation deleting the release directory, not by
// Checkout itself.
type Checkout struct{}

func NewCheckout() *Checkout { return &Checkout{} }

func (stage *Checkout) Name() string { return "Checkout" }

func (stage *Checkout) Execute(ctx *ExecutionContext, input any) (any, error) {
	pair, ok := input.(ReleaseWithPath)
	if !ok {
		return nil, &EmptyStageOutputError{Stage: stage.Name()}
	}

	opened, err := gitrepo.OpenExisting(pair.Path)
	if err != nil {
		return nil, fmt.Errorf("opening release worktree: %w", err)
	}

	if err := opened.FetchTags(); err != nil {
		return nil, err
	}

	if err := opened.HardResetToTag(pair.Release.TagName); err != nil {
		return nil, err
	}

	return pair, nil
}
