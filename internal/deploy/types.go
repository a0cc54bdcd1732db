// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package deploy

import (
	"context"

	"github.com/easybill/easydep/internal/release"
)

// ReleaseWithPath pairs a release with the on-disk directory its
// working copy lives in; it is the value the middle stages of the
// forward chain pass between themselves.
type ReleaseWithPath struct {
	Release release.Release
	Path    string
}

// RepoFetcher mints the short-lived access token RepoInit embeds in
// the clone/fetch URL.
type RepoFetcher interface {
	AccessToken(ctx context.Context) (string, error)
}

// RepoFetcherFunc adapts a plain function to RepoFetcher.
type RepoFetcherFunc func(ctx context.Context) (string, error)

func (f RepoFetcherFunc) AccessToken(ctx context.Context) (string, error) { return f(ctx) }
