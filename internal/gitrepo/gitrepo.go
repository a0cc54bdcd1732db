// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package gitrepo wraps go-git/v5 with the small set of operations the
// repo-init and checkout stages need: clone-or-open a token-authenticated
// remote, fetch with pruning, and hard-reset the worktree to a tag.
package gitrepo

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
)

// DefaultRemoteName is the remote go-git attaches on clone.
const DefaultRemoteName = "origin"

// Repo wraps a go-git repository opened from, or cloned into, a local
// directory.
type Repo struct {
	repo *git.Repository
	path string
}

// remoteURL builds an HTTPS remote URL embedding a short-lived access
// token, the shape GitHub's "x-access-token" scheme expects.
func remoteURL(owner, name, accessToken string) string {
	return fmt.Sprintf("https://x-access-token:%s@github.com/%s/%s.git", accessToken, owner, name)
}

// CloneBare clones owner/repo into dir with no working-tree checkout
// (NoCheckout), minimizing the cost of maintaining the persistent
// clone cache. dir must not already contain a repository.
func CloneBare(dir, owner, name, accessToken string) (*Repo, error) {
	repo, err := git.PlainClone(dir, false, &git.CloneOptions{
		URL:        remoteURL(owner, name, accessToken),
		NoCheckout: true,
	})
	if err != nil {
		return nil, fmt.Errorf("gitrepo: cloning %s/%s into %q: %w", owner, name, dir, err)
	}
	return &Repo{repo: repo, path: dir}, nil
}

// OpenExisting opens an already-checked-out release directory without
// touching its remote configuration. Used by the checkout stage, which
// runs after RepoInit has already embedded a fresh token in the remote
// URL — that token remains valid for the rest of this deploy.
func OpenExisting(dir string) (*Repo, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return nil, fmt.Errorf("gitrepo: opening %q: %w", dir, err)
	}
	return &Repo{repo: repo, path: dir}, nil
}

// Open opens an existing repository at dir and rewrites origin's URL to
// embed a freshly minted access token — tokens rotate on every repo-init
// run, so the remote config must be kept current.
func Open(dir, owner, name, accessToken string) (*Repo, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return nil, fmt.Errorf("gitrepo: opening %q: %w", dir, err)
	}

	url := remoteURL(owner, name, accessToken)
	if err := repo.DeleteRemote(DefaultRemoteName); err != nil && !errors.Is(err, git.ErrRemoteNotFound) {
		return nil, fmt.Errorf("gitrepo: removing stale remote in %q: %w", dir, err)
	}
	if _, err := repo.CreateRemote(&config.RemoteConfig{Name: DefaultRemoteName, URLs: []string{url}}); err != nil {
		return nil, fmt.Errorf("gitrepo: recreating remote in %q: %w", dir, err)
	}

	return &Repo{repo: repo, path: dir}, nil
}

// Exists reports whether dir already contains a git repository.
func Exists(dir string) bool {
	_, err := os.Stat(dir + "/HEAD")
	if err == nil {
		return true
	}
	_, err = os.Stat(dir + "/.git")
	return err == nil
}

// FetchTags fetches every tag from origin and prunes refs deleted on
// the remote side.
func (repo *Repo) FetchTags() error {
	err := repo.repo.Fetch(&git.FetchOptions{
		RemoteName: DefaultRemoteName,
		Tags:       git.AllTags,
		Prune:      true,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("gitrepo: fetching tags in %q: %w", repo.path, err)
	}
	return nil
}

// HardResetToTag resolves tagName and hard-resets the worktree to it,
// discarding any local modifications (the working copy is always
// freshly copied from the clone cache, so there is never legitimate
// local state to preserve).
func (repo *Repo) HardResetToTag(tagName string) error {
	ref, err := repo.repo.Tag(tagName)
	if err != nil {
		return fmt.Errorf("gitrepo: resolving tag %q in %q: %w", tagName, repo.path, err)
	}

	tagObject, err := repo.repo.TagObject(ref.Hash())
	commitHash := ref.Hash()
	if err == nil {
		commit, resolveErr := tagObject.Commit()
		if resolveErr != nil {
			return fmt.Errorf("gitrepo: resolving annotated tag %q in %q: %w", tagName, repo.path, resolveErr)
		}
		commitHash = commit.Hash
	}

	worktree, err := repo.repo.Worktree()
	if err != nil {
		return fmt.Errorf("gitrepo: acquiring worktree in %q: %w", repo.path, err)
	}

	if err := worktree.Reset(&git.ResetOptions{Commit: commitHash, Mode: git.HardReset}); err != nil {
		return fmt.Errorf("gitrepo: hard-resetting %q to %q: %w", repo.path, tagName, err)
	}
	return nil
}
