// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package deploy

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// copyTree recursively copies src to dst, preserving file modes. Used
// by RepoInit to materialize a release's working copy from the
// persistent clone cache without mutating the cache itself.
func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		relative, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, relative)

		info, err := entry.Info()
		if err != nil {
			return err
		}

		switch {
		case entry.IsDir():
			return os.MkdirAll(target, info.Mode().Perm())
		case info.Mode()&os.ModeSymlink != 0:
			linkTarget, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return os.Symlink(linkTarget, target)
		default:
			return copyFile(path, target, info.Mode().Perm())
		}
	})
}

func copyFile(src, dst string, mode os.FileMode) error {
	source, err := os.Open(src)
	if err != nil {
		return err
	}
	defer source.Close()

	destination, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer destination.Close()

	if _, err := io.Copy(destination, source); err != nil {
		return err
	}
	return destination.Close()
}

// removeTreeForced recursively deletes path, first walking it to clear
// any read-only mode bits that would otherwise make entries
// undeletable (a clone cache checkout can leave files non-writable).
func removeTreeForced(path string) error {
	walkErr := filepath.WalkDir(path, func(entryPath string, entry os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		info, err := entry.Info()
		if err != nil {
			return nil
		}
		mode := info.Mode()
		if mode&0o200 == 0 {
			_ = os.Chmod(entryPath, mode|0o200)
		}
		return nil
	})
	if walkErr != nil && !os.IsNotExist(walkErr) {
		return fmt.Errorf("deploy: clearing read-only bits under %q: %w", path, walkErr)
	}

	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("deploy: removing %q: %w", path, err)
	}
	return nil
}
