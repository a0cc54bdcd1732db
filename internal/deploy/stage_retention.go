// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package deploy

import (
	"os"
	"sort"
	"strconv"

	"github.com/easybill/easydep/internal/release"
)

// RetentionCleanup runs after a successful symlink flip: when retention is enabled, keeps only the
// newest maxStored release directories and recursively deletes the
// rest. Failures are logged and swallowed — retention must never fail
// an otherwise-successful deploy.
type RetentionCleanup struct {
	layout    *PathLayout
	maxStored int
}

func NewRetentionCleanup(layout *PathLayout, maxStored int) *RetentionCleanup {
	return &RetentionCleanup{layout: layout, maxStored: maxStored}
}

func (stage *RetentionCleanup) Name() string { return "RetentionCleanup" }

func (stage *RetentionCleanup) Execute(ctx *ExecutionContext, input any) (any, error) {
	rel, ok := input.(release.Release)
	if !ok {
		return nil, &EmptyStageOutputError{Stage: stage.Name()}
	}

	if stage.maxStored <= 0 {
		return rel, nil
	}

	entries, err := os.ReadDir(stage.layout.Root())
	if err != nil {
		ctx.Logger().Log(LevelWarn, "retention cleanup: listing deployments root failed", "error", err)
		return rel, nil
	}

	var ids []int64
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		id, err := strconv.ParseInt(entry.Name(), 10, 64)
		if err != nil || id <= 0 {
			continue // symlink and .cache_clone are excluded by not parsing as a positive integer
		}
		ids = append(ids, id)
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })
	if len(ids) <= stage.maxStored {
		return rel, nil
	}

	for _, id := range ids[stage.maxStored:] {
		dir := stage.layout.ReleaseDir(id)
		if err := removeTreeForced(dir); err != nil {
			ctx.Logger().Log(LevelWarn, "retention cleanup: removing old release directory failed", "dir", dir, "error", err)
		}
	}

	return rel, nil
}
