// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package deploy

import (
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/easybill/easydep/internal/release"
)

// ReleaseSupervisor serializes releases onto a single active chain at a
// time: it compares an incoming release id against the last one
// processed, cancels any in-flight deployment, and decides whether the
// new release starts a forward deploy, a rollback, or is ignored.
type ReleaseSupervisor struct {
	mu sync.Mutex // deployment_lock

	layout         *PathLayout
	forwardRunner  *PipelineRunner
	rollbackRunner *PipelineRunner
	logger         Logger

	lastExecutedID int64
	lastScheduled  *scheduledChain
}

type scheduledChain struct {
	release release.Release
	ctx     *ExecutionContext
}

// NewReleaseSupervisor returns a supervisor seeded with whatever
// release the current-release symlink already points at (-1 if the
// link is absent or its target directory name does not parse as an
// integer).
func NewReleaseSupervisor(layout *PathLayout, forwardRunner, rollbackRunner *PipelineRunner, logger Logger) *ReleaseSupervisor {
	if logger == nil {
		logger = noopLogger{}
	}
	return &ReleaseSupervisor{
		layout:         layout,
		forwardRunner:  forwardRunner,
		rollbackRunner: rollbackRunner,
		logger:         logger,
		lastExecutedID: readLastExecutedID(layout),
	}
}

func readLastExecutedID(layout *PathLayout) int64 {
	target, err := os.Readlink(layout.CurrentLink())
	if err != nil {
		return -1
	}
	id, err := strconv.ParseInt(filepath.Base(target), 10, 64)
	if err != nil {
		return -1
	}
	return id
}

// LastExecutedID returns the most recently accepted release id (-1 if
// none yet).
func (supervisor *ReleaseSupervisor) LastExecutedID() int64 {
	supervisor.mu.Lock()
	defer supervisor.mu.Unlock()
	return supervisor.lastExecutedID
}

// Enqueue decides what to do with rel: a higher id than the last
// executed one starts a forward deploy, a lower one a rollback (or a
// forward deploy if the old directory is gone), an equal one is a
// no-op. Any in-flight chain is cancelled first.
func (supervisor *ReleaseSupervisor) Enqueue(rel release.Release) {
	supervisor.mu.Lock()
	defer supervisor.mu.Unlock()

	switch {
	case rel.ID > supervisor.lastExecutedID:
		supervisor.lastExecutedID = rel.ID
		supervisor.cancelCurrentLocked()
		supervisor.startForwardLocked(rel)

	case rel.ID < supervisor.lastExecutedID:
		supervisor.lastExecutedID = rel.ID
		supervisor.cancelCurrentLocked()

		dir := supervisor.layout.ReleaseDir(rel.ID)
		if _, err := os.Stat(dir); err == nil {
			supervisor.startRollbackLocked(rel, dir)
		} else {
			supervisor.startForwardLocked(rel)
		}

	default:
		// Equal id: no-op.
	}
}

func (supervisor *ReleaseSupervisor) cancelCurrentLocked() {
	if supervisor.lastScheduled == nil {
		return
	}
	supervisor.lastScheduled.ctx.Cancel()
	supervisor.lastScheduled = nil
}

func (supervisor *ReleaseSupervisor) startForwardLocked(rel release.Release) {
	ctx := NewExecutionContext(supervisor.logger)
	supervisor.lastScheduled = &scheduledChain{release: rel, ctx: ctx}
	supervisor.forwardRunner.Start(ctx, 0, rel)
}

func (supervisor *ReleaseSupervisor) startRollbackLocked(rel release.Release, dir string) {
	ctx := NewExecutionContext(supervisor.logger)
	supervisor.lastScheduled = &scheduledChain{release: rel, ctx: ctx}
	supervisor.rollbackRunner.Start(ctx, 0, ReleaseWithPath{Release: rel, Path: dir})
}
