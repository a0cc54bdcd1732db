// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package deploy

// Stage is one linear step of a deployment chain. Execute receives the previous stage's output (the seed input
// passed to Start for the first stage) and either returns the value handed to the next stage or an
// error that aborts the chain. A stage that needs to suspend calls
// ctx.AwaitAsync from within Execute; AwaitAsync blocks that call until
// resolved or cancelled, so Execute's own return is always the chain's
// next step — there is no separate resume entry point.
type Stage interface {
	Name() string
	Execute(ctx *ExecutionContext, input any) (any, error)
}

// PipelineRunner drives a fixed, ordered slice of stages against a
// single ExecutionContext. A ReleaseSupervisor reuses the same forward
// and rollback runners for every chain it starts, each with a fresh
// ExecutionContext; a runner holds no state beyond the stage list itself.
type PipelineRunner struct {
	stages []Stage
	logger Logger
}

// NewPipelineRunner returns a runner over stages, executed in order. A
// nil logger is replaced with a no-op logger.
func NewPipelineRunner(stages []Stage, logger Logger) *PipelineRunner {
	if logger == nil {
		logger = noopLogger{}
	}
	return &PipelineRunner{stages: stages, logger: logger}
}

// Start runs the chain beginning at stages[resumeAt] with the given
// seed input, on a new goroutine owned by ctx. It returns immediately;
// callers observe completion via ctx.Wait() or ctx.Done(). resumeAt is
// the index of the first stage to run; the ReleaseSupervisor always
// passes 0, for forward and rollback chains alike.
//
// Start must be called at most once per ExecutionContext; a second call
// is a no-op.
func (r *PipelineRunner) Start(ctx *ExecutionContext, resumeAt int, input any) {
	ctx.scheduleOnce.Do(func() {
		ctx.mu.Lock()
		if ctx.state != StateReady {
			ctx.mu.Unlock()
			return
		}
		ctx.state = StateRunning
		ctx.mu.Unlock()

		go r.run(ctx, resumeAt, input)
	})
}

func (r *PipelineRunner) run(ctx *ExecutionContext, resumeAt int, input any) {
	r.logger.Log(LevelInfo, "chain started", "resume_at", resumeAt)
	ctx.events.Publish(Event{Kind: EventChainStarted})

	current := input
	for index := resumeAt; index < len(r.stages); index++ {
		stage := r.stages[index]

		if ctx.cancelled() {
			r.finishCancelled(ctx, stage.Name())
			return
		}

		if index > resumeAt && current == nil {
			err := &EmptyStageOutputError{Stage: stage.Name()}
			r.finishFailed(ctx, stage.Name(), err)
			return
		}

		output, err := stage.Execute(ctx, current)

		if err != nil {
			ctx.clearInfo()
			if IsCancelled(err) {
				r.finishCancelled(ctx, stage.Name())
				return
			}
			wrapped := &StageError{Stage: stage.Name(), Cause: err}
			r.logger.Log(LevelError, "stage failed", "stage", stage.Name(), "error", err)
			ctx.events.Publish(Event{Kind: EventStageFailed, StageName: stage.Name(), Err: wrapped})
			r.finishFailed(ctx, stage.Name(), wrapped)
			return
		}

		// A stage may cancel the context itself (e.g. TagAcceptance on a
		// label-policy mismatch) without returning an error: policy
		// rejection is expressed purely through cancellation.
		if ctx.cancelled() {
			ctx.clearInfo()
			r.finishCancelled(ctx, stage.Name())
			return
		}

		r.logger.Log(LevelInfo, "stage succeeded", "stage", stage.Name())
		// Info set by this stage stays visible to EventStageSucceeded
		// subscribers; it is only cleared once they've had a chance to
		// observe it, so it never leaks into the next stage's Execute.
		ctx.events.Publish(Event{Kind: EventStageSucceeded, StageName: stage.Name(), Output: output})
		ctx.clearInfo()
		current = output
	}

	ctx.mu.Lock()
	ctx.state = StateDone
	ctx.mu.Unlock()

	r.logger.Log(LevelInfo, "chain finished")
	ctx.events.Publish(Event{Kind: EventChainFinished, Output: current})
	ctx.complete(current, nil)
}

func (r *PipelineRunner) finishCancelled(ctx *ExecutionContext, stageName string) {
	ctx.mu.Lock()
	ctx.state = StateCancelled
	ctx.mu.Unlock()

	r.logger.Log(LevelWarn, "chain cancelled", "stage", stageName)
	ctx.runCompensations()
	ctx.events.Publish(Event{Kind: EventChainFailed, StageName: stageName, Err: Cancelled})
	ctx.complete(nil, Cancelled)
}

func (r *PipelineRunner) finishFailed(ctx *ExecutionContext, stageName string, err error) {
	ctx.mu.Lock()
	ctx.state = StateDone
	ctx.mu.Unlock()

	r.logger.Log(LevelError, "chain failed", "stage", stageName, "error", err)
	ctx.runCompensations()
	ctx.events.Publish(Event{Kind: EventChainFailed, StageName: stageName, Err: err})
	ctx.complete(nil, err)
}
