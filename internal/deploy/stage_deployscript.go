// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package deploy

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/easybill/easydep/internal/procutil"
)

const scriptLogDirName = ".scriptlog"
const tailPollInterval = 200 * time.Millisecond

// DeployScript runs `<path>/.easydep/execute.sh` if present,
// captures its merged stdout/stderr to a log file, streams that log to
// the logger as it's written, and fails the stage on non-zero exit. A
// missing script is not an error — the stage skips with an info log.
type DeployScript struct{}

func NewDeployScript() *DeployScript { return &DeployScript{} }

func (stage *DeployScript) Name() string { return "DeployScript" }

func (stage *DeployScript) Execute(ctx *ExecutionContext, input any) (any, error) {
	pair, ok := input.(ReleaseWithPath)
	if !ok {
		return nil, &EmptyStageOutputError{Stage: stage.Name()}
	}

	scriptPath := filepath.Join(pair.Path, ".easydep", "execute.sh")
	if _, err := os.Stat(scriptPath); os.IsNotExist(err) {
		ctx.Logger().Log(LevelInfo, "no deploy script present, skipping", "path", scriptPath)
		return pair, nil
	}

	return runScriptStage(ctx, pair, scriptPath)
}

// runScriptStage spawns scriptPath, registers a forceful-kill
// compensation and ChainFailed subscriber, tails its log to the
// logger, and awaits its exit via ctx.AwaitAsync. LifecycleScriptBridge
// does not use it: it spawns its scripts through procutil directly and
// waits for them without affecting pipeline state.
func runScriptStage(ctx *ExecutionContext, pair ReleaseWithPath, scriptPath string) (any, error) {
	run, err := procutil.Spawn(scriptPath, pair.Path, scriptLogDirName)
	if err != nil {
		return nil, fmt.Errorf("spawning %q: %w", scriptPath, err)
	}

	ctx.RegisterCompensation(run.Kill)
	ctx.Events().Subscribe(EventChainFailed, 0, func(Event) { run.Kill() })

	scopeTag := fmt.Sprintf("easydep.%d", pair.Release.ID)
	stopTail := make(chan struct{})
	go func() {
		_ = procutil.TailLines(run.LogPath(), stopTail, tailPollInterval, func(line string) {
			ctx.Logger().Log(LevelInfo, line, "scope", scopeTag)
		})
	}()

	result, err := ctx.AwaitAsync(AsyncOp{
		Run: func() (any, error) {
			exitCode, waitErr := run.Wait()
			if waitErr != nil {
				return nil, waitErr
			}
			return exitCode, nil
		},
		Abort: run.Kill,
	})
	close(stopTail)

	if err != nil {
		return nil, err
	}

	scriptBaseName := strings.TrimSuffix(filepath.Base(scriptPath), ".sh")
	ctx.SetInfo(fmt.Sprintf("easydep_%s_log", scriptBaseName), run.LogPath())

	exitCode, _ := result.(int)
	if exitCode != 0 {
		return nil, &ScriptExitError{Code: exitCode}
	}

	return pair, nil
}
