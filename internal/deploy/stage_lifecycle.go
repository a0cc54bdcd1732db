// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package deploy

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode"

	"github.com/easybill/easydep/internal/procutil"
)

// LifecycleScriptBridge is an optional stage, inserted early in the
// chain, that subscribes to the EventBus at priority 0 and invokes a
// matching `.easydep/<name>.sh` lifecycle script for each
// StageSucceeded, StageFailed, ChainFinished, and ChainFailed event. It
// never affects pipeline state — script failures are logged and
// otherwise ignored.
//
// The release directory does not exist yet when the bridge is
// inserted, so it tracks the directory dynamically: the first event
// whose Output carries a path (RepoInit's ReleaseWithPath onward)
// establishes it, and events before that point are simply skipped
// (there is nothing under .easydep to run yet).
type LifecycleScriptBridge struct {
	mu   sync.Mutex
	path string
}

func NewLifecycleScriptBridge() *LifecycleScriptBridge { return &LifecycleScriptBridge{} }

func (stage *LifecycleScriptBridge) Name() string { return "LifecycleScriptBridge" }

func (stage *LifecycleScriptBridge) Execute(ctx *ExecutionContext, input any) (any, error) {
	ctx.Events().Subscribe(EventStageSucceeded, 0, stage.onEvent(ctx))
	ctx.Events().Subscribe(EventStageFailed, 0, stage.onEvent(ctx))
	ctx.Events().Subscribe(EventChainFinished, 0, stage.onEvent(ctx))
	ctx.Events().Subscribe(EventChainFailed, 0, stage.onEvent(ctx))
	return input, nil
}

func (stage *LifecycleScriptBridge) onEvent(ctx *ExecutionContext) Subscriber {
	return func(event Event) {
		if path, ok := extractPath(event.Output); ok {
			stage.mu.Lock()
			stage.path = path
			stage.mu.Unlock()
		}

		stage.mu.Lock()
		path := stage.path
		stage.mu.Unlock()
		if path == "" {
			return
		}

		scriptName := lifecycleScriptName(event)
		scriptPath := filepath.Join(path, ".easydep", scriptName+".sh")
		if _, err := os.Stat(scriptPath); os.IsNotExist(err) {
			return
		}

		run, err := procutil.Spawn(scriptPath, path, scriptLogDirName)
		if err != nil {
			ctx.Logger().Log(LevelWarn, "lifecycle script failed to start", "script", scriptName, "error", err)
			return
		}

		exitCode, err := run.Wait()
		if err != nil {
			ctx.Logger().Log(LevelWarn, "lifecycle script wait failed", "script", scriptName, "error", err)
			return
		}
		ctx.Logger().Log(LevelInfo, "lifecycle script completed", "script", scriptName, "exit_code", exitCode, "log", run.LogPath())
	}
}

// extractPath recovers the release working-copy path from a stage's
// output, if that output is (or contains) one. Once RepoInit succeeds,
// every subsequent stage's output carries it.
func extractPath(output any) (string, bool) {
	switch value := output.(type) {
	case ReleaseWithPath:
		return value.Path, true
	default:
		return "", false
	}
}

// lifecycleScriptName computes the normalized script base name: the
// lifecycle kind, snake_cased, suffixed with ".<stage_name>" (also
// snake_cased) for the two per-stage event kinds.
func lifecycleScriptName(event Event) string {
	base := lifecycleKindName(event.Kind)
	if event.Kind == EventStageSucceeded || event.Kind == EventStageFailed {
		base += "." + toSnakeCase(event.StageName)
	}
	return base
}

func lifecycleKindName(kind EventKind) string {
	switch kind {
	case EventChainStarted:
		return "chain_started"
	case EventStageSucceeded:
		return "stage_succeeded"
	case EventStageFailed:
		return "stage_failed"
	case EventChainFinished:
		return "chain_finished"
	case EventChainFailed:
		return "chain_failed"
	default:
		return "unknown"
	}
}

// toSnakeCase converts a CamelCase stage display name (e.g.
// "DeployScript") to snake_case (e.g. "deploy_script").
func toSnakeCase(name string) string {
	var builder strings.Builder
	for i, r := range name {
		if unicode.IsUpper(r) && i > 0 {
			builder.WriteByte('_')
		}
		builder.WriteRune(unicode.ToLower(r))
	}
	return builder.String()
}
