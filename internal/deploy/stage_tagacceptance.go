// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package deploy

import (
	"fmt"
	"regexp"

	"github.com/easybill/easydep/internal/labels"
	"github.com/easybill/easydep/internal/release"
)

// TagAcceptance extracts a structured config from the
// release body through a configured capture pattern, reads that
// config's "labels" policy, and cancels the chain when the release's
// label requirements conflict with the server's local label map. It
// never returns an error for a policy mismatch — mismatch is expressed
// purely through cancellation.
type TagAcceptance struct {
	bodyPattern *regexp.Regexp
	localLabels map[string]string
}

// NewTagAcceptance compiles bodyPattern (must contain at least one
// capture group; the first group's match is used) and binds the
// server's local label map.
func NewTagAcceptance(bodyPattern string, localLabels map[string]string) (*TagAcceptance, error) {
	compiled, err := regexp.Compile(bodyPattern)
	if err != nil {
		return nil, &ConfigError{Reason: fmt.Sprintf("compiling release body pattern %q: %v", bodyPattern, err)}
	}
	if compiled.NumSubexp() < 1 {
		return nil, &ConfigError{Reason: fmt.Sprintf("release body pattern %q has no capture group", bodyPattern)}
	}
	return &TagAcceptance{bodyPattern: compiled, localLabels: localLabels}, nil
}

func (stage *TagAcceptance) Name() string { return "TagAcceptance" }

func (stage *TagAcceptance) Execute(ctx *ExecutionContext, input any) (any, error) {
	rel, ok := input.(release.Release)
	if !ok {
		return nil, &EmptyStageOutputError{Stage: stage.Name()}
	}

	if rel.Body == "" {
		return rel, nil
	}

	match := stage.bodyPattern.FindStringSubmatch(rel.Body)
	if match == nil {
		ctx.Cancel()
		return nil, nil
	}
	captured := match[1]

	releaseLabels, err := labels.Parse(captured)
	if err != nil {
		ctx.Cancel()
		return nil, nil
	}

	if !labels.Accepts(stage.localLabels, releaseLabels) {
		ctx.Cancel()
		return nil, nil
	}

	return rel, nil
}
