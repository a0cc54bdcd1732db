// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package deploy

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestSlogLoggerForwardsLevelAndFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewSlogLogger(slog.New(slog.NewTextHandler(&buf, nil)))

	logger.Log(LevelWarn, "stage succeeded", "stage", "DeployScript", "release_id", 7)

	output := buf.String()
	if !strings.Contains(output, "level=WARN") {
		t.Errorf("output %q missing level=WARN", output)
	}
	if !strings.Contains(output, "stage succeeded") {
		t.Errorf("output %q missing message", output)
	}
	if !strings.Contains(output, "stage=DeployScript") {
		t.Errorf("output %q missing stage field", output)
	}
}

func TestNewSlogLoggerNilFallsBackToDefault(t *testing.T) {
	logger := NewSlogLogger(nil)
	if logger == nil {
		t.Fatal("NewSlogLogger(nil) returned nil")
	}
	logger.Log(LevelInfo, "no panic expected")
}

func TestNoopLoggerDiscardsEverything(t *testing.T) {
	var logger Logger = noopLogger{}
	logger.Log(LevelError, "should be discarded", "key", "value")
}
