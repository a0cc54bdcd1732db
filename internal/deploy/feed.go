// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package deploy

import (
	"context"
	"time"

	"github.com/easybill/easydep/internal/clock"
	"github.com/easybill/easydep/internal/release"
)

// minPollInterval is the floor applied to the poll interval,
// regardless of configuration.
const minPollInterval = 100 * time.Millisecond

// ReleaseFeed periodically polls a release.Source and hands whatever it
// finds to a ReleaseSupervisor. I/O errors are logged and swallowed —
// the next tick retries.
type ReleaseFeed struct {
	source       release.Source
	supervisor   *ReleaseSupervisor
	pollInterval time.Duration
	logger       Logger
	clock        clock.Clock
}

// NewReleaseFeed returns a feed polling source every pollInterval,
// floor-clamped to minPollInterval.
func NewReleaseFeed(source release.Source, supervisor *ReleaseSupervisor, pollInterval time.Duration, logger Logger, clk clock.Clock) *ReleaseFeed {
	if pollInterval < minPollInterval {
		pollInterval = minPollInterval
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &ReleaseFeed{
		source:       source,
		supervisor:   supervisor,
		pollInterval: pollInterval,
		logger:       logger,
		clock:        clk,
	}
}

// Run loops until ctx is cancelled, polling the source, enqueuing any
// release found, and sleeping pollInterval between ticks. Returns once
// ctx is done.
func (feed *ReleaseFeed) Run(ctx context.Context) {
	for {
		pollCtx, cancel := release.WithPollTimeout(ctx)
		rel, err := feed.source.Poll(pollCtx)
		cancel()
		if err != nil {
			wrapped := &SourceUnavailableError{Cause: err}
			feed.logger.Log(LevelWarn, "release feed: poll failed, will retry", "error", wrapped)
		} else if rel != nil {
			feed.supervisor.Enqueue(*rel)
		}

		select {
		case <-ctx.Done():
			return
		case <-feed.clock.After(feed.pollInterval):
		}
	}
}
