// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package release

import "context"

// Source is the ReleaseSource collaborator: Poll returns the newest
// known release, or nil if none exists yet. Transport-level failures
// are returned as an error; the caller (ReleaseFeed) logs and retries.
type Source interface {
	Poll(ctx context.Context) (*Release, error)
}
