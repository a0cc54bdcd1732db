// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package release

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.github.com"

// AccessTokenFunc mints a fresh bearer token for the next request. It
// is the core's RepoFetcher.accessToken() collaborator, reused here so
// the release feed authenticates the same way the fetch/checkout
// stages do.
type AccessTokenFunc func(ctx context.Context) (string, error)

// GitHubSource implements Source by polling a single repository's
// releases endpoint and returning the newest one. GitHub returns
// releases newest-first, so only the first page is fetched and its
// first non-draft element is returned.
type GitHubSource struct {
	owner, repo string
	baseURL     string
	httpClient  *http.Client
	accessToken AccessTokenFunc
}

// NewGitHubSource returns a Source polling owner/repo's releases.
func NewGitHubSource(owner, repo string, accessToken AccessTokenFunc, httpClient *http.Client, baseURL string) *GitHubSource {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &GitHubSource{
		owner:       owner,
		repo:        repo,
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpClient:  httpClient,
		accessToken: accessToken,
	}
}

type wireRelease struct {
	ID      int64  `json:"id"`
	TagName string `json:"tag_name"`
	Body    string `json:"body"`
	Draft   bool   `json:"draft"`
}

// Poll returns the newest non-draft release, or nil if the repository
// has none. A non-2xx response is returned as an *APIError; transport
// and decoding failures are returned as wrapped errors. The caller logs
// and retries either kind.
func (source *GitHubSource) Poll(ctx context.Context) (*Release, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/releases?per_page=10", source.baseURL, source.owner, source.repo)

	token, err := source.accessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("release: minting access token: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("release: building request: %w", err)
	}
	request.Header.Set("Authorization", "Bearer "+token)
	request.Header.Set("Accept", "application/vnd.github+json")

	response, err := source.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("release: requesting releases: %w", err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(io.LimitReader(response.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("release: reading response body: %w", err)
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return nil, parseAPIError(response.StatusCode, body)
	}

	var wireReleases []wireRelease
	if err := json.Unmarshal(body, &wireReleases); err != nil {
		return nil, fmt.Errorf("release: decoding releases response: %w", err)
	}

	for _, candidate := range wireReleases {
		if candidate.Draft {
			continue
		}
		return &Release{
			ID:       candidate.ID,
			TagName:  candidate.TagName,
			Owner:    source.owner,
			RepoName: source.repo,
			Body:     candidate.Body,
		}, nil
	}

	return nil, nil
}

// APIError represents a non-2xx response from the GitHub REST API.
type APIError struct {
	StatusCode int
	Message    string
}

func (err *APIError) Error() string {
	return fmt.Sprintf("release: github API HTTP %d: %s", err.StatusCode, err.Message)
}

func parseAPIError(statusCode int, body []byte) *APIError {
	apiError := &APIError{StatusCode: statusCode}

	var wireError struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &wireError) == nil && wireError.Message != "" {
		apiError.Message = wireError.Message
	} else {
		apiError.Message = string(body)
	}
	return apiError
}

// pollTimeout bounds a single poll request so a hung connection cannot
// block the feed loop indefinitely past its own interval.
const pollTimeout = 30 * time.Second

// WithPollTimeout derives a context bounded by pollTimeout from parent.
// ReleaseFeed wraps each Poll call with it.
func WithPollTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, pollTimeout)
}
