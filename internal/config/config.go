// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads easydep's configuration from EASYDEP_* environment
// variables. There is no file format and no fallback discovery — every
// value is either a required env var or has the documented default.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/easybill/easydep/internal/tokenlist"
)

// defaultPollIntervalMillis and its floor back EASYDEP_RELEASE_PULL_DELAY_MILLIS.
const (
	defaultPollIntervalMillis = 10000
	minPollIntervalMillis     = 100
)

// defaultRetention and its floor back EASYDEP_DEPLOY_DISCARDER_MAX.
const (
	defaultRetention = 10
	minRetention     = 2
)

const defaultCurrentLinkName = "current"
const defaultBodyParsePattern = `(?s)(.*)`

// Config is easydep's fully resolved, validated configuration.
type Config struct {
	GitHubAppID         int64
	GitHubPrivateKeyPEM []byte
	RepoOwner           string
	RepoName            string

	DeployRoot      string
	CurrentLinkName string

	// Labels is the server's local label map, parsed from the
	// EASYDEP_DEPLOY_LABELS token list.
	Labels map[string]string

	// AdditionalSymlinks maps a relative name (created inside the
	// release directory) to an absolute target path.
	AdditionalSymlinks map[string]string

	PollIntervalMillis int64
	MaxStoredReleases  int
	BodyParsePattern   string
}

// Load reads and validates configuration from the process environment.
// Returns an error (via errors.Join) naming every problem found, not
// just the first.
func Load(getenv func(string) string) (*Config, error) {
	if getenv == nil {
		getenv = os.Getenv
	}

	var problems []error

	appID := parseRequiredInt64(getenv("EASYDEP_GITHUB_APP_ID"), "EASYDEP_GITHUB_APP_ID", &problems)

	privateKeyRaw := getenv("EASYDEP_GITHUB_APP_PRIVATE_KEY")
	privateKeyPEM, keyErr := resolvePrivateKey(privateKeyRaw)
	if privateKeyRaw == "" {
		problems = append(problems, errors.New("EASYDEP_GITHUB_APP_PRIVATE_KEY is required"))
	} else if keyErr != nil {
		problems = append(problems, keyErr)
	}

	owner := getenv("EASYDEP_GITHUB_REPO_ORG")
	if owner == "" {
		problems = append(problems, errors.New("EASYDEP_GITHUB_REPO_ORG is required"))
	}

	repoName := getenv("EASYDEP_GITHUB_REPO_NAME")
	if repoName == "" {
		problems = append(problems, errors.New("EASYDEP_GITHUB_REPO_NAME is required"))
	}

	root := getenv("EASYDEP_DEPLOY_BASE_DIRECTORY")
	if root == "" {
		problems = append(problems, errors.New("EASYDEP_DEPLOY_BASE_DIRECTORY is required"))
	}

	linkName := getenv("EASYDEP_DEPLOY_LINK_DIRECTORY")
	if linkName == "" {
		linkName = defaultCurrentLinkName
	}

	pollMillis := parseOptionalInt64(getenv("EASYDEP_RELEASE_PULL_DELAY_MILLIS"), defaultPollIntervalMillis)
	if pollMillis < minPollIntervalMillis {
		pollMillis = minPollIntervalMillis
	}

	retention := int(parseOptionalInt64(getenv("EASYDEP_DEPLOY_DISCARDER_MAX"), defaultRetention))
	if retention > 0 && retention < minRetention {
		retention = minRetention
	}

	pattern := getenv("EASYDEP_RELEASE_BODY_PARSE_PATTERN")
	if pattern == "" {
		pattern = defaultBodyParsePattern
	}

	if len(problems) > 0 {
		return nil, errors.Join(problems...)
	}

	return &Config{
		GitHubAppID:         appID,
		GitHubPrivateKeyPEM: privateKeyPEM,
		RepoOwner:           owner,
		RepoName:            repoName,
		DeployRoot:          root,
		CurrentLinkName:     linkName,
		Labels:              tokenlist.Parse(getenv("EASYDEP_DEPLOY_LABELS"), slog.Default()),
		AdditionalSymlinks:  tokenlist.Parse(getenv("EASYDEP_DEPLOY_ADDITIONAL_SYMLINKS"), slog.Default()),
		PollIntervalMillis:  pollMillis,
		MaxStoredReleases:   retention,
		BodyParsePattern:    pattern,
	}, nil
}

func parseRequiredInt64(raw, name string, problems *[]error) int64 {
	if raw == "" {
		*problems = append(*problems, fmt.Errorf("%s is required", name))
		return 0
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		*problems = append(*problems, fmt.Errorf("%s: %q is not a valid integer", name, raw))
		return 0
	}
	return value
}

func parseOptionalInt64(raw string, fallback int64) int64 {
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fallback
	}
	return value
}

// resolvePrivateKey treats raw as either inline PEM content or a
// filesystem path to a PEM file, matching the env-var documentation's
// "PEM-encoded RSA private key OR filesystem path to one".
func resolvePrivateKey(raw string) ([]byte, error) {
	if raw == "" {
		return nil, nil
	}
	if strings.Contains(raw, "BEGIN") {
		return []byte(raw), nil
	}
	data, err := os.ReadFile(raw)
	if err != nil {
		return nil, fmt.Errorf("reading private key file %q: %w", raw, err)
	}
	return data, nil
}
