// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package tokenlist parses the ";;"-delimited "key:value" records used
// by several EASYDEP_* environment variables and by label value sets.
package tokenlist

import (
	"log/slog"
	"regexp"
	"strings"
)

var recordPattern = regexp.MustCompile(`^([A-Za-z0-9_./\- ]+):(.+)$`)

// Parse splits input on literal ";;" into key/value records matching
// `^([A-Za-z0-9_./\- ]+):(.+)$`. Blank records are ignored. A record
// that does not match the pattern is dropped with a logged warning. A
// duplicate key logs a warning and keeps the first-seen value. Parsing
// blank, ";;", or whitespace-only input yields an empty map with no
// warnings.
func Parse(input string, logger *slog.Logger) map[string]string {
	result := make(map[string]string)
	if logger == nil {
		logger = slog.Default()
	}

	for _, record := range strings.Split(input, ";;") {
		if strings.TrimSpace(record) == "" {
			continue
		}

		matches := recordPattern.FindStringSubmatch(record)
		if matches == nil {
			logger.Warn("tokenlist: dropping malformed record", "record", record)
			continue
		}

		key, value := matches[1], matches[2]
		if _, exists := result[key]; exists {
			logger.Warn("tokenlist: duplicate key, keeping first value", "key", key)
			continue
		}
		result[key] = value
	}

	return result
}

// ParseSet splits input on ";;" like Parse, but treats each trimmed,
// non-blank record as a bare value (no key:value matching, no
// warnings) and returns the values as a set (used for label value
// lists, which are themselves ";;"-delimited).
func ParseSet(input string) map[string]struct{} {
	result := make(map[string]struct{})
	for _, value := range strings.Split(input, ";;") {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		result[trimmed] = struct{}{}
	}
	return result
}
