// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package labels parses the TOML-family "labels = { ... }" markup
// embedded in a release body and evaluates it against the server's
// locally configured label map.
package labels

import (
	"fmt"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/easybill/easydep/internal/tokenlist"
)

// document is the single recognized TOML shape: a top-level "labels"
// table mapping a (possibly "?"-suffixed) key name to a ";;"-delimited
// value set.
type document struct {
	Labels map[string]string `toml:"labels"`
}

// Parse decodes body as the label markup and returns the raw labels
// table (keys still carry their "?" optionality suffix, values are
// still ";;"-joined). An empty or whitespace-only body, or one that
// does not mention "labels" at all, yields an empty map with no error —
// most releases carry no label policy at all. Any other body must be
// valid TOML.
func Parse(body string) (map[string]string, error) {
	if strings.TrimSpace(body) == "" || !strings.Contains(body, "labels") {
		return map[string]string{}, nil
	}

	var doc document
	if err := toml.Unmarshal([]byte(body), &doc); err != nil {
		return nil, fmt.Errorf("labels: parsing release body markup: %w", err)
	}
	if doc.Labels == nil {
		return map[string]string{}, nil
	}
	return doc.Labels, nil
}

// Accepts evaluates the server's local label map against a release's
// parsed label table and reports whether the release should be
// accepted. It cancels (returns false) iff there exists a release key
// k with a non-empty disallowed-value set for which either k is
// required and absent from local, or k is present locally but local's
// value is not among k's allowed values.
func Accepts(local map[string]string, releaseLabels map[string]string) bool {
	for rawKey, rawValues := range releaseLabels {
		optional := strings.HasSuffix(rawKey, "?")
		key := strings.TrimSuffix(rawKey, "?")

		allowed := tokenlist.ParseSet(rawValues)
		if len(allowed) == 0 {
			continue
		}

		localValue, present := local[key]
		if !present {
			if optional {
				continue
			}
			return false
		}

		if _, ok := allowed[localValue]; !ok {
			return false
		}
	}
	return true
}
