// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package githubapp

import (
	"bytes"
	"encoding/pem"
	"fmt"
	"regexp"
)

// singleLinePEM matches a PEM block that has been flattened onto one
// line with literal spaces where real PEM uses newlines — the shape
// EASYDEP_GITHUB_APP_PRIVATE_KEY accepts when a caller cannot embed
// newlines in an environment variable. Both the header/footer markers
// and the base64 body are separated by runs of spaces.
var singleLinePEM = regexp.MustCompile(`^-----BEGIN ([A-Z ]+)-----\s+(.+?)\s+-----END ([A-Z ]+)-----\s*$`)

// decodePEMBlock accepts either conventional multi-line PEM or the
// single-line-with-spaces variant and returns the decoded DER bytes.
func decodePEMBlock(input []byte) ([]byte, error) {
	if block, _ := pem.Decode(input); block != nil {
		return block.Bytes, nil
	}

	normalized, ok := normalizeSingleLinePEM(input)
	if !ok {
		return nil, fmt.Errorf("githubapp: could not decode PEM block (tried conventional and single-line forms)")
	}
	block, _ := pem.Decode(normalized)
	if block == nil {
		return nil, fmt.Errorf("githubapp: PEM block was recognized as single-line but failed to decode")
	}
	return block.Bytes, nil
}

// normalizeSingleLinePEM rewrites "-----BEGIN X----- <body, space
// separated> -----END X-----" into conventional newline-delimited PEM
// that encoding/pem.Decode understands. Body whitespace (the spaces
// standing in for line breaks) is collapsed before being rewrapped at
// the standard 64-character width.
func normalizeSingleLinePEM(input []byte) ([]byte, bool) {
	trimmed := bytes.TrimSpace(input)
	matches := singleLinePEM.FindSubmatch(trimmed)
	if matches == nil {
		return nil, false
	}

	label := string(matches[1])
	body := string(bytes.Join(bytes.Fields(matches[2]), nil))

	var out bytes.Buffer
	fmt.Fprintf(&out, "-----BEGIN %s-----\n", label)
	for i := 0; i < len(body); i += 64 {
		end := i + 64
		if end > len(body) {
			end = len(body)
		}
		out.WriteString(body[i:end])
		out.WriteByte('\n')
	}
	fmt.Fprintf(&out, "-----END %s-----\n", label)

	return out.Bytes(), true
}
