// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tokenlist

import (
	"log/slog"
	"reflect"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  map[string]string
	}{
		{name: "empty", input: "", want: map[string]string{}},
		{name: "whitespace only", input: "   ", want: map[string]string{}},
		{name: "single record", input: "env:production", want: map[string]string{"env": "production"}},
		{
			name:  "multiple records",
			input: "env:production;;region:eu-west-1",
			want:  map[string]string{"env": "production", "region": "eu-west-1"},
		},
		{
			name:  "blank records ignored",
			input: "env:production;;;;region:eu-west-1",
			want:  map[string]string{"env": "production", "region": "eu-west-1"},
		},
		{
			name:  "malformed record dropped",
			input: "env:production;;not-a-record;;region:eu-west-1",
			want:  map[string]string{"env": "production", "region": "eu-west-1"},
		},
		{
			name:  "duplicate key keeps first",
			input: "env:production;;env:staging",
			want:  map[string]string{"env": "production"},
		},
		{
			name:  "value may contain colons",
			input: "path:/a/b:c",
			want:  map[string]string{"path": "/a/b:c"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.input, slog.Default())
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Parse(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseSet(t *testing.T) {
	got := ParseSet("a;; b ;;a;;")
	want := map[string]struct{}{"a": {}, "b": {}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseSet() = %v, want %v", got, want)
	}
}

func TestParseNilLogger(t *testing.T) {
	got := Parse("a:b", nil)
	if got["a"] != "b" {
		t.Errorf("Parse with nil logger = %v, want a:b", got)
	}
}
