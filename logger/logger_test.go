// Copyright 2026 The go-ecuart Contributors.
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlogLogger_JSON(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	l := NewSlog(&buf, InfoLevel, FormatJSON, false)

	l.Debug("hidden")
	l.Info("exchange done", "command", "bat1._bst", "seq", 5)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "exchange done", rec["msg"])
	assert.Equal(t, "bat1._bst", rec["command"])
	assert.InDelta(t, 5, rec["seq"], 0)
	assert.Contains(t, rec, "ts")
	assert.NotContains(t, buf.String(), "hidden")
}

func TestSlogLogger_SetLevel(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	l := NewSlog(&buf, ErrorLevel, FormatJSON, false)
	assert.Equal(t, ErrorLevel, l.Level())

	l.Warn("dropped")
	assert.Zero(t, buf.Len())

	l.SetLevel(DebugLevel)
	assert.Equal(t, DebugLevel, l.Level())
	l.Debug("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestSlogLogger_WithSharesLevel(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	l := NewSlog(&buf, InfoLevel, FormatJSON, false)
	child := l.With("port", "/dev/ttyS4")

	l.SetLevel(ErrorLevel)
	child.Info("dropped")
	assert.Zero(t, buf.Len())

	child.Error("kept")
	assert.Contains(t, buf.String(), `"port":"/dev/ttyS4"`)
}

func TestSlogLogger_Console(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	l := NewSlog(&buf, InfoLevel, FormatConsole, false)

	l.Info("drained stale frames", "count", 2)
	assert.Contains(t, buf.String(), "drained stale frames")
	assert.Contains(t, buf.String(), "count")
}

func TestParseLevel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		want  Level
		known bool
	}{
		{name: "debug", want: DebugLevel, known: true},
		{name: "info", want: InfoLevel, known: true},
		{name: "", want: InfoLevel, known: true},
		{name: "warning", want: WarnLevel, known: true},
		{name: "error", want: ErrorLevel, known: true},
		{name: "verbose", want: InfoLevel, known: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := ParseLevel(tt.name)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.known, ok)
		})
	}
}
