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

package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/surfacectl/go-ecuart"
)

func TestFile_MissingFileYieldsZero(t *testing.T) {
	t.Parallel()

	f := NewFile(filepath.Join(t.TempDir(), "nope", fileName))
	c, err := f.Load()
	require.NoError(t, err)
	assert.Equal(t, ecuart.Counters{}, c)
}

func TestFile_RoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), appDir, fileName)
	f := NewFile(path)
	want := ecuart.Counters{Sequence: 0xFF, Counter: 0xFFFF}

	require.NoError(t, f.Store(want))
	got, err := f.Load()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	require.NoError(t, f.Store(want.Advance()))
	got, err = f.Load()
	require.NoError(t, err)
	assert.Equal(t, ecuart.Counters{}, got)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files are cleaned up")
}

func TestFile_Format(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), fileName)
	f := NewFile(path)
	require.NoError(t, f.Store(ecuart.Counters{Sequence: 5, Counter: 7}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"seq": 5, "cnt": 7}`, string(data))
}

func TestFile_ReadsLegacyFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), ".counters.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"seq": 33, "cnt": 1025}`), 0o600))

	c, err := NewFile(path).Load()
	require.NoError(t, err)
	assert.Equal(t, ecuart.Counters{Sequence: 33, Counter: 1025}, c)
}

func TestFile_Corrupt(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data string
	}{
		{name: "not json", data: "seq=1"},
		{name: "sequence out of range", data: `{"seq": 256, "cnt": 0}`},
		{name: "counter out of range", data: `{"seq": 0, "cnt": 65536}`},
		{name: "negative", data: `{"seq": -1, "cnt": 0}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), fileName)
			require.NoError(t, os.WriteFile(path, []byte(tt.data), 0o600))

			_, err := NewFile(path).Load()
			require.ErrorIs(t, err, ErrCorrupt)
		})
	}
}

func TestFile_Lock(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), appDir, fileName)
	f := NewFile(path)

	unlock, err := f.Lock()
	require.NoError(t, err)
	assert.FileExists(t, path+".lock")
	require.NoError(t, unlock())

	// The lock can be taken again once released.
	unlock, err = f.Lock()
	require.NoError(t, err)
	require.NoError(t, unlock())
}

func TestDefaultPath(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", "/var/lib/state")
	assert.Equal(t, filepath.Join("/var/lib/state", appDir, fileName), DefaultPath())

	t.Setenv("XDG_STATE_HOME", "relative/ignored")
	t.Setenv("HOME", "/home/surface")
	assert.Equal(t, filepath.Join("/home/surface", ".local", "state", appDir, fileName), DefaultPath())
}

func TestMemory(t *testing.T) {
	t.Parallel()

	m := NewMemory(ecuart.Counters{Sequence: 1, Counter: 2})
	c, err := m.Load()
	require.NoError(t, err)
	assert.Equal(t, ecuart.Counters{Sequence: 1, Counter: 2}, c)

	require.NoError(t, m.Store(c.Advance()))
	c, err = m.Load()
	require.NoError(t, err)
	assert.Equal(t, ecuart.Counters{Sequence: 2, Counter: 3}, c)
	assert.Equal(t, 1, m.Stores())
}
