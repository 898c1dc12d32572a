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

// Package store persists the EC protocol counters between processes.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/surfacectl/go-ecuart"
	"github.com/surfacectl/go-ecuart/internal/syncutil"
)

// ErrCorrupt is returned when the counters file cannot be decoded.
var ErrCorrupt = errors.New("counters file is corrupt")

const (
	appDir   = "ecctl"
	fileName = "counters.json"
)

// DefaultPath returns $XDG_STATE_HOME/ecctl/counters.json, falling back to
// ~/.local/state and finally to the working directory.
func DefaultPath() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" && filepath.IsAbs(dir) {
		return filepath.Join(dir, appDir, fileName)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "state", appDir, fileName)
	}
	return "." + fileName
}

// File stores counters as {"seq": N, "cnt": M} JSON.
//
// Writes replace the file atomically. Load and Store do not lock; hold Lock
// across a whole exchange so concurrent processes never reuse counters.
type File struct {
	path string
	mu   syncutil.Mutex
}

var _ ecuart.CounterStore = (*File)(nil)

// NewFile returns a store backed by path.
func NewFile(path string) *File {
	return &File{path: path}
}

// Path returns the counters file path.
func (f *File) Path() string {
	return f.path
}

// Load reads the counters. A missing file yields zero counters.
func (f *File) Load() (ecuart.Counters, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return ecuart.Counters{}, nil
	}
	if err != nil {
		return ecuart.Counters{}, fmt.Errorf("read counters: %w", err)
	}

	var c ecuart.Counters
	if err := json.Unmarshal(data, &c); err != nil {
		return ecuart.Counters{}, fmt.Errorf("%w: %s: %w", ErrCorrupt, f.path, err)
	}
	return c, nil
}

// Store writes the counters through a temporary file and rename.
func (f *File) Store(c ecuart.Counters) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode counters: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(f.path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write counters: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync counters: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close counters: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replace counters: %w", err)
	}
	return nil
}

// Lock takes an exclusive advisory lock on a sibling ".lock" file, blocking
// until it is available. The returned function releases it.
func (f *File) Lock() (unlock func() error, err error) {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}

	lf, err := os.OpenFile(f.path+".lock", os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	if err := lockFile(lf); err != nil {
		_ = lf.Close()
		return nil, fmt.Errorf("lock %s: %w", lf.Name(), err)
	}

	return func() error {
		uerr := unlockFile(lf)
		cerr := lf.Close()
		return errors.Join(uerr, cerr)
	}, nil
}
