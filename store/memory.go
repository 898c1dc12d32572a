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
	"github.com/surfacectl/go-ecuart"
	"github.com/surfacectl/go-ecuart/internal/syncutil"
)

// Memory keeps counters in memory, for tests and dry runs.
type Memory struct {
	state  ecuart.Counters
	stores int
	mu     syncutil.Mutex
}

var _ ecuart.CounterStore = (*Memory)(nil)

// NewMemory returns a store holding initial.
func NewMemory(initial ecuart.Counters) *Memory {
	return &Memory{state: initial}
}

// Load returns the held counters.
func (m *Memory) Load() (ecuart.Counters, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, nil
}

// Store replaces the held counters.
func (m *Memory) Store(c ecuart.Counters) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = c
	m.stores++
	return nil
}

// Stores returns how many times Store was called.
func (m *Memory) Stores() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stores
}
