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

package ecuart

import "fmt"

// Counters is the rolling protocol state shared with the EC: an 8 bit
// sequence number tying a request to its ack and a 16 bit counter echoed in
// request and response payloads.
//
// Both fields advance together exactly once per exchange. Values wrap by their
// integer width, so Sequence cycles every 256 exchanges and Counter every
// 65536.
type Counters struct {
	Sequence uint8  `json:"seq"`
	Counter  uint16 `json:"cnt"`
}

// Advance returns the counters for the next exchange.
func (c Counters) Advance() Counters {
	return Counters{
		Sequence: c.Sequence + 1,
		Counter:  c.Counter + 1,
	}
}

func (c Counters) String() string {
	return fmt.Sprintf("seq=0x%02X cnt=0x%04X", c.Sequence, c.Counter)
}

// CounterStore persists Counters between processes.
//
// Load returns the zero Counters when no state has been stored yet.
type CounterStore interface {
	Load() (Counters, error)
	Store(c Counters) error
}
