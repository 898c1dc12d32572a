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

package monitor

import (
	"time"

	"github.com/surfacectl/go-ecuart"
)

// State is the health of a Monitor.
type State int

const (
	// StateIdle means no poll has completed yet.
	StateIdle State = iota
	// StateHealthy means the last poll succeeded.
	StateHealthy
	// StateFailing means recent polls failed, below the failure threshold.
	StateFailing
	// StateDegraded means the failure threshold was reached.
	StateDegraded
	// StateStopped means Run has returned.
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateHealthy:
		return "healthy"
	case StateFailing:
		return "failing"
	case StateDegraded:
		return "degraded"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Snapshot is the monitor state after a poll.
type Snapshot struct {
	LastSuccess time.Time
	LastPoll    time.Time
	LastError   error
	Result      ecuart.Result
	State       State
	// ConsecutiveFailures counts failed polls since the last success.
	ConsecutiveFailures int
}

// Metrics tracks operational counters of a Monitor.
type Metrics struct {
	Polls           int64         // Total number of polls
	Failures        int64         // Number of failed polls
	Recoveries      int64         // Number of successful recoveries
	Wakes           int64         // Number of detected host wakes
	LastPollLatency time.Duration // Duration of the last poll
}
