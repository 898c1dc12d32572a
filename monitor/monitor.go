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

// Package monitor refreshes EC readings periodically, the way a status
// indicator consumes them. It degrades after repeated failures and recovers
// the link after failures or a host wake.
package monitor

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/surfacectl/go-ecuart"
	"github.com/surfacectl/go-ecuart/internal/syncutil"
	"github.com/surfacectl/go-ecuart/logger"
)

// ErrAlreadyRunning is returned by Run when the monitor is already running.
var ErrAlreadyRunning = errors.New("monitor already running")

// Task performs one refresh, typically a Client.Execute or a battery summary.
type Task func(ctx context.Context) (ecuart.Result, error)

// Monitor runs a Task every poll interval.
type Monitor struct {
	task      Task
	config    *Config
	recoverer Recoverer
	log       logger.Logger
	onUpdate  func(Snapshot)
	now       func() time.Time
	snapshot  Snapshot
	mu        syncutil.Mutex

	polls       atomic.Int64
	failures    atomic.Int64
	recoveries  atomic.Int64
	wakes       atomic.Int64
	lastLatency atomic.Int64
	running     atomic.Bool
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithRecoverer sets the recovery strategy. Without one, the monitor keeps
// polling through failures.
func WithRecoverer(r Recoverer) Option {
	return func(m *Monitor) {
		m.recoverer = r
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(m *Monitor) {
		if l != nil {
			m.log = l
		}
	}
}

// WithUpdateHandler sets a callback invoked after every poll. It runs on the
// monitor goroutine so a slow handler delays the next poll.
func WithUpdateHandler(fn func(Snapshot)) Option {
	return func(m *Monitor) {
		m.onUpdate = fn
	}
}

// New creates a Monitor. A nil config uses DefaultConfig.
func New(task Task, config *Config, opts ...Option) *Monitor {
	if config == nil {
		config = DefaultConfig()
	}
	m := &Monitor{
		task:   task,
		config: config,
		log:    logger.GetLogger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run polls immediately and then every PollInterval until ctx is done. It
// returns ctx.Err().
func (m *Monitor) Run(ctx context.Context) error {
	if !m.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer func() {
		m.mu.Lock()
		m.snapshot.State = StateStopped
		m.mu.Unlock()
		m.running.Store(false)
	}()

	ticker := time.NewTicker(m.config.PollInterval)
	defer ticker.Stop()

	last := m.now()
	m.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		now := m.now()
		if m.config.SleepRecovery.DetectSleep(now.Sub(last), m.config.PollInterval) {
			m.wakes.Add(1)
			m.log.Info("host wake detected", "elapsed", now.Sub(last).String())
			m.recover(ctx, "wake")
		}
		last = now
		m.poll(ctx)
	}
}

// Snapshot returns the state after the most recent poll.
func (m *Monitor) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot
}

// Metrics returns current operational metrics
func (m *Monitor) Metrics() Metrics {
	return Metrics{
		Polls:           m.polls.Load(),
		Failures:        m.failures.Load(),
		Recoveries:      m.recoveries.Load(),
		Wakes:           m.wakes.Load(),
		LastPollLatency: time.Duration(m.lastLatency.Load()),
	}
}

func (m *Monitor) poll(ctx context.Context) {
	start := m.now()
	res, err := m.task(ctx)
	m.polls.Add(1)
	m.lastLatency.Store(int64(time.Since(start)))

	// Shutdown interrupts the poll; that is not a device failure.
	if err != nil && ctx.Err() != nil {
		return
	}

	m.mu.Lock()
	m.snapshot.LastPoll = start
	m.snapshot.LastError = err
	if err == nil {
		m.snapshot.Result = res
		m.snapshot.LastSuccess = start
		m.snapshot.ConsecutiveFailures = 0
		m.snapshot.State = StateHealthy
	} else {
		m.snapshot.ConsecutiveFailures++
		m.snapshot.State = StateFailing
		if m.snapshot.ConsecutiveFailures >= m.config.FailureThreshold {
			m.snapshot.State = StateDegraded
		}
	}
	snap := m.snapshot
	m.mu.Unlock()

	if err != nil {
		m.failures.Add(1)
		m.log.Warn("poll failed", "failures", snap.ConsecutiveFailures, "state", snap.State.String(), "error", err)
		threshold := max(m.config.FailureThreshold, 1)
		if snap.ConsecutiveFailures%threshold == 0 {
			m.recover(ctx, "failures")
		}
	}

	if m.onUpdate != nil {
		m.onUpdate(snap)
	}
}

func (m *Monitor) recover(ctx context.Context, reason string) {
	if m.recoverer == nil {
		return
	}
	if err := m.recoverer.AttemptRecovery(ctx); err != nil {
		m.log.Error("recovery failed", "reason", reason, "error", err)
		return
	}
	m.recoveries.Add(1)
	m.log.Info("link recovered", "reason", reason)
}
