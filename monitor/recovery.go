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
	"context"
	"time"

	"github.com/surfacectl/go-ecuart/internal/syncutil"
)

// Recoverer restores the link after repeated failures or a host wake.
type Recoverer interface {
	// AttemptRecovery tries to recover the link.
	// Returns nil if recovery was successful, error otherwise.
	AttemptRecovery(ctx context.Context) error
}

// ReopenFunc closes and reopens the link.
type ReopenFunc func(ctx context.Context) error

// ReopenRecoverer retries a ReopenFunc with a fixed backoff.
type ReopenRecoverer struct {
	reopen      ReopenFunc
	backoff     time.Duration
	maxAttempts int
	mu          syncutil.Mutex
}

// NewReopenRecoverer creates a recoverer calling reopen up to maxAttempts
// times.
func NewReopenRecoverer(reopen ReopenFunc, backoff time.Duration, maxAttempts int) *ReopenRecoverer {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}
	return &ReopenRecoverer{
		reopen:      reopen,
		backoff:     backoff,
		maxAttempts: maxAttempts,
	}
}

// AttemptRecovery implements Recoverer.
func (r *ReopenRecoverer) AttemptRecovery(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var lastErr error
	for attempt := range r.maxAttempts {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(r.backoff):
			}
		}

		err := r.reopen(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
	}
	return lastErr
}
