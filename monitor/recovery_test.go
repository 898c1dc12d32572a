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
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReopenRecoverer(t *testing.T) {
	t.Parallel()

	errBusy := errors.New("device busy")

	t.Run("succeeds after failures", func(t *testing.T) {
		t.Parallel()

		calls := 0
		r := NewReopenRecoverer(func(context.Context) error {
			calls++
			if calls < 3 {
				return errBusy
			}
			return nil
		}, time.Millisecond, 3)

		require.NoError(t, r.AttemptRecovery(context.Background()))
		assert.Equal(t, 3, calls)
	})

	t.Run("gives up", func(t *testing.T) {
		t.Parallel()

		calls := 0
		r := NewReopenRecoverer(func(context.Context) error {
			calls++
			return errBusy
		}, time.Millisecond, 2)

		require.ErrorIs(t, r.AttemptRecovery(context.Background()), errBusy)
		assert.Equal(t, 2, calls)
	})

	t.Run("canceled during backoff", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		r := NewReopenRecoverer(func(context.Context) error {
			cancel()
			return errBusy
		}, time.Hour, 3)

		require.ErrorIs(t, r.AttemptRecovery(ctx), context.Canceled)
	})

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()

		r := NewReopenRecoverer(func(context.Context) error { return nil }, 0, 0)
		assert.Equal(t, 3, r.maxAttempts)
		assert.Equal(t, 500*time.Millisecond, r.backoff)
	})
}
