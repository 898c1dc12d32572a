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

import "time"

// Exchange constants control one request/response exchange with the EC.
const (
	// DefaultExchangeTimeout bounds a complete Run, including the drains.
	DefaultExchangeTimeout = 5 * time.Second
	// InExchangeResends is how often a request is sent again when the EC
	// answers with a retry ack. A second retry ack abandons the exchange.
	InExchangeResends = 1
	// DefaultTraceSize is the number of wire entries kept per exchange.
	DefaultTraceSize = 16
)

// Exchange retry constants apply when a Client repeats abandoned exchanges.
const (
	// ExchangeRetries is the number of attempts for one command.
	ExchangeRetries = 3
	// ExchangeInitialBackoff is the initial delay between attempts.
	ExchangeInitialBackoff = 50 * time.Millisecond
	// ExchangeMaxBackoff is the maximum delay between attempts.
	ExchangeMaxBackoff = 500 * time.Millisecond
	// ExchangeBackoffMultiplier is the exponential backoff multiplier.
	ExchangeBackoffMultiplier = 2.0
	// ExchangeJitter is the random jitter factor (0.0-1.0).
	ExchangeJitter = 0.1
	// ExchangeRetryTimeout is the overall timeout for all attempts.
	ExchangeRetryTimeout = 15 * time.Second
)
