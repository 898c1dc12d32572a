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

import (
	"context"
	"errors"
	"fmt"

	"github.com/surfacectl/go-ecuart/internal/syncutil"
	"github.com/surfacectl/go-ecuart/logger"
)

// Client runs catalog commands on an Engine and keeps the protocol counters.
//
// Counters are loaded from the store on the first command, optionally
// overridden, and held by the Client afterwards. With persistence enabled
// they are written back after every exchange, successful or not.
type Client struct {
	engine   *Engine
	store    CounterStore
	retry    *RetryConfig
	log      logger.Logger
	sequence *uint8
	counter  *uint16
	state    Counters
	mu       syncutil.Mutex
	loaded   bool
	persist  bool
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithPersist controls whether counters are written back to the store.
func WithPersist(persist bool) ClientOption {
	return func(c *Client) {
		c.persist = persist
	}
}

// WithSequence overrides the stored sequence number for the first exchange.
func WithSequence(seq uint8) ClientOption {
	return func(c *Client) {
		c.sequence = &seq
	}
}

// WithCounter overrides the stored request counter for the first exchange.
func WithCounter(cnt uint16) ClientOption {
	return func(c *Client) {
		c.counter = &cnt
	}
}

// WithRetryConfig makes the Client repeat abandoned exchanges. Without it each
// command is attempted once.
func WithRetryConfig(config *RetryConfig) ClientOption {
	return func(c *Client) {
		if config != nil {
			c.retry = config
		}
	}
}

// WithClientLogger sets the logger for command outcomes.
func WithClientLogger(l logger.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// NewClient creates a Client. A nil store keeps counters in memory only.
func NewClient(engine *Engine, store CounterStore, opts ...ClientOption) *Client {
	c := &Client{
		engine:  engine,
		store:   store,
		retry:   &RetryConfig{},
		log:     logger.GetLogger(),
		persist: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Counters returns the counters the next exchange will use.
func (c *Client) Counters() (Counters, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.load(); err != nil {
		return Counters{}, err
	}
	return c.state, nil
}

// Execute runs cmd and decodes its response with the command's layout.
func (c *Client) Execute(ctx context.Context, cmd Command) (Result, error) {
	payload, err := c.Raw(ctx, cmd.Request)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", cmd.Name, err)
	}

	res, err := cmd.Layout.Decode(payload)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", cmd.Name, err)
	}
	return res, nil
}

// Raw runs req and returns the undecoded response payload.
func (c *Client) Raw(ctx context.Context, req Request) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.load(); err != nil {
		return nil, err
	}

	var payload []byte
	err := RetryWithConfig(ctx, c.retry, func() error {
		p, next, runErr := c.engine.Run(ctx, req, c.state)
		c.state = next
		if storeErr := c.save(); storeErr != nil {
			return errors.Join(runErr, storeErr)
		}
		if runErr != nil {
			c.log.Warn("exchange failed", "request", req.String(), "error", runErr)
			return runErr
		}
		payload = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payload, nil
}

// Battery reads _BIX and _BST of a battery and summarizes them.
func (c *Client) Battery(ctx context.Context, battery uint8) (BatterySummary, error) {
	bix, err := c.Execute(ctx, BatteryInfo(battery))
	if err != nil {
		return BatterySummary{}, err
	}
	bst, err := c.Execute(ctx, BatteryState(battery))
	if err != nil {
		return BatterySummary{}, err
	}
	return Summarize(bix, bst)
}

func (c *Client) load() error {
	if c.loaded {
		return nil
	}
	if c.store != nil {
		state, err := c.store.Load()
		if err != nil {
			return fmt.Errorf("load counters: %w", err)
		}
		c.state = state
	}
	if c.sequence != nil {
		c.state.Sequence = *c.sequence
	}
	if c.counter != nil {
		c.state.Counter = *c.counter
	}
	c.loaded = true
	c.log.Debug("counters loaded", "counters", c.state.String())
	return nil
}

func (c *Client) save() error {
	if !c.persist || c.store == nil {
		return nil
	}
	if err := c.store.Store(c.state); err != nil {
		return fmt.Errorf("store counters: %w", err)
	}
	return nil
}
