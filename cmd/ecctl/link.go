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

package main

import (
	"context"
	"fmt"

	"github.com/surfacectl/go-ecuart"
	"github.com/surfacectl/go-ecuart/internal/config"
	"github.com/surfacectl/go-ecuart/internal/syncutil"
	"github.com/surfacectl/go-ecuart/logger"
)

// reopeningLink forwards to the currently open device and can replace it
// after the EC stops answering, typically following a host suspend.
type reopeningLink struct {
	open linkOpener
	log  logger.Logger
	cur  linkCloser
	cfg  config.Config
	mu   syncutil.Mutex
}

func newReopeningLink(cfg config.Config, open linkOpener, log logger.Logger) (*reopeningLink, error) {
	cur, err := open(cfg, log)
	if err != nil {
		return nil, err
	}
	return &reopeningLink{open: open, log: log, cur: cur, cfg: cfg}, nil
}

func (l *reopeningLink) current() (linkCloser, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cur == nil {
		return nil, ecuart.NewTransportError("link", l.cfg.Device, ecuart.ErrTransportClosed, ecuart.ErrorTypePermanent)
	}
	return l.cur, nil
}

func (l *reopeningLink) Write(ctx context.Context, frame []byte) error {
	cur, err := l.current()
	if err != nil {
		return err
	}
	return cur.Write(ctx, frame)
}

func (l *reopeningLink) ReadExact(ctx context.Context, n int) ([]byte, error) {
	cur, err := l.current()
	if err != nil {
		return nil, err
	}
	return cur.ReadExact(ctx, n)
}

func (l *reopeningLink) ReadFrame(ctx context.Context) ([]byte, error) {
	cur, err := l.current()
	if err != nil {
		return nil, err
	}
	return cur.ReadFrame(ctx)
}

func (l *reopeningLink) DrainStale(ctx context.Context) (ecuart.Drained, error) {
	cur, err := l.current()
	if err != nil {
		return ecuart.Drained{}, err
	}
	return cur.DrainStale(ctx)
}

func (l *reopeningLink) Name() string {
	return l.cfg.Device
}

// Reopen closes the current device and opens it again.
func (l *reopeningLink) Reopen(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cur != nil {
		if err := l.cur.Close(); err != nil {
			l.log.Debug("close before reopen failed", "device", l.cfg.Device, "error", err)
		}
		l.cur = nil
	}
	cur, err := l.open(l.cfg, l.log)
	if err != nil {
		return fmt.Errorf("reopen %s: %w", l.cfg.Device, err)
	}
	l.cur = cur
	return nil
}

func (l *reopeningLink) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cur == nil {
		return nil
	}
	err := l.cur.Close()
	l.cur = nil
	return err
}
