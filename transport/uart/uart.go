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

// Package uart implements the EC link over a serial port.
//
// The EC streams frames over a high speed UART with no flow control. Reads
// return whatever the driver has buffered, so frames arrive in arbitrary
// fragments; Transport reassembles them and keeps any bytes read past a frame
// for the next call.
package uart

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/surfacectl/go-ecuart"
	"github.com/surfacectl/go-ecuart/internal/frame"
	"github.com/surfacectl/go-ecuart/internal/syncutil"
	"github.com/surfacectl/go-ecuart/logger"
	"go.bug.st/serial"
)

const (
	// DefaultDevice is the EC UART on Surface Book 2 and Surface Pro (2017).
	DefaultDevice = "/dev/ttyS4"
	// DefaultBaudRate is the line rate declared in the DSDT.
	DefaultBaudRate = 3000000
	// DefaultReadTimeout is how long a single port read waits for data.
	DefaultReadTimeout = 5 * time.Millisecond
	// DefaultReadBudget bounds the assembly of one frame or one drain.
	DefaultReadBudget = time.Second

	readChunk = 0x400
)

// Transport implements ecuart.Link over a serial port.
type Transport struct {
	port        serial.Port
	log         logger.Logger
	portName    string
	pending     []byte
	readTimeout time.Duration
	readBudget  time.Duration
	mu          syncutil.Mutex
	closed      bool
}

var _ ecuart.Link = (*Transport)(nil)

type options struct {
	log         logger.Logger
	baudRate    int
	readTimeout time.Duration
	readBudget  time.Duration
}

// Option configures a Transport.
type Option func(*options)

// WithBaudRate sets the line rate used when opening the port.
func WithBaudRate(baud int) Option {
	return func(o *options) {
		if baud > 0 {
			o.baudRate = baud
		}
	}
}

// WithReadTimeout sets how long a single port read waits for data.
func WithReadTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.readTimeout = d
		}
	}
}

// WithReadBudget bounds how long ReadExact, ReadFrame and DrainStale wait in
// total for the bytes they need.
func WithReadBudget(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.readBudget = d
		}
	}
}

// WithLogger sets the logger for discarded frames and port events.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		log:         logger.GetLogger(),
		baudRate:    DefaultBaudRate,
		readTimeout: DefaultReadTimeout,
		readBudget:  DefaultReadBudget,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// New opens portName as 8N1 without flow control.
func New(portName string, opts ...Option) (*Transport, error) {
	o := buildOptions(opts)

	port, err := serial.Open(portName, &serial.Mode{
		BaudRate: o.baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open UART port %s: %w", portName, err)
	}

	t, err := newTransport(port, portName, o)
	if err != nil {
		_ = port.Close()
		return nil, err
	}
	return t, nil
}

// NewWithPort wraps an already opened port. The line settings are applied
// again, so test doubles observe the same configuration as a real device.
func NewWithPort(port serial.Port, portName string, opts ...Option) (*Transport, error) {
	o := buildOptions(opts)
	if err := port.SetMode(&serial.Mode{
		BaudRate: o.baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}); err != nil {
		return nil, fmt.Errorf("failed to set UART mode: %w", err)
	}
	return newTransport(port, portName, o)
}

func newTransport(port serial.Port, portName string, o options) (*Transport, error) {
	// The DSDT declares no RTS/CTS or DTR/DSR handshake.
	if err := port.SetRTS(false); err != nil {
		return nil, fmt.Errorf("failed to clear RTS: %w", err)
	}
	if err := port.SetDTR(false); err != nil {
		return nil, fmt.Errorf("failed to clear DTR: %w", err)
	}
	if err := port.SetReadTimeout(o.readTimeout); err != nil {
		return nil, fmt.Errorf("failed to set UART read timeout: %w", err)
	}

	return &Transport{
		port:        port,
		portName:    portName,
		log:         o.log.With("port", portName),
		readTimeout: o.readTimeout,
		readBudget:  o.readBudget,
		pending:     make([]byte, 0, readChunk),
	}, nil
}

// Name returns the port name.
func (t *Transport) Name() string {
	return t.portName
}

// Write sends b in full and waits until it has been transmitted.
func (t *Transport) Write(ctx context.Context, b []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.check(ctx, "write"); err != nil {
		return err
	}

	n, err := t.port.Write(b)
	if err != nil {
		return ecuart.NewTransportWriteError("write", t.portName, err)
	}
	if n != len(b) {
		return ecuart.NewTransportWriteError("write", t.portName,
			fmt.Errorf("short write: %d of %d bytes", n, len(b)))
	}
	return t.drainWithRetry("write")
}

// ReadExact returns exactly n bytes, taking buffered bytes first.
func (t *Transport) ReadExact(ctx context.Context, n int) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.check(ctx, "read"); err != nil {
		return nil, err
	}

	deadline := time.Now().Add(t.readBudget)
	for len(t.pending) < n {
		if err := t.wait(ctx, "read", deadline); err != nil {
			return nil, err
		}
		if _, err := t.fill("read", n-len(t.pending)); err != nil {
			return nil, err
		}
	}
	return t.take(n), nil
}

// ReadFrame returns one message frame. The 8 header bytes are validated as
// soon as they are available; a corrupt header fails without waiting for the
// payload it declares.
func (t *Transport) ReadFrame(ctx context.Context) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.check(ctx, "read frame"); err != nil {
		return nil, err
	}

	deadline := time.Now().Add(t.readBudget)
	if err := t.await(ctx, "read frame", frame.HeaderLength, deadline); err != nil {
		return nil, err
	}

	payloadLen, err := frame.CheckHeader(t.pending[:frame.HeaderLength])
	if err != nil {
		return nil, ecuart.NewProtocolError("read frame", err)
	}

	total := frame.MessageLength(payloadLen)
	if err := t.await(ctx, "read frame", total, deadline); err != nil {
		return nil, err
	}
	return t.take(total), nil
}

// DrainStale discards buffered and immediately readable frames. It returns
// once a read after the last discarded frame yields nothing.
func (t *Transport) DrainStale(ctx context.Context) (ecuart.Drained, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var drained ecuart.Drained
	if err := t.check(ctx, "drain"); err != nil {
		return drained, err
	}

	deadline := time.Now().Add(t.readBudget)
	for {
		n, err := t.fill("drain", readChunk)
		if err != nil {
			return drained, err
		}
		if n == 0 && len(t.pending) == 0 {
			return drained, nil
		}

		for len(t.pending) > 0 {
			if err := t.await(ctx, "drain", frame.ClassifyLength, deadline); err != nil {
				return drained, err
			}

			kind, total, err := frame.Classify(t.pending)
			if err != nil {
				t.log.Warn("stream lost alignment, discarding buffer", "bytes", fmt.Sprintf("% X", t.pending))
				t.pending = t.pending[:0]
				return drained, ecuart.NewProtocolError("drain", err)
			}
			if err := t.await(ctx, "drain", total, deadline); err != nil {
				return drained, err
			}

			discarded := t.take(total)
			t.log.Debug("discarded stale frame", "kind", kind.String(), "frame", fmt.Sprintf("% X", discarded))
			drained.Bytes += total
			switch kind {
			case frame.KindAck:
				drained.Acks++
			case frame.KindMessage:
				drained.Messages++
			case frame.KindControl:
				drained.Controls++
			case frame.KindUnknown:
			}
		}

		if err := t.wait(ctx, "drain", deadline); err != nil {
			return drained, err
		}
	}
}

// Pending returns the number of buffered bytes not yet consumed.
func (t *Transport) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

// Seed prepends bytes to the buffer as if they had been read already.
func (t *Transport) Seed(b []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending = append(append([]byte(nil), b...), t.pending...)
}

// Close closes the port.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true
	t.pending = nil
	if err := t.port.Close(); err != nil {
		return fmt.Errorf("UART close failed: %w", err)
	}
	return nil
}

func (t *Transport) check(ctx context.Context, op string) error {
	if t.closed {
		return ecuart.NewTransportError(op, t.portName, ecuart.ErrTransportClosed, ecuart.ErrorTypePermanent)
	}
	if err := ctx.Err(); err != nil {
		return ecuart.NewContextError(op, t.portName, err)
	}
	return nil
}

// wait fails once the context is done or the read budget is spent.
func (t *Transport) wait(ctx context.Context, op string, deadline time.Time) error {
	if err := ctx.Err(); err != nil {
		return ecuart.NewContextError(op, t.portName, err)
	}
	if time.Now().After(deadline) {
		return ecuart.NewTimeoutError(op, t.portName)
	}
	return nil
}

// await reads in chunks until at least n bytes are buffered.
func (t *Transport) await(ctx context.Context, op string, n int, deadline time.Time) error {
	for len(t.pending) < n {
		if err := t.wait(ctx, op, deadline); err != nil {
			return err
		}
		if _, err := t.fill(op, readChunk); err != nil {
			return err
		}
	}
	return nil
}

// fill performs one port read of up to limit bytes into the buffer.
func (t *Transport) fill(op string, limit int) (int, error) {
	buf := make([]byte, limit)
	n, err := t.port.Read(buf)
	if err != nil {
		return 0, ecuart.NewTransportReadError(op, t.portName, err)
	}
	t.pending = append(t.pending, buf[:n]...)
	return n, nil
}

func (t *Transport) take(n int) []byte {
	out := append([]byte(nil), t.pending[:n]...)
	t.pending = append(t.pending[:0], t.pending[n:]...)
	return out
}

// isInterruptedSystemCall checks if an error is caused by an interrupted system call
func isInterruptedSystemCall(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "interrupted system call") ||
		strings.Contains(errStr, "eintr")
}

// drainWithRetry waits for output to be transmitted, retrying interrupted
// system calls.
func (t *Transport) drainWithRetry(op string) error {
	const maxRetries = 3
	baseDelay := 2 * time.Millisecond

	for attempt := range maxRetries {
		err := t.port.Drain()
		if err == nil {
			return nil
		}
		if isInterruptedSystemCall(err) && attempt < maxRetries-1 {
			time.Sleep(baseDelay * time.Duration(1<<attempt)) // 2ms, 4ms
			continue
		}
		return ecuart.NewTransportWriteError(op, t.portName, fmt.Errorf("drain: %w", err))
	}
	return ecuart.NewTransportWriteError(op, t.portName, fmt.Errorf("drain failed after %d retries", maxRetries))
}
