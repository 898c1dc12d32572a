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

package testing

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/surfacectl/go-ecuart/internal/syncutil"
	"go.bug.st/serial"
)

// ErrPortClosed is returned when operations are attempted on a closed port.
var ErrPortClosed = errors.New("port is closed")

// idlePoll caps how long a read on an idle line blocks, keeping tests fast
// when the configured read timeout is long.
const idlePoll = time.Millisecond

// SerialPort adapts an io.ReadWriter, usually a VirtualEC, to serial.Port so
// the UART transport can be tested without hardware.
//
// A read on an idle backend waits up to the read timeout and returns zero
// bytes, matching go.bug.st/serial semantics.
type SerialPort struct {
	backend     io.ReadWriter
	writeErr    error
	mode        serial.Mode
	readTimeout time.Duration
	shortWrite  int
	writes      int
	drains      int
	mu          syncutil.Mutex
	rts         bool
	dtr         bool
	closed      bool
}

// NewSerialPort creates a serial port backed by backend.
func NewSerialPort(backend io.ReadWriter) *SerialPort {
	return &SerialPort{
		backend:     backend,
		readTimeout: serial.NoTimeout,
		rts:         true,
		dtr:         true,
	}
}

// SetMode records the requested line settings.
func (p *SerialPort) SetMode(mode *serial.Mode) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if mode != nil {
		p.mode = *mode
	}
	return nil
}

func (p *SerialPort) Read(buf []byte) (int, error) {
	p.mu.Lock()
	closed, timeout := p.closed, p.readTimeout
	p.mu.Unlock()
	if closed {
		return 0, ErrPortClosed
	}

	n, err := p.backend.Read(buf)
	if err != nil {
		return n, fmt.Errorf("serial read: %w", err)
	}
	if n == 0 {
		wait := idlePoll
		if timeout >= 0 && timeout < wait {
			wait = timeout
		}
		time.Sleep(wait)
	}
	return n, nil
}

func (p *SerialPort) Write(buf []byte) (int, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return 0, ErrPortClosed
	}
	p.writes++
	writeErr, short := p.writeErr, p.shortWrite
	p.writeErr, p.shortWrite = nil, 0
	p.mu.Unlock()

	if writeErr != nil {
		return 0, writeErr
	}
	if short > 0 && short < len(buf) {
		buf = buf[:short]
	}
	n, err := p.backend.Write(buf)
	if err != nil {
		return n, fmt.Errorf("serial write: %w", err)
	}
	return n, nil
}

// FailNextWrite makes the next Write return err without writing.
func (p *SerialPort) FailNextWrite(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writeErr = err
}

// ShortNextWrite makes the next Write accept only n bytes.
func (p *SerialPort) ShortNextWrite(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.shortWrite = n
}

// Drain counts output flushes.
func (p *SerialPort) Drain() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.drains++
	return nil
}

// ResetInputBuffer is a no-op: the simulator keeps its own output.
func (*SerialPort) ResetInputBuffer() error {
	return nil
}

// ResetOutputBuffer is a no-op.
func (*SerialPort) ResetOutputBuffer() error {
	return nil
}

// SetDTR records the DTR line state.
func (p *SerialPort) SetDTR(dtr bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dtr = dtr
	return nil
}

// SetRTS records the RTS line state.
func (p *SerialPort) SetRTS(rts bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rts = rts
	return nil
}

// GetModemStatusBits reports no modem lines asserted.
func (*SerialPort) GetModemStatusBits() (*serial.ModemStatusBits, error) {
	return &serial.ModemStatusBits{}, nil
}

// SetReadTimeout sets how long reads on an idle line wait.
func (p *SerialPort) SetReadTimeout(t time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.readTimeout = t
	return nil
}

// Close marks the port closed.
func (p *SerialPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// Break is a no-op.
func (*SerialPort) Break(_ time.Duration) error {
	return nil
}

// PortState is a snapshot of the adapter's recorded settings.
type PortState struct {
	Mode        serial.Mode
	ReadTimeout time.Duration
	Writes      int
	Drains      int
	RTS         bool
	DTR         bool
	Closed      bool
}

// State returns the recorded settings.
func (p *SerialPort) State() PortState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PortState{
		Mode:        p.mode,
		ReadTimeout: p.readTimeout,
		Writes:      p.writes,
		Drains:      p.drains,
		RTS:         p.rts,
		DTR:         p.dtr,
		Closed:      p.closed,
	}
}

var _ serial.Port = (*SerialPort)(nil)
