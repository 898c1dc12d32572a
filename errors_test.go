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
	"io"
	"strings"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/surfacectl/go-ecuart/internal/frame"
)

func TestNewProtocolErrorMapsCodecErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		codec error
		want  error
		name  string
	}{
		{name: "corrupt", codec: frame.ErrFrameCorrupt, want: ErrFrameCorrupt},
		{name: "short frame", codec: frame.ErrShortFrame, want: ErrFrameCorrupt},
		{name: "sequence", codec: frame.ErrSequenceMismatch, want: ErrSequenceMismatch},
		{name: "echo", codec: frame.ErrPayloadMismatch, want: ErrPayloadMismatch},
		{name: "kind", codec: frame.ErrUnknownFrameKind, want: ErrUnknownFrameKind},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			detail := fmt.Errorf("%w: at byte 3", tt.codec)
			err := NewProtocolError("decode ack", detail)
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, tt.codec)
			assert.Equal(t, "decode ack: "+detail.Error(), err.Error())
			assert.True(t, IsIntegrity(err))
		})
	}
}

func TestErrorClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err       error
		name      string
		integrity bool
		retryable bool
		fatal     bool
	}{
		{name: "nil"},
		{name: "corrupt frame", err: ErrFrameCorrupt, integrity: true},
		{name: "wrapped echo mismatch", err: fmt.Errorf("bat1._bst: %w", ErrPayloadMismatch), integrity: true},
		{name: "communication failure", err: ErrCommunicationFailure, retryable: true},
		{name: "timeout", err: NewTimeoutError("read", "/dev/ttyS4"), retryable: true},
		{name: "write", err: NewTransportWriteError("write", "/dev/ttyS4", io.ErrShortWrite), retryable: true},
		{name: "read", err: NewTransportReadError("read", "/dev/ttyS4", nil), retryable: true},
		{name: "closed", err: ErrTransportClosed, fatal: true},
		{name: "eof", err: io.EOF, fatal: true},
		{name: "device gone", err: NewTransportReadError("read", "/dev/ttyS4", syscall.ENXIO), retryable: true, fatal: true},
		{name: "permanent", err: NewTransportError("open", "/dev/ttyS4", errors.New("denied"), ErrorTypePermanent), fatal: true},
		{name: "canceled", err: NewContextError("run", "/dev/ttyS4", context.Canceled), fatal: true},
		{name: "deadline", err: NewContextError("run", "/dev/ttyS4", context.DeadlineExceeded), retryable: true},
		{name: "unknown command", err: ErrUnknownCommand},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.integrity, IsIntegrity(tt.err), "IsIntegrity")
			assert.Equal(t, tt.retryable, IsRetryable(tt.err), "IsRetryable")
			assert.Equal(t, tt.fatal, IsFatal(tt.err), "IsFatal")
		})
	}
}

func TestTransportErrorFormatting(t *testing.T) {
	t.Parallel()

	err := NewTransportWriteError("write", "/dev/ttyS4", io.ErrShortWrite)
	assert.Equal(t, "write /dev/ttyS4: transport write failed: short write", err.Error())
	assert.ErrorIs(t, err, ErrTransportWrite)
	assert.ErrorIs(t, err, io.ErrShortWrite)

	noPort := NewTimeoutError("read", "")
	assert.Equal(t, "read: transport timeout", noPort.Error())
}

func TestContextErrorKeepsCause(t *testing.T) {
	t.Parallel()

	err := NewContextError("run", "ec", context.DeadlineExceeded)
	assert.ErrorIs(t, err, ErrTransportTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, ErrorTypeTimeout, err.Type)

	canceled := NewContextError("run", "ec", context.Canceled)
	assert.ErrorIs(t, canceled, context.Canceled)
	assert.NotErrorIs(t, canceled, ErrTransportTimeout)
	assert.False(t, canceled.Retryable)
}

func TestTraceBuffer(t *testing.T) {
	t.Parallel()

	tb := NewTraceBuffer("ec", 2)
	tb.RecordTX([]byte{0xAA, 0x55}, "request")
	tb.RecordRX([]byte{0x01}, "ack")
	tb.RecordRX(nil, "")

	entries := tb.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, TraceRX, entries[0].Direction)
	assert.Equal(t, "ack", entries[0].Note)

	assert.NoError(t, tb.WrapError(nil))

	err := tb.WrapError(ErrSequenceMismatch)
	assert.ErrorIs(t, err, ErrSequenceMismatch)
	te := GetTrace(fmt.Errorf("bat1._sta: %w", err))
	require.NotNil(t, te)
	assert.Equal(t, "ec", te.Port)

	out := te.FormatTrace()
	assert.True(t, strings.HasPrefix(out, "[ec] Wire trace (2 entries):\n"))
	assert.Contains(t, out, "  < 01 (ack)\n")
	assert.Contains(t, out, "  < (empty)\n")

	assert.Nil(t, GetTrace(ErrSequenceMismatch))
}

func TestTraceBufferRecordsCopies(t *testing.T) {
	t.Parallel()

	data := []byte{0x01, 0x02}
	tb := NewTraceBuffer("ec", 0)
	tb.RecordTX(data, "")
	data[0] = 0xFF

	assert.Equal(t, []byte{0x01, 0x02}, tb.Entries()[0].Data)
	assert.Contains(t, tb.Entries()[0].String(), "TX: 01 02")
}

func TestFormatHexBytesTruncates(t *testing.T) {
	t.Parallel()

	long := make([]byte, 40)
	assert.Contains(t, formatHexBytes(long), "(40 bytes total)")
	assert.Equal(t, "(empty)", formatHexBytes(nil))
}
