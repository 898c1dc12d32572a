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

package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// goldenBSTResponse answers goldenRequest: seq 0x21, 24 byte payload made of
// the echo header and State=1, Rate=0x210, Remaining=0x1C20, Voltage=0x303A.
var goldenBSTResponse = []byte{
	0xAA, 0x55, 0x80, 0x18, 0x00, 0x21, 0x79, 0x87,
	0x80, 0x02, 0x00, 0x01, 0x01, 0x07, 0x00, 0x03,
	0x01, 0x00, 0x00, 0x00, 0x10, 0x02, 0x00, 0x00,
	0x20, 0x1C, 0x00, 0x00, 0x3A, 0x30, 0x00, 0x00,
	0x62, 0x4C,
}

func TestDecodeMessage_Golden(t *testing.T) {
	t.Parallel()

	msg, err := DecodeMessage(goldenBSTResponse, 0x0007, 0x02, 0x01, 0x03)
	require.NoError(t, err)
	assert.Equal(t, uint8(0x21), msg.Sequence)
	assert.Len(t, msg.Payload, 16)
	assert.Equal(t, byte(0x01), msg.Payload[0])
	assert.Empty(t, msg.Leftover)
}

func TestDecodeMessage_EncodeRoundTrip(t *testing.T) {
	t.Parallel()
	data := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	buf := EncodeResponse(0x42, 0x1234, 0x11, 0x00, 0x0D, data)
	assert.Equal(t, []byte{Sync0, Sync1, KindMessageByte, 12}, buf[:4])

	msg, err := DecodeMessage(buf, 0x1234, 0x11, 0x00, 0x0D)
	require.NoError(t, err)
	assert.Equal(t, uint8(0x42), msg.Sequence)
	assert.Equal(t, data, msg.Payload)
}

func TestDecodeMessage_Leftover(t *testing.T) {
	t.Parallel()
	buf := append(append([]byte(nil), goldenBSTResponse...), goldenAck...)

	msg, err := DecodeMessage(buf, 0x0007, 0x02, 0x01, 0x03)
	require.NoError(t, err)
	assert.Equal(t, goldenAck, msg.Leftover)
}

func TestDecodeMessage_Errors(t *testing.T) {
	t.Parallel()

	flip := func(i int) []byte {
		b := append([]byte(nil), goldenBSTResponse...)
		b[i] ^= 0x01
		return b
	}

	tests := []struct {
		wantErr error
		name    string
		buf     []byte
		ids     [3]byte // target class, instance id, request code
		counter uint16
	}{
		{
			name:    "stale counter in echo",
			buf:     goldenBSTResponse,
			counter: 0x0006,
			ids:     [3]byte{0x02, 0x01, 0x03},
			wantErr: ErrPayloadMismatch,
		},
		{
			name:    "other battery",
			buf:     goldenBSTResponse,
			counter: 0x0007,
			ids:     [3]byte{0x02, 0x02, 0x03},
			wantErr: ErrPayloadMismatch,
		},
		{
			name:    "other request code",
			buf:     goldenBSTResponse,
			counter: 0x0007,
			ids:     [3]byte{0x02, 0x01, 0x02},
			wantErr: ErrPayloadMismatch,
		},
		{
			name:    "payload bit flip",
			buf:     flip(20),
			counter: 0x0007,
			ids:     [3]byte{0x02, 0x01, 0x03},
			wantErr: ErrFrameCorrupt,
		},
		{
			name:    "payload crc flip",
			buf:     flip(len(goldenBSTResponse) - 1),
			counter: 0x0007,
			ids:     [3]byte{0x02, 0x01, 0x03},
			wantErr: ErrFrameCorrupt,
		},
		{
			name:    "header crc flip",
			buf:     flip(6),
			counter: 0x0007,
			ids:     [3]byte{0x02, 0x01, 0x03},
			wantErr: ErrFrameCorrupt,
		},
		{
			name:    "truncated",
			buf:     goldenBSTResponse[:20],
			counter: 0x0007,
			ids:     [3]byte{0x02, 0x01, 0x03},
			wantErr: ErrShortFrame,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := DecodeMessage(tt.buf, tt.counter, tt.ids[0], tt.ids[1], tt.ids[2])
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDecodeMessage_ShortEchoIsMismatch(t *testing.T) {
	t.Parallel()
	buf := EncodeMessage(0x01, []byte{0x80, 0x02, 0x00})

	_, err := DecodeMessage(buf, 0, 0x02, 0x01, 0x03)
	require.ErrorIs(t, err, ErrPayloadMismatch)
}

func TestClassify(t *testing.T) {
	t.Parallel()

	control := make([]byte, ControlLength)
	copy(control, ControlMarker[:])

	tests := []struct {
		wantErr   error
		name      string
		buf       []byte
		wantKind  Kind
		wantTotal int
	}{
		{name: "ack", buf: goldenAck, wantKind: KindAck, wantTotal: AckLength},
		{name: "retry ack", buf: goldenRetry, wantKind: KindAck, wantTotal: AckLength},
		{name: "request", buf: goldenRequest, wantKind: KindMessage, wantTotal: 18},
		{name: "response", buf: goldenBSTResponse, wantKind: KindMessage, wantTotal: 34},
		{name: "control", buf: control, wantKind: KindControl, wantTotal: ControlLength},
		{
			name:    "unknown",
			buf:     []byte{0x00, 0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77},
			wantErr: ErrUnknownFrameKind,
		},
		{
			name:    "sync with unknown kind",
			buf:     []byte{0xAA, 0x55, 0x99, 0x00, 0x00, 0x00, 0x00, 0x00},
			wantErr: ErrUnknownFrameKind,
		},
		{name: "too short", buf: goldenAck[:7], wantErr: ErrShortFrame},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			kind, total, err := Classify(tt.buf)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, KindUnknown, kind)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, kind)
			assert.Equal(t, tt.wantTotal, total)
		})
	}
}

func TestKindString(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "ack", KindAck.String())
	assert.Equal(t, "message", KindMessage.String())
	assert.Equal(t, "control", KindControl.String())
	assert.Equal(t, "unknown", KindUnknown.String())
}
