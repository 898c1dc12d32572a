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

import "testing"

// =============================================================================
// Fuzz Tests for Frame Parsing
// =============================================================================
// Bytes on the EC line can be anything after a desync, so none of the decoders
// may panic on arbitrary input.
//
// Run with: go test -fuzz=FuzzDecodeMessage -fuzztime=30s ./internal/frame/

func FuzzDecodeAck(f *testing.F) {
	f.Add(goldenAck, byte(0x05))
	f.Add(goldenRetry, byte(0x05))
	f.Add([]byte{}, byte(0x00))
	f.Add([]byte{0xAA, 0x55}, byte(0x00))
	f.Add([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}, byte(0xFF))

	f.Fuzz(func(t *testing.T, buf []byte, seq byte) {
		ack, err := DecodeAck(buf, seq)
		if err == nil && ack.Kind == KindAckByte && ack.Sequence != seq {
			t.Fatalf("accepted ack with seq 0x%02X, expected 0x%02X", ack.Sequence, seq)
		}
	})
}

func FuzzDecodeMessage(f *testing.F) {
	f.Add(goldenBSTResponse, uint16(0x0007), byte(0x02), byte(0x01), byte(0x03))
	f.Add(goldenRequest, uint16(0x0007), byte(0x02), byte(0x01), byte(0x03))
	f.Add([]byte{}, uint16(0), byte(0), byte(0), byte(0))
	f.Add([]byte{0xAA, 0x55, 0x80, 0xFF, 0x00, 0x00, 0x00, 0x00}, uint16(0), byte(0), byte(0), byte(0))

	f.Fuzz(func(t *testing.T, buf []byte, counter uint16, tc, iid, rc byte) {
		msg, err := DecodeMessage(buf, counter, tc, iid, rc)
		if err != nil {
			return
		}
		if len(msg.Payload)+len(msg.Leftover)+Overhead+EchoLength > len(buf) {
			t.Fatalf("decoded %d payload + %d leftover bytes from %d input bytes",
				len(msg.Payload), len(msg.Leftover), len(buf))
		}
	})
}

func FuzzClassify(f *testing.F) {
	f.Add(goldenAck)
	f.Add(goldenBSTResponse)
	f.Add([]byte{0x4E, 0x00, 0x53, 0x00, 0x00, 0x00, 0x00, 0x00})
	f.Add([]byte{})

	f.Fuzz(func(t *testing.T, buf []byte) {
		kind, total, err := Classify(buf)
		if err == nil && (kind == KindUnknown || total < AckLength) {
			t.Fatalf("classified %v with total %d", kind, total)
		}
	})
}
