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
	"errors"
	"fmt"
)

// Decoding errors. The root package maps these onto its public error taxonomy.
var (
	ErrFrameCorrupt     = errors.New("frame corrupt")
	ErrSequenceMismatch = errors.New("sequence mismatch")
	ErrPayloadMismatch  = errors.New("payload mismatch")
	ErrUnknownFrameKind = errors.New("unknown frame kind")
	ErrShortFrame       = errors.New("frame too short")
)

// Ack is a decoded acknowledge frame.
type Ack struct {
	Kind     byte
	Sequence uint8
	// Retry is set when the device asks for the request to be sent again.
	Retry bool
	// Anomaly is set for kinds that are neither a normal ack nor a retry.
	// Such frames are structurally valid and are accepted without retry.
	Anomaly bool
}

// DecodeAck validates a 10 byte acknowledge frame.
//
// Sync, the two zero bytes, the header CRC (over bytes 2..5) and the FF FF
// trailer are checked first; any mismatch is ErrFrameCorrupt. A normal ack
// (0x40) must echo expectedSeq or ErrSequenceMismatch is returned.
func DecodeAck(buf []byte, expectedSeq uint8) (Ack, error) {
	if len(buf) != AckLength {
		return Ack{}, fmt.Errorf("%w: ack is %d bytes, want %d", ErrShortFrame, len(buf), AckLength)
	}
	if buf[0] != Sync0 || buf[1] != Sync1 {
		return Ack{}, fmt.Errorf("%w: ack sync % X", ErrFrameCorrupt, buf[0:2])
	}
	if buf[3] != 0x00 || buf[4] != 0x00 {
		return Ack{}, fmt.Errorf("%w: ack fixed fields % X", ErrFrameCorrupt, buf[3:5])
	}
	if !ValidChecksum(buf[2:6], buf[6], buf[7]) {
		return Ack{}, fmt.Errorf("%w: ack header crc % X", ErrFrameCorrupt, buf[6:8])
	}
	if buf[8] != AckTrailer[0] || buf[9] != AckTrailer[1] {
		return Ack{}, fmt.Errorf("%w: ack trailer % X", ErrFrameCorrupt, buf[8:10])
	}

	ack := Ack{Kind: buf[2], Sequence: buf[5]}
	switch ack.Kind {
	case KindAckByte:
		if ack.Sequence != expectedSeq {
			return Ack{}, fmt.Errorf("%w: ack echoes seq 0x%02X, sent 0x%02X",
				ErrSequenceMismatch, ack.Sequence, expectedSeq)
		}
	case KindRetryByte:
		ack.Retry = true
	default:
		ack.Anomaly = true
	}
	return ack, nil
}

// CheckHeader validates the 8 header bytes of a message frame and returns the
// declared payload length. Called as soon as the header is available so a
// corrupt frame fails before its payload is awaited.
func CheckHeader(hdr []byte) (payloadLen int, err error) {
	if len(hdr) < HeaderLength {
		return 0, fmt.Errorf("%w: header is %d bytes, want %d", ErrShortFrame, len(hdr), HeaderLength)
	}
	if hdr[0] != Sync0 || hdr[1] != Sync1 || hdr[2] != KindMessageByte {
		return 0, fmt.Errorf("%w: message header % X", ErrFrameCorrupt, hdr[0:3])
	}
	if !ValidChecksum(hdr[2:6], hdr[6], hdr[7]) {
		return 0, fmt.Errorf("%w: message header crc % X", ErrFrameCorrupt, hdr[6:8])
	}
	return int(hdr[3]), nil
}

// MessageLength returns the total frame length for a declared payload length.
func MessageLength(payloadLen int) int {
	return Overhead + payloadLen
}
