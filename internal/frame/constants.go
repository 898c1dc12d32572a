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

// Package frame implements the EC UART wire format: CRC-16 checksums, frame
// construction and structural validation of ACK, message and control frames.
// Everything here is pure and allocation-light; I/O lives in transport/uart.
package frame

// Sync marker that starts every ACK and message frame.
const (
	Sync0 = 0xAA
	Sync1 = 0x55
)

// Frame kind bytes (offset 2 of a frame).
const (
	KindAckByte     = 0x40 // acknowledge, keep sequence
	KindRetryByte   = 0x04 // acknowledge carrying a "please retry" request
	KindMessageByte = 0x80 // request or response message
)

// Control frames start with this marker instead of the sync bytes.
var ControlMarker = [3]byte{0x4E, 0x00, 0x53}

// Frame sizes
const (
	HeaderLength   = 8  // sync(2) + kind, len, 0x00, seq + header crc(2)
	Overhead       = 10 // header + trailing payload crc
	AckLength      = 10 // header + 0xFF 0xFF trailer
	ControlLength  = 25 // opaque control frame
	ClassifyLength = 8  // bytes needed before a leading frame can be sized

	// RequestPayloadLength is the fixed payload size of every request.
	RequestPayloadLength = 8
	// EchoLength is the size of the echo header leading every response payload.
	EchoLength = 8
)

// AckTrailer is the fixed trailer of an ACK frame.
var AckTrailer = [2]byte{0xFF, 0xFF}

// Kind classifies the leading frame of a byte stream.
type Kind int

const (
	// KindUnknown is an unrecognized marker; byte alignment is lost.
	KindUnknown Kind = iota
	// KindAck is a 10 byte acknowledge frame (normal or retry).
	KindAck
	// KindMessage is a variable length message frame.
	KindMessage
	// KindControl is an opaque 25 byte control frame.
	KindControl
)

func (k Kind) String() string {
	switch k {
	case KindAck:
		return "ack"
	case KindMessage:
		return "message"
	case KindControl:
		return "control"
	default:
		return "unknown"
	}
}
