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
	"bytes"
	"fmt"
)

// Message is a decoded response message frame.
type Message struct {
	// Payload holds the command specific bytes following the echo header.
	Payload []byte
	// Leftover holds any bytes that followed the frame in the input buffer.
	Leftover []byte
	Sequence uint8
}

// DecodeMessage validates a response message frame against the request that
// elicited it.
//
// buf must start with a message header; it may extend past the frame, in
// which case the extra bytes are returned as Leftover. The payload must begin
// with the echo header for (counter, targetClass, instanceID, requestCode) or
// ErrPayloadMismatch is returned. CRC and structural failures are
// ErrFrameCorrupt.
func DecodeMessage(
	buf []byte, counter uint16, targetClass, instanceID, requestCode byte,
) (Message, error) {
	payloadLen, err := CheckHeader(buf)
	if err != nil {
		return Message{}, err
	}

	total := MessageLength(payloadLen)
	if len(buf) < total {
		return Message{}, fmt.Errorf("%w: have %d of %d frame bytes", ErrShortFrame, len(buf), total)
	}

	body := buf[HeaderLength:total]
	pld := body[:payloadLen]

	want := EchoHeader(counter, targetClass, instanceID, requestCode)
	if len(pld) < EchoLength || !bytes.Equal(pld[:EchoLength], want) {
		return Message{}, fmt.Errorf("%w: echo % X, want % X", ErrPayloadMismatch, head(pld, EchoLength), want)
	}
	if !ValidChecksum(pld, body[payloadLen], body[payloadLen+1]) {
		return Message{}, fmt.Errorf("%w: payload crc % X", ErrFrameCorrupt, body[payloadLen:])
	}

	msg := Message{
		Sequence: buf[5],
		Payload:  append([]byte(nil), pld[EchoLength:]...),
	}
	if len(buf) > total {
		msg.Leftover = append([]byte(nil), buf[total:]...)
	}
	return msg, nil
}

// Classify identifies the leading frame of buf and its total length without
// validating its contents. At least ClassifyLength bytes are required.
// An unrecognized marker is ErrUnknownFrameKind: the stream can no longer be
// realigned.
func Classify(buf []byte) (Kind, int, error) {
	if len(buf) < ClassifyLength {
		return KindUnknown, 0, fmt.Errorf("%w: need %d bytes to classify, have %d",
			ErrShortFrame, ClassifyLength, len(buf))
	}

	switch {
	case buf[0] == Sync0 && buf[1] == Sync1 && (buf[2] == KindAckByte || buf[2] == KindRetryByte):
		return KindAck, AckLength, nil
	case buf[0] == Sync0 && buf[1] == Sync1 && buf[2] == KindMessageByte:
		return KindMessage, MessageLength(int(buf[3])), nil
	case buf[0] == ControlMarker[0] && buf[1] == ControlMarker[1] && buf[2] == ControlMarker[2]:
		return KindControl, ControlLength, nil
	default:
		return KindUnknown, 0, fmt.Errorf("%w: leading bytes % X", ErrUnknownFrameKind, buf[0:3])
	}
}

func head(b []byte, n int) []byte {
	if len(b) < n {
		return b
	}
	return b[:n]
}
