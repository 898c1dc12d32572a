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

// EncodeRequest builds the 18 byte request message frame:
//
//	AA 55 | 80 08 00 seq | crc | 80 tc 01 00 iid cnt_lo cnt_hi rc | crc
func EncodeRequest(seq uint8, counter uint16, targetClass, instanceID, requestCode byte) []byte {
	buf := make([]byte, 0, Overhead+RequestPayloadLength)
	buf = append(buf, Sync0, Sync1)

	hdr := [4]byte{KindMessageByte, RequestPayloadLength, 0x00, seq}
	buf = append(buf, hdr[:]...)
	buf = AppendChecksum(buf, hdr[:])

	pld := [RequestPayloadLength]byte{
		KindMessageByte,
		targetClass,
		0x01,
		0x00,
		instanceID,
		byte(counter),
		byte(counter >> 8),
		requestCode,
	}
	buf = append(buf, pld[:]...)
	return AppendChecksum(buf, pld[:])
}

// EncodeAck builds the 10 byte acknowledge frame for seq:
//
//	AA 55 | 40 00 00 seq | crc | FF FF
func EncodeAck(seq uint8) []byte {
	buf := make([]byte, 0, AckLength)
	buf = append(buf, Sync0, Sync1)

	hdr := [4]byte{KindAckByte, 0x00, 0x00, seq}
	buf = append(buf, hdr[:]...)
	buf = AppendChecksum(buf, hdr[:])
	return append(buf, AckTrailer[:]...)
}

// EncodeResponse builds a response message frame carrying the echo header for
// the given request followed by data. Used by device simulators and tests.
func EncodeResponse(
	seq uint8, counter uint16, targetClass, instanceID, requestCode byte, data []byte,
) []byte {
	pld := make([]byte, 0, EchoLength+len(data))
	pld = append(pld, EchoHeader(counter, targetClass, instanceID, requestCode)...)
	pld = append(pld, data...)
	return EncodeMessage(seq, pld)
}

// EncodeMessage frames an arbitrary payload as a message frame.
// Payloads longer than 255 bytes are truncated to the length byte.
func EncodeMessage(seq uint8, payload []byte) []byte {
	if len(payload) > 0xFF {
		payload = payload[:0xFF]
	}
	buf := make([]byte, 0, Overhead+len(payload))
	buf = append(buf, Sync0, Sync1)

	hdr := [4]byte{KindMessageByte, byte(len(payload)), 0x00, seq}
	buf = append(buf, hdr[:]...)
	buf = AppendChecksum(buf, hdr[:])
	buf = append(buf, payload...)
	return AppendChecksum(buf, payload)
}

// EchoHeader returns the 8 byte header a response payload must start with.
// Note the instance flag bytes are swapped relative to the request.
func EchoHeader(counter uint16, targetClass, instanceID, requestCode byte) []byte {
	return []byte{
		KindMessageByte,
		targetClass,
		0x00,
		0x01,
		instanceID,
		byte(counter),
		byte(counter >> 8),
		requestCode,
	}
}
