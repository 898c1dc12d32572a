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
)

func TestChecksum(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		data []byte
		want uint16
	}{
		{
			name: "empty data",
			data: []byte{},
			want: 0xFFFF, // initial value, nothing folded in
		},
		{
			name: "single zero byte",
			data: []byte{0x00},
			want: 0xE1F0,
		},
		{
			name: "standard check value",
			data: []byte("123456789"),
			want: 0x29B1,
		},
		{
			name: "request header",
			data: []byte{0x80, 0x08, 0x00, 0x05},
			want: 0xA0FC,
		},
		{
			name: "ack header",
			data: []byte{0x40, 0x00, 0x00, 0x05},
			want: 0xBAF9,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Checksum(tt.data))
		})
	}
}

func TestChecksumBytes_LittleEndian(t *testing.T) {
	t.Parallel()
	assert.Equal(t, [2]byte{0xB1, 0x29}, ChecksumBytes([]byte("123456789")))
	assert.Equal(t, []byte{0x01, 0xB1, 0x29}, AppendChecksum([]byte{0x01}, []byte("123456789")))
}

func TestValidChecksum_BitFlips(t *testing.T) {
	t.Parallel()
	spans := [][]byte{
		{0x00},
		[]byte("123456789"),
		{0x80, 0x02, 0x01, 0x00, 0x01, 0x07, 0x00, 0x03},
		{0xFF, 0xFF, 0xFF, 0xFF, 0x00, 0x00, 0x00, 0x00, 0x55, 0xAA},
	}

	for _, span := range spans {
		crc := ChecksumBytes(span)
		assert.True(t, ValidChecksum(span, crc[0], crc[1]))

		// Any single bit flip in the data must be detected.
		for i := range span {
			for bit := range 8 {
				flipped := append([]byte(nil), span...)
				flipped[i] ^= 1 << bit
				assert.False(t, ValidChecksum(flipped, crc[0], crc[1]), "flip byte %d bit %d", i, bit)
			}
		}

		// Same for the CRC bytes themselves.
		for bit := range 16 {
			lo, hi := crc[0], crc[1]
			if bit < 8 {
				lo ^= 1 << bit
			} else {
				hi ^= 1 << (bit - 8)
			}
			assert.False(t, ValidChecksum(span, lo, hi), "flip crc bit %d", bit)
		}
	}
}
