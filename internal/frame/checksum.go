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

import "github.com/sigurn/crc16"

// crcTable is the CRC-16/CCITT-FALSE table (poly 0x1021, init 0xFFFF,
// no reflection, no final xor), built once.
var crcTable = crc16.MakeTable(crc16.CRC16_CCITT_FALSE)

// Checksum computes the CRC-16/CCITT-FALSE of data.
func Checksum(data []byte) uint16 {
	return crc16.Checksum(data, crcTable)
}

// ChecksumBytes returns the checksum of data as the little-endian pair
// [lo, hi] embedded in frames.
func ChecksumBytes(data []byte) [2]byte {
	crc := Checksum(data)
	return [2]byte{byte(crc), byte(crc >> 8)}
}

// AppendChecksum appends the little-endian checksum of data to dst.
func AppendChecksum(dst, data []byte) []byte {
	crc := ChecksumBytes(data)
	return append(dst, crc[0], crc[1])
}

// ValidChecksum reports whether lo/hi is the little-endian checksum of data.
func ValidChecksum(data []byte, lo, hi byte) bool {
	crc := ChecksumBytes(data)
	return crc[0] == lo && crc[1] == hi
}
