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

import "encoding/binary"

// Command keys of the battery and base methods.
var (
	KeyBaseStatus  = CommandKey{0x11, 0x00, 0x0D}
	KeyBaseLock    = CommandKey{0x11, 0x00, 0x06}
	KeyBaseUnlock  = CommandKey{0x11, 0x00, 0x07}
	KeyPowerSource = CommandKey{0x02, 0x01, 0x0D}
)

// KeySTA returns the key of a battery's _STA method.
func KeySTA(battery byte) CommandKey { return CommandKey{0x02, battery, 0x01} }

// KeyBIX returns the key of a battery's _BIX method.
func KeyBIX(battery byte) CommandKey { return CommandKey{0x02, battery, 0x02} }

// KeyBST returns the key of a battery's _BST method.
func KeyBST(battery byte) CommandKey { return CommandKey{0x02, battery, 0x03} }

// BuildBSTPayload creates a _BST payload: state, present rate, remaining
// capacity and present voltage as little-endian words.
func BuildBSTPayload(state, rate, remaining, voltage uint32) []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint32(buf[0:], state)
	binary.LittleEndian.PutUint32(buf[4:], rate)
	binary.LittleEndian.PutUint32(buf[8:], remaining)
	binary.LittleEndian.PutUint32(buf[12:], voltage)
	return buf
}

// BatteryInfo is the content of a _BIX package.
type BatteryInfo struct {
	Model    string
	Serial   string
	Type     string
	OEM      string
	Words    [15]uint32
	Revision byte
}

// BIX word indexes used by tests.
const (
	BIXDesignCapacity         = 1
	BIXLastFullChargeCapacity = 2
	BIXDesignVoltage          = 4
	BIXCycleCount             = 7
)

// BuildBIXPayload creates a 119 byte _BIX payload.
func BuildBIXPayload(info BatteryInfo) []byte {
	buf := make([]byte, 119)
	buf[0] = info.Revision
	for i, w := range info.Words {
		binary.LittleEndian.PutUint32(buf[1+4*i:], w)
	}
	copy(buf[61:82], info.Model)
	copy(buf[82:93], info.Serial)
	copy(buf[93:98], info.Type)
	copy(buf[98:119], info.OEM)
	return buf
}

// SampleBatteryInfo is a plausible Surface battery.
func SampleBatteryInfo() BatteryInfo {
	info := BatteryInfo{
		Revision: 0x00,
		Model:    "M1087876",
		Serial:   "0123456789",
		Type:     "LION",
		OEM:      "SMP",
	}
	info.Words[0] = 0x00 // mWh
	info.Words[BIXDesignCapacity] = 0x5A3C
	info.Words[BIXLastFullChargeCapacity] = 0x5208
	info.Words[3] = 0x01
	info.Words[BIXDesignVoltage] = 0x1D4C
	info.Words[BIXCycleCount] = 0x2A
	return info
}

// BuildU32Payload creates a single little-endian word payload, as returned by
// _STA and _PSR.
func BuildU32Payload(v uint32) []byte {
	return binary.LittleEndian.AppendUint32(nil, v)
}
