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
	"fmt"
	"strconv"
	"strings"
)

// Field names shared by the _BST and _BIX layouts and the battery summary.
const (
	FieldState                  = "State"
	FieldPresentRate            = "Present Rate"
	FieldRemainingCapacity      = "Remaining Capacity"
	FieldPresentVoltage         = "Present Voltage"
	FieldLastFullChargeCapacity = "Last Full Charge Capacity"
)

// Unavailable is reported for summary values that cannot be derived.
const Unavailable = "<unavailable>"

// ChargeState is the ACPI _BST battery state word.
type ChargeState uint32

// Charge states. Bit 0 is discharging, bit 1 charging, bit 2 critical.
const (
	ChargeNone                ChargeState = 0
	ChargeDischarging         ChargeState = 1
	ChargeCharging            ChargeState = 2
	ChargeCritical            ChargeState = 4
	ChargeCriticalDischarging ChargeState = 5
	ChargeCriticalCharging    ChargeState = 6
)

func (s ChargeState) String() string {
	switch s {
	case ChargeNone:
		return "None"
	case ChargeDischarging:
		return "Discharging"
	case ChargeCharging:
		return "Charging"
	case ChargeCritical:
		return "Critical"
	case ChargeCriticalDischarging:
		return "Critical (Discharging)"
	case ChargeCriticalCharging:
		return "Critical (Charging)"
	default:
		return fmt.Sprintf("Unknown (0x%x)", uint32(s))
	}
}

// BatterySummary is the human readable state of one battery, derived from its
// _BIX and _BST packages.
type BatterySummary struct {
	State ChargeState
	// VoltageMV is the present voltage in millivolts.
	VoltageMV         uint32
	Rate              uint32
	RemainingCapacity uint32
	FullCapacity      uint32
}

// Summarize derives a BatterySummary from decoded _BIX and _BST results.
func Summarize(bix, bst Result) (BatterySummary, error) {
	var s BatterySummary
	fields := []struct {
		dst *uint32
		res Result
		key string
	}{
		{&s.VoltageMV, bst, FieldPresentVoltage},
		{&s.Rate, bst, FieldPresentRate},
		{&s.RemainingCapacity, bst, FieldRemainingCapacity},
		{&s.FullCapacity, bix, FieldLastFullChargeCapacity},
	}
	for _, f := range fields {
		v, ok := f.res.Uint(f.key)
		if !ok {
			return BatterySummary{}, fmt.Errorf("%w: result has no %q", ErrInvalidParameter, f.key)
		}
		*f.dst = uint32(v)
	}

	state, ok := bst.Uint(FieldState)
	if !ok {
		return BatterySummary{}, fmt.Errorf("%w: result has no %q", ErrInvalidParameter, FieldState)
	}
	s.State = ChargeState(state)
	return s, nil
}

// Voltage formats the present voltage in volts, e.g. "7.6V".
func (s BatterySummary) Voltage() string {
	v := strconv.FormatFloat(float64(s.VoltageMV)/1000, 'f', -1, 64)
	if !strings.Contains(v, ".") {
		v += ".0"
	}
	return v + "V"
}

// Percentage formats the remaining capacity relative to the last full charge,
// truncated to a whole percent.
func (s BatterySummary) Percentage() string {
	// The EC reports 0xFFFFFFFF for an unknown capacity.
	if s.FullCapacity == 0 || int32(s.FullCapacity) < 0 {
		return Unavailable
	}
	return fmt.Sprintf("%d%%", int(float64(s.RemainingCapacity)/float64(s.FullCapacity)*100))
}

// Remaining formats the estimated hours until empty or full.
func (s BatterySummary) Remaining() string {
	if s.State == ChargeNone || s.Rate == 0 {
		return Unavailable
	}
	return fmt.Sprintf("%.2fh", float64(s.RemainingCapacity)/float64(s.Rate))
}

// Result renders the summary as a Result of text values, so it can be
// printed like any command result.
func (s BatterySummary) Result() Result {
	text := func(name, v string) Value {
		return Value{Name: name, Text: v, Encoding: EncodingString}
	}
	return Result{Values: []Value{
		text("State", s.State.String()),
		text("Voltage", s.Voltage()),
		text("Percentage", s.Percentage()),
		text("Remaining", s.Remaining()),
	}}
}
