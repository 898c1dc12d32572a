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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uintResult(kv map[string]uint64) Result {
	var res Result
	for k, v := range kv {
		res.Values = append(res.Values, Value{Name: k, Uint: v, Encoding: EncodingUint})
	}
	return res
}

func TestChargeStateString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		want  string
		state ChargeState
	}{
		{state: 0, want: "None"},
		{state: 1, want: "Discharging"},
		{state: 2, want: "Charging"},
		{state: 3, want: "Unknown (0x3)"},
		{state: 4, want: "Critical"},
		{state: 5, want: "Critical (Discharging)"},
		{state: 6, want: "Critical (Charging)"},
		{state: 0x10, want: "Unknown (0x10)"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.state.String())
	}
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	bix := uintResult(map[string]uint64{FieldLastFullChargeCapacity: 21000})
	bst := uintResult(map[string]uint64{
		FieldState:             1,
		FieldPresentRate:       3000,
		FieldRemainingCapacity: 10500,
		FieldPresentVoltage:    7612,
	})

	s, err := Summarize(bix, bst)
	require.NoError(t, err)
	assert.Equal(t, BatterySummary{
		State:             ChargeDischarging,
		VoltageMV:         7612,
		Rate:              3000,
		RemainingCapacity: 10500,
		FullCapacity:      21000,
	}, s)

	assert.Equal(t, map[string]string{
		"State":      "Discharging",
		"Voltage":    "7.612V",
		"Percentage": "50%",
		"Remaining":  "3.50h",
	}, s.Result().Map())
}

func TestSummarizeMissingField(t *testing.T) {
	t.Parallel()

	bst := uintResult(map[string]uint64{FieldState: 1, FieldPresentRate: 1, FieldRemainingCapacity: 1, FieldPresentVoltage: 1})

	_, err := Summarize(Result{}, bst)
	require.ErrorIs(t, err, ErrInvalidParameter)
	assert.Contains(t, err.Error(), FieldLastFullChargeCapacity)

	bix := uintResult(map[string]uint64{FieldLastFullChargeCapacity: 1})
	_, err = Summarize(bix, uintResult(map[string]uint64{FieldPresentVoltage: 1, FieldPresentRate: 1, FieldRemainingCapacity: 1}))
	require.ErrorIs(t, err, ErrInvalidParameter)
}

func TestBatterySummaryFormatting(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		wantVoltage   string
		wantPercent   string
		wantRemaining string
		summary       BatterySummary
	}{
		{
			name:          "charging",
			summary:       BatterySummary{State: ChargeCharging, VoltageMV: 8100, Rate: 1500, RemainingCapacity: 10500, FullCapacity: 21000},
			wantVoltage:   "8.1V",
			wantPercent:   "50%",
			wantRemaining: "7.00h",
		},
		{
			name:          "whole volts",
			summary:       BatterySummary{State: ChargeDischarging, VoltageMV: 12000, Rate: 7, RemainingCapacity: 20, FullCapacity: 30},
			wantVoltage:   "12.0V",
			wantPercent:   "66%",
			wantRemaining: "2.86h",
		},
		{
			name:          "idle battery",
			summary:       BatterySummary{State: ChargeNone, VoltageMV: 8350, Rate: 0, RemainingCapacity: 21000, FullCapacity: 21000},
			wantVoltage:   "8.35V",
			wantPercent:   "100%",
			wantRemaining: Unavailable,
		},
		{
			name:          "zero rate",
			summary:       BatterySummary{State: ChargeDischarging, VoltageMV: 0, Rate: 0, RemainingCapacity: 1, FullCapacity: 0},
			wantVoltage:   "0.0V",
			wantPercent:   Unavailable,
			wantRemaining: Unavailable,
		},
		{
			name:          "unknown capacity",
			summary:       BatterySummary{State: ChargeCharging, VoltageMV: 7600, Rate: 100, RemainingCapacity: 50, FullCapacity: 0xFFFFFFFF},
			wantVoltage:   "7.6V",
			wantPercent:   Unavailable,
			wantRemaining: "0.50h",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.wantVoltage, tt.summary.Voltage())
			assert.Equal(t, tt.wantPercent, tt.summary.Percentage())
			assert.Equal(t, tt.wantRemaining, tt.summary.Remaining())
		})
	}
}
