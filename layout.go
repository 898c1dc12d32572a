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
	"encoding/binary"
	"fmt"
	"sort"
	"strings"
)

// Encoding describes how a payload field is interpreted.
type Encoding int

const (
	// EncodingUint is an unsigned little-endian integer of 1 to 8 bytes.
	EncodingUint Encoding = iota
	// EncodingString is a fixed width NUL padded string.
	EncodingString
)

// Field locates one named value inside a response payload. Offsets are
// relative to the first byte after the echo header.
type Field struct {
	Name     string
	Offset   int
	Width    int
	Encoding Encoding
}

// UintField describes an unsigned little-endian integer field.
func UintField(name string, offset, width int) Field {
	return Field{Name: name, Offset: offset, Width: width, Encoding: EncodingUint}
}

// StringField describes a NUL padded string field.
func StringField(name string, offset, width int) Field {
	return Field{Name: name, Offset: offset, Width: width, Encoding: EncodingString}
}

// Layout is the ordered field description of a response payload.
type Layout []Field

// Size returns the minimum payload length the layout needs.
func (l Layout) Size() int {
	size := 0
	for _, f := range l {
		if end := f.Offset + f.Width; end > size {
			size = end
		}
	}
	return size
}

// Validate checks field widths and offsets.
func (l Layout) Validate() error {
	seen := make(map[string]struct{}, len(l))
	for _, f := range l {
		if f.Name == "" {
			return fmt.Errorf("%w: unnamed field at offset %d", ErrInvalidParameter, f.Offset)
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("%w: duplicate field %q", ErrInvalidParameter, f.Name)
		}
		seen[f.Name] = struct{}{}
		if f.Offset < 0 || f.Width <= 0 {
			return fmt.Errorf("%w: field %q has offset %d width %d", ErrInvalidParameter, f.Name, f.Offset, f.Width)
		}
		if f.Encoding == EncodingUint && f.Width > 8 {
			return fmt.Errorf("%w: integer field %q is %d bytes wide", ErrInvalidParameter, f.Name, f.Width)
		}
	}
	return nil
}

// Decode extracts every field of the layout from payload.
func (l Layout) Decode(payload []byte) (Result, error) {
	if need := l.Size(); len(payload) < need {
		return Result{}, fmt.Errorf("%w: have %d bytes, need %d", ErrPayloadTooShort, len(payload), need)
	}

	res := Result{Values: make([]Value, 0, len(l))}
	for _, f := range l {
		raw := payload[f.Offset : f.Offset+f.Width]
		v := Value{Name: f.Name, Encoding: f.Encoding}
		switch f.Encoding {
		case EncodingString:
			v.Text = strings.TrimRight(string(raw), "\x00")
		default:
			var buf [8]byte
			copy(buf[:], raw)
			v.Uint = binary.LittleEndian.Uint64(buf[:])
		}
		res.Values = append(res.Values, v)
	}
	return res, nil
}

// Value is one decoded field.
type Value struct {
	Name     string
	Text     string
	Uint     uint64
	Encoding Encoding
}

// String renders integers in hex and strings verbatim.
func (v Value) String() string {
	if v.Encoding == EncodingString {
		return v.Text
	}
	return fmt.Sprintf("0x%x", v.Uint)
}

// Result is the decoded payload of one command, in layout order.
type Result struct {
	Values []Value
}

// Get returns the named value.
func (r Result) Get(name string) (Value, bool) {
	for _, v := range r.Values {
		if v.Name == name {
			return v, true
		}
	}
	return Value{}, false
}

// Uint returns the named integer value, or false if absent or not an integer.
func (r Result) Uint(name string) (uint64, bool) {
	v, ok := r.Get(name)
	if !ok || v.Encoding != EncodingUint {
		return 0, false
	}
	return v.Uint, true
}

// Map returns the result as name to formatted value text, the shape consumed
// by status displays.
func (r Result) Map() map[string]string {
	m := make(map[string]string, len(r.Values))
	for _, v := range r.Values {
		m[v.Name] = v.String()
	}
	return m
}

// Lines formats the result as sorted "name: value" lines.
func (r Result) Lines() []string {
	lines := make([]string, 0, len(r.Values))
	for _, v := range r.Values {
		lines = append(lines, v.Name+": "+v.String())
	}
	sort.Strings(lines)
	return lines
}
