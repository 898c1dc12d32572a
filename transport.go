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
	"context"
	"fmt"
)

// Link defines the byte stream to the embedded controller. It is implemented
// by the UART transport and by test doubles.
//
// Implementations assemble frames from partial reads: ReadExact and ReadFrame
// never return short data, they either complete or fail.
type Link interface {
	// Write sends a complete frame.
	Write(ctx context.Context, frame []byte) error

	// ReadExact returns exactly n bytes.
	ReadExact(ctx context.Context, n int) ([]byte, error)

	// ReadFrame returns one length-prefixed message frame. The header is
	// validated before the rest of the frame is awaited.
	ReadFrame(ctx context.Context) ([]byte, error)

	// DrainStale discards every complete frame currently buffered or readable
	// without blocking. It fails with ErrUnknownFrameKind if the stream has
	// lost alignment.
	DrainStale(ctx context.Context) (Drained, error)

	// Name identifies the link in logs and traces.
	Name() string
}

// Drained counts the frames discarded by one DrainStale call.
type Drained struct {
	Acks     int
	Messages int
	Controls int
	Bytes    int
}

// Empty reports whether nothing was discarded.
func (d Drained) Empty() bool {
	return d.Bytes == 0
}

// Add accumulates the counts of another drain.
func (d Drained) Add(o Drained) Drained {
	return Drained{
		Acks:     d.Acks + o.Acks,
		Messages: d.Messages + o.Messages,
		Controls: d.Controls + o.Controls,
		Bytes:    d.Bytes + o.Bytes,
	}
}

func (d Drained) String() string {
	return fmt.Sprintf("acks=%d messages=%d controls=%d bytes=%d", d.Acks, d.Messages, d.Controls, d.Bytes)
}
