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

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/surfacectl/go-ecuart/internal/frame"
	"go.bug.st/serial"
)

func TestSerialPort_RecordsSettings(t *testing.T) {
	t.Parallel()

	p := NewSerialPort(NewVirtualEC())
	require.NoError(t, p.SetMode(&serial.Mode{BaudRate: 3000000, DataBits: 8}))
	require.NoError(t, p.SetRTS(false))
	require.NoError(t, p.SetDTR(false))
	require.NoError(t, p.SetReadTimeout(5*time.Millisecond))
	require.NoError(t, p.Drain())

	st := p.State()
	assert.Equal(t, 3000000, st.Mode.BaudRate)
	assert.False(t, st.RTS)
	assert.False(t, st.DTR)
	assert.Equal(t, 5*time.Millisecond, st.ReadTimeout)
	assert.Equal(t, 1, st.Drains)
}

func TestSerialPort_IdleReadReturnsZero(t *testing.T) {
	t.Parallel()

	p := NewSerialPort(NewVirtualEC())
	require.NoError(t, p.SetReadTimeout(0))

	n, err := p.Read(make([]byte, 8))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSerialPort_WriteFaults(t *testing.T) {
	t.Parallel()

	v := NewVirtualEC()
	p := NewSerialPort(v)
	req := frame.EncodeRequest(1, 1, 0x11, 0x00, 0x06)

	boom := errors.New("boom")
	p.FailNextWrite(boom)
	_, err := p.Write(req)
	require.ErrorIs(t, err, boom)

	p.ShortNextWrite(4)
	n, err := p.Write(req)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	n, err = p.Write(req[4:])
	require.NoError(t, err)
	assert.Equal(t, len(req)-4, n)
	assert.Len(t, v.Requests(), 1)
	assert.Equal(t, 3, p.State().Writes)
}

func TestSerialPort_Closed(t *testing.T) {
	t.Parallel()

	p := NewSerialPort(NewVirtualEC())
	require.NoError(t, p.Close())

	_, err := p.Read(make([]byte, 1))
	require.ErrorIs(t, err, ErrPortClosed)
	_, err = p.Write([]byte{0})
	require.ErrorIs(t, err, ErrPortClosed)
	assert.True(t, p.State().Closed)
}
