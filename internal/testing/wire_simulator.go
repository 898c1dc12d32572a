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

// Package testing provides test utilities including a wire-level simulator of
// the embedded controller's UART protocol.
//
// The VirtualEC type implements io.ReadWriter and answers request frames the
// way the EC does: an ack (or a retry ack) followed by a response message that
// echoes the request. Faults can be injected to exercise every failure path of
// the exchange engine.
package testing

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/surfacectl/go-ecuart/internal/frame"
	"github.com/surfacectl/go-ecuart/internal/syncutil"
)

// ErrUnexpectedFrame is returned by Write when the host sends bytes the EC
// cannot parse.
var ErrUnexpectedFrame = errors.New("virtual ec: unexpected frame from host")

// Fault is a one-shot misbehavior applied to the next request.
type Fault int

const (
	// FaultNone answers normally.
	FaultNone Fault = iota
	// FaultWrongAckSequence acks with the request sequence plus one.
	FaultWrongAckSequence
	// FaultCorruptAck flips a bit of the ack's header CRC.
	FaultCorruptAck
	// FaultAckKind acks with an undefined kind byte.
	FaultAckKind
	// FaultWrongEchoCounter echoes the request counter minus one.
	FaultWrongEchoCounter
	// FaultCorruptHeader flips a bit of the response header CRC.
	FaultCorruptHeader
	// FaultCorruptPayload flips a bit of the response payload CRC.
	FaultCorruptPayload
	// FaultNoResponse acks but never sends the response message.
	FaultNoResponse
	// FaultNoAck swallows the request entirely.
	FaultNoAck
)

// AnomalousAckKind is the kind byte sent for FaultAckKind.
const AnomalousAckKind byte = 0x42

// RequestRecord is one request frame received by the simulator.
type RequestRecord struct {
	Raw         []byte
	Counter     uint16
	Sequence    uint8
	TargetClass byte
	InstanceID  byte
	RequestCode byte
}

// Key returns the command key of the request.
func (r RequestRecord) Key() CommandKey {
	return CommandKey{r.TargetClass, r.InstanceID, r.RequestCode}
}

// CommandKey identifies an EC command by target class, instance id and
// request code.
type CommandKey [3]byte

// VirtualEC simulates the embedded controller at the wire protocol level.
// It implements io.ReadWriter to plug directly into transport layer tests.
type VirtualEC struct {
	payloads      map[CommandKey][]byte
	silent        map[CommandKey]bool
	rxBuffer      bytes.Buffer
	txBuffer      bytes.Buffer
	trailing      []byte
	requests      []RequestRecord
	hostAcks      []uint8
	faults        []Fault
	mu            syncutil.Mutex
	retries       int
	retriesServed int
	msgSeq        uint8
}

// NewVirtualEC creates a simulator with no configured commands. Unknown
// commands are acked without a response.
func NewVirtualEC() *VirtualEC {
	return &VirtualEC{
		payloads: make(map[CommandKey][]byte),
		silent:   make(map[CommandKey]bool),
	}
}

// Write implements io.Writer - receives frames from the host.
func (v *VirtualEC) Write(data []byte) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.rxBuffer.Write(data)
	if err := v.processReceivedData(); err != nil {
		return len(data), err
	}
	return len(data), nil
}

// Read implements io.Reader - returns pending EC output. An idle line reads
// zero bytes without error, as a serial port with a read timeout does.
func (v *VirtualEC) Read(buf []byte) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.txBuffer.Len() == 0 {
		return 0, nil
	}
	n, err := v.txBuffer.Read(buf)
	if err != nil {
		return n, fmt.Errorf("read from tx buffer: %w", err)
	}
	return n, nil
}

// SetPayload configures the response data (after the echo header) for a
// command.
func (v *VirtualEC) SetPayload(key CommandKey, data []byte) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.payloads[key] = append([]byte(nil), data...)
	delete(v.silent, key)
}

// SetSilent makes the EC only acknowledge a command, as it does for base
// latch requests.
func (v *VirtualEC) SetSilent(key CommandKey) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.silent[key] = true
}

// RequestRetries makes the EC answer the next n requests with a retry ack.
func (v *VirtualEC) RequestRetries(n int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.retries = n
}

// InjectFault queues a one-shot fault for the next request that is not
// answered with a retry ack. Faults queue in order.
func (v *VirtualEC) InjectFault(f Fault) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.faults = append(v.faults, f)
}

// QueueStale places bytes on the line immediately, as left over frames from
// an earlier exchange or unsolicited EC output.
func (v *VirtualEC) QueueStale(data []byte) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.txBuffer.Write(data)
}

// QueueTrailing appends bytes right after the next response message, so the
// host over-reads into them.
func (v *VirtualEC) QueueTrailing(data []byte) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.trailing = append(v.trailing, data...)
}

// Requests returns every request frame received so far.
func (v *VirtualEC) Requests() []RequestRecord {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]RequestRecord(nil), v.requests...)
}

// HostAcks returns the sequence numbers of the acks the host sent for
// response messages.
func (v *VirtualEC) HostAcks() []uint8 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]uint8(nil), v.hostAcks...)
}

// RetriesServed returns how many retry acks were sent.
func (v *VirtualEC) RetriesServed() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.retriesServed
}

// SetMessageSequence sets the sequence number of the next response message.
func (v *VirtualEC) SetMessageSequence(seq uint8) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.msgSeq = seq
}

// Pending returns the number of bytes waiting to be read by the host.
func (v *VirtualEC) Pending() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.txBuffer.Len()
}

// Reset clears buffers, records and injected behavior. Configured payloads
// are kept.
func (v *VirtualEC) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.rxBuffer.Reset()
	v.txBuffer.Reset()
	v.trailing = nil
	v.requests = nil
	v.hostAcks = nil
	v.faults = nil
	v.retries = 0
	v.retriesServed = 0
}

// processReceivedData parses complete frames from the receive buffer.
func (v *VirtualEC) processReceivedData() error {
	for v.rxBuffer.Len() >= frame.ClassifyLength {
		data := v.rxBuffer.Bytes()
		kind, total, err := frame.Classify(data)
		if err != nil || kind == frame.KindControl {
			err = fmt.Errorf("%w: % X", ErrUnexpectedFrame, data[:frame.ClassifyLength])
			v.rxBuffer.Reset()
			return err
		}
		if len(data) < total {
			return nil
		}
		raw := append([]byte(nil), data[:total]...)
		v.rxBuffer.Next(total)

		if kind == frame.KindAck {
			v.hostAcks = append(v.hostAcks, raw[5])
			continue
		}
		v.handleRequest(raw)
	}
	return nil
}

func (v *VirtualEC) handleRequest(raw []byte) {
	pld := raw[frame.HeaderLength : len(raw)-2]
	seq := raw[5]

	valid := len(pld) == frame.RequestPayloadLength &&
		frame.ValidChecksum(raw[2:6], raw[6], raw[7]) &&
		frame.ValidChecksum(pld, raw[len(raw)-2], raw[len(raw)-1])
	if !valid {
		v.sendRetry(seq)
		return
	}

	rec := RequestRecord{
		Raw:         raw,
		Sequence:    seq,
		TargetClass: pld[1],
		InstanceID:  pld[4],
		Counter:     uint16(pld[5]) | uint16(pld[6])<<8,
		RequestCode: pld[7],
	}
	v.requests = append(v.requests, rec)

	if v.retries > 0 {
		v.retries--
		v.sendRetry(seq)
		return
	}

	fault := FaultNone
	if len(v.faults) > 0 {
		fault = v.faults[0]
		v.faults = v.faults[1:]
	}
	if fault == FaultNoAck {
		return
	}

	ack := frame.EncodeAck(seq)
	switch fault {
	case FaultWrongAckSequence:
		ack = frame.EncodeAck(seq + 1)
	case FaultCorruptAck:
		ack[6] ^= 0x01
	case FaultAckKind:
		ack = ackFrame(AnomalousAckKind, seq)
	}
	v.txBuffer.Write(ack)

	if fault == FaultNoResponse || v.silent[rec.Key()] {
		return
	}
	data, ok := v.payloads[rec.Key()]
	if !ok {
		return
	}

	counter := rec.Counter
	if fault == FaultWrongEchoCounter {
		counter--
	}
	resp := frame.EncodeResponse(v.msgSeq, counter, rec.TargetClass, rec.InstanceID, rec.RequestCode, data)
	v.msgSeq++
	switch fault {
	case FaultCorruptHeader:
		resp[6] ^= 0x01
	case FaultCorruptPayload:
		resp[len(resp)-1] ^= 0x01
	}
	v.txBuffer.Write(resp)
	v.txBuffer.Write(v.trailing)
	v.trailing = nil
}

func (v *VirtualEC) sendRetry(seq uint8) {
	v.retriesServed++
	v.txBuffer.Write(ackFrame(frame.KindRetryByte, seq))
}

func ackFrame(kind, seq byte) []byte {
	hdr := []byte{kind, 0x00, 0x00, seq}
	buf := append([]byte{frame.Sync0, frame.Sync1}, hdr...)
	buf = frame.AppendChecksum(buf, hdr)
	return append(buf, frame.AckTrailer[:]...)
}

// ControlFrame returns a 25 byte unsolicited control frame.
func ControlFrame() []byte {
	buf := make([]byte, frame.ControlLength)
	copy(buf, frame.ControlMarker[:])
	for i := len(frame.ControlMarker); i < len(buf); i++ {
		buf[i] = byte(i)
	}
	return buf
}

// StaleMessage returns a well-formed message frame from a previous exchange.
func StaleMessage(seq uint8, payload []byte) []byte {
	return frame.EncodeMessage(seq, payload)
}
