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
	"time"

	"github.com/surfacectl/go-ecuart/internal/frame"
	"github.com/surfacectl/go-ecuart/internal/syncutil"
	"github.com/surfacectl/go-ecuart/logger"
)

// Engine runs request/response exchanges with the EC over a Link.
//
// Thread Safety: Run is safe for concurrent use; exchanges are serialized
// because the link carries one exchange at a time.
type Engine struct {
	link      Link
	log       logger.Logger
	timeout   time.Duration
	traceSize int
	mu        syncutil.Mutex
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the logger used for exchange diagnostics.
func WithLogger(l logger.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithTraceSize sets how many wire entries are attached to a failed exchange.
func WithTraceSize(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.traceSize = n
		}
	}
}

// WithExchangeTimeout bounds each Run. Zero disables the bound, leaving only
// the caller's context.
func WithExchangeTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d >= 0 {
			e.timeout = d
		}
	}
}

// NewEngine creates an Engine on link.
func NewEngine(link Link, opts ...EngineOption) *Engine {
	e := &Engine{
		link:      link,
		log:       logger.GetLogger(),
		timeout:   DefaultExchangeTimeout,
		traceSize: DefaultTraceSize,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Link returns the link the engine runs on.
func (e *Engine) Link() Link {
	return e.link
}

// Run performs one exchange for req using state.
//
// The sequence of an exchange is: drain stale frames, send the request, await
// its ack (sending the identical request once more if the EC asks for a
// retry), read and validate the response when req expects one, acknowledge
// it, and drain whatever followed it.
//
// next is state.Advance() on every return path, including failures. A second
// retry ack yields ErrCommunicationFailure. Integrity failures abort at once.
// Failures carry the wire trace of the exchange, see GetTrace.
func (e *Engine) Run(ctx context.Context, req Request, state Counters) (payload []byte, next Counters, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	defer func() { next = state.Advance() }()

	trace := NewTraceBuffer(e.link.Name(), e.traceSize)
	log := e.log.With("seq", state.Sequence, "cnt", state.Counter, "request", req.String())
	defer func() {
		if err != nil {
			err = trace.WrapError(err)
		}
	}()

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, next, NewContextError("run", e.link.Name(), ctxErr)
	}

	if err = e.drain(ctx, log, "before request"); err != nil {
		return nil, next, err
	}

	request := frame.EncodeRequest(state.Sequence, state.Counter, req.TargetClass, req.InstanceID, req.RequestCode)
	ack, err := e.send(ctx, trace, request, state.Sequence)
	for resends := 0; err == nil && ack.Retry; resends++ {
		if resends == InExchangeResends {
			log.Warn("EC requested retry twice, abandoning exchange")
			return nil, next, ErrCommunicationFailure
		}
		log.Debug("EC requested retry, resending request")
		ack, err = e.send(ctx, trace, request, state.Sequence)
	}
	if err != nil {
		return nil, next, err
	}
	if ack.Anomaly {
		log.Warn("unexpected ack kind", "kind", ack.Kind, "ack_seq", ack.Sequence)
	}

	payload = []byte{}
	if req.ExpectsResponse {
		if payload, err = e.receive(ctx, trace, req, state.Counter); err != nil {
			return nil, next, err
		}
	}

	if err = e.drain(ctx, log, "after response"); err != nil {
		return nil, next, err
	}

	log.Debug("exchange complete", "payload_len", len(payload))
	return payload, next, nil
}

// send writes the request and decodes the ack that follows it.
func (e *Engine) send(ctx context.Context, trace *TraceBuffer, request []byte, seq uint8) (frame.Ack, error) {
	trace.RecordTX(request, "request")
	if err := e.link.Write(ctx, request); err != nil {
		return frame.Ack{}, err
	}

	raw, err := e.link.ReadExact(ctx, frame.AckLength)
	if err != nil {
		return frame.Ack{}, err
	}
	trace.RecordRX(raw, "ack")

	ack, err := frame.DecodeAck(raw, seq)
	if err != nil {
		return frame.Ack{}, NewProtocolError("decode ack", err)
	}
	return ack, nil
}

// receive reads the response message, validates it against req and counter,
// and acknowledges it with the message's own sequence number.
func (e *Engine) receive(ctx context.Context, trace *TraceBuffer, req Request, counter uint16) ([]byte, error) {
	raw, err := e.link.ReadFrame(ctx)
	if err != nil {
		return nil, err
	}
	trace.RecordRX(raw, "response")

	msg, err := frame.DecodeMessage(raw, counter, req.TargetClass, req.InstanceID, req.RequestCode)
	if err != nil {
		return nil, NewProtocolError("decode response", err)
	}

	ack := frame.EncodeAck(msg.Sequence)
	trace.RecordTX(ack, "response ack")
	if err := e.link.Write(ctx, ack); err != nil {
		return nil, err
	}
	return msg.Payload, nil
}

func (e *Engine) drain(ctx context.Context, log logger.Logger, when string) error {
	drained, err := e.link.DrainStale(ctx)
	if err != nil {
		return err
	}
	if !drained.Empty() {
		log.Debug("drained stale frames", "when", when,
			"acks", drained.Acks, "messages", drained.Messages, "controls", drained.Controls, "bytes", drained.Bytes)
	}
	return nil
}
