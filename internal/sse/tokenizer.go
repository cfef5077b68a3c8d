// Copyright (c) 2023-2025 xAI Go SDK Authors
//
// Licensed under the Apache License, Version 2.0.

// Package sse implements the byte-stream state machine that parses
// Server-Sent-Events framing ("field: value\n" lines, blank-line event
// boundaries) into dispatched "data" payloads, exactly as consumed by the
// xAI chat-completion streaming endpoint.
package sse

import (
	"github.com/xai-go/xai-sdk/internal/logging"
)

type state int

const (
	stateIdle state = iota
	stateField
	stateValue
	stateEndOfLine
)

const doneSentinel = "[DONE]"

// defaultDataCapacity bounds a single event's accumulated data buffer. This
// is generous relative to the embedded original's fixed arena since Go has
// no comparable constraint, but the tokenizer still enforces a bound per the
// "overflow drops the event, not the parser" contract.
const defaultDataCapacity = 1 << 20 // 1 MiB

// OnEvent is invoked once per dispatched SSE event. done == true signals the
// terminal [DONE] sentinel; in that case data is nil. Every non-terminal
// invocation carries the raw JSON bytes of one "data:" line; the tokenizer
// does not inspect them, so a chunk carrying a finish_reason arrives as an
// ordinary non-terminal event.
type OnEvent func(data []byte, done bool)

// Tokenizer is the four-state SSE automaton. It is safe to drive one byte at
// a time via Write or in bulk; both must yield an identical callback
// sequence for the same input.
type Tokenizer struct {
	logger logging.Logger
	onEvent OnEvent

	st state

	fieldBuf []byte
	isData   bool

	dataBuf   []byte
	overflow  bool
	skipSpace bool

	dataCapacity int
}

// New constructs a Tokenizer that invokes onEvent for each dispatched event.
func New(onEvent OnEvent, logger logging.Logger) *Tokenizer {
	if logger == nil {
		logger = logging.NoOp()
	}
	return &Tokenizer{
		logger:       logger,
		onEvent:      onEvent,
		st:           stateIdle,
		dataCapacity: defaultDataCapacity,
	}
}

// Write feeds p through the state machine, satisfying io.Writer so a
// Tokenizer can be the target of io.Copy from an HTTP response body.
func (t *Tokenizer) Write(p []byte) (int, error) {
	for _, b := range p {
		t.step(b)
	}
	return len(p), nil
}

// step processes one byte and applies the transition table in §4.C.
func (t *Tokenizer) step(b byte) {
	isNewline := b == '\n' || b == '\r'

	switch t.st {
	case stateIdle:
		if isNewline {
			return
		}
		t.fieldBuf = t.fieldBuf[:0]
		t.isData = false
		t.st = stateField
		t.consumeFieldByte(b)

	case stateField:
		if isNewline {
			// discard incomplete field
			t.st = stateIdle
			return
		}
		if b == ':' {
			t.isData = string(t.fieldBuf) == "data"
			t.dataBuf = t.dataBuf[:0]
			t.overflow = false
			t.skipSpace = true
			t.st = stateValue
			return
		}
		t.consumeFieldByte(b)

	case stateValue:
		if isNewline {
			if t.isData {
				t.dispatch()
			}
			t.st = stateEndOfLine
			return
		}
		if t.isData {
			t.appendData(b)
		}

	case stateEndOfLine:
		if isNewline {
			return
		}
		// reprocess this byte as the start of a new field
		t.st = stateIdle
		t.step(b)
	}
}

func (t *Tokenizer) consumeFieldByte(b byte) {
	t.fieldBuf = append(t.fieldBuf, b)
}

func (t *Tokenizer) appendData(b byte) {
	if t.overflow {
		return
	}
	// a single leading space after "data:" is conventionally skipped; the
	// spec asks for this only immediately after the colon, which is the
	// first byte seen in stateValue for this event.
	if t.skipSpace {
		t.skipSpace = false
		if b == ' ' {
			return
		}
	}
	if len(t.dataBuf) >= t.dataCapacity {
		t.overflow = true
		t.logger.Warnf("sse: data buffer overflow, dropping remainder of event")
		return
	}
	t.dataBuf = append(t.dataBuf, b)
}

func (t *Tokenizer) dispatch() {
	defer func() {
		t.dataBuf = nil
		t.overflow = false
	}()

	if t.overflow {
		return
	}

	if string(t.dataBuf) == doneSentinel {
		if t.onEvent != nil {
			t.onEvent(nil, true)
		}
		return
	}

	if t.onEvent != nil {
		// copy out: the callback gets its own slice, independent of dataBuf
		payload := make([]byte, len(t.dataBuf))
		copy(payload, t.dataBuf)
		t.onEvent(payload, false)
	}
}
