// Copyright (c) 2023-2025 xAI Go SDK Authors
//
// Licensed under the Apache License, Version 2.0.

// Package wsframe reassembles fragmented WebSocket TEXT frames, delivered at
// explicit (offset, length, fin) coordinates, into complete message
// payloads. Fragments are written at their declared offset rather than
// appended sequentially, so out-of-order delivery is tolerated.
package wsframe

import "github.com/xai-go/xai-sdk/internal/logging"

// Assembler holds one fixed-capacity reassembly buffer.
type Assembler struct {
	logger logging.Logger

	buf         []byte
	expectedLen int
	maxWritten  int
	inProgress  bool
}

// New allocates an Assembler with the given buffer capacity, which must be
// at least the negotiated maximum message size of the WebSocket protocol in
// use.
func New(capacity int, logger logging.Logger) *Assembler {
	if logger == nil {
		logger = logging.NoOp()
	}
	return &Assembler{buf: make([]byte, capacity), logger: logger}
}

// Reset discards any in-progress message.
func (a *Assembler) Reset() {
	a.expectedLen = 0
	a.maxWritten = 0
	a.inProgress = false
}

// InProgress reports whether a partial message is currently buffered.
func (a *Assembler) InProgress() bool { return a.inProgress }

// Feed ingests one fragment. It returns (complete, payload) where payload is
// the reassembled message (valid only when complete is true; it aliases the
// Assembler's internal buffer and must be copied by the caller before the
// next Feed call).
func (a *Assembler) Feed(payloadLen, payloadOffset int, data []byte, fin bool) (complete bool, payload []byte) {
	if payloadOffset == 0 {
		if a.inProgress {
			a.logger.Debugf("wsframe: zero-offset fragment arrived mid-message, discarding in-progress message")
		}
		a.expectedLen = payloadLen
		a.maxWritten = 0
		a.inProgress = true
	} else if !a.inProgress {
		a.logger.Debugf("wsframe: dropping orphan fragment at offset %d", payloadOffset)
		return false, nil
	}

	if payloadLen > len(a.buf) || payloadOffset+len(data) > len(a.buf) {
		a.logger.Warnf("wsframe: fragment exceeds buffer capacity, resetting")
		a.Reset()
		return false, nil
	}

	copy(a.buf[payloadOffset:], data)
	written := payloadOffset + len(data)
	if written > a.maxWritten {
		a.maxWritten = written
	}

	if fin && a.expectedLen > 0 && a.maxWritten == a.expectedLen {
		a.inProgress = false
		return true, a.buf[:a.expectedLen]
	}
	return false, nil
}
