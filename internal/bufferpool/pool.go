// Copyright (c) 2023-2025 xAI Go SDK Authors
//
// Licensed under the Apache License, Version 2.0.

// Package bufferpool implements a fixed-count pool of reusable byte buffers,
// guarded by a single mutex. Exhaustion is non-fatal: callers fall back to
// allocating from the general heap.
package bufferpool

import "sync"

// Buffer is a handle into a pool slot. Data is sized to Capacity; Used
// tracks how much of it holds live content.
type Buffer struct {
	Data     []byte
	Capacity int
	Used     int
	inUse    bool
}

// Pool is a fixed-size array of buffer slots behind a mutex.
type Pool struct {
	mu      sync.Mutex
	buffers []*Buffer
}

// New creates a Pool of count buffers, each capacity bytes.
func New(count, capacity int) *Pool {
	p := &Pool{buffers: make([]*Buffer, count)}
	for i := range p.buffers {
		p.buffers[i] = &Buffer{Data: make([]byte, capacity), Capacity: capacity}
	}
	return p
}

// Acquire returns the first free buffer and marks it in use, or (nil, false)
// if every slot is currently in use.
func (p *Pool) Acquire() (*Buffer, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, b := range p.buffers {
		if !b.inUse {
			b.inUse = true
			b.Used = 0
			return b, true
		}
	}
	return nil, false
}

// Release returns b to the pool. Releasing a buffer not owned by this pool,
// or one already released, is a no-op.
func (p *Pool) Release(b *Buffer) {
	if b == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, candidate := range p.buffers {
		if candidate == b {
			candidate.inUse = false
			candidate.Used = 0
			return
		}
	}
}

// OutstandingCount returns how many buffers are currently acquired. Intended
// for diagnostics before Close (e.g. logging a warning about leaked buffers).
func (p *Pool) OutstandingCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, b := range p.buffers {
		if b.inUse {
			n++
		}
	}
	return n
}

// Len returns the fixed number of slots in the pool.
func (p *Pool) Len() int {
	return len(p.buffers)
}
