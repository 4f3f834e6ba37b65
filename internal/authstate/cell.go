// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package authstate

import "sync"

// Cell holds a value stamped with the sequence number of the write that
// produced it. A write is kept only if its sequence is newer than the
// current one, so the latest change wins whatever order writes arrive in.
type Cell[T any] struct {
	mu    sync.RWMutex
	value T
	seq   uint64
	set   bool
}

// Set stores v if seq is newer than the current sequence and reports
// whether it did. The first write is always accepted.
func (c *Cell[T]) Set(seq uint64, v T) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.set && seq <= c.seq {
		return false
	}
	c.value = v
	c.seq = seq
	c.set = true
	return true
}

// Get returns the current value and its sequence number.
func (c *Cell[T]) Get() (T, uint64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value, c.seq
}
