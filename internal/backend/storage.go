// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package backend

import (
	"context"
	"sync"
)

// MemoryStorage keeps a session in memory. API requests use it for the
// bearer token they arrive with.
type MemoryStorage struct {
	mu   sync.Mutex
	sess *Session
}

// NewMemoryStorage returns storage preloaded with s, which may be nil.
func NewMemoryStorage(s *Session) *MemoryStorage {
	return &MemoryStorage{sess: s}
}

func (m *MemoryStorage) Load(context.Context) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sess == nil {
		return nil, nil
	}
	s := *m.sess
	return &s, nil
}

func (m *MemoryStorage) Save(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.sess = &cp
	return nil
}

func (m *MemoryStorage) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sess = nil
	return nil
}
