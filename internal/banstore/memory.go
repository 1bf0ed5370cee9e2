// Sharewarden - Plex Account Sharing Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sharewarden

package banstore

import (
	"context"
	"maps"
	"sync"
)

// MemoryStore keeps the ledger in process memory.
type MemoryStore struct {
	bans   map[string]int64
	saves  int
	closed bool
	mu     sync.RWMutex
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{bans: make(map[string]int64)}
}

// Load implements Store.
func (s *MemoryStore) Load(_ context.Context) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	return maps.Clone(s.bans), nil
}

// Save implements Store.
func (s *MemoryStore) Save(_ context.Context, bans map[string]int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	s.bans = make(map[string]int64, len(bans))
	maps.Copy(s.bans, bans)
	s.saves++
	return nil
}

// Saves returns how many times Save succeeded.
func (s *MemoryStore) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
