// Sharewarden - Plex Account Sharing Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sharewarden

// Package banstore persists the ban ledger (username -> expiry in Unix
// seconds) between process restarts.
//
// Every Save replaces the whole stored ledger. Backends:
//   - badger: embedded BadgerDB, one key per ban (default)
//   - file: a single JSON object, written via temp file and rename
//   - memory: no persistence, for tests and dry runs
package banstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/sharewarden/internal/config"
	"github.com/tomtom215/sharewarden/internal/logging"
	"github.com/tomtom215/sharewarden/internal/metrics"
)

// Backend names a ban store implementation.
type Backend string

const (
	BackendBadger Backend = "badger"
	BackendFile   Backend = "file"
	BackendMemory Backend = "memory"
)

// ErrStoreClosed is returned by operations on a closed store.
var ErrStoreClosed = errors.New("ban store is closed")

// Store loads and saves the ban ledger.
type Store interface {
	// Load returns the stored bans. An empty store returns an empty map.
	Load(ctx context.Context) (map[string]int64, error)

	// Save replaces the stored bans with bans.
	Save(ctx context.Context, bans map[string]int64) error

	// Close releases the backend.
	Close() error
}

// New opens the store selected by cfg.
func New(cfg config.StorageConfig) (Store, error) {
	path := cfg.Path
	switch backend := Backend(cfg.Backend); backend {
	case BackendBadger:
		store, err := OpenBadgerStore(path)
		if err != nil {
			return nil, err
		}
		return store, nil
	case BackendFile:
		return NewFileStore(path), nil
	case BackendMemory, "":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown ban store backend %q", backend)
	}
}

// OpenOrMemory opens the store selected by cfg. When the backend cannot be
// opened the error is logged and an in-memory store is returned, so the
// enforcer starts with an empty ledger that lasts until the process exits.
func OpenOrMemory(cfg config.StorageConfig) Store {
	store, err := New(cfg)
	metrics.RecordBanStoreOp("open", err)
	if err != nil {
		logging.Error().
			Err(err).
			Str("backend", cfg.Backend).
			Str("path", cfg.Path).
			Msg("Ban store could not be opened, bans will not survive a restart")
		return NewMemoryStore()
	}
	return store
}

// LoadOrEmpty loads bans from store. A load failure is logged and an
// empty ledger is returned; a missing or unreadable store is never fatal.
func LoadOrEmpty(ctx context.Context, store Store) map[string]int64 {
	bans, err := store.Load(ctx)
	metrics.RecordBanStoreOp("load", err)
	if err != nil {
		logging.Warn().Err(err).Msg("Ban store could not be read, starting with an empty ban list")
		return map[string]int64{}
	}
	logging.Info().Int("bans", len(bans)).Msg("Loaded bans from store")
	return bans
}
