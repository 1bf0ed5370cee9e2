// Sharewarden - Plex Account Sharing Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sharewarden

package banstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-json"
)

// FileStore keeps the ledger as a JSON object {"username": expiry, ...}.
type FileStore struct {
	path   string
	closed bool
	mu     sync.Mutex
}

// NewFileStore returns a store backed by the JSON file at path. The file is
// created on the first Save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load implements Store. A missing file is an empty ledger.
func (s *FileStore) Load(ctx context.Context) (map[string]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]int64{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read ban file: %w", err)
	}

	bans := make(map[string]int64)
	if len(data) == 0 {
		return bans, nil
	}
	if err := json.Unmarshal(data, &bans); err != nil {
		return nil, fmt.Errorf("decode ban file %s: %w", s.path, err)
	}
	return bans, nil
}

// Save implements Store. The file is replaced atomically.
func (s *FileStore) Save(ctx context.Context, bans map[string]int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if bans == nil {
		bans = map[string]int64{}
	}

	data, err := json.MarshalIndent(bans, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal bans: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create ban dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".bans-*.json")
	if err != nil {
		return fmt.Errorf("create temp ban file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // no-op after a successful rename

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp ban file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp ban file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp ban file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace ban file: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
