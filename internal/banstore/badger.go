// Sharewarden - Plex Account Sharing Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sharewarden

package banstore

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

const badgerBanKeyPrefix = "ban:"

// banRecord is the value stored under each ban key.
type banRecord struct {
	Username  string `json:"username"`
	ExpiresAt int64  `json:"expires_at"`
}

// BadgerStore keeps one key per banned user under the "ban:" prefix.
type BadgerStore struct {
	db     *badger.DB
	ownsDB bool
	closed bool
	mu     sync.RWMutex
}

// OpenBadgerStore opens (or creates) a BadgerDB directory at path.
func OpenBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db for bans: %w", err)
	}
	return &BadgerStore{db: db, ownsDB: true}, nil
}

// NewBadgerStoreFromDB wraps an existing DB. Close does not close db.
func NewBadgerStoreFromDB(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

func makeBanKey(username string) []byte {
	return append([]byte(badgerBanKeyPrefix), username...)
}

func (s *BadgerStore) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	return nil
}

// Load implements Store.
func (s *BadgerStore) Load(ctx context.Context) (map[string]int64, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bans := make(map[string]int64)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(badgerBanKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var rec banRecord
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return fmt.Errorf("decode ban %q: %w", it.Item().Key(), err)
			}
			bans[rec.Username] = rec.ExpiresAt
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load bans: %w", err)
	}
	return bans, nil
}

// Save implements Store. Stale keys are deleted and current bans written in
// a single transaction.
func (s *BadgerStore) Save(ctx context.Context, bans map[string]int64) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(badgerBanKeyPrefix)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)

		var stale [][]byte
		for it.Rewind(); it.Valid(); it.Next() {
			key := it.Item().KeyCopy(nil)
			username := string(bytes.TrimPrefix(key, []byte(badgerBanKeyPrefix)))
			if _, ok := bans[username]; !ok {
				stale = append(stale, key)
			}
		}
		it.Close()

		for _, key := range stale {
			if err := txn.Delete(key); err != nil {
				return fmt.Errorf("delete ban: %w", err)
			}
		}

		for username, expiry := range bans {
			data, err := json.Marshal(banRecord{Username: username, ExpiresAt: expiry})
			if err != nil {
				return fmt.Errorf("marshal ban: %w", err)
			}
			if err := txn.Set(makeBanKey(username), data); err != nil {
				return fmt.Errorf("set ban: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save bans: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *BadgerStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.ownsDB {
		return s.db.Close()
	}
	return nil
}
