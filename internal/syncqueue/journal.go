// Reelgraph - Dual-Index Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelgraph

package syncqueue

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/reelgraph/internal/logging"
	"github.com/tomtom215/reelgraph/internal/metrics"
	syncpkg "github.com/tomtom215/reelgraph/internal/sync"
)

// Journal errors.
var (
	ErrJournalClosed = errors.New("journal is closed")
	ErrEmptyID       = errors.New("change has no id")
)

const prefixPending = "pending:"

// Entry is one journaled change awaiting a successful replay.
type Entry struct {
	Change    syncpkg.Change `json:"change"`
	CreatedAt time.Time      `json:"created_at"`
	Attempts  int            `json:"attempts"`
	LastError string         `json:"last_error,omitempty"`
}

// Journal persists changes before they are published so a crash between
// publish and replay never loses one. Entries are removed by Ack.
type Journal struct {
	db     *badger.DB
	mu     sync.RWMutex
	closed bool
}

// OpenJournal opens (or creates) the journal in dir. An empty dir keeps the
// journal in memory.
func OpenJournal(dir string) (*Journal, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	} else {
		opts.SyncWrites = true
	}
	// Reduce logging verbosity
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	j := &Journal{db: db}
	n, err := j.count()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	metrics.QueuePending.Set(float64(n))

	logging.Info().
		Str("path", dir).
		Bool("in_memory", dir == "").
		Int("pending", n).
		Msg("Sync journal opened")
	return j, nil
}

func (j *Journal) checkOpen() error {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return ErrJournalClosed
	}
	return nil
}

// Append records c. Appending an id that is already pending keeps the
// original entry.
func (j *Journal) Append(ctx context.Context, c syncpkg.Change) error {
	if err := j.checkOpen(); err != nil {
		return err
	}
	if c.ID == "" {
		return ErrEmptyID
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	entry := Entry{Change: c, CreatedAt: time.Now().UTC()}
	data, err := json.Marshal(&entry)
	if err != nil {
		return fmt.Errorf("marshal journal entry: %w", err)
	}

	key := []byte(prefixPending + c.ID)
	added := false
	err = j.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if err == nil {
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		added = true
		return txn.Set(key, data)
	})
	if err != nil {
		return fmt.Errorf("write journal entry: %w", err)
	}
	if added {
		metrics.QueuePending.Inc()
	}
	return nil
}

// RecordAttempt stores a failed replay attempt on the entry.
func (j *Journal) RecordAttempt(ctx context.Context, id string, cause error) error {
	if err := j.checkOpen(); err != nil {
		return err
	}
	key := []byte(prefixPending + id)
	return j.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		var entry Entry
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		}); err != nil {
			return fmt.Errorf("unmarshal journal entry: %w", err)
		}
		entry.Attempts++
		if cause != nil {
			entry.LastError = cause.Error()
		}
		data, err := json.Marshal(&entry)
		if err != nil {
			return fmt.Errorf("marshal journal entry: %w", err)
		}
		return txn.Set(key, data)
	})
}

// Ack removes the entry for id. Acking an unknown id is a no-op, so a
// redelivered message can be acked twice.
func (j *Journal) Ack(ctx context.Context, id string) error {
	if err := j.checkOpen(); err != nil {
		return err
	}
	if id == "" {
		return ErrEmptyID
	}

	key := []byte(prefixPending + id)
	removed := false
	err := j.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		removed = true
		return txn.Delete(key)
	})
	if err != nil {
		return fmt.Errorf("ack journal entry: %w", err)
	}
	if removed {
		metrics.QueuePending.Dec()
	}
	return nil
}

// Pending returns every unacknowledged entry, oldest first.
func (j *Journal) Pending(ctx context.Context) ([]Entry, error) {
	if err := j.checkOpen(); err != nil {
		return nil, err
	}

	var entries []Entry
	err := j.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixPending)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var entry Entry
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			}); err != nil {
				return fmt.Errorf("unmarshal journal entry: %w", err)
			}
			entries = append(entries, entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(entries, func(a, b int) bool {
		return entries[a].CreatedAt.Before(entries[b].CreatedAt)
	})
	return entries, nil
}

func (j *Journal) count() (int, error) {
	n := 0
	err := j.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefixPending)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("count journal entries: %w", err)
	}
	return n, nil
}

// Len returns the number of pending entries.
func (j *Journal) Len() (int, error) {
	if err := j.checkOpen(); err != nil {
		return 0, err
	}
	return j.count()
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil
	}
	j.closed = true
	return j.db.Close()
}
