// Package memory is an in-process ledger store used for development and tests.
package memory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"teampower/internal/core"
	"teampower/internal/export"
)

// SeedFile is the optional CSV file read by NewFromFiles.
const SeedFile = "seed_transactions.csv"

// Store keeps records in a slice. Appends take the write lock and readers
// receive a copy, so a snapshot never observes a partial append.
type Store struct {
	mu      sync.RWMutex
	items   []core.Transaction
	version int64
}

func New(seed ...core.Transaction) *Store {
	s := &Store{}
	for _, t := range seed {
		s.add(t)
	}
	return s
}

// NewFromFiles seeds the store from base/seed_transactions.csv when present.
// A missing file yields an empty store; an unreadable or invalid one is an error.
func NewFromFiles(base string) (*Store, error) {
	path := filepath.Join(base, SeedFile)
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("open seed: %w", err)
	}
	defer f.Close()

	records, err := export.ParseCSV(f)
	if err != nil {
		return nil, fmt.Errorf("parse seed %s: %w", path, err)
	}
	slog.Info("Seeded memory ledger", "path", path, "records", len(records))
	return New(records...), nil
}

// Append validates and stores the record and returns a synthetic identifier.
func (s *Store) Append(_ context.Context, t core.Transaction) (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.add(t), nil
}

func (s *Store) add(t core.Transaction) string {
	t.ID = fmt.Sprintf("mem:%d", len(s.items)+1)
	s.items = append(s.items, t)
	s.version++
	return t.ID
}

// ListAll returns a copy of every record in insertion order.
func (s *Store) ListAll(_ context.Context) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.Transaction(nil), s.items...), nil
}

func (s *Store) Version(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version, nil
}
