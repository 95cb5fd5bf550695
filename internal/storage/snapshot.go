// Package storage provides BadgerHold-based persistence for portfolio
// snapshots.
package storage

import (
	"context"
	"fmt"
	"os"

	"github.com/timshannon/badgerhold/v4"

	"github.com/foliokit/folio/internal/common"
	"github.com/foliokit/folio/internal/models"
)

// SnapshotStore persists portfolio snapshots in an embedded BadgerHold
// database. It implements interfaces.SnapshotStore.
type SnapshotStore struct {
	db     *badgerhold.Store
	logger *common.Logger
}

// NewSnapshotStore opens (or creates) a BadgerHold store at the given
// directory path.
func NewSnapshotStore(logger *common.Logger, path string) (*SnapshotStore, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory %s: %w", path, err)
	}

	options := badgerhold.DefaultOptions
	options.Dir = path
	options.ValueDir = path
	options.Logger = nil // Disable default badger logger

	db, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	logger.Debug().Str("path", path).Msg("Snapshot store opened")

	return &SnapshotStore{
		db:     db,
		logger: logger,
	}, nil
}

// Save upserts a snapshot keyed by its name.
func (s *SnapshotStore) Save(_ context.Context, snapshot *models.PortfolioSnapshot) error {
	if err := s.db.Upsert(snapshot.Name, snapshot); err != nil {
		return fmt.Errorf("failed to save snapshot '%s': %w", snapshot.Name, err)
	}
	return nil
}

// Load returns the snapshot for a name, or (nil, nil) when none has
// been saved yet.
func (s *SnapshotStore) Load(_ context.Context, name string) (*models.PortfolioSnapshot, error) {
	var snapshot models.PortfolioSnapshot
	err := s.db.Get(name, &snapshot)
	if err == badgerhold.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot '%s': %w", name, err)
	}
	return &snapshot, nil
}

// Close closes the underlying database.
func (s *SnapshotStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
