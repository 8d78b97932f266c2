// Package badger provides a BadgerDB-backed registry store.
package badger

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/semflow/ai"
	"github.com/poiesic/semflow/registry"
)

// Store persists field→model mappings and model configurations in BadgerDB.
// It implements registry.MappingStore and registry.ModelStore.
type Store struct {
	backend *Backend
	logger  *slog.Logger
}

var (
	_ registry.MappingStore = (*Store)(nil)
	_ registry.ModelStore   = (*Store)(nil)
)

// NewStore creates a store over an open backend.
func NewStore(backend *Backend) (*Store, error) {
	if backend == nil {
		return nil, errors.New("backend required")
	}
	return &Store{
		backend: backend,
		logger:  slog.Default().With("component", "registry-store"),
	}, nil
}

// PutMapping stores the mapping, replacing any existing mapping for its index.
func (s *Store) PutMapping(ctx context.Context, m *registry.Mapping) error {
	data := registry.MarshalMapping(m)
	return s.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeMappingKey(m.Index), data); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetMapping retrieves the mapping for an index.
func (s *Store) GetMapping(ctx context.Context, index string) (*registry.Mapping, error) {
	var m *registry.Mapping
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeMappingKey(index))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return registry.ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var uerr error
			m, uerr = registry.UnmarshalMapping(val)
			return uerr
		})
	}, false)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// PutModel stores the model, replacing any existing model with the same ID.
func (s *Store) PutModel(ctx context.Context, m *ai.Model) error {
	data := registry.MarshalModel(m)
	return s.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeModelKey(m.ID), data); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetModel retrieves a model configuration by ID.
func (s *Store) GetModel(ctx context.Context, id string) (*ai.Model, error) {
	var m *ai.Model
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeModelKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return registry.ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var uerr error
			m, uerr = registry.UnmarshalModel(val)
			return uerr
		})
	}, false)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Close is a no-op; the shared backend owns the database lifecycle.
func (s *Store) Close() error {
	return nil
}
