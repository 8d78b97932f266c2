package registry

import (
	"context"

	"github.com/poiesic/semflow/ai"
)

// Mapping associates the fields of one index with the models enriching them.
type Mapping struct {
	Index           string
	FieldsForModels map[string][]string
}

// MappingStore persists per-index field→model mappings.
// Implementations must be thread-safe and support concurrent access.
type MappingStore interface {
	// PutMapping stores the mapping, replacing any existing mapping for its index.
	PutMapping(ctx context.Context, m *Mapping) error

	// GetMapping retrieves the mapping for an index.
	// Returns ErrNotFound if no mapping exists.
	GetMapping(ctx context.Context, index string) (*Mapping, error)

	// Close closes the store and releases resources.
	Close() error
}

// ModelStore persists model configurations.
// Implementations must be thread-safe and support concurrent access.
type ModelStore interface {
	// PutModel stores the model, replacing any existing model with the same ID.
	PutModel(ctx context.Context, m *ai.Model) error

	// GetModel retrieves a model configuration by ID.
	// Returns ErrNotFound if the model doesn't exist.
	GetModel(ctx context.Context, id string) (*ai.Model, error)

	// Close closes the store and releases resources.
	Close() error
}
