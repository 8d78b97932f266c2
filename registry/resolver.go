package registry

import (
	"context"
	"errors"
	"log/slog"

	"github.com/poiesic/semflow/ai"
)

// Resolver joins persisted mappings and model configurations with the
// runtime service registry, implementing the resolver contracts consumed
// by the enrich package.
type Resolver struct {
	mappings MappingStore
	models   ModelStore
	services *ai.ServiceRegistry
	logger   *slog.Logger
}

var (
	_ ai.MappingResolver  = (*Resolver)(nil)
	_ ai.ProviderResolver = (*Resolver)(nil)
)

// NewResolver creates a resolver over the given stores and service registry.
func NewResolver(mappings MappingStore, models ModelStore, services *ai.ServiceRegistry) (*Resolver, error) {
	if mappings == nil {
		return nil, ErrMappingStoreRequired
	}
	if models == nil {
		return nil, ErrModelStoreRequired
	}
	if services == nil {
		return nil, ErrServiceRegistryRequired
	}
	return &Resolver{
		mappings: mappings,
		models:   models,
		services: services,
		logger:   slog.Default().With("component", "registry-resolver"),
	}, nil
}

// FieldsForModels returns the model→fields mapping for the index.
// An index without a stored mapping resolves to an empty mapping.
func (r *Resolver) FieldsForModels(ctx context.Context, index string) (map[string][]string, error) {
	m, err := r.mappings.GetMapping(ctx, index)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m.FieldsForModels, nil
}

// Provider resolves a model ID to a runnable provider. A missing model or
// an unregistered service resolves to (nil, nil); the caller treats the
// model as having no provider.
func (r *Resolver) Provider(ctx context.Context, modelID string) (*ai.Provider, error) {
	model, err := r.models.GetModel(ctx, modelID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	service, ok := r.services.Service(model.Service)
	if !ok {
		r.logger.Warn("no registered service for model", "model", modelID, "service", model.Service)
		return nil, nil
	}

	return &ai.Provider{Model: model, Service: service}, nil
}
