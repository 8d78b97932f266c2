package mock

import (
	"context"

	"github.com/poiesic/semflow/ai"
)

// MockMappingResolver is a test double for ai.MappingResolver.
type MockMappingResolver struct {
	// Mappings maps index name to the model→fields mapping returned for it.
	Mappings map[string]map[string][]string

	// FieldsForModelsFunc is called by FieldsForModels if set.
	FieldsForModelsFunc func(ctx context.Context, index string) (map[string][]string, error)
}

// NewMockMappingResolver creates a resolver returning the same mapping for
// every index.
func NewMockMappingResolver(mapping map[string][]string) *MockMappingResolver {
	return &MockMappingResolver{
		FieldsForModelsFunc: func(ctx context.Context, index string) (map[string][]string, error) {
			return mapping, nil
		},
	}
}

// FieldsForModels returns the configured mapping for the index.
// Unknown indices resolve to an empty mapping.
func (m *MockMappingResolver) FieldsForModels(ctx context.Context, index string) (map[string][]string, error) {
	if m.FieldsForModelsFunc != nil {
		return m.FieldsForModelsFunc(ctx, index)
	}
	return m.Mappings[index], nil
}

// MockProviderResolver is a test double for ai.ProviderResolver.
type MockProviderResolver struct {
	// Providers maps model ID to the provider returned for it.
	Providers map[string]*ai.Provider

	// ProviderFunc is called by Provider if set.
	ProviderFunc func(ctx context.Context, modelID string) (*ai.Provider, error)
}

// NewMockProviderResolver creates a resolver that serves the given model IDs
// from a single shared mock inference service.
func NewMockProviderResolver(service ai.InferenceService, modelIDs ...string) *MockProviderResolver {
	if service == nil {
		service = NewMockInferenceService()
	}
	providers := make(map[string]*ai.Provider, len(modelIDs))
	for _, id := range modelIDs {
		providers[id] = &ai.Provider{
			Model:   &ai.Model{ID: id, TaskType: ai.TaskTypeSparseEmbedding, Service: service.Name()},
			Service: service,
		}
	}
	return &MockProviderResolver{Providers: providers}
}

// Provider returns the configured provider, or (nil, nil) when absent.
func (m *MockProviderResolver) Provider(ctx context.Context, modelID string) (*ai.Provider, error) {
	if m.ProviderFunc != nil {
		return m.ProviderFunc(ctx, modelID)
	}
	return m.Providers[modelID], nil
}
