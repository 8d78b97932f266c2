// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package semflow

import (
	"context"
	"log/slog"

	"github.com/poiesic/semflow/ai"
	"github.com/poiesic/semflow/ai/openai"
	"github.com/poiesic/semflow/enrich"
	"github.com/poiesic/semflow/registry"
	"github.com/poiesic/semflow/registry/badger"
)

// Engine wires the registry store, the inference services and the
// enrichment pipeline behind a single handle.
type Engine struct {
	backend  *badger.Backend
	store    *badger.Store
	services *ai.ServiceRegistry
	resolver *registry.Resolver
	logger   *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*engineOptions)

type engineOptions struct {
	aiConfig *ai.Config
}

// WithAIConfig sets the configuration used for the built-in OpenAI-compatible
// inference service.
func WithAIConfig(cfg *ai.Config) EngineOption {
	return func(o *engineOptions) {
		o.aiConfig = cfg
	}
}

// Open opens the registry database at filePath and assembles the engine
// with the built-in OpenAI-compatible inference service registered.
func Open(filePath string, opts ...EngineOption) (*Engine, error) {
	options := &engineOptions{
		aiConfig: ai.DefaultConfig(), // Default if not provided
	}
	for _, opt := range opts {
		opt(options)
	}

	backend, err := badger.OpenBackend(filePath, false)
	if err != nil {
		return nil, err
	}

	store, err := badger.NewStore(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	service, err := openai.NewService(options.aiConfig)
	if err != nil {
		backend.Close()
		return nil, err
	}
	services := ai.NewServiceRegistry(service)

	resolver, err := registry.NewResolver(store, store, services)
	if err != nil {
		backend.Close()
		return nil, err
	}

	return &Engine{
		backend:  backend,
		store:    store,
		services: services,
		resolver: resolver,
		logger:   slog.Default(),
	}, nil
}

// Close closes the registry database.
func (e *Engine) Close() error {
	if err := e.store.Close(); err != nil {
		e.logger.Error("error closing registry store", "err", err)
		return err
	}
	if err := e.backend.Close(); err != nil {
		e.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

// RegisterService adds an inference service, making models referencing it
// resolvable.
func (e *Engine) RegisterService(s ai.InferenceService) {
	e.services.Register(s)
}

// RegisterModel persists a model configuration.
func (e *Engine) RegisterModel(ctx context.Context, m *ai.Model) error {
	return e.store.PutModel(ctx, m)
}

// SetMapping persists the field→model mapping for an index.
func (e *Engine) SetMapping(ctx context.Context, index string, fieldsForModels map[string][]string) error {
	return e.store.PutMapping(ctx, &registry.Mapping{
		Index:           index,
		FieldsForModels: fieldsForModels,
	})
}

// Mapping returns the stored field→model mapping for an index.
func (e *Engine) Mapping(ctx context.Context, index string) (map[string][]string, error) {
	return e.resolver.FieldsForModels(ctx, index)
}

// NewEnricher creates an enricher backed by the engine's registry.
func (e *Engine) NewEnricher(opts ...enrich.Option) (*enrich.Enricher, error) {
	return enrich.New(e.resolver, e.resolver, opts...)
}
