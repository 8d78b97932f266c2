package openai

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/poiesic/semflow/ai"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// ServiceName is the identifier models use to reference this service.
const ServiceName = "openai"

// modelSettingKey optionally overrides the upstream model name; when absent
// the model ID itself is sent to the API.
const modelSettingKey = "model"

// Service implements ai.InferenceService using OpenAI-compatible embedding APIs.
type Service struct {
	config *ai.Config
	logger *slog.Logger

	mu        sync.Mutex
	embedders map[string]embeddings.Embedder // keyed by model ID
}

var _ ai.InferenceService = (*Service)(nil)

// NewService creates a service using the provided configuration.
// A nil config uses ai.DefaultConfig().
func NewService(config *ai.Config) (*Service, error) {
	if config == nil {
		config = ai.DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Service{
		config:    config,
		logger:    slog.Default().With("component", "openai-service"),
		embedders: make(map[string]embeddings.Embedder),
	}, nil
}

// Name returns the service identifier.
func (s *Service) Name() string {
	return ServiceName
}

// Infer generates one embedding per input text, in input order.
// Failing calls are retried with exponential backoff per the service
// configuration before the error is reported to the caller.
func (s *Service) Infer(ctx context.Context, model *ai.Model, texts []string, options map[string]string, input ai.InputType) ([]ai.Result, error) {
	embedder, err := s.embedderFor(model)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("generating embeddings", "model", model.ID, "texts", len(texts), "input", input)

	var vectors [][]float32
	err = s.withRetry(ctx, func() error {
		var embedErr error
		vectors, embedErr = embedder.EmbedDocuments(ctx, texts)
		return embedErr
	})
	if err != nil {
		s.logger.Error("failed to generate embeddings", "model", model.ID, "texts", len(texts), "err", err)
		return nil, err
	}

	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedding result mismatch. expected %d, received %d", len(texts), len(vectors))
	}

	results := make([]ai.Result, len(vectors))
	for i, vec := range vectors {
		results[i] = ai.Result{Embedding: vec}
	}
	return results, nil
}

// embedderFor returns the cached embedder for the model, creating it on
// first use.
func (s *Service) embedderFor(model *ai.Model) (embeddings.Embedder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.embedders[model.ID]; ok {
		return e, nil
	}

	modelName := model.ID
	if name, ok := model.Settings[modelSettingKey]; ok && name != "" {
		modelName = name
	}

	// Use "none" style tokens for local OpenAI-compatible services that
	// don't require authentication
	client, err := openai.New(
		openai.WithBaseURL(s.config.Host),
		openai.WithToken(s.config.Token),
		openai.WithEmbeddingModel(modelName),
	)
	if err != nil {
		return nil, err
	}

	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, err
	}

	s.embedders[model.ID] = embedder
	return embedder, nil
}
