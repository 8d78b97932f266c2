package mock

import (
	"context"
	"hash/fnv"
	"strings"
	"sync"

	"github.com/poiesic/semflow/ai"
)

// MockInferenceService is a test double for ai.InferenceService.
// It allows custom behavior injection via function fields.
type MockInferenceService struct {
	// ServiceName is returned by Name. Defaults to "mock".
	ServiceName string

	// InferFunc is called by Infer if set.
	// If nil, uses default deterministic behavior.
	InferFunc func(ctx context.Context, model *ai.Model, texts []string, options map[string]string, input ai.InputType) ([]ai.Result, error)

	mu        sync.Mutex
	callCount int
}

// NewMockInferenceService creates a mock service with default deterministic behavior.
// Note: Returns concrete type to allow test assertions on call counts.
func NewMockInferenceService() *MockInferenceService {
	return &MockInferenceService{}
}

// Name returns the configured service name, or "mock".
func (m *MockInferenceService) Name() string {
	if m.ServiceName != "" {
		return m.ServiceName
	}
	return "mock"
}

// Infer generates one deterministic sparse embedding per input text.
func (m *MockInferenceService) Infer(ctx context.Context, model *ai.Model, texts []string, options map[string]string, input ai.InputType) ([]ai.Result, error) {
	m.mu.Lock()
	m.callCount++
	m.mu.Unlock()

	if m.InferFunc != nil {
		return m.InferFunc(ctx, model, texts, options, input)
	}

	results := make([]ai.Result, len(texts))
	for i, text := range texts {
		results[i] = ai.Result{Embedding: SparseEmbedding(text)}
	}
	return results, nil
}

// CallCount returns the number of times Infer was called.
func (m *MockInferenceService) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Reset clears the call count and any injected behavior.
func (m *MockInferenceService) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.InferFunc = nil
}

// SparseEmbedding creates a deterministic token→weight map from text.
// It uses FNV hashes so the same text always produces the same embedding.
func SparseEmbedding(text string) map[string]float32 {
	emb := make(map[string]float32)
	for _, token := range strings.Fields(text) {
		h := fnv.New32a()
		h.Write([]byte(token))
		// Weight in (0, 1], stable per token
		emb[token] = float32(h.Sum32()%1000+1) / 1000.0
	}
	if len(emb) == 0 {
		emb[""] = 1.0
	}
	return emb
}
