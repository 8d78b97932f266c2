package ai

// TaskType categorizes what a model computes.
type TaskType string

const (
	// TaskTypeSparseEmbedding produces sparse token→weight embeddings.
	TaskTypeSparseEmbedding TaskType = "sparse_embedding"
	// TaskTypeTextEmbedding produces dense vector embeddings.
	TaskTypeTextEmbedding TaskType = "text_embedding"
)

// Model is a resolved model configuration.
// Settings carry service-specific parameters parsed from the registry
// (for example the upstream model name or an endpoint override).
type Model struct {
	ID       string
	TaskType TaskType
	Service  string
	Settings map[string]string
}

// Provider pairs a resolved model with the service able to run inference
// for it. Providers are resolved once per batch and read-only afterward.
type Provider struct {
	Model   *Model
	Service InferenceService
}
