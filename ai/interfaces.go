package ai

import "context"

// InputType marks the purpose of an inference call so services can apply
// mode-specific handling (for example separate ingest and search endpoints).
type InputType string

const (
	// InputIngest marks inference performed while writing documents.
	InputIngest InputType = "ingest"
	// InputSearch marks inference performed at query time.
	InputSearch InputType = "search"
)

// Result is a single inference outcome for one input text.
// The embedding is opaque to callers; its shape is service-specific
// (a sparse token→weight map, a dense vector, etc).
type Result struct {
	Embedding any
}

// InferenceService runs inference for models of one service family.
// Implementations must be thread-safe for concurrent use.
type InferenceService interface {
	// Name returns the service identifier models reference via Model.Service.
	Name() string

	// Infer runs inference with the given model over an ordered list of texts.
	// The returned results are in the same order as the input texts, one per
	// text. Returning a different count is a contract violation.
	// Options carry service-specific settings; input marks the call mode.
	Infer(ctx context.Context, model *Model, texts []string, options map[string]string, input InputType) ([]Result, error)
}

// MappingResolver supplies the field→model mapping for a target index.
type MappingResolver interface {
	// FieldsForModels returns, for the given index, the set of field names
	// each model should enrich, keyed by model ID. An empty map means no
	// fields require inference.
	FieldsForModels(ctx context.Context, index string) (map[string][]string, error)
}

// ProviderResolver resolves model IDs to inference providers.
type ProviderResolver interface {
	// Provider returns the provider registered for the given model ID.
	// Absence is a valid outcome, reported as (nil, nil), not an error.
	Provider(ctx context.Context, modelID string) (*Provider, error)
}
