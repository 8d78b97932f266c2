// Package ai defines the contracts for external inference capabilities.
//
// An InferenceService runs inference for a resolved model over an ordered
// list of texts. A Provider pairs a model configuration with the service
// able to run it. Resolvers supply the per-index field→model mapping and
// per-model providers that drive enrichment.
//
// All implementations must be safe for concurrent use.
package ai
