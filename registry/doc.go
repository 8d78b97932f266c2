// Package registry persists the metadata that drives enrichment: per-index
// field→model mappings and model configurations.
//
// A Resolver joins the persisted records with a runtime service registry
// to implement the ai.MappingResolver and ai.ProviderResolver contracts
// consumed by the enrich package.
package registry
