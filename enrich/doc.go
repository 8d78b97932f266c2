// Package enrich augments batches of write requests with inference results.
//
// The Enricher fans out one task per document and, inside it, one
// inference invocation per model group, joined by reference-counted
// barriers. Documents whose enrichment fails are excluded from the
// returned batch and reported through a failure callback; failures never
// abort sibling documents or the batch.
//
// Broken collaborator contracts (a result count differing from the
// submitted text count, barrier misuse) are not recoverable and panic.
package enrich
