package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/semflow/ai"
	"github.com/poiesic/semflow/core"
)

// Document field layout for enrichment output.
const (
	// RootInferenceField is the reserved source-tree key holding all
	// enrichment output for a document.
	RootInferenceField = "_semantic_text_inference"

	// TextSubfield carries the original text of a record.
	TextSubfield = "text"

	// SparseEmbeddingSubfield carries the inference result of a record.
	SparseEmbeddingSubfield = "sparse_embedding"
)

// OnItemFailure is invoked once per failed item with the item's slot index
// in the original batch and the cause. It may be called concurrently from
// multiple workers and must return quickly.
type OnItemFailure func(itemIndex int, cause error)

// Enricher augments batches of write requests with inference results.
// Inference invocations run concurrently on a worker pool.
type Enricher struct {
	mappings  ai.MappingResolver
	providers ai.ProviderResolver
	pool      *ants.Pool
	logger    *slog.Logger
}

// Option configures an Enricher.
type Option func(*Enricher) error

// WithPoolSize sets the worker pool size for concurrent inference calls.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(e *Enricher) error {
		if size < 1 {
			size = 1
		}
		if e.pool != nil {
			e.pool.Release()
		}
		pool, err := newPool(size)
		if err != nil {
			return err
		}
		e.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Enricher) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}

// New creates an enricher resolving mappings and providers through the
// given resolvers.
func New(mappings ai.MappingResolver, providers ai.ProviderResolver, opts ...Option) (*Enricher, error) {
	if mappings == nil {
		return nil, ErrMappingResolverRequired
	}
	if providers == nil {
		return nil, ErrProviderResolverRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := newPool(poolSize)
	if err != nil {
		return nil, err
	}

	e := &Enricher{
		mappings:  mappings,
		providers: providers,
		pool:      pool,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(e); optErr != nil {
			e.Release()
			return nil, optErr
		}
	}

	return e, nil
}

// newPool creates a worker pool that re-raises worker panics. The pool
// must not swallow a contract violation: a recovered panic would leave
// barrier handles unreleased and Enrich blocked forever.
func newPool(size int) (*ants.Pool, error) {
	return ants.NewPool(size, ants.WithPanicHandler(func(v any) {
		panic(v)
	}))
}

// Release releases the worker pool.
// The enricher should not be used after calling Release.
func (e *Enricher) Release() {
	if e.pool != nil {
		e.pool.Release()
	}
}

// Enrich augments each document in the batch with inference results for
// its mapped fields, mutating item sources in place. It blocks until every
// dispatched inference call has completed.
//
// The original batch is returned unchanged when no fields require
// inference or no item failed; otherwise a compacted batch without the
// failed items, preserving the relative order of the survivors. All
// failure callbacks have run by the time Enrich returns. The only error
// return is a mapping-resolution failure; per-item errors degrade by
// exclusion instead.
func (e *Enricher) Enrich(ctx context.Context, batch *core.Batch, onItemFailure OnItemFailure) (*core.Batch, error) {
	mapping, err := e.mappings.FieldsForModels(ctx, batch.Index)
	if err != nil {
		return nil, fmt.Errorf("resolve field-model mapping for %q: %w", batch.Index, err)
	}
	// No inference fields? Terminate early
	if len(mapping) == 0 {
		return batch, nil
	}

	providers := e.loadProviders(ctx, mapping)
	failed := newIndexSet()
	done := make(chan *core.Batch, 1)
	outer, outerHandle := newBarrier(func() {
		done <- compactBatch(batch, failed)
	})

	for i, item := range batch.Items {
		// A slot may be nil because of previous errors, skip in that case
		if item == nil {
			continue
		}
		e.enrichItem(ctx, item, i, mapping, providers, failed, onItemFailure, outer.acquire())
	}
	outerHandle.release()

	return <-done, nil
}

// loadProviders resolves every model in the mapping once, before fan-out.
// A model that fails to resolve stays absent; only the items that need it
// fail during processing.
func (e *Enricher) loadProviders(ctx context.Context, mapping map[string][]string) map[string]*ai.Provider {
	providers := make(map[string]*ai.Provider, len(mapping))
	for modelID := range mapping {
		p, err := e.providers.Provider(ctx, modelID)
		if err != nil {
			e.logger.Warn("provider resolution failed", "model", modelID, "err", err)
			continue
		}
		if p != nil {
			providers[modelID] = p
		}
	}
	return providers
}

// enrichItem extracts the item's authoritative source tree and dispatches
// one inference invocation per model group with candidate fields. The item
// barrier's finalizer commits the tree back and releases the outer handle.
func (e *Enricher) enrichItem(
	ctx context.Context,
	item *core.Item,
	index int,
	mapping map[string][]string,
	providers map[string]*ai.Provider,
	failed *indexSet,
	onItemFailure OnItemFailure,
	outerHandle *handle,
) {
	tree := item.SourceTree()
	if len(tree) == 0 {
		// Nothing to enrich; trivially complete
		outerHandle.release()
		return
	}

	t := &itemTask{
		item:      item,
		index:     index,
		tree:      tree,
		failed:    failed,
		onFailure: onItemFailure,
		logger:    e.logger,
	}
	inner, innerHandle := newBarrier(func() {
		t.commit()
		outerHandle.release()
	})

	for modelID, fields := range mapping {
		group := collectFieldGroup(tree, modelID, fields)
		if group == nil {
			continue
		}
		if err := t.ensureRoot(); err != nil {
			t.fail(err)
			// Skip the remaining unissued groups; already-dispatched ones
			// run to completion and their merge output is discarded with
			// the item.
			break
		}
		provider, ok := providers[modelID]
		if !ok {
			t.fail(fmt.Errorf("%w ID %s", ErrNoProviderForModel, modelID))
			continue
		}
		e.dispatchGroup(ctx, t, group, provider, inner.acquire())
	}
	innerHandle.release()
}

// dispatchGroup submits the group's inference invocation to the worker
// pool. Whatever the outcome, the barrier handle is released exactly once,
// after merge and accounting are complete.
func (e *Enricher) dispatchGroup(ctx context.Context, t *itemTask, group *fieldGroup, provider *ai.Provider, h *handle) {
	err := e.pool.Submit(func() {
		defer h.release()

		results, err := provider.Service.Infer(ctx, provider.Model, group.texts, nil, ai.InputIngest)
		if err != nil {
			t.fail(fmt.Errorf("inference failed for model %s: %w", group.modelID, err))
			return
		}
		verifyResults(group, results, t.item.DocID)
		for field, recs := range group.records(results) {
			t.root.put(field, recs)
		}
	})
	if err != nil {
		t.fail(fmt.Errorf("submit inference task: %w", err))
		h.release()
	}
}

// verifyResults enforces the inference contract: a non-nil result list with
// exactly one result per submitted text. A violation is a collaborator bug,
// not an item failure, and panics instead of silently truncating.
func verifyResults(group *fieldGroup, results []ai.Result, docID string) {
	if results == nil && len(group.texts) > 0 {
		panic(fmt.Sprintf("enrich: no inference results for model %s in document %s", group.modelID, docID))
	}
	if len(results) != len(group.texts) {
		panic(fmt.Sprintf("enrich: inference result count mismatch for model %s: expected %d, received %d",
			group.modelID, len(group.texts), len(results)))
	}
}

// compactBatch removes failed slots, preserving the relative order of all
// surviving slots. With no failures the original batch is returned
// unchanged.
func compactBatch(batch *core.Batch, failed *indexSet) *core.Batch {
	if failed.size() == 0 {
		return batch
	}
	items := make([]*core.Item, 0, len(batch.Items)-failed.size())
	for i, it := range batch.Items {
		if !failed.has(i) {
			items = append(items, it)
		}
	}
	return &core.Batch{
		Index:   batch.Index,
		Refresh: batch.Refresh,
		Items:   items,
	}
}
