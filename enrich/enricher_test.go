package enrich

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/poiesic/semflow/ai"
	"github.com/poiesic/semflow/ai/mock"
	"github.com/poiesic/semflow/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failureRecorder collects failure callback invocations across workers.
type failureRecorder struct {
	mu      sync.Mutex
	indices []int
	causes  []error
}

func (r *failureRecorder) callback() OnItemFailure {
	return func(itemIndex int, cause error) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.indices = append(r.indices, itemIndex)
		r.causes = append(r.causes, cause)
	}
}

func (r *failureRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.indices)
}

func newTestEnricher(t *testing.T, mapping map[string][]string, service ai.InferenceService, modelIDs ...string) *Enricher {
	t.Helper()
	e, err := New(
		mock.NewMockMappingResolver(mapping),
		mock.NewMockProviderResolver(service, modelIDs...),
		WithPoolSize(4),
	)
	require.NoError(t, err)
	t.Cleanup(e.Release)
	return e
}

func insertItem(docID string, doc core.SourceTree) *core.Item {
	return &core.Item{DocID: docID, Op: core.OpInsert, Doc: doc}
}

func TestNew_RequiresResolvers(t *testing.T) {
	service := mock.NewMockInferenceService()

	_, err := New(nil, mock.NewMockProviderResolver(service))
	assert.ErrorIs(t, err, ErrMappingResolverRequired)

	_, err = New(mock.NewMockMappingResolver(nil), nil)
	assert.ErrorIs(t, err, ErrProviderResolverRequired)
}

func TestEnrich_EmptyMappingReturnsBatchUnchanged(t *testing.T) {
	service := mock.NewMockInferenceService()
	e := newTestEnricher(t, map[string][]string{}, service)

	batch := &core.Batch{
		Index: "docs",
		Items: []*core.Item{insertItem("1", core.SourceTree{"title": "hello"})},
	}

	rec := &failureRecorder{}
	result, err := e.Enrich(context.Background(), batch, rec.callback())
	require.NoError(t, err)

	assert.Same(t, batch, result)
	assert.Equal(t, 0, rec.count())
	assert.Equal(t, 0, service.CallCount())
	assert.NotContains(t, batch.Items[0].Doc, RootInferenceField)
}

func TestEnrich_MappingResolverErrorFailsBatch(t *testing.T) {
	resolver := &mock.MockMappingResolver{
		FieldsForModelsFunc: func(ctx context.Context, index string) (map[string][]string, error) {
			return nil, errors.New("metadata unavailable")
		},
	}
	e, err := New(resolver, mock.NewMockProviderResolver(nil))
	require.NoError(t, err)
	defer e.Release()

	_, err = e.Enrich(context.Background(), &core.Batch{Index: "docs"}, nil)
	assert.ErrorContains(t, err, "metadata unavailable")
}

func TestEnrich_EnrichesMappedField(t *testing.T) {
	service := mock.NewMockInferenceService()
	mapping := map[string][]string{"model-a": {"title"}}
	e := newTestEnricher(t, mapping, service, "model-a")

	batch := &core.Batch{
		Index: "docs",
		Items: []*core.Item{
			insertItem("0", core.SourceTree{"other": "x"}),
			insertItem("1", core.SourceTree{"title": "hello"}),
			insertItem("2", core.SourceTree{"body": "y"}),
		},
	}

	rec := &failureRecorder{}
	result, err := e.Enrich(context.Background(), batch, rec.callback())
	require.NoError(t, err)

	assert.Same(t, batch, result)
	require.Len(t, result.Items, 3)
	assert.Equal(t, 0, rec.count())

	// Items without inferable fields pass through unmodified.
	assert.NotContains(t, result.Items[0].Doc, RootInferenceField)
	assert.NotContains(t, result.Items[2].Doc, RootInferenceField)

	root, ok := result.Items[1].Doc[RootInferenceField].(map[string]any)
	require.True(t, ok)
	records, ok := root["title"].([]any)
	require.True(t, ok)
	require.Len(t, records, 1)
	assert.Equal(t, map[string]any{
		TextSubfield:            "hello",
		SparseEmbeddingSubfield: mock.SparseEmbedding("hello"),
	}, records[0])

	// The candidate field itself is untouched.
	assert.Equal(t, "hello", result.Items[1].Doc["title"])
}

func TestEnrich_UnknownModelExcludesItem(t *testing.T) {
	service := mock.NewMockInferenceService()
	mapping := map[string][]string{"unregistered": {"title"}}
	// No provider registered for "unregistered".
	e := newTestEnricher(t, mapping, service)

	item0 := insertItem("0", core.SourceTree{"other": "x"})
	item1 := insertItem("1", core.SourceTree{"title": "hello"})
	item2 := insertItem("2", core.SourceTree{"body": "y"})
	batch := &core.Batch{Index: "docs", Items: []*core.Item{item0, item1, item2}}

	rec := &failureRecorder{}
	result, err := e.Enrich(context.Background(), batch, rec.callback())
	require.NoError(t, err)

	require.Len(t, result.Items, 2)
	assert.Same(t, item0, result.Items[0])
	assert.Same(t, item2, result.Items[1])

	require.Equal(t, 1, rec.count())
	assert.Equal(t, 1, rec.indices[0])
	assert.ErrorIs(t, rec.causes[0], ErrNoProviderForModel)
}

func TestEnrich_ListFieldYieldsRecordsInOrder(t *testing.T) {
	service := mock.NewMockInferenceService()
	mapping := map[string][]string{"model-a": {"tags"}}
	e := newTestEnricher(t, mapping, service, "model-a")

	batch := &core.Batch{
		Index: "docs",
		Items: []*core.Item{insertItem("1", core.SourceTree{"tags": []any{"a", "b"}})},
	}

	result, err := e.Enrich(context.Background(), batch, nil)
	require.NoError(t, err)

	root := result.Items[0].Doc[RootInferenceField].(map[string]any)
	records, ok := root["tags"].([]any)
	require.True(t, ok)
	require.Len(t, records, 2)
	assert.Equal(t, "a", records[0].(map[string]any)[TextSubfield])
	assert.Equal(t, "b", records[1].(map[string]any)[TextSubfield])
}

func TestEnrich_RerunReplacesRecordsWholesale(t *testing.T) {
	service := mock.NewMockInferenceService()
	mapping := map[string][]string{"model-a": {"title"}}
	e := newTestEnricher(t, mapping, service, "model-a")

	stale := []any{map[string]any{TextSubfield: "old", SparseEmbeddingSubfield: "stale"}}
	doc := core.SourceTree{
		"title": "hello",
		RootInferenceField: map[string]any{
			"title":     stale,
			"untouched": []any{"kept"},
		},
	}
	batch := &core.Batch{Index: "docs", Items: []*core.Item{insertItem("1", doc)}}

	result, err := e.Enrich(context.Background(), batch, nil)
	require.NoError(t, err)

	root := result.Items[0].Doc[RootInferenceField].(map[string]any)
	records, ok := root["title"].([]any)
	require.True(t, ok)
	require.Len(t, records, 1)
	assert.Equal(t, "hello", records[0].(map[string]any)[TextSubfield])

	// Enrichment for fields outside this run is preserved.
	assert.Equal(t, []any{"kept"}, root["untouched"])
}

func TestEnrich_MalformedInferenceRootExcludesItem(t *testing.T) {
	service := mock.NewMockInferenceService()
	mapping := map[string][]string{"model-a": {"title"}}
	e := newTestEnricher(t, mapping, service, "model-a")

	good := insertItem("0", core.SourceTree{"title": "fine"})
	bad := insertItem("1", core.SourceTree{"title": "hello", RootInferenceField: "bogus"})
	batch := &core.Batch{Index: "docs", Items: []*core.Item{good, bad}}

	rec := &failureRecorder{}
	result, err := e.Enrich(context.Background(), batch, rec.callback())
	require.NoError(t, err)

	require.Len(t, result.Items, 1)
	assert.Same(t, good, result.Items[0])
	require.Equal(t, 1, rec.count())
	assert.Equal(t, 1, rec.indices[0])
	assert.ErrorIs(t, rec.causes[0], ErrMalformedInferenceRoot)
}

func TestEnrich_InferenceFailureIsIsolated(t *testing.T) {
	service := mock.NewMockInferenceService()
	service.InferFunc = func(ctx context.Context, model *ai.Model, texts []string, options map[string]string, input ai.InputType) ([]ai.Result, error) {
		for _, text := range texts {
			if strings.Contains(text, "poison") {
				return nil, errors.New("inference backend unavailable")
			}
		}
		results := make([]ai.Result, len(texts))
		for i, text := range texts {
			results[i] = ai.Result{Embedding: mock.SparseEmbedding(text)}
		}
		return results, nil
	}
	mapping := map[string][]string{"model-a": {"title"}}
	e := newTestEnricher(t, mapping, service, "model-a")

	item0 := insertItem("0", core.SourceTree{"title": "fine"})
	item1 := insertItem("1", core.SourceTree{"title": "poison"})
	item2 := insertItem("2", core.SourceTree{"title": "also fine"})
	batch := &core.Batch{Index: "docs", Items: []*core.Item{item0, item1, item2}}

	rec := &failureRecorder{}
	result, err := e.Enrich(context.Background(), batch, rec.callback())
	require.NoError(t, err)

	require.Len(t, result.Items, 2)
	assert.Same(t, item0, result.Items[0])
	assert.Same(t, item2, result.Items[1])

	// Sibling items were still enriched.
	assert.Contains(t, item0.Doc, RootInferenceField)
	assert.Contains(t, item2.Doc, RootInferenceField)

	require.Equal(t, 1, rec.count())
	assert.Equal(t, 1, rec.indices[0])
	assert.ErrorContains(t, rec.causes[0], "inference backend unavailable")
}

func TestEnrich_NilSlotsAreSkipped(t *testing.T) {
	service := mock.NewMockInferenceService()
	mapping := map[string][]string{"model-a": {"title"}}
	e := newTestEnricher(t, mapping, service, "model-a")

	batch := &core.Batch{
		Index: "docs",
		Items: []*core.Item{nil, insertItem("1", core.SourceTree{"title": "hello"}), nil},
	}

	rec := &failureRecorder{}
	result, err := e.Enrich(context.Background(), batch, rec.callback())
	require.NoError(t, err)

	assert.Same(t, batch, result)
	require.Len(t, result.Items, 3)
	assert.Nil(t, result.Items[0])
	assert.Nil(t, result.Items[2])
	assert.Equal(t, 0, rec.count())
	assert.Equal(t, 1, service.CallCount())
}

func TestEnrich_EmptySourceIsTriviallyComplete(t *testing.T) {
	service := mock.NewMockInferenceService()
	mapping := map[string][]string{"model-a": {"title"}}
	e := newTestEnricher(t, mapping, service, "model-a")

	batch := &core.Batch{
		Index: "docs",
		Items: []*core.Item{{DocID: "1", Op: core.OpInsert, Doc: nil}},
	}

	rec := &failureRecorder{}
	result, err := e.Enrich(context.Background(), batch, rec.callback())
	require.NoError(t, err)

	require.Len(t, result.Items, 1)
	assert.Equal(t, 0, rec.count())
	assert.Equal(t, 0, service.CallCount())
}

func TestEnrich_CommitsPerVariantTag(t *testing.T) {
	service := mock.NewMockInferenceService()
	mapping := map[string][]string{"model-a": {"title"}}
	e := newTestEnricher(t, mapping, service, "model-a")

	upsert := &core.Item{DocID: "1", Op: core.OpUpdateUpsert, Upsert: core.SourceTree{"title": "upsert me"}}
	partial := &core.Item{DocID: "2", Op: core.OpUpdateDoc, Doc: core.SourceTree{"title": "patch me"}}
	batch := &core.Batch{Index: "docs", Items: []*core.Item{upsert, partial}}

	result, err := e.Enrich(context.Background(), batch, nil)
	require.NoError(t, err)
	require.Len(t, result.Items, 2)

	assert.Contains(t, upsert.Upsert, RootInferenceField)
	assert.Contains(t, partial.Doc, RootInferenceField)
}

func TestEnrich_MultipleModelGroupsPerItem(t *testing.T) {
	service := mock.NewMockInferenceService()
	mapping := map[string][]string{
		"model-a": {"title"},
		"model-b": {"body"},
	}
	e := newTestEnricher(t, mapping, service, "model-a", "model-b")

	doc := core.SourceTree{"title": "hello", "body": "world"}
	batch := &core.Batch{Index: "docs", Items: []*core.Item{insertItem("1", doc)}}

	result, err := e.Enrich(context.Background(), batch, nil)
	require.NoError(t, err)

	root := result.Items[0].Doc[RootInferenceField].(map[string]any)
	assert.Contains(t, root, "title")
	assert.Contains(t, root, "body")
	assert.Equal(t, 2, service.CallCount())
}

func TestVerifyResults_ContractViolationsPanic(t *testing.T) {
	group := &fieldGroup{
		modelID: "model-a",
		fields:  []string{"title"},
		counts:  []int{1},
		texts:   []string{"hello"},
	}

	t.Run("matching count passes", func(t *testing.T) {
		assert.NotPanics(t, func() {
			verifyResults(group, []ai.Result{{Embedding: "emb"}}, "doc-1")
		})
	})

	t.Run("nil results for non-empty input panics", func(t *testing.T) {
		assert.Panics(t, func() {
			verifyResults(group, nil, "doc-1")
		})
	})

	t.Run("count mismatch panics", func(t *testing.T) {
		assert.Panics(t, func() {
			verifyResults(group, []ai.Result{{Embedding: "a"}, {Embedding: "b"}}, "doc-1")
		})
	})

	t.Run("empty group accepts empty results", func(t *testing.T) {
		empty := &fieldGroup{modelID: "model-a", fields: []string{"tags"}, counts: []int{0}}
		assert.NotPanics(t, func() {
			verifyResults(empty, nil, "doc-1")
		})
	})
}

func TestEnrich_LargeBatchPreservesOrder(t *testing.T) {
	service := mock.NewMockInferenceService()
	mapping := map[string][]string{"model-a": {"title"}}
	e := newTestEnricher(t, mapping, service, "model-a")

	const n = 50
	items := make([]*core.Item, n)
	for i := range items {
		items[i] = insertItem(fmt.Sprintf("%d", i), core.SourceTree{"title": fmt.Sprintf("document %d", i)})
	}
	batch := &core.Batch{Index: "docs", Items: items}

	result, err := e.Enrich(context.Background(), batch, nil)
	require.NoError(t, err)

	require.Len(t, result.Items, n)
	for i, item := range result.Items {
		assert.Equal(t, fmt.Sprintf("%d", i), item.DocID)
		assert.Contains(t, item.Doc, RootInferenceField)
	}
	assert.Equal(t, n, service.CallCount())
}
