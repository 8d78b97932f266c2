package semflow

import (
	"context"
	"testing"

	"github.com/poiesic/semflow/ai"
	"github.com/poiesic/semflow/ai/mock"
	"github.com/poiesic/semflow/core"
	"github.com/poiesic/semflow/enrich"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })
	return engine
}

func TestOpen_InvalidAIConfig(t *testing.T) {
	_, err := Open(t.TempDir(), WithAIConfig(&ai.Config{}))
	assert.Error(t, err)
}

func TestEngine_MappingRoundtrip(t *testing.T) {
	engine := openTestEngine(t)
	ctx := context.Background()

	mapping, err := engine.Mapping(ctx, "docs")
	require.NoError(t, err)
	assert.Nil(t, mapping)

	want := map[string][]string{"my-elser": {"title", "body"}}
	require.NoError(t, engine.SetMapping(ctx, "docs", want))

	mapping, err = engine.Mapping(ctx, "docs")
	require.NoError(t, err)
	assert.Equal(t, want, mapping)
}

func TestEngine_EnrichEndToEnd(t *testing.T) {
	engine := openTestEngine(t)
	ctx := context.Background()

	service := mock.NewMockInferenceService()
	engine.RegisterService(service)

	require.NoError(t, engine.RegisterModel(ctx, &ai.Model{
		ID:       "my-elser",
		TaskType: ai.TaskTypeSparseEmbedding,
		Service:  service.Name(),
	}))
	require.NoError(t, engine.SetMapping(ctx, "docs", map[string][]string{
		"my-elser": {"title"},
	}))

	enricher, err := engine.NewEnricher(enrich.WithPoolSize(2))
	require.NoError(t, err)
	defer enricher.Release()

	batch := &core.Batch{
		Index: "docs",
		Items: []*core.Item{
			{DocID: "1", Op: core.OpInsert, Doc: core.SourceTree{"title": "hello"}},
		},
	}

	result, err := enricher.Enrich(ctx, batch, nil)
	require.NoError(t, err)
	require.Len(t, result.Items, 1)

	root, ok := result.Items[0].Doc[enrich.RootInferenceField].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, root, "title")
	assert.Equal(t, 1, service.CallCount())
}

func TestEngine_EnrichExcludesUnresolvableModel(t *testing.T) {
	engine := openTestEngine(t)
	ctx := context.Background()

	// Mapping references a model that was never registered.
	require.NoError(t, engine.SetMapping(ctx, "docs", map[string][]string{
		"ghost": {"title"},
	}))

	enricher, err := engine.NewEnricher()
	require.NoError(t, err)
	defer enricher.Release()

	batch := &core.Batch{
		Index: "docs",
		Items: []*core.Item{
			{DocID: "1", Op: core.OpInsert, Doc: core.SourceTree{"title": "hello"}},
			{DocID: "2", Op: core.OpInsert, Doc: core.SourceTree{"other": "x"}},
		},
	}

	var failures int
	result, err := enricher.Enrich(ctx, batch, func(itemIndex int, cause error) {
		failures++
		assert.Equal(t, 0, itemIndex)
		assert.ErrorIs(t, cause, enrich.ErrNoProviderForModel)
	})
	require.NoError(t, err)

	require.Len(t, result.Items, 1)
	assert.Equal(t, "2", result.Items[0].DocID)
	assert.Equal(t, 1, failures)
}
