package enrich

import (
	"testing"

	"github.com/poiesic/semflow/ai"
	"github.com/poiesic/semflow/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectFieldGroup_SelectsNonNullCandidates(t *testing.T) {
	tree := core.SourceTree{
		"title":   "hello",
		"summary": nil,
		"count":   3,
	}

	g := collectFieldGroup(tree, "model-a", []string{"title", "summary", "missing", "count"})
	require.NotNil(t, g)

	assert.Equal(t, []string{"title", "count"}, g.fields)
	assert.Equal(t, []string{"hello", "3"}, g.texts)
	assert.Equal(t, []int{1, 1}, g.counts)
}

func TestCollectFieldGroup_NoCandidates(t *testing.T) {
	tree := core.SourceTree{"other": "value", "empty": nil}

	g := collectFieldGroup(tree, "model-a", []string{"title", "empty"})
	assert.Nil(t, g)
}

func TestCollectFieldGroup_ListFieldExpandsPerElement(t *testing.T) {
	tree := core.SourceTree{
		"tags":  []any{"a", nil, "b"},
		"title": "hello",
	}

	g := collectFieldGroup(tree, "model-a", []string{"tags", "title"})
	require.NotNil(t, g)

	assert.Equal(t, []string{"tags", "title"}, g.fields)
	assert.Equal(t, []string{"a", "", "b", "hello"}, g.texts)
	assert.Equal(t, []int{3, 1}, g.counts)
}

func TestCollectFieldGroup_EmptyListContributesNoTexts(t *testing.T) {
	tree := core.SourceTree{"tags": []any{}}

	g := collectFieldGroup(tree, "model-a", []string{"tags"})
	require.NotNil(t, g)

	assert.Equal(t, []string{"tags"}, g.fields)
	assert.Empty(t, g.texts)
	assert.Equal(t, []int{0}, g.counts)
}

func TestFieldGroup_RecordsRezipPerField(t *testing.T) {
	tree := core.SourceTree{
		"tags":  []any{"a", "b"},
		"title": "hello",
	}
	g := collectFieldGroup(tree, "model-a", []string{"tags", "title"})
	require.NotNil(t, g)
	require.Len(t, g.texts, 3)

	results := []ai.Result{
		{Embedding: "emb-a"},
		{Embedding: "emb-b"},
		{Embedding: "emb-hello"},
	}

	recs := g.records(results)
	require.Len(t, recs, 2)

	require.Len(t, recs["tags"], 2)
	assert.Equal(t, map[string]any{"text": "a", "sparse_embedding": "emb-a"}, recs["tags"][0])
	assert.Equal(t, map[string]any{"text": "b", "sparse_embedding": "emb-b"}, recs["tags"][1])

	require.Len(t, recs["title"], 1)
	assert.Equal(t, map[string]any{"text": "hello", "sparse_embedding": "emb-hello"}, recs["title"][0])
}
