package enrich

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/poiesic/semflow/core"
)

// rootSink collects enrichment output for one document. Field groups of the
// same item insert disjoint field keys, but the container itself is shared
// across their completions, so it must support concurrent key insertion.
type rootSink struct {
	entries sync.Map
}

// put replaces the record list for a field wholesale.
func (s *rootSink) put(field string, records []any) {
	s.entries.Store(field, records)
}

// materialize converts the sink into a plain source-tree container.
func (s *rootSink) materialize() map[string]any {
	out := make(map[string]any)
	s.entries.Range(func(k, v any) bool {
		out[k.(string)] = v
		return true
	})
	return out
}

// itemTask tracks the enrichment of one document: the extracted source
// tree, the lazily resolved inference container, and failure accounting.
type itemTask struct {
	item      *core.Item
	index     int
	tree      core.SourceTree
	root      *rootSink
	failed    *indexSet
	onFailure OnItemFailure
	logger    *slog.Logger
}

// fail marks the item's index failed and reports the cause. Only the first
// failure of an item invokes the callback; later causes are logged. Safe
// to call concurrently from multiple field-group completions.
func (t *itemTask) fail(cause error) {
	first := t.failed.add(t.index)
	t.logger.Warn("item enrichment failed", "index", t.index, "doc", t.item.DocID, "err", cause)
	if first && t.onFailure != nil {
		t.onFailure(t.index, cause)
	}
}

// ensureRoot resolves the reserved inference container, seeding it with any
// existing enrichment so fields not re-enriched in this run are preserved.
// Returns ErrMalformedInferenceRoot when the document carries a non-object
// value under the reserved key.
func (t *itemTask) ensureRoot() error {
	if t.root != nil {
		return nil
	}
	sink := &rootSink{}
	if existing, ok := t.tree[RootInferenceField]; ok {
		var obj map[string]any
		switch v := existing.(type) {
		case map[string]any:
			obj = v
		case core.SourceTree:
			obj = v
		default:
			return fmt.Errorf("%w: %q", ErrMalformedInferenceRoot, RootInferenceField)
		}
		for k, v := range obj {
			sink.entries.Store(k, v)
		}
	}
	t.root = sink
	return nil
}

// commit writes the enrichment output and the mutated source tree back into
// the item. Runs in the item barrier's finalizer, after every dispatched
// field group has released its handle. Committing an item that was marked
// failed is harmless; the orchestrator drops it from the batch afterwards.
func (t *itemTask) commit() {
	if t.root != nil {
		t.tree[RootInferenceField] = t.root.materialize()
	}
	t.item.CommitSourceTree(t.tree)
}
