package enrich

import (
	"fmt"

	"github.com/poiesic/semflow/ai"
	"github.com/poiesic/semflow/core"
)

// fieldGroup is the unit of inference fan-out: the candidate fields of one
// document mapped to one model, flattened into an ordered text list.
// counts records how many texts each candidate field contributed, so
// results can be re-zipped per field in the same order.
type fieldGroup struct {
	modelID string
	fields  []string
	counts  []int
	texts   []string
}

// collectFieldGroup selects the subset of the given field names present in
// the tree with a non-null value and builds the ordered text list for them.
// List-valued fields contribute one text per element (null elements become
// the empty string); scalar fields contribute a single text. Returns nil
// when no candidate fields exist.
func collectFieldGroup(tree core.SourceTree, modelID string, fields []string) *fieldGroup {
	g := &fieldGroup{modelID: modelID}
	for _, name := range fields {
		value, ok := tree[name]
		if !ok || value == nil {
			continue
		}
		n := 1
		if list, isList := value.([]any); isList {
			n = len(list)
			for _, elem := range list {
				g.texts = append(g.texts, stringify(elem))
			}
		} else {
			g.texts = append(g.texts, stringify(value))
		}
		g.fields = append(g.fields, name)
		g.counts = append(g.counts, n)
	}
	if len(g.fields) == 0 {
		return nil
	}
	return g
}

// records re-zips inference results back per candidate field, in the order
// the texts were built. Each field maps to a freshly built record list that
// replaces any previous enrichment for it. The caller must have verified
// that len(results) == len(g.texts).
func (g *fieldGroup) records(results []ai.Result) map[string][]any {
	out := make(map[string][]any, len(g.fields))
	idx := 0
	for i, name := range g.fields {
		recs := make([]any, 0, g.counts[i])
		for j := 0; j < g.counts[i]; j++ {
			recs = append(recs, map[string]any{
				TextSubfield:            g.texts[idx],
				SparseEmbeddingSubfield: results[idx].Embedding,
			})
			idx++
		}
		out[name] = recs
	}
	return out
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprintf("%v", t)
	}
}
