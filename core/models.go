package core

import (
	"encoding/binary"
	"strconv"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// String returns the ID in hexadecimal form, suitable for use as a document ID.
func (id ID) String() string {
	return strconv.FormatUint(uint64(id), 16)
}

// SourceTree is the nested key/value representation of a document's content.
// Values are JSON-like: strings, numbers, booleans, nil, []any and nested
// map[string]any. Keys are unique per level; element order inside list
// values is significant.
type SourceTree map[string]any

// Clone returns a shallow copy of the tree. Nested containers are shared.
func (t SourceTree) Clone() SourceTree {
	if t == nil {
		return nil
	}
	c := make(SourceTree, len(t))
	for k, v := range t {
		c[k] = v
	}
	return c
}

// Op selects which embedded source tree of an Item is authoritative.
type Op int

const (
	// OpInsert indexes a new document; the Doc tree is authoritative.
	OpInsert Op = iota + 1
	// OpUpdateUpsert updates with doc-as-upsert semantics; the Upsert tree is authoritative.
	OpUpdateUpsert
	// OpUpdateDoc applies a partial document update; the Doc tree is authoritative.
	OpUpdateDoc
)

// Item is a single write request in a batch.
// It carries a variant tag selecting which embedded source tree is the
// one to read and enrich.
type Item struct {
	DocID  string
	Op     Op
	Doc    SourceTree // document source for OpInsert and OpUpdateDoc
	Upsert SourceTree // upsert source for OpUpdateUpsert
}

// SourceTree returns the authoritative source tree for the item's operation.
// Returns nil for an unknown operation.
func (it *Item) SourceTree() SourceTree {
	switch it.Op {
	case OpInsert, OpUpdateDoc:
		return it.Doc
	case OpUpdateUpsert:
		return it.Upsert
	}
	return nil
}

// CommitSourceTree writes the (possibly mutated) source tree back into the
// item, honoring the operation's variant tag.
func (it *Item) CommitSourceTree(tree SourceTree) {
	switch it.Op {
	case OpInsert, OpUpdateDoc:
		it.Doc = tree
	case OpUpdateUpsert:
		it.Upsert = tree
	}
}

// RefreshPolicy is an opaque pass-through durability/refresh option for a batch.
type RefreshPolicy string

const (
	// RefreshNone performs no refresh after the batch is written.
	RefreshNone RefreshPolicy = ""
	// RefreshImmediate refreshes the target index immediately.
	RefreshImmediate RefreshPolicy = "true"
	// RefreshWaitFor waits for the next scheduled refresh.
	RefreshWaitFor RefreshPolicy = "wait_for"
)

// Batch is an ordered sequence of write requests against one target index.
// A slot may be nil when the item was dropped by an earlier, unrelated
// failure; processing skips nil slots.
type Batch struct {
	Index   string
	Refresh RefreshPolicy
	Items   []*Item
}

// Len returns the number of non-nil item slots.
func (b *Batch) Len() int {
	n := 0
	for _, it := range b.Items {
		if it != nil {
			n++
		}
	}
	return n
}
