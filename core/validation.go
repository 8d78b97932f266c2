package core

import "fmt"

// Validate checks that the item's operation tag is a known variant and that
// the tag matches the embedded trees. A nil or empty authoritative tree is
// valid; enrichment treats such items as trivially complete.
func (it *Item) Validate() error {
	switch it.Op {
	case OpInsert, OpUpdateDoc, OpUpdateUpsert:
		return nil
	default:
		return fmt.Errorf("%w: op %d (doc %q)", ErrInvalidOp, it.Op, it.DocID)
	}
}

// Validate checks batch-level invariants: a non-empty target index and valid
// operation tags on all non-nil item slots.
func (b *Batch) Validate() error {
	if b.Index == "" {
		return ErrEmptyIndex
	}
	for i, it := range b.Items {
		if it == nil {
			continue
		}
		if err := it.Validate(); err != nil {
			return fmt.Errorf("%w: slot %d: %w", ErrInvalidItem, i, err)
		}
	}
	return nil
}
