package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestItem_Validate(t *testing.T) {
	assert.NoError(t, (&Item{DocID: "1", Op: OpInsert}).Validate())
	assert.NoError(t, (&Item{DocID: "1", Op: OpUpdateDoc}).Validate())
	assert.NoError(t, (&Item{DocID: "1", Op: OpUpdateUpsert}).Validate())

	err := (&Item{DocID: "1"}).Validate()
	assert.ErrorIs(t, err, ErrInvalidOp)
}

func TestBatch_Validate(t *testing.T) {
	valid := &Batch{
		Index: "docs",
		Items: []*Item{nil, {DocID: "1", Op: OpInsert}},
	}
	assert.NoError(t, valid.Validate())

	noIndex := &Batch{Items: []*Item{{DocID: "1", Op: OpInsert}}}
	assert.ErrorIs(t, noIndex.Validate(), ErrEmptyIndex)

	badItem := &Batch{
		Index: "docs",
		Items: []*Item{{DocID: "1", Op: OpInsert}, {DocID: "2", Op: Op(99)}},
	}
	err := badItem.Validate()
	assert.ErrorIs(t, err, ErrInvalidItem)
	assert.ErrorIs(t, err, ErrInvalidOp)
	assert.ErrorContains(t, err, "slot 1")
}
