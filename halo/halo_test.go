package halo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStateTransitions(t *testing.T) {
	table := []struct {
		from, to State
		ok bool
	}{
		{Growing, Finalized, true},
		{Growing, PendingDelete, true},
		{Growing, Growing, false},
		{Finalized, Growing, false},
		{Finalized, PendingDelete, true},
		{Finalized, Finalized, false},
		{PendingDelete, Growing, false},
		{PendingDelete, Finalized, false},
	}

	for i, test := range table {
		h := &Halo{ state: test.from }
		if test.ok {
			assert.NotPanics(t, func() { h.SetState(test.to) }, "%d)", i + 1)
			assert.Equal(t, test.to, h.State())
		} else {
			assert.Panics(t, func() { h.SetState(test.to) }, "%d)", i + 1)
		}
	}
}

func TestFlags(t *testing.T) {
	h := &Halo{}
	assert.Equal(t, GrowingFlag, h.Flags())

	h.Mark(PossibleSwap | Tagged)
	assert.Equal(t, GrowingFlag | PossibleSwapFlag, h.Flags())

	h.SetState(Finalized)
	h.Mark(AlwaysPrint)
	h.Unmark(PossibleSwap)
	assert.Equal(t, AlwaysPrintFlag, h.Flags())
	assert.True(t, h.Marked(Tagged))

	h.Delete()
	assert.Equal(t, DeleteFlag | AlwaysPrintFlag, h.Flags())
}

func TestWarn(t *testing.T) {
	h := &Halo{}
	h.Warn("hit %d iterations", 20)
	assert.Equal(t, []string{ "hit 20 iterations" }, h.Warnings)
}
