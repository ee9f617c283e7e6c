package phasefind

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phil-mansfield/phasefind/halo"
	"github.com/phil-mansfield/phasefind/kdtree"
)

func testWorkspace(t *testing.T, cfg Config) *workspace {
	f, err := NewFinder(cfg, testParams(), nil)
	require.NoError(t, err)
	return newWorkspace(f)
}

func TestLink(t *testing.T) {
	table := []struct {
		xs []float64
		b float64
		comps [][]int
	}{
		{[]float64{0}, 1, [][]int{{0}}},
		{[]float64{0, 1, 2, 10, 11}, 1, [][]int{{0, 1, 2}, {3, 4}}},
		{[]float64{10, 11, 0, 1, 2}, 1, [][]int{{2, 3, 4}, {0, 1}}},
		{[]float64{0, 1, 2, 10, 11}, 0.5, [][]int{{0}, {1}, {2}, {3}, {4}}},
		{[]float64{0, 3, 6, 9}, 3, [][]int{{0, 1, 2, 3}}},
		{[]float64{5, 5, 5}, 0, [][]int{{0, 1, 2}}},
	}

	for i := range table {
		pts := make([][kdtree.Dim]float64, len(table[i].xs))
		for j, x := range table[i].xs { pts[j][2] = x }
		comps := link(kdtree.New(pts), pts, table[i].b)
		assert.Equal(t, table[i].comps, comps, "%d)", i)
	}
}

func TestAssignTies(t *testing.T) {
	cfg := DefaultConfig()
	w := testWorkspace(t, cfg)

	seeds := []seed{
		{ x: [3]float64{10, 10, 10}, sigX: 1, sigV: 1 },
		{ x: [3]float64{12, 10, 10}, sigX: 1, sigV: 1 },
	}
	cs := []halo.Copy{
		{ ID: 0, X: [3]float64{9.5, 10, 10} },
		{ ID: 1, X: [3]float64{10.2, 10, 10} },
		{ ID: 2, X: [3]float64{12.5, 10, 10} },
	}

	parts := w.assign(cs, seeds, nil)
	require.Len(t, parts, 2)
	assert.Len(t, parts[0].cs, 2)
	assert.Len(t, parts[1].cs, 1)
	assert.False(t, parts[0].swap)
	assert.False(t, parts[1].swap)

	// Particles exactly between the seeds are split at random.
	mid := make([]halo.Copy, 2000)
	for i := range mid {
		mid[i] = halo.Copy{ ID: uint64(i), X: [3]float64{11, 10, 10} }
	}
	parts = w.assign(mid, seeds, nil)
	require.Len(t, parts, 2)
	assert.True(t, parts[0].swap)
	assert.True(t, parts[1].swap)
	assert.InDelta(t, 1000, len(parts[0].cs), 150)
	assert.Equal(t, 2000, len(parts[0].cs) + len(parts[1].cs))
}

func TestAssignSingleSideIsNil(t *testing.T) {
	w := testWorkspace(t, DefaultConfig())
	seeds := []seed{
		{ x: [3]float64{10, 10, 10}, sigX: 1, sigV: 1 },
		{ x: [3]float64{50, 10, 10}, sigX: 1, sigV: 1 },
	}
	cs := []halo.Copy{{ X: [3]float64{10, 10, 10} }}
	assert.Nil(t, w.assign(cs, seeds, nil))
}

func TestAssignOwned(t *testing.T) {
	w := testWorkspace(t, DefaultConfig())
	seeds := []seed{
		{ x: [3]float64{10, 10, 10}, sigX: 1, sigV: 1 },
		{ x: [3]float64{12, 10, 10}, sigX: 1, sigV: 1 },
	}
	cs := []halo.Copy{
		{ ID: 0, X: [3]float64{10, 10, 10} },
		{ ID: 1, X: [3]float64{10.1, 10, 10} },
		{ ID: 2, X: [3]float64{9.9, 10, 10} },
	}

	// Owned particles stay with their peak however close another seed is.
	parts := w.assign(cs, seeds, []int{ -1, 1, -1 })
	require.Len(t, parts, 2)
	assert.Equal(t, []uint64{0, 2}, []uint64{parts[0].cs[0].ID, parts[0].cs[1].ID})
	assert.Equal(t, uint64(1), parts[1].cs[0].ID)
}

func TestDistinct(t *testing.T) {
	w := testWorkspace(t, DefaultConfig())
	ref := seed{ idx: make([]int, 100), sigX: 1, sigV: 1 }

	table := []struct {
		n int
		x, sigX, sigV float64
		distinct bool
	}{
		{10, 3, 1, 1, true},
		{10, 0, 1, 1, false},
		{100, 0, 1, 1, false},
		{100, 0, 0.1, 0.1, true},
		{16, 0, 0.5, 0.5, false},
		{400, 0, 0.5, 0.5, true},
		{400, 1.5, 0.9, 0.9, false},
	}

	for i, test := range table {
		s := seed{
			idx: make([]int, test.n), x: [3]float64{test.x, 0, 0},
			sigX: test.sigX, sigV: test.sigV,
		}
		if w.distinct(&ref, &s) != test.distinct {
			t.Errorf("%d) distinct(N = %d, x = %g, sigma = %g, %g) != %v",
				i + 1, test.n, test.x, test.sigX, test.sigV, test.distinct)
		}
	}
}

func TestPartitionTwoBlocks(t *testing.T) {
	w := testWorkspace(t, DefaultConfig())
	ps, _ := twoBlocks(0, [3]float64{10, 10, 10}, 0)
	cs := make([]halo.Copy, len(ps))
	for i := range ps { cs[i] = halo.Copy{ ID: ps[i].ID, Index: i, X: ps[i].X } }

	parts := w.partition(cs)
	require.Len(t, parts, 2)
	assert.Len(t, parts[0].cs, 60)
	assert.Len(t, parts[1].cs, 40)

	assert.Nil(t, w.partition(cs[:60]))
	assert.Nil(t, w.partition(cs[:5]))
}
