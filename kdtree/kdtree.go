/*package kdtree implements a static k-d tree over normalized 6D phase-space
coordinates. It supports the two queries needed for phase-space linking:
nearest-neighbour distances and fixed-radius neighbour searches.
*/
package kdtree

import (
	"math"
	"sort"
)

const (
	Dim = 6
	leafSize = 8
)

type node struct {
	lo, hi [Dim]float64
	start, end int
	left, right int
}

// Tree is a k-d tree over a fixed slice of points. The points must not be
// modified while the tree is in use.
type Tree struct {
	pts [][Dim]float64
	idx []int
	nodes []node
}

// New builds a tree over pts.
func New(pts [][Dim]float64) *Tree {
	t := &Tree{ pts: pts, idx: make([]int, len(pts)) }
	for i := range t.idx { t.idx[i] = i }
	t.nodes = make([]node, 0, 2*len(pts)/leafSize + 1)
	if len(pts) > 0 { t.build(0, len(pts)) }
	return t
}

// Len returns the number of points in the tree.
func (t *Tree) Len() int { return len(t.pts) }

// build constructs the subtree over t.idx[start:end] and returns its index.
func (t *Tree) build(start, end int) int {
	ni := len(t.nodes)
	t.nodes = append(t.nodes, node{ start: start, end: end, left: -1, right: -1 })

	n := &t.nodes[ni]
	for k := 0; k < Dim; k++ {
		n.lo[k], n.hi[k] = math.Inf(1), math.Inf(-1)
	}
	for _, i := range t.idx[start:end] {
		for k := 0; k < Dim; k++ {
			x := t.pts[i][k]
			if x < n.lo[k] { n.lo[k] = x }
			if x > n.hi[k] { n.hi[k] = x }
		}
	}

	if end - start <= leafSize { return ni }

	dim, width := 0, -1.0
	for k := 0; k < Dim; k++ {
		if w := n.hi[k] - n.lo[k]; w > width { dim, width = k, w }
	}
	// All points coincide: splitting cannot separate them.
	if width <= 0 { return ni }

	sub := t.idx[start:end]
	sort.Slice(sub, func(a, b int) bool {
		return t.pts[sub[a]][dim] < t.pts[sub[b]][dim]
	})
	mid := start + (end - start)/2

	// n may be invalidated by the appends in the recursive calls.
	left := t.build(start, mid)
	right := t.build(mid, end)
	t.nodes[ni].left, t.nodes[ni].right = left, right
	return ni
}

// boxDist2 returns the squared distance between q and the bounding box of n.
func (n *node) boxDist2(q *[Dim]float64) float64 {
	d2 := 0.0
	for k := 0; k < Dim; k++ {
		if q[k] < n.lo[k] {
			d := n.lo[k] - q[k]
			d2 += d*d
		} else if q[k] > n.hi[k] {
			d := q[k] - n.hi[k]
			d2 += d*d
		}
	}
	return d2
}

func dist2(a, b *[Dim]float64) float64 {
	d2 := 0.0
	for k := 0; k < Dim; k++ {
		d := a[k] - b[k]
		d2 += d*d
	}
	return d2
}

// Nearest returns the distance from point i to the closest other point in the
// tree, or +Inf if the tree holds a single point.
func (t *Tree) Nearest(i int) float64 {
	if len(t.pts) < 2 { return math.Inf(1) }
	best := math.Inf(1)
	t.nearest(0, i, &best)
	return math.Sqrt(best)
}

func (t *Tree) nearest(ni, i int, best *float64) {
	n := &t.nodes[ni]
	q := &t.pts[i]
	if n.boxDist2(q) >= *best { return }

	if n.left == -1 {
		for _, j := range t.idx[n.start:n.end] {
			if j == i { continue }
			if d2 := dist2(q, &t.pts[j]); d2 < *best { *best = d2 }
		}
		return
	}

	// Descend into the closer child first for tighter pruning.
	l, r := n.left, n.right
	if t.nodes[r].boxDist2(q) < t.nodes[l].boxDist2(q) { l, r = r, l }
	t.nearest(l, i, best)
	t.nearest(r, i, best)
}

// Within appends to buf the indices of all points within distance r of q
// (inclusive) and returns the extended buffer.
func (t *Tree) Within(q *[Dim]float64, r float64, buf []int) []int {
	if len(t.pts) == 0 { return buf }
	return t.within(0, q, r*r, buf)
}

func (t *Tree) within(ni int, q *[Dim]float64, r2 float64, buf []int) []int {
	n := &t.nodes[ni]
	if n.boxDist2(q) > r2 { return buf }

	if n.left == -1 {
		for _, j := range t.idx[n.start:n.end] {
			if dist2(q, &t.pts[j]) <= r2 { buf = append(buf, j) }
		}
		return buf
	}

	buf = t.within(n.left, q, r2, buf)
	return t.within(n.right, q, r2, buf)
}
