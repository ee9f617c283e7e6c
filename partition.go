package phasefind

import (
	"math"
	"sort"

	"github.com/phil-mansfield/phasefind/halo"
	"github.com/phil-mansfield/phasefind/kdtree"
	"github.com/phil-mansfield/phasefind/stats"
)

// seed is a candidate phase-space density peak.
type seed struct {
	idx []int
	x, v [3]float64
	sigX, sigV float64
}

// part is a set of particles assigned to one peak.
type part struct {
	cs []halo.Copy
	swap bool
}

// dispersion returns the robust dispersions of a particle set with the
// configured floors applied.
func (w *workspace) dispersion(xs, vs [][3]float64) (sigX, sigV float64) {
	sigX, sigV = stats.RobustDispersion(xs, vs, w.f.params.BoxSize)
	if sigX < w.f.cfg.MinDispersionX { sigX = w.f.cfg.MinDispersionX }
	if sigV < w.f.cfg.MinDispersionV { sigV = w.f.cfg.MinDispersionV }
	return sigX, sigV
}

// linkingLength returns the 6D linking length under which FOFFraction of
// the points have a neighbour.
func (w *workspace) linkingLength(tree *kdtree.Tree) float64 {
	nn := make([]float64, tree.Len())
	for i := range nn { nn[i] = tree.Nearest(i) }
	b, err := stats.MedianRadius(nn, w.f.cfg.FOFFraction)
	if err != nil { panic(err.Error()) }
	return b * (1 + w.f.cfg.LinkSlack)
}

// link runs friends-of-friends over pts with linking length b and returns
// the components, each sorted by index, largest first.
func link(tree *kdtree.Tree, pts [][kdtree.Dim]float64, b float64) [][]int {
	parent := make([]int, len(pts))
	for i := range parent { parent[i] = i }
	find := func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}

	var buf []int
	for i := range pts {
		buf = tree.Within(&pts[i], b, buf[:0])
		for _, j := range buf {
			ri, rj := find(i), find(j)
			if ri == rj { continue }
			if ri < rj {
				parent[rj] = ri
			} else {
				parent[ri] = rj
			}
		}
	}

	comps := map[int][]int{}
	for i := range pts {
		r := find(i)
		comps[r] = append(comps[r], i)
	}
	out := make([][]int, 0, len(comps))
	for _, c := range comps { out = append(out, c) }
	sortBySize(out)
	return out
}

// sortBySize orders index sets from largest to smallest, breaking ties by
// their smallest index so that the order is deterministic.
func sortBySize(sets [][]int) {
	sort.Slice(sets, func(i, j int) bool {
		if len(sets[i]) != len(sets[j]) { return len(sets[i]) > len(sets[j]) }
		return sets[i][0] < sets[j][0]
	})
}

func (w *workspace) seedProperties(s *seed, xs, vs [][3]float64) {
	sx, sv := make([][3]float64, len(s.idx)), make([][3]float64, len(s.idx))
	for i, j := range s.idx { sx[i], sv[i] = xs[j], vs[j] }
	s.x, s.v = stats.Center(sx, sv, w.f.params.BoxSize)
	s.sigX, s.sigV = w.dispersion(sx, sv)
}

// phaseDist2 is the squared phase-space distance from (x, v) to s in units of
// s's dispersions.
func (w *workspace) phaseDist2(s *seed, x, v *[3]float64) float64 {
	dx2, dv2 := 0.0, 0.0
	for k := 0; k < 3; k++ {
		dx := stats.Wrap(x[k] - s.x[k], w.f.params.BoxSize)
		dv := v[k] - s.v[k]
		dx2 += dx*dx
		dv2 += dv*dv
	}
	return dx2 / (s.sigX*s.sigX) + dv2 / (s.sigV*s.sigV)
}

// logDensity is the log of s's phase-space density up to a constant.
func (s *seed) logDensity() float64 {
	return math.Log(float64(len(s.idx))) - 3*math.Log(s.sigX*s.sigV)
}

// distinct reports whether the subgroup s is a peak of its own rather than
// a fluctuation of the set ref it was found in. Either its center is at
// least MergeDistance away in ref's dispersion units or it is denser than
// ref by the configured contrast. The required contrast grows for small
// subgroups, whose dispersions are noisy.
func (w *workspace) distinct(ref, s *seed) bool {
	cfg := &w.f.cfg
	md2 := cfg.MergeDistance * cfg.MergeDistance
	if w.phaseDist2(ref, &s.x, &s.v) >= md2 { return true }

	need := math.Log(cfg.PeakContrast) +
		cfg.ContrastNoise / math.Sqrt(float64(len(s.idx)))
	return s.logDensity() - ref.logDensity() >= need
}

// subgroups links the particles idx in phase space normalized by their own
// dispersions and returns every linked subgroup with at least
// MinHaloParticles members, largest first and with properties set. It
// returns nil if idx is too small to search or if it links into a single
// subgroup.
func (w *workspace) subgroups(xs, vs [][3]float64, idx []int) []seed {
	cfg := &w.f.cfg
	if len(idx) < cfg.MinSubstructureSize { return nil }

	sx, sv := make([][3]float64, len(idx)), make([][3]float64, len(idx))
	for i, j := range idx { sx[i], sv[i] = xs[j], vs[j] }
	sigX, sigV := w.dispersion(sx, sv)
	pts, ok := stats.Normalize(
		sx, sv, sigX, sigV, w.f.params.BoxSize, cfg.MinSubstructureSize,
	)
	if !ok { return nil }

	tree := kdtree.New(pts)
	b := w.linkingLength(tree)
	if math.IsInf(b, 0) || math.IsNaN(b) { return nil }

	subs := []seed{}
	for _, comp := range link(tree, pts, b) {
		if len(comp) < cfg.MinHaloParticles { break }
		if len(comp) == len(idx) { return nil }
		for i := range comp { comp[i] = idx[comp[i]] }
		subs = append(subs, seed{ idx: comp })
	}
	for i := range subs { w.seedProperties(&subs[i], xs, vs) }
	return subs
}

// peaks descends the hierarchy of linked subgroups of idx. At each level
// the set is relinked with a linking length set by its own dispersions,
// every smaller subgroup which is distinct from the set and from all larger
// subgroups is kept as a peak, and the search continues into the largest
// subgroup until that is distinct itself. hostless is true if the largest
// subgroup of idx was already distinct, in which case idx has no central
// peak of its own.
func (w *workspace) peaks(
	xs, vs [][3]float64, idx []int,
) (peaks []seed, hostless bool) {
	for level := 0; ; level++ {
		subs := w.subgroups(xs, vs, idx)
		if len(subs) == 0 { return peaks, false }
		node := seed{ idx: idx }
		w.seedProperties(&node, xs, vs)

	search:
		for i := 1; i < len(subs); i++ {
			if !w.distinct(&node, &subs[i]) { continue }
			for j := 0; j < i; j++ {
				if !w.distinct(&subs[j], &subs[i]) { continue search }
			}
			peaks = append(peaks, w.refine(xs, vs, subs[i]))
		}

		if w.distinct(&node, &subs[0]) {
			return append(peaks, w.refine(xs, vs, subs[0])), level == 0
		}
		idx = subs[0].idx
	}
}

// refine narrows a peak to its largest subgroup for as long as that
// subgroup is distinct. This drops the diffuse particles which a dense peak
// picks up when it is linked at a coarser level.
func (w *workspace) refine(xs, vs [][3]float64, s seed) seed {
	for {
		subs := w.subgroups(xs, vs, s.idx)
		if len(subs) == 0 || !w.distinct(&s, &subs[0]) { return s }
		s = subs[0]
	}
}

// partition looks for distinct phase-space density peaks in cs. If there is
// at most one, it returns nil. Otherwise every particle is assigned to a
// peak and the resulting sets are returned largest first.
//
// Unless the set is hostless, the particles belonging to no peak form one
// more seed for the host itself.
func (w *workspace) partition(cs []halo.Copy) []part {
	xs, vs := w.phaseSpace(cs)
	idx := make([]int, len(cs))
	for i := range idx { idx[i] = i }

	seeds, hostless := w.peaks(xs, vs, idx)
	if len(seeds) == 0 { return nil }

	owner := make([]int, len(cs))
	for i := range owner { owner[i] = -1 }
	for s := range seeds {
		for _, j := range seeds[s].idx { owner[j] = s }
	}

	if !hostless {
		host := seed{}
		for i := range owner {
			if owner[i] < 0 { host.idx = append(host.idx, i) }
		}
		if len(host.idx) > 0 {
			w.seedProperties(&host, xs, vs)
			seeds = append(seeds, host)
		}
	}

	return w.assign(cs, seeds, owner)
}

// assign gives every particle owned by a peak to that peak and every other
// particle to the seed closest in phase space. Near ties are broken at
// random, and both halos involved are flagged as possibly needing to swap
// particles. owner may be nil.
func (w *workspace) assign(cs []halo.Copy, seeds []seed, owner []int) []part {
	parts := make([]part, len(seeds))
	tol := w.f.cfg.TieTolerance

	for i := range cs {
		if owner != nil && owner[i] >= 0 {
			parts[owner[i]].cs = append(parts[owner[i]].cs, cs[i])
			continue
		}

		best, next := -1, -1
		bestD, nextD := math.Inf(1), math.Inf(1)
		for s := range seeds {
			d := w.phaseDist2(&seeds[s], &cs[i].X, &cs[i].V)
			if d < bestD {
				next, nextD = best, bestD
				best, bestD = s, d
			} else if d < nextD {
				next, nextD = s, d
			}
		}

		if next >= 0 && nextD - bestD <= tol * bestD {
			parts[best].swap, parts[next].swap = true, true
			if w.randomUnit() < 0.5 { best = next }
		}
		parts[best].cs = append(parts[best].cs, cs[i])
	}

	out := parts[:0]
	for _, p := range parts {
		if len(p.cs) > 0 { out = append(out, p) }
	}
	sort.SliceStable(out, func(i, j int) bool {
		return len(out[i].cs) > len(out[j].cs)
	})
	if len(out) < 2 { return nil }
	return out
}
