package phasefind

import (
	"fmt"
	"math"

	"github.com/phil-mansfield/phasefind/halo"
	"github.com/phil-mansfield/phasefind/potential"
	"github.com/phil-mansfield/phasefind/stats"
)

// split searches halo h for substructure. The largest peak stays in h, the
// others become its children one level deeper. Children are split (and so
// unbound) before h is unbound, which guarantees that h is still growing when
// they hand back the particles they cannot hold. h is not searched again:
// peaks nested inside h's own peak were already found by partition.
func (w *workspace) split(h, depth int) error {
	cfg := &w.f.cfg
	if w.store.Halos[h].N < cfg.MinSubstructureSize || depth >= cfg.MaxDepth {
		return w.unbind(h)
	}

	parts := w.partition(w.store.Members(h))
	if parts == nil { return w.unbind(h) }

	if err := w.store.SetMembers(h, parts[0].cs); err != nil { return err }
	if parts[0].swap { w.store.Halos[h].Mark(halo.PossibleSwap) }

	children := make([]int, len(parts) - 1)
	for i := range children {
		c := w.store.AddNewHalo()
		if err := w.store.SetMembers(c, parts[i+1].cs); err != nil {
			return err
		}
		ch := &w.store.Halos[c]
		ch.Parent, ch.Depth, ch.Group = h, depth + 1, w.group
		ch.NCreated = ch.N
		if parts[i+1].swap { ch.Mark(halo.PossibleSwap) }
		children[i] = c
	}

	for _, c := range children {
		if err := w.split(c, depth + 1); err != nil { return err }
	}
	return w.unbind(h)
}

// fillSamples fills the energy workspace with the members of a halo measured
// relative to the center x. Repeated ids (e.g. periodic duplicates) act as
// potential sources only once.
func (w *workspace) fillSamples(cs []halo.Copy, x [3]float64) []potential.Sample {
	if cap(w.samples) < len(cs) { w.samples = make([]potential.Sample, len(cs)) }
	ps := w.samples[:len(cs)]
	for id := range w.seen { delete(w.seen, id) }

	for i := range cs {
		s := &ps[i]
		*s = potential.Sample{}
		for k := 0; k < 3; k++ {
			s.X[k] = stats.Wrap(cs[i].X[k] - x[k], w.f.params.BoxSize)
			s.X[k+3] = cs[i].V[k]
		}
		if w.seen[cs[i].ID] { s.Flags |= potential.DontCalculate }
		w.seen[cs[i].ID] = true
	}
	return ps
}

// unbind iteratively removes unbound particles from halo h until its
// membership converges or the iteration cap is hit. Halos which start or
// end with too few particles are deleted. Removed particles, and all
// particles of a deleted halo, are handed to the parent.
func (w *workspace) unbind(h int) error {
	cfg := &w.f.cfg
	g := potential.Strength(w.f.params.ParticleMass, w.f.params.Scale)
	w.stripped = w.stripped[:0]
	nStart := w.store.Halos[h].N

	if nStart == 0 {
		w.store.Halos[h].Warn("halo has no members")
		w.store.Halos[h].Delete()
		return nil
	}
	if nStart < cfg.MinHaloParticles {
		w.stripped = append(w.stripped, w.store.Members(h)...)
		w.store.TruncateMembers(h, 0)
		w.store.Halos[h].Delete()
		return w.handBack(h)
	}

	for it := 1; ; it++ {
		cs := w.store.Members(h)
		xs, vs := w.phaseSpace(cs)
		x, v := stats.Center(xs, vs, w.f.params.BoxSize)
		ps := w.fillSamples(cs, x)

		finite := true
		for i := range ps {
			if !potential.Finite(&ps[i]) { finite = false }
		}
		if !finite {
			return w.fail(h, "non-finite particle data")
		}

		potential.ComputeKineticEnergy(ps, v, [3]float64{})
		potential.ComputePotential(ps, cfg.ForceResolution, g)

		w.bound = w.bound[:0]
		for i := range ps {
			if potential.Bound(&ps[i], cfg.BoundSlack) {
				w.bound = append(w.bound, cs[i])
			} else {
				w.stripped = append(w.stripped, cs[i])
			}
		}

		hd := &w.store.Halos[h]
		hd.Iterations = it
		hd.X, hd.V = x, v
		removed := len(cs) - len(w.bound)

		if removed == 0 {
			hd.SetState(halo.Finalized)
			return w.handBack(h)
		}

		hd.Mark(halo.PossibleSwap)
		if err := w.store.SetMembers(h, w.bound); err != nil { return err }
		hd = &w.store.Halos[h]

		if hd.N < cfg.MinHaloParticles ||
			float64(hd.N) < cfg.UnboundThreshold * float64(nStart) {
			w.stripped = append(w.stripped, w.store.Members(h)...)
			w.store.TruncateMembers(h, 0)
			hd.Delete()
			return w.handBack(h)
		}

		if it >= cfg.MaxUnbindIterations {
			cs = w.store.Members(h)
			xs, vs = w.phaseSpace(cs)
			hd.X, hd.V = stats.Center(xs, vs, w.f.params.BoxSize)
			hd.Warn(
				"unbinding stopped after %d iterations with %d particles " +
					"still being removed", it, removed,
			)
			hd.SetState(halo.Finalized)
			return w.handBack(h)
		}
	}
}

// fail deletes halo h, handing its finite members to the parent.
func (w *workspace) fail(h int, reason string) error {
	hd := &w.store.Halos[h]
	hd.Warn("%s", reason)
	hd.Delete()

	for _, c := range w.store.Members(h) {
		ok := true
		for k := 0; k < 3; k++ {
			if !finite(c.X[k]) || !finite(c.V[k]) { ok = false }
		}
		if ok { w.stripped = append(w.stripped, c) }
	}
	w.store.TruncateMembers(h, 0)
	return w.handBack(h)
}

// handBack gives the particles stripped from h to its parent. Particles
// stripped from a top-level halo leave the catalog. Parents are unbound
// after all of their children, so p is always still growing.
func (w *workspace) handBack(h int) error {
	p := w.store.Halos[h].Parent
	if p < 0 || len(w.stripped) == 0 {
		w.stripped = w.stripped[:0]
		return nil
	}
	if st := w.store.Halos[p].State(); st != halo.Growing {
		panic(fmt.Sprintf("Halo %d handed particles to halo %d in state %s.",
			h, p, st))
	}
	err := w.store.AppendMembers(p, w.stripped)
	w.stripped = w.stripped[:0]
	return err
}

func finite(x float64) bool { return !math.IsNaN(x) && !math.IsInf(x, 0) }
