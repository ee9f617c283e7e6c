package phasefind

import (
	"encoding/binary"

	"github.com/spaolacci/murmur3"

	"github.com/phil-mansfield/phasefind/halo"
	"github.com/phil-mansfield/phasefind/potential"
	"github.com/phil-mansfield/phasefind/rand"
)

// workspace is the private state of one worker goroutine. Nothing in it is
// shared, so the whole recursive split/unbind path runs without locks.
type workspace struct {
	f *Finder
	gen *rand.Generator

	// The store of the group currently being processed.
	store *halo.Store
	group int

	xs, vs [][3]float64
	samples []potential.Sample
	bound, stripped []halo.Copy
	idBuf [8]byte
	seen map[uint64]bool
}

func newWorkspace(f *Finder) *workspace {
	return &workspace{
		f: f,
		gen: rand.NewSeed(rand.Tausworthe, f.cfg.Seed),
		seen: make(map[uint64]bool),
	}
}

// reseed makes the random stream a pure function of the configured seed and
// the group's membership, so results do not depend on which worker picks up
// which group.
func (w *workspace) reseed(cs []halo.Copy) {
	h := murmur3.New64()
	for i := range cs {
		binary.LittleEndian.PutUint64(w.idBuf[:], cs[i].ID)
		h.Write(w.idBuf[:])
	}
	w.gen.Seed(w.f.cfg.Seed ^ h.Sum64())
}

// randomUnit returns a uniform deviate in [0, 1).
func (w *workspace) randomUnit() float64 { return w.gen.Unit() }

// phaseSpace splits copies into position and velocity buffers owned by the
// workspace.
func (w *workspace) phaseSpace(cs []halo.Copy) (xs, vs [][3]float64) {
	if cap(w.xs) < len(cs) {
		w.xs = make([][3]float64, len(cs))
		w.vs = make([][3]float64, len(cs))
	}
	xs, vs = w.xs[:len(cs)], w.vs[:len(cs)]
	for i := range cs {
		xs[i], vs[i] = cs[i].X, cs[i].V
	}
	return xs, vs
}
