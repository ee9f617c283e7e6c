package halo

import (
	"fmt"
	"math"
	"runtime"
	"sort"
	"sync"

	"github.com/phil-mansfield/phasefind/cosmo"
	"github.com/phil-mansfield/phasefind/potential"
	"github.com/phil-mansfield/phasefind/stats"
)

// Store is a growable collection of halos together with the arena holding
// their members. Halo i always owns arena slot i.
type Store struct {
	Halos []Halo
	Arena Arena
	// Box is the width of the periodic simulation box. Zero disables
	// wrapping.
	Box float64
}

// NewStore returns an empty store for a box of the given width. limit caps
// the number of particle copies, zero means no limit.
func NewStore(box float64, limit int) *Store {
	s := &Store{ Box: box }
	s.Arena.Limit = limit
	return s
}

// Len returns the number of halos, live or pending deletion.
func (s *Store) Len() int { return len(s.Halos) }

// AddNewHalo appends a zeroed, growing halo and returns its index. The index
// is stable until the next call to Compact.
func (s *Store) AddNewHalo() int {
	i := len(s.Halos)
	s.Halos = append(s.Halos, Halo{ ID: int64(i), Parent: -1 })
	if j := s.Arena.AddSlot(); j != i {
		panic(fmt.Sprintf("Halo %d was given arena slot %d.", i, j))
	}
	return i
}

// FreeHalos releases every halo and the arena backing them.
func (s *Store) FreeHalos() {
	s.Halos = nil
	s.Arena.FreeParticleCopies()
}

// Members returns the particle copies of halo i. See Arena.Slot for aliasing
// rules.
func (s *Store) Members(i int) []Copy { return s.Arena.Slot(i) }

// SetMembers replaces the members of halo i.
func (s *Store) SetMembers(i int, cs []Copy) error {
	if err := s.Arena.Assign(i, cs); err != nil { return err }
	s.Halos[i].N = s.Arena.Len(i)
	return nil
}

// AppendMembers adds cs to the members of halo i.
func (s *Store) AppendMembers(i int, cs []Copy) error {
	if err := s.Arena.Append(i, cs); err != nil { return err }
	s.Halos[i].N = s.Arena.Len(i)
	return nil
}

// TruncateMembers keeps only the first n members of halo i.
func (s *Store) TruncateMembers(i, n int) {
	s.Arena.Truncate(i, n)
	s.Halos[i].N = n
}

// radius2 returns the squared periodic distance between x and the center of
// h.
func (s *Store) radius2(h *Halo, x *[3]float64) float64 {
	r2 := 0.0
	for k := 0; k < 3; k++ {
		dx := stats.Wrap(x[k] - h.X[k], s.Box)
		r2 += dx*dx
	}
	return r2
}

// MaxHaloRadius returns the largest distance between a member of halo i and
// its center, or 0 for an empty halo.
func (s *Store) MaxHaloRadius(i int) float64 {
	h := &s.Halos[i]
	max := 0.0
	for _, c := range s.Members(i) {
		if r2 := s.radius2(h, &c.X); r2 > max { max = r2 }
	}
	return math.Sqrt(max)
}

// SortedRadii writes the radii of the members of halo i and of the halos
// desc, all measured from the center of i, into buf in increasing order and
// returns the filled buffer.
func (s *Store) SortedRadii(i int, desc []int, buf []float64) []float64 {
	h := &s.Halos[i]
	buf = buf[:0]
	for _, c := range s.Members(i) {
		buf = append(buf, math.Sqrt(s.radius2(h, &c.X)))
	}
	for _, j := range desc {
		for _, c := range s.Members(j) {
			buf = append(buf, math.Sqrt(s.radius2(h, &c.X)))
		}
	}
	sort.Float64s(buf)
	return buf
}

// Descendants returns the live halos below each halo in the hierarchy.
// Deleted halos are skipped but their live children are not.
func (s *Store) Descendants() [][]int {
	desc := make([][]int, len(s.Halos))
	for j := range s.Halos {
		if s.Halos[j].state == PendingDelete { continue }
		for p := s.Halos[j].Parent; p >= 0; p = s.Halos[p].Parent {
			desc[p] = append(desc[p], j)
		}
	}
	return desc
}

// EnclosedMass finds the boundary of a halo with sorted member radii rs, each
// particle having mass m, under the comoving density threshold rho. The
// boundary is the outermost rank k whose enclosed density k*m / (4/3 pi
// r_k^3) is at least rho (a radius of zero counts as infinite density). The
// radius is interpolated to where the mean density of the k enclosed
// particles reaches rho, clipped to [r_k, r_{k+1}]. If every particle
// qualifies the radius is the outermost particle's.
//
// Taking the outermost qualifying rank makes the mass monotone in rho.
func EnclosedMass(rs []float64, m, rho float64) (mass, r float64) {
	k := 0
	for i := len(rs) - 1; i >= 0; i-- {
		ri := rs[i]
		if ri == 0 || float64(i+1)*m / (4*math.Pi/3*ri*ri*ri) >= rho {
			k = i + 1
			break
		}
	}

	if k == 0 { return 0, 0 }
	mass = float64(k) * m
	if k == len(rs) { return mass, rs[k-1] }

	r = math.Cbrt(mass / (4*math.Pi/3*rho))
	if r < rs[k-1] { r = rs[k-1] }
	if r > rs[k] { r = rs[k] }
	return mass, r
}

// MassParams describes the units needed to turn member radii into masses.
type MassParams struct {
	Cosmo cosmo.Cosmology
	ParticleMass float64
	// Workers is the number of goroutines used. Non-positive values use
	// one per CPU.
	Workers int
}

// CalcMassDefinition computes Ms and Rs under each mass definition in defs,
// along with Vmax, RVmax and Vrms, for every halo not pending deletion.
// Masses, radii and Vmax count the particles of every descendant as well as
// the halo's own members. Vrms uses only its own members.
// Halos are independent, so the work is split across goroutines without
// locking. Calling it again without membership changes gives identical
// results.
func (s *Store) CalcMassDefinition(defs []cosmo.MassDef, p *MassParams) {
	rhos := make([]float64, len(defs))
	for i, def := range defs { rhos[i] = def.ComovingDensity(&p.Cosmo) }
	g := potential.Strength(p.ParticleMass, p.Cosmo.Scale)
	desc := s.Descendants()

	workers := p.Workers
	if workers <= 0 { workers = runtime.NumCPU() }

	wg := &sync.WaitGroup{}
	for id := 0; id < workers; id++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			var buf []float64
			for i := id; i < len(s.Halos); i += workers {
				if s.Halos[i].state == PendingDelete { continue }
				buf = s.SortedRadii(i, desc[i], buf)
				s.massDefinition(i, buf, rhos, p.ParticleMass, g)
			}
		}(id)
	}
	wg.Wait()
}

func (s *Store) massDefinition(i int, rs, rhos []float64, m, g float64) {
	h := &s.Halos[i]
	if len(h.Ms) != len(rhos) {
		h.Ms, h.Rs = make([]float64, len(rhos)), make([]float64, len(rhos))
	}
	for j, rho := range rhos {
		h.Ms[j], h.Rs[j] = EnclosedMass(rs, m, rho)
	}

	h.Vmax, h.RVmax = 0, 0
	for k, r := range rs {
		if r == 0 { continue }
		if v2 := g * float64(k+1) / r; v2 > h.Vmax*h.Vmax {
			h.Vmax, h.RVmax = math.Sqrt(v2), r
		}
	}

	sum := 0.0
	members := s.Members(i)
	for _, c := range members {
		for k := 0; k < 3; k++ {
			dv := c.V[k] - h.V[k]
			sum += dv*dv
		}
	}
	h.Vrms = 0
	if len(members) > 0 { h.Vrms = math.Sqrt(sum / float64(len(members))) }
}

// Compact removes every halo pending deletion, repacks the arena and points
// each surviving halo at its closest surviving ancestor.
func (s *Store) Compact() {
	keep := make([]bool, len(s.Halos))
	newIdx := make([]int, len(s.Halos))
	n := 0
	for i := range s.Halos {
		keep[i] = s.Halos[i].state != PendingDelete
		newIdx[i] = -1
		if keep[i] {
			newIdx[i] = n
			n++
		}
	}

	for i := range s.Halos {
		if !keep[i] { continue }
		p := s.Halos[i].Parent
		// Parents always precede their children, so this walk terminates.
		for p >= 0 && !keep[p] { p = s.Halos[p].Parent }
		if p >= 0 { p = newIdx[p] }
		s.Halos[i].Parent = p
	}

	j := 0
	for i := range s.Halos {
		if keep[i] {
			s.Halos[j] = s.Halos[i]
			j++
		}
	}
	s.Halos = s.Halos[:j]
	s.Arena.Keep(keep)
}

// Merge appends every halo of other, with its members, to s. Parent indices
// are shifted to stay inside the receiving store.
func (s *Store) Merge(other *Store) error {
	off := len(s.Halos)
	if err := s.Arena.AllocParticleCopies(
		s.Arena.used + other.Arena.Occupied(),
	); err != nil {
		return err
	}

	for i := range other.Halos {
		h := other.Halos[i]
		if h.Parent >= 0 { h.Parent += off }
		j := s.AddNewHalo()
		s.Halos[j] = h
		s.Halos[j].ID = int64(j)
		if err := s.SetMembers(j, other.Members(i)); err != nil { return err }
	}
	return nil
}

// Check verifies the store's internal consistency: one arena slot per halo,
// halo counts matching their slots, and non-overlapping slots.
func (s *Store) Check() error {
	if len(s.Halos) != s.Arena.Slots() {
		return fmt.Errorf(
			"Store holds %d halos but %d arena slots.",
			len(s.Halos), s.Arena.Slots(),
		)
	}
	for i := range s.Halos {
		if s.Halos[i].N != s.Arena.Len(i) {
			return fmt.Errorf(
				"Halo %d has N = %d but its slot holds %d copies.",
				i, s.Halos[i].N, s.Arena.Len(i),
			)
		}
		if p := s.Halos[i].Parent; p >= i {
			return fmt.Errorf("Halo %d has parent %d.", i, p)
		}
	}
	return s.Arena.Check()
}
