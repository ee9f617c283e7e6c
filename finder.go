/*package phasefind identifies gravitationally bound halos and subhalos
inside friends-of-friends groups by recursively splitting each group into
phase-space density peaks and unbinding every peak.
*/
package phasefind

import (
	"fmt"
	"log"
	"runtime"
	"sync"

	"github.com/google/uuid"
	"gopkg.in/warnings.v0"

	"github.com/phil-mansfield/phasefind/halo"
)

// Warning is a non-fatal problem found while processing a group or halo.
type Warning struct {
	Group int
	// Halo is the halo's index inside its group's store, or -1 for
	// group-level warnings.
	Halo int
	Msg string
}

func (w *Warning) Error() string {
	if w.Halo < 0 {
		return fmt.Sprintf("Group %d: %s", w.Group, w.Msg)
	}
	return fmt.Sprintf("Group %d, halo %d: %s", w.Group, w.Halo, w.Msg)
}

// isFatal reports whether err should abort a pass. Only allocation failures
// do.
func isFatal(err error) bool {
	_, ok := err.(*halo.AllocError)
	return ok
}

// Finder runs the substructure search over the groups of one snapshot.
type Finder struct {
	cfg Config
	params Params
	ps []Particle
	tracked map[uint64]bool
	ms runtime.MemStats
}

// NewFinder returns a Finder over the particles ps. The particles are read
// but never modified.
func NewFinder(cfg Config, params Params, ps []Particle) (*Finder, error) {
	if err := cfg.CheckInit(); err != nil { return nil, err }
	if err := params.CheckInit(); err != nil { return nil, err }

	f := &Finder{ cfg: cfg, params: params, ps: ps }
	f.tracked = make(map[uint64]bool, len(cfg.TrackedIDs))
	for _, id := range cfg.TrackedIDs { f.tracked[id] = true }
	return f, nil
}

type groupResult struct {
	store *halo.Store
	warns []error
	err error
}

// Run finds the halos of every group. Groups are independent and are spread
// over Config.Workers goroutines, each owning private stores; the stores are
// merged in group order once every group is done, so the catalog does not
// depend on scheduling.
//
// Like gcfg, Run reports problems through a warnings.List: the returned
// error is nil when nothing went wrong, and warnings.FatalOnly(err) is nil
// when only warnings were raised. A fatal error returns a nil catalog.
func (f *Finder) Run(groups []Group) (*Catalog, error) {
	runID := uuid.New().String()
	if f.cfg.Log {
		log.Printf(
			"Run %s: %d groups, %d particles, %d workers.",
			runID, len(groups), len(f.ps), f.cfg.Workers,
		)
	}

	results := make([]groupResult, len(groups))
	jobs := make(chan int, f.cfg.Workers)
	wg := &sync.WaitGroup{}

	for id := 0; id < f.cfg.Workers; id++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w := newWorkspace(f)
			for gi := range jobs { results[gi] = w.processGroup(gi, &groups[gi]) }
		}()
	}
	for gi := range groups { jobs <- gi }
	close(jobs)
	wg.Wait()

	// Barrier: every group is done. Merge in order.
	c := warnings.NewCollector(isFatal)
	store := halo.NewStore(f.params.BoxSize, 0)
	for gi := range results {
		r := &results[gi]
		for _, warn := range r.warns { c.Collect(warn) }
		if r.err != nil {
			if err := c.Collect(r.err); err != nil { return nil, err }
			continue
		}
		if err := store.Merge(r.store); err != nil {
			if err := c.Collect(err); err != nil { return nil, err }
		}
		r.store.FreeHalos()
	}

	f.finalize(store)
	cat := &Catalog{
		RunID: runID,
		MassDefs: f.cfg.MassDefs,
		Store: store,
		minOutput: f.cfg.MinOutputParticles,
	}

	if f.cfg.Log {
		runtime.ReadMemStats(&f.ms)
		log.Printf(
			"Run %s: %d halos. Alloc: %5d MB, Sys: %5d MB",
			runID, store.Len(), f.ms.Alloc >> 20, f.ms.Sys >> 20,
		)
	}

	cat.Warnings = c.Done()
	return cat, cat.Warnings
}

// processGroup materializes a group as a halo and recursively splits it.
func (w *workspace) processGroup(gi int, g *Group) groupResult {
	r := groupResult{ store: halo.NewStore(
		w.f.params.BoxSize, w.f.cfg.MaxParticleCopies,
	) }

	if len(g.Index) == 0 {
		r.warns = append(r.warns, &Warning{ gi, -1, "empty group skipped" })
		return r
	}

	cs := make([]halo.Copy, len(g.Index))
	for i, pi := range g.Index {
		if pi < 0 || pi >= len(w.f.ps) {
			r.warns = append(r.warns, &Warning{ gi, -1, fmt.Sprintf(
				"particle index %d outside [0, %d), group skipped",
				pi, len(w.f.ps),
			)})
			return r
		}
		p := &w.f.ps[pi]
		cs[i] = halo.Copy{ ID: p.ID, Index: pi, X: p.X, V: p.V }
	}

	w.store, w.group = r.store, gi
	w.reseed(cs)

	h := w.store.AddNewHalo()
	if r.err = w.store.SetMembers(h, cs); r.err != nil { return r }
	w.store.Halos[h].Group = gi
	w.store.Halos[h].NCreated = len(cs)

	r.err = w.split(h, 0)
	w.store = nil

	for i := range r.store.Halos {
		for _, msg := range r.store.Halos[i].Warnings {
			r.warns = append(r.warns, &Warning{ gi, i, msg })
		}
	}
	return r
}

// finalize runs the passes which need every group to be finished.
func (f *Finder) finalize(s *halo.Store) {
	f.markTracked(s)
	p := &halo.MassParams{
		Cosmo: f.params.Cosmology(),
		ParticleMass: f.params.ParticleMass,
		Workers: f.cfg.Workers,
	}
	s.CalcMassDefinition(f.cfg.MassDefs, p)
	s.Compact()
	for i := range s.Halos { s.Halos[i].ID = int64(i) }
}

// markTracked flags every live halo holding a tracked particle, along with
// its ancestors, as always printable.
func (f *Finder) markTracked(s *halo.Store) {
	if len(f.tracked) == 0 { return }

	for i := range s.Halos {
		if s.Halos[i].State() == halo.PendingDelete { continue }
		found := false
		for _, c := range s.Members(i) {
			if f.tracked[c.ID] {
				found = true
				break
			}
		}
		for j := i; found && j >= 0; j = s.Halos[j].Parent {
			if s.Halos[j].Marked(halo.Tagged) { break }
			s.Halos[j].Mark(halo.Tagged | halo.AlwaysPrint)
		}
	}

	for i := range s.Halos { s.Halos[i].Unmark(halo.Tagged) }
}
