package phasefind

import (
	"github.com/phil-mansfield/phasefind/cosmo"
	"github.com/phil-mansfield/phasefind/halo"
)

// Catalog is the result of a pass: the final halos and their bound members.
type Catalog struct {
	// RunID identifies the pass in logs and downstream files.
	RunID string
	// MassDefs gives the meaning of each entry of Halo.Ms and Halo.Rs.
	MassDefs []cosmo.MassDef
	Store *halo.Store
	// Warnings holds the non-fatal problems of the pass as a warnings.List,
	// or nil.
	Warnings error

	minOutput int
}

// Len returns the number of halos in the catalog.
func (cat *Catalog) Len() int { return cat.Store.Len() }

// Halos returns the catalog's halos. Halo.Parent indexes this slice.
func (cat *Catalog) Halos() []halo.Halo { return cat.Store.Halos }

// Members returns the ids of the bound members of halo i.
func (cat *Catalog) Members(i int) []uint64 {
	cs := cat.Store.Members(i)
	ids := make([]uint64, len(cs))
	for j := range cs { ids[j] = cs[j].ID }
	return ids
}

// Printable reports whether halo i passes the output size cut, either by
// size or by holding a tracked particle.
func (cat *Catalog) Printable(i int) bool {
	h := &cat.Store.Halos[i]
	return h.N >= cat.minOutput || h.Marked(halo.AlwaysPrint)
}

// Children returns the indices of the halos whose parent is halo i.
func (cat *Catalog) Children(i int) []int {
	out := []int{}
	for j := i + 1; j < cat.Len(); j++ {
		if cat.Store.Halos[j].Parent == i { out = append(out, j) }
	}
	return out
}

// Free releases the catalog's halos and particle copies.
func (cat *Catalog) Free() { cat.Store.FreeHalos() }
