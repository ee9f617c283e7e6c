package io

import (
	"bufio"
	"fmt"
	"io"

	"github.com/phil-mansfield/phasefind"
)

// WriteCatalog writes a header line followed by one line per printable halo
// of cat:
//
//     id parent n x y z vx vy vz vmax rvmax vrms flags m_0 r_0 m_1 r_1 ...
//
// with masses and radii in the order of cat.MassDefs. Parent ids refer to
// the same numbering, and -1 marks a host halo.
func WriteCatalog(w io.Writer, cat *phasefind.Catalog) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "# RunID %s\n# id parent n x y z vx vy vz vmax rvmax " +
		"vrms flags", cat.RunID)
	for _, def := range cat.MassDefs {
		name := def.String()
		fmt.Fprintf(bw, " %s R%s", name, name[1:])
	}
	fmt.Fprintln(bw)

	hs := cat.Halos()
	for i := range hs {
		if !cat.Printable(i) { continue }
		h := &hs[i]
		fmt.Fprintf(
			bw, "%d %d %d %.6f %.6f %.6f %.3f %.3f %.3f %.3f %.6f %.3f %d",
			h.ID, h.Parent, h.N, h.X[0], h.X[1], h.X[2],
			h.V[0], h.V[1], h.V[2], h.Vmax, h.RVmax, h.Vrms, h.Flags(),
		)
		for j := range h.Ms {
			fmt.Fprintf(bw, " %.5g %.6f", h.Ms[j], h.Rs[j])
		}
		fmt.Fprintln(bw)
	}
	return bw.Flush()
}

// WriteMembers writes the bound member ids of every printable halo, one
// line per halo: the halo id followed by its members.
func WriteMembers(w io.Writer, cat *phasefind.Catalog) error {
	bw := bufio.NewWriter(w)
	for i := 0; i < cat.Len(); i++ {
		if !cat.Printable(i) { continue }
		fmt.Fprintf(bw, "%d", cat.Halos()[i].ID)
		for _, id := range cat.Members(i) { fmt.Fprintf(bw, " %d", id) }
		fmt.Fprintln(bw)
	}
	return bw.Flush()
}
