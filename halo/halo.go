/*package halo contains the mutable bookkeeping of a halo finding pass: the
halo records themselves, the arena holding each halo's particle copies and the
store which ties the two together.
*/
package halo

import (
	"fmt"
)

// Legacy flag values, used when exporting a halo's state.
const (
	GrowingFlag      = 1
	DeleteFlag       = 2
	PossibleSwapFlag = 4
	TaggedFlag       = 8
	AlwaysPrintFlag  = 16
)

// State is the position of a halo in its life cycle.
type State int

const (
	// Growing halos may still gain or lose particles.
	Growing State = iota
	// Finalized halos have a converged, bound membership.
	Finalized
	// PendingDelete halos are removed at the next compaction.
	PendingDelete
)

func (s State) String() string {
	switch s {
	case Growing:
		return "Growing"
	case Finalized:
		return "Finalized"
	case PendingDelete:
		return "PendingDelete"
	}
	panic(":3")
}

// allowed reports whether a halo may move from s to next.
func (s State) allowed(next State) bool {
	switch s {
	case Growing:
		return next != Growing
	case Finalized:
		return next == PendingDelete
	}
	return false
}

// Marks are annotations which are independent of a halo's State.
type Marks uint8

const (
	// PossibleSwap halos may have exchanged particles ambiguously with a
	// sibling.
	PossibleSwap Marks = 1 << iota
	// AlwaysPrint halos contain a tracked particle and bypass size cuts.
	AlwaysPrint
	// Tagged is a transient traversal marker. It is never exported.
	Tagged
)

// Halo is the single record describing a halo. It holds both the physical
// properties and the bookkeeping needed while the halo is being built.
type Halo struct {
	ID int64
	X, V [3]float64
	// Ms and Rs are indexed like the mass definitions passed to
	// Store.CalcMassDefinition.
	Ms, Rs []float64
	N int
	Parent int

	Vmax, RVmax, Vrms float64

	state State
	marks Marks

	// NCreated is the particle count when the halo was first materialized.
	NCreated int
	// Depth is the recursion depth which produced the halo (0 is the FOF
	// group level).
	Depth int
	// Iterations counts unbinding passes.
	Iterations int
	// Group is the index of the FOF group the halo came from.
	Group int
	// Warnings holds non-fatal problems found while processing the halo.
	Warnings []string
}

func (h *Halo) State() State { return h.state }

// SetState moves the halo to a new state. It panics on transitions the
// finder never makes, since they indicate a bookkeeping bug.
func (h *Halo) SetState(next State) {
	if !h.state.allowed(next) {
		panic(fmt.Sprintf(
			"Halo %d: illegal state transition %s -> %s.", h.ID, h.state, next,
		))
	}
	h.state = next
}

// Delete marks the halo for removal from any state.
func (h *Halo) Delete() { h.state = PendingDelete }

func (h *Halo) Mark(m Marks) { h.marks |= m }
func (h *Halo) Unmark(m Marks) { h.marks &^= m }
func (h *Halo) Marked(m Marks) bool { return h.marks & m != 0 }

// Warn attaches a non-fatal warning to the halo.
func (h *Halo) Warn(format string, args ...interface{}) {
	h.Warnings = append(h.Warnings, fmt.Sprintf(format, args...))
}

// Flags returns the halo's exportable state as a legacy flag bitset. The
// transient Tagged mark is never reported.
func (h *Halo) Flags() int {
	flags := 0
	switch h.state {
	case Growing:
		flags |= GrowingFlag
	case PendingDelete:
		flags |= DeleteFlag
	}
	if h.Marked(PossibleSwap) { flags |= PossibleSwapFlag }
	if h.Marked(AlwaysPrint) { flags |= AlwaysPrintFlag }
	return flags
}

// Copy is a halo's private copy of a particle.
type Copy struct {
	ID uint64
	Index int
	X, V [3]float64
}
