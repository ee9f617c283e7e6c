package halo

import (
	"fmt"
	"sort"
)

const (
	minArenaCap = 1 << 10
)

// AllocError is returned when an allocation the finder depends on cannot be
// satisfied. It is fatal for the whole pass.
type AllocError struct {
	What string
	Requested, Limit int
}

func (err *AllocError) Error() string {
	return fmt.Sprintf(
		"Could not allocate %s: %d records requested, limit is %d.",
		err.What, err.Requested, err.Limit,
	)
}

type slot struct {
	off, len, cap int
}

// Arena is a contiguous backing store holding every halo's particle copies.
// Slots are addressed by handle (the halo's index) only: the backing array
// can move during any allocating call, so slices returned by Slot must be
// re-fetched after Assign, Append, AllocParticleCopies or Repack.
type Arena struct {
	buf []Copy
	used int
	slots []slot
	// Limit caps the number of records the arena may hold. Zero means no
	// limit.
	Limit int
}

// AllocParticleCopies grows the backing store so that it can hold at least
// total records. Capacity at least doubles on every growth, so a full run
// performs O(log N) reallocations.
func (a *Arena) AllocParticleCopies(total int) error {
	if total <= len(a.buf) { return nil }
	if a.Limit > 0 && total > a.Limit {
		return &AllocError{ "particle copy arena", total, a.Limit }
	}

	n := 2 * len(a.buf)
	if n < minArenaCap { n = minArenaCap }
	if n < total { n = total }
	if a.Limit > 0 && n > a.Limit { n = a.Limit }

	buf := make([]Copy, n)
	copy(buf, a.buf[:a.used])
	a.buf = buf
	return nil
}

// FreeParticleCopies releases the backing store and every slot.
func (a *Arena) FreeParticleCopies() {
	a.buf, a.used, a.slots = nil, 0, nil
}

// Cap returns the number of records the arena can hold without growing.
func (a *Arena) Cap() int { return len(a.buf) }

// Slots returns the number of slots.
func (a *Arena) Slots() int { return len(a.slots) }

// AddSlot appends an empty slot and returns its handle.
func (a *Arena) AddSlot() int {
	a.slots = append(a.slots, slot{ off: a.used })
	return len(a.slots) - 1
}

// Slot returns the copies currently held by slot i. The result aliases the
// arena and is capped so that appending to it never touches a neighbour.
func (a *Arena) Slot(i int) []Copy {
	s := a.slots[i]
	return a.buf[s.off: s.off + s.len: s.off + s.len]
}

// Len returns the number of copies in slot i.
func (a *Arena) Len(i int) int { return a.slots[i].len }

// Occupied returns the total number of copies held across all slots.
func (a *Arena) Occupied() int {
	n := 0
	for _, s := range a.slots { n += s.len }
	return n
}

// reserve gives slot i a fresh region of at least n records at the end of
// the arena, preserving the slot's current contents.
func (a *Arena) reserve(i, n int) error {
	// Reclaim holes left by shrunken slots before growing.
	if occ := a.Occupied(); a.used - occ > occ && a.used + n > len(a.buf) {
		a.Repack()
	}

	if err := a.AllocParticleCopies(a.used + n); err != nil { return err }
	s := &a.slots[i]
	copy(a.buf[a.used: a.used + s.len], a.buf[s.off: s.off + s.len])
	s.off, s.cap = a.used, n
	a.used += n
	return nil
}

// Assign replaces the contents of slot i with cs.
func (a *Arena) Assign(i int, cs []Copy) error {
	if len(cs) > a.slots[i].cap {
		a.slots[i].len = 0
		if err := a.reserve(i, len(cs)); err != nil { return err }
	}
	s := &a.slots[i]
	copy(a.buf[s.off: s.off + len(cs)], cs)
	s.len = len(cs)
	return nil
}

// Append adds cs to the end of slot i.
func (a *Arena) Append(i int, cs []Copy) error {
	if len(cs) == 0 { return nil }
	need := a.slots[i].len + len(cs)
	if need > a.slots[i].cap {
		// Over-reserve so that repeated appends relocate O(log n) times.
		n := 2 * a.slots[i].cap
		if n < need { n = need }
		if a.Limit > 0 && a.used + n > a.Limit { n = need }
		if err := a.reserve(i, n); err != nil { return err }
	}
	s := &a.slots[i]
	copy(a.buf[s.off + s.len: s.off + need], cs)
	s.len = need
	return nil
}

// Truncate shrinks slot i to its first n copies.
func (a *Arena) Truncate(i, n int) {
	if n < 0 || n > a.slots[i].len {
		panic(fmt.Sprintf(
			"Cannot truncate slot %d of length %d to %d.",
			i, a.slots[i].len, n,
		))
	}
	a.slots[i].len = n
}

// Repack moves every slot into a dense prefix of the arena, in handle order.
func (a *Arena) Repack() {
	buf := make([]Copy, len(a.buf))
	off := 0
	for i := range a.slots {
		s := &a.slots[i]
		copy(buf[off: off + s.len], a.buf[s.off: s.off + s.len])
		s.off, s.cap = off, s.len
		off += s.len
	}
	a.buf, a.used = buf, off
}

// Keep retains the slots whose keep flag is set, renumbering them densely in
// their original order, and repacks the arena.
func (a *Arena) Keep(keep []bool) {
	if len(keep) != len(a.slots) {
		panic(fmt.Sprintf(
			"Keep given %d flags for %d slots.", len(keep), len(a.slots),
		))
	}
	j := 0
	for i := range a.slots {
		if keep[i] {
			a.slots[j] = a.slots[i]
			j++
		}
	}
	a.slots = a.slots[:j]
	a.Repack()
}

// Check verifies that no two slots overlap and that every slot lies inside
// the backing store.
func (a *Arena) Check() error {
	type span struct { lo, hi, i int }
	spans := make([]span, 0, len(a.slots))
	for i, s := range a.slots {
		if s.len > s.cap && s.len > 0 {
			return fmt.Errorf("Slot %d holds %d copies in a region of %d.",
				i, s.len, s.cap)
		}
		if s.off + s.len > len(a.buf) {
			return fmt.Errorf("Slot %d ends at %d, past arena capacity %d.",
				i, s.off + s.len, len(a.buf))
		}
		if s.len > 0 { spans = append(spans, span{ s.off, s.off + s.len, i }) }
	}

	sort.Slice(spans, func(x, y int) bool { return spans[x].lo < spans[y].lo })
	for x := 1; x < len(spans); x++ {
		if spans[x].lo < spans[x-1].hi {
			return fmt.Errorf("Slots %d and %d overlap.",
				spans[x-1].i, spans[x].i)
		}
	}
	return nil
}
