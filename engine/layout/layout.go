// Package layout assigns display columns to overlapping time ranges.
package layout

import (
	"math/bits"
	"slices"
	"time"

	"github.com/cyp0633/caldora/engine/interval"
)

// Slot is the placement of one range: its column and the number of columns
// shared by its connected overlap group.
type Slot struct {
	Column int
	MaxN   int
}

type boundary struct {
	at   time.Time
	idx  int
	end  bool
	rank int
}

// Tie order at equal timestamps. Ends of ranges with extent go first so a
// range ending when another starts frees its column; ends of points go last
// so a point overlaps everything starting at the same instant.
const (
	rankEnd = iota
	rankStart
	rankPointEnd
)

// Columns sweeps the boundaries of ranges and returns one Slot per input, in
// input order. Overlapping ranges never share a column and
// 0 <= Column < MaxN holds for every slot.
func Columns(ranges []interval.Range) []Slot {
	slots := make([]Slot, len(ranges))
	if len(ranges) == 0 {
		return slots
	}

	points := make([]boundary, 0, 2*len(ranges))
	for i, r := range ranges {
		points = append(points, boundary{at: r.Start, idx: i, rank: rankStart})
		if r.IsPoint() {
			points = append(points, boundary{at: r.Start, idx: i, end: true, rank: rankPointEnd})
		} else {
			points = append(points, boundary{at: r.End, idx: i, end: true, rank: rankEnd})
		}
	}
	slices.SortFunc(points, func(a, b boundary) int {
		if c := a.at.Compare(b.at); c != 0 {
			return c
		}
		if a.rank != b.rank {
			return a.rank - b.rank
		}
		return a.idx - b.idx
	})

	var (
		used   columnSet
		active int
		peak   int
		group  []int
	)
	for _, p := range points {
		if !p.end {
			col := used.claim()
			slots[p.idx].Column = col
			active++
			peak = max(peak, active)
			group = append(group, p.idx)
			continue
		}
		used.release(slots[p.idx].Column)
		active--
		if active == 0 {
			for _, i := range group {
				slots[i].MaxN = peak
			}
			group = group[:0]
			peak = 0
		}
	}
	return slots
}

// columnSet is a growable bitset of occupied columns.
type columnSet []uint64

// claim sets and returns the lowest free column.
func (s *columnSet) claim() int {
	for w, word := range *s {
		if word != ^uint64(0) {
			bit := bits.TrailingZeros64(^word)
			(*s)[w] |= 1 << bit
			return w*64 + bit
		}
	}
	*s = append(*s, 1)
	return (len(*s) - 1) * 64
}

func (s columnSet) release(col int) {
	s[col/64] &^= 1 << (col % 64)
}
