// Package schedule fits flexible tasks into the free time between occupied
// ranges.
package schedule

import (
	"slices"
	"time"

	"github.com/cyp0633/caldora/engine/interval"
	"github.com/samber/mo"
)

// Item is a task waiting for a slot.
type Item struct {
	// EarliestStart is the first instant the item may begin.
	EarliestStart mo.Option[time.Time]
	// Duration must be positive; items without one are never placed.
	Duration time.Duration
}

type gap struct {
	start time.Time
	end   mo.Option[time.Time] // absent for the trailing, unbounded gap
}

func (g gap) fits(at time.Time, d time.Duration) bool {
	end, bounded := g.end.Get()
	return !bounded || !at.Add(d).After(end)
}

func (g gap) contains(t time.Time) bool {
	end, bounded := g.end.Get()
	return !t.Before(g.start) && (!bounded || t.Before(end))
}

// freeGaps merges occupied into the free gaps from origin onward. The last
// gap is unbounded.
func freeGaps(origin time.Time, occupied []interval.Range) []gap {
	busy := slices.Clone(occupied)
	slices.SortFunc(busy, func(a, b interval.Range) int { return a.Start.Compare(b.Start) })

	var gaps []gap
	cursor := origin
	for _, r := range busy {
		if r.IsPoint() || !r.End.After(cursor) {
			continue
		}
		if r.Start.After(cursor) {
			gaps = append(gaps, gap{start: cursor, end: mo.Some(r.Start)})
		}
		cursor = r.End
	}
	return append(gaps, gap{start: cursor, end: mo.None[time.Time]()})
}

// Options tunes Fit.
type Options struct {
	// WaitForEarliestStart lets an item whose earliest start falls later
	// inside the current gap be placed there when nothing fits at the
	// cursor. Off, such an item waits for a gap that begins after its
	// earliest start.
	WaitForEarliestStart bool
}

// Fit places items greedily, gap by gap in time order. Within a gap it
// repeatedly takes the first unplaced item, in input order, whose earliest
// start is not after the gap cursor and that fits before the gap ends. The
// result has one entry per item; unplaced items are absent.
func Fit(origin time.Time, occupied []interval.Range, items []Item) []mo.Option[interval.Range] {
	return FitWithOptions(origin, occupied, items, Options{})
}

// FitWithOptions is Fit with the behavior adjusted by opts.
func FitWithOptions(origin time.Time, occupied []interval.Range, items []Item, opts Options) []mo.Option[interval.Range] {
	out := make([]mo.Option[interval.Range], len(items))
	for i := range out {
		out[i] = mo.None[interval.Range]()
	}

	pending := 0
	for _, it := range items {
		if it.Duration > 0 {
			pending++
		}
	}

	place := func(i int, at time.Time) time.Time {
		end := at.Add(items[i].Duration)
		out[i] = mo.Some(interval.New(at, end))
		pending--
		return end
	}

	for _, g := range freeGaps(origin, occupied) {
		cursor := g.start
		for pending > 0 {
			next := -1
			for i, it := range items {
				if out[i].IsPresent() || it.Duration <= 0 {
					continue
				}
				if es, ok := it.EarliestStart.Get(); ok && es.After(cursor) {
					continue
				}
				if g.fits(cursor, it.Duration) {
					next = i
					break
				}
			}
			if next >= 0 {
				cursor = place(next, cursor)
				continue
			}
			if !opts.WaitForEarliestStart {
				break
			}

			for i, it := range items {
				if out[i].IsPresent() || it.Duration <= 0 {
					continue
				}
				es, ok := it.EarliestStart.Get()
				if !ok || !es.After(cursor) || !g.contains(es) {
					continue
				}
				if g.fits(es, it.Duration) {
					next = i
					break
				}
			}
			if next < 0 {
				break
			}
			cursor = place(next, items[next].EarliestStart.MustGet())
		}
		if pending == 0 {
			break
		}
	}
	return out
}
