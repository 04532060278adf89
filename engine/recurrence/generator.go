package recurrence

import (
	"fmt"
	"slices"
	"time"

	"github.com/teambition/rrule-go"
)

type cursorState int

const (
	stateNotStarted cursorState = iota
	stateRunning                // iterator live, nothing buffered; only seen mid-call
	stateBuffered
	stateExhausted
)

func (s cursorState) String() string {
	switch s {
	case stateNotStarted:
		return "not-started"
	case stateRunning:
		return "running"
	case stateBuffered:
		return "buffered"
	case stateExhausted:
		return "exhausted"
	}
	return "unknown"
}

// Generator lazily produces the start times of a recurring record up to a
// horizon. Expansion is resumable: a later call with a larger horizon
// continues from the single buffered look-ahead value instead of re-deriving
// earlier occurrences.
//
// The anchor (DTSTART) is always the first instance, even when it does not
// match the RRULE. RDATE values are emitted on the first call after a reset,
// followed by the rule's values in increasing order. EXDATE values suppress
// both exactly; EXDATEDays suppress whole dates.
//
// Generator is not safe for concurrent use.
type Generator struct {
	info   RecurrenceInfo
	anchor time.Time
	rule   *rrule.RRule

	next     rrule.Next
	state    cursorState
	buffered time.Time

	maxIterations int
	pulled        int
	truncated     bool

	excluded     map[int64]struct{}
	dateExcluded map[time.Time]struct{} // midnight UTC of EXDATEDays
	initial      map[int64]struct{}     // anchor and RDATE instants, emitted up front
}

// NewGenerator builds a generator over a private copy of info, anchored at
// the record's start.
func NewGenerator(anchor time.Time, info RecurrenceInfo, cfg EngineConfig) (*Generator, error) {
	cfg = cfg.Normalize()
	g := &Generator{
		info:          info.Clone(),
		maxIterations: cfg.MaxIterations,
		excluded:      make(map[int64]struct{}),
		dateExcluded:  make(map[time.Time]struct{}),
	}
	g.info.RecurrenceID = nil
	for _, ex := range g.info.EXDATE {
		g.excluded[ex.UnixNano()] = struct{}{}
	}
	for _, d := range g.info.EXDATEDays {
		g.dateExcluded[utcDay(d)] = struct{}{}
	}
	if err := g.Rebase(anchor); err != nil {
		return nil, err
	}
	return g, nil
}

// Rebase moves the anchor and rebuilds the rule; the next Expand starts over.
func (g *Generator) Rebase(anchor time.Time) error {
	anchor = anchor.Truncate(time.Second)
	var rule *rrule.RRule
	if g.info.RRULE != "" {
		opt, err := rrule.StrToROptionInLocation(g.info.RRULE, anchor.Location())
		if err != nil {
			return fmt.Errorf("failed to parse RRULE '%s': %w", g.info.RRULE, err)
		}
		opt.Dtstart = anchor
		rule, err = rrule.NewRRule(*opt)
		if err != nil {
			return fmt.Errorf("invalid RRULE '%s': %w", g.info.RRULE, err)
		}
	}
	g.anchor = anchor
	g.rule = rule
	g.initial = map[int64]struct{}{anchor.UnixNano(): {}}
	for _, rd := range g.info.RDATE {
		g.initial[rd.UnixNano()] = struct{}{}
	}
	g.Reset()
	return nil
}

// Reset drops the cursor. The next Expand re-emits from the anchor.
func (g *Generator) Reset() {
	g.state = stateNotStarted
	g.next = nil
	g.buffered = time.Time{}
	g.pulled = 0
	g.truncated = false
}

// Anchor returns the first instance.
func (g *Generator) Anchor() time.Time {
	return g.anchor
}

// Info returns a copy of the defining rule, including exclusions added
// through Exclude.
func (g *Generator) Info() RecurrenceInfo {
	return g.info.Clone()
}

// Truncated reports whether the iteration cap stopped the current expansion.
func (g *Generator) Truncated() bool {
	return g.truncated
}

// Exclude suppresses exactly the occurrence starting at t from subsequent
// expansions.
func (g *Generator) Exclude(t time.Time) {
	if _, ok := g.excluded[t.UnixNano()]; ok {
		return
	}
	g.info.EXDATE = append(g.info.EXDATE, t)
	g.excluded[t.UnixNano()] = struct{}{}
}

// IsExcluded checks t against the exact EXDATE set and the EXDATEDays set.
// A day exclusion matches any occurrence on that calendar date.
func (g *Generator) IsExcluded(t time.Time) bool {
	if _, ok := g.excluded[t.UnixNano()]; ok {
		return true
	}
	if len(g.dateExcluded) == 0 {
		return false
	}
	_, ok := g.dateExcluded[utcDay(t)]
	return ok
}

// Expand emits every not-yet-emitted occurrence start <= to, in increasing
// order for rule values.
func (g *Generator) Expand(to time.Time, emit func(time.Time)) {
	if g.state == stateNotStarted {
		for _, t := range g.initialInstances() {
			emit(t)
		}
		if g.rule == nil {
			g.state = stateExhausted
			return
		}
		g.next = g.rule.Iterator()
		g.state = stateRunning
	}

	switch g.state {
	case stateExhausted:
		return
	case stateBuffered:
		if g.buffered.After(to) {
			return
		}
		v := g.buffered
		g.buffered = time.Time{}
		g.state = stateRunning
		if g.accept(v) {
			emit(v)
		}
	}

	for {
		if g.pulled >= g.maxIterations {
			g.state = stateExhausted
			g.truncated = true
			return
		}
		v, ok := g.next()
		if !ok {
			g.state = stateExhausted
			return
		}
		g.pulled++
		if v.After(to) {
			g.buffered = v
			g.state = stateBuffered
			return
		}
		if g.accept(v) {
			emit(v)
		}
	}
}

func (g *Generator) initialInstances() []time.Time {
	out := make([]time.Time, 0, 1+len(g.info.RDATE))
	seen := make(map[int64]struct{}, 1+len(g.info.RDATE))
	for _, t := range append([]time.Time{g.anchor}, g.info.RDATE...) {
		if _, dup := seen[t.UnixNano()]; dup || g.IsExcluded(t) {
			continue
		}
		seen[t.UnixNano()] = struct{}{}
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b time.Time) int { return a.Compare(b) })
	return out
}

// accept filters rule values already emitted up front or excluded.
func (g *Generator) accept(v time.Time) bool {
	if _, ok := g.initial[v.UnixNano()]; ok {
		return false
	}
	return !g.IsExcluded(v)
}

// utcDay returns midnight UTC of t's calendar date in its own location.
func utcDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
