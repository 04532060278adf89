// Package component holds a single calendar record: its base property bag,
// an optional recurrence generator, per-occurrence overrides and the cache of
// occurrences produced since the last reset.
package component

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/cyp0633/caldora/engine/props"
	"github.com/cyp0633/caldora/engine/recurrence"
	"github.com/samber/mo"
)

var (
	// ErrUnknownOccurrence is returned when a key names no override and no
	// cached occurrence.
	ErrUnknownOccurrence = errors.New("unknown occurrence")
	// ErrNotRecurring is returned by per-occurrence operations on a record
	// that has a single occurrence.
	ErrNotRecurring = errors.New("component does not recur")
	// ErrNoAnchor is returned when a recurrence is attached to a bag with
	// neither start nor due.
	ErrNoAnchor = errors.New("recurrence requires a start or due")
)

// Occurrence is one cached (start, end, due) triple. Key is absent for a
// non-recurring component.
type Occurrence struct {
	Key    mo.Option[time.Time]
	Timing props.Timing
}

// Override replaces the properties of exactly one occurrence, identified by
// its original start.
type Override struct {
	Key time.Time
	Bag *props.Bag
}

// Instance is what Expand reports for each produced occurrence.
type Instance struct {
	Key      mo.Option[time.Time]
	Timing   props.Timing
	Bag      *props.Bag
	Override bool
}

// Component is a single event or task. It is not safe for concurrent use.
type Component struct {
	uid  string
	kind props.Kind
	base *props.Bag
	cfg  recurrence.EngineConfig

	gen       *recurrence.Generator
	overrides []*Override

	cache    []Occurrence
	cacheIdx map[int64]int
	reported bool
}

// New adopts a copy of base. info may be nil or non-recurring, in which case
// the component has exactly one occurrence.
func New(uid string, kind props.Kind, base *props.Bag, info *recurrence.RecurrenceInfo, cfg recurrence.EngineConfig) (*Component, error) {
	if base == nil {
		base = props.New()
	}
	if err := base.Validate(kind); err != nil {
		return nil, err
	}
	c := &Component{
		uid:      uid,
		kind:     kind,
		base:     base.Clone(),
		cfg:      cfg.Normalize(),
		cacheIdx: make(map[int64]int),
	}
	if info != nil && info.IsRecurring() {
		gen, err := c.newGenerator(c.base, *info)
		if err != nil {
			return nil, err
		}
		c.gen = gen
	}
	return c, nil
}

func (c *Component) newGenerator(base *props.Bag, info recurrence.RecurrenceInfo) (*recurrence.Generator, error) {
	anchor, ok := anchorOf(base)
	if !ok {
		return nil, ErrNoAnchor
	}
	gen, err := recurrence.NewGenerator(anchor, info, c.cfg)
	if err != nil {
		return nil, fmt.Errorf("component %s: %w", c.uid, err)
	}
	return gen, nil
}

// anchorOf returns the instant occurrences are keyed by: start, else due.
func anchorOf(b *props.Bag) (time.Time, bool) {
	if s, ok := b.Start.Get(); ok {
		return s, true
	}
	return b.Due.Get()
}

// UID returns the immutable identifier.
func (c *Component) UID() string { return c.uid }

// Kind returns the record kind.
func (c *Component) Kind() props.Kind { return c.kind }

// Base returns the base bag. The pointer stays valid for the component's
// lifetime; edits are committed in place.
func (c *Component) Base() *props.Bag { return c.base }

// IsRecurring reports whether the component owns a generator.
func (c *Component) IsRecurring() bool { return c.gen != nil }

// Recurrence returns a copy of the recurrence definition, including
// exclusions added by ExcludeOccurrence.
func (c *Component) Recurrence() (recurrence.RecurrenceInfo, bool) {
	if c.gen == nil {
		return recurrence.RecurrenceInfo{}, false
	}
	return c.gen.Info(), true
}

// Truncated reports whether the last expansion hit the iteration cap.
func (c *Component) Truncated() bool {
	return c.gen != nil && c.gen.Truncated()
}

// Overrides returns the override list. The bags are shared, the slice is not.
func (c *Component) Overrides() []*Override {
	return slices.Clone(c.overrides)
}

// Cache returns the occurrences produced since the last reset.
func (c *Component) Cache() []Occurrence {
	return slices.Clone(c.cache)
}

// ResetCache forgets every produced occurrence and rewinds the generator, so
// the next Expand reports everything again from the anchor.
func (c *Component) ResetCache() {
	c.cache = nil
	clear(c.cacheIdx)
	c.reported = false
	if c.gen != nil {
		c.gen.Reset()
	}
}

// Expand reports every occurrence starting at or before horizon that has not
// been reported since the last ResetCache. A non-recurring component is
// reported once, with an absent key.
func (c *Component) Expand(horizon time.Time, fn func(Instance)) {
	if c.gen == nil {
		if c.reported {
			return
		}
		c.reported = true
		t := c.base.Timing()
		c.cache = append(c.cache, Occurrence{Key: mo.None[time.Time](), Timing: t})
		fn(Instance{Key: mo.None[time.Time](), Timing: t, Bag: c.base})
		return
	}

	derive := timingDeriver(c.base)
	c.gen.Expand(horizon, func(key time.Time) {
		t := derive(key)
		bag, isOverride := c.base, false
		if ov := c.override(key); ov != nil {
			bag, isOverride = ov.Bag, true
			t = mergeTiming(t, ov.Bag.Timing())
		}
		c.cacheIdx[key.UnixNano()] = len(c.cache)
		c.cache = append(c.cache, Occurrence{Key: mo.Some(key), Timing: t})
		fn(Instance{Key: mo.Some(key), Timing: t, Bag: bag, Override: isOverride})
	})
}

// timingDeriver returns the default timing of the occurrence keyed at a given
// instant: end and due keep their offsets from the base start. A task with
// only a due date is keyed by its due.
func timingDeriver(base *props.Bag) func(time.Time) props.Timing {
	start, ok := base.Start.Get()
	if !ok {
		return func(key time.Time) props.Timing {
			return props.Timing{Due: mo.Some(key)}
		}
	}
	endOff := mo.None[time.Duration]()
	if e, ok := base.End.Get(); ok {
		endOff = mo.Some(e.Sub(start))
	}
	dueOff := mo.None[time.Duration]()
	if d, ok := base.Due.Get(); ok {
		dueOff = mo.Some(d.Sub(start))
	}
	return func(key time.Time) props.Timing {
		t := props.Timing{Start: mo.Some(key)}
		if off, ok := endOff.Get(); ok {
			t.End = mo.Some(key.Add(off))
		}
		if off, ok := dueOff.Get(); ok {
			t.Due = mo.Some(key.Add(off))
		}
		return t
	}
}

// mergeTiming overlays the fields present in o onto t.
func mergeTiming(t, o props.Timing) props.Timing {
	if o.Start.IsPresent() {
		t.Start = o.Start
	}
	if o.End.IsPresent() {
		t.End = o.End
	}
	if o.Due.IsPresent() {
		t.Due = o.Due
	}
	return t
}

func (c *Component) override(key time.Time) *Override {
	for _, ov := range c.overrides {
		if ov.Key.Equal(key) {
			return ov
		}
	}
	return nil
}

func (c *Component) cached(key time.Time) (Occurrence, bool) {
	i, ok := c.cacheIdx[key.UnixNano()]
	if !ok {
		return Occurrence{}, false
	}
	return c.cache[i], true
}

// HasOccurrence reports whether key names an override or an occurrence
// produced since the last reset.
func (c *Component) HasOccurrence(key time.Time) bool {
	if c.override(key) != nil {
		return true
	}
	_, ok := c.cached(key)
	return ok
}

// GetOrCreateOccurrenceBag returns the override bag for key, creating one
// from the base bag and the cached timing when the occurrence has been
// produced but not yet overridden. created reports whether a new override
// was appended.
func (c *Component) GetOrCreateOccurrenceBag(key time.Time) (bag *props.Bag, created bool, err error) {
	if c.gen == nil {
		return nil, false, ErrNotRecurring
	}
	if ov := c.override(key); ov != nil {
		return ov.Bag, false, nil
	}
	occ, ok := c.cached(key)
	if !ok {
		return nil, false, ErrUnknownOccurrence
	}
	bag = c.base.Clone()
	bag.ApplyTiming(occ.Timing)
	c.overrides = append(c.overrides, &Override{Key: key, Bag: bag})
	return bag, true, nil
}

// AddOverride attaches partial to the occurrence keyed at key, merging into
// an existing override. The key does not need to have been produced yet;
// loaders call this before the first expansion.
func (c *Component) AddOverride(key time.Time, partial *props.Bag) error {
	if c.gen == nil {
		return ErrNotRecurring
	}
	if ov := c.override(key); ov != nil {
		nb := ov.Bag.Clone()
		nb.Union(partial)
		if err := nb.Validate(c.kind); err != nil {
			return err
		}
		*ov.Bag = *nb
		return nil
	}
	nb := c.base.Clone()
	nb.ApplyTiming(timingDeriver(c.base)(key))
	nb.Union(partial)
	if err := nb.Validate(c.kind); err != nil {
		return err
	}
	c.overrides = append(c.overrides, &Override{Key: key, Bag: nb})
	return nil
}

// RemoveOverride drops the override at key. The occurrence falls back to
// the base bag on the next rebuild.
func (c *Component) RemoveOverride(key time.Time) bool {
	i := slices.IndexFunc(c.overrides, func(ov *Override) bool { return ov.Key.Equal(key) })
	if i < 0 {
		return false
	}
	c.overrides = slices.Delete(c.overrides, i, i+1)
	return true
}

// UpdateBase clears remove from the base bag, then unions partial onto it.
// The result is validated on a copy; on error nothing changes. timing
// reports whether start, end or due changed.
func (c *Component) UpdateBase(partial *props.Bag, remove props.Field) (timing bool, err error) {
	nb := c.base.Clone()
	nb.Clear(remove)
	nb.Union(partial)
	if err := nb.Validate(c.kind); err != nil {
		return false, err
	}
	timing = !nb.Timing().Equal(c.base.Timing())

	gen := c.gen
	if timing && gen != nil {
		if gen, err = c.newGenerator(nb, gen.Info()); err != nil {
			return false, err
		}
	}
	*c.base = *nb
	c.gen = gen
	return timing, nil
}

// UpdateOccurrence applies remove and partial to the occurrence keyed at
// key, creating its override when needed. created is true for a new
// override, timing when an existing override's timing changed.
func (c *Component) UpdateOccurrence(key time.Time, partial *props.Bag, remove props.Field) (created, timing bool, err error) {
	if c.gen == nil {
		return false, false, ErrNotRecurring
	}
	ov := c.override(key)
	var nb *props.Bag
	switch {
	case ov != nil:
		nb = ov.Bag.Clone()
	default:
		occ, ok := c.cached(key)
		if !ok {
			return false, false, ErrUnknownOccurrence
		}
		nb = c.base.Clone()
		nb.ApplyTiming(occ.Timing)
	}
	nb.Clear(remove)
	nb.Union(partial)
	if err := nb.Validate(c.kind); err != nil {
		return false, false, err
	}

	if ov == nil {
		c.overrides = append(c.overrides, &Override{Key: key, Bag: nb})
		return true, true, nil
	}
	timing = !nb.Timing().Equal(ov.Bag.Timing())
	*ov.Bag = *nb
	return false, timing, nil
}

// ExcludeOccurrence removes the occurrence keyed at key from every later
// expansion and drops its override, if any. Other occurrences are untouched.
func (c *Component) ExcludeOccurrence(key time.Time) error {
	if c.gen == nil {
		return ErrNotRecurring
	}
	if !c.HasOccurrence(key) {
		return ErrUnknownOccurrence
	}
	c.RemoveOverride(key)
	c.gen.Exclude(key)
	return nil
}

// SetRecurrence replaces the recurrence definition. A nil or non-recurring
// info turns the component into a single occurrence and drops its
// overrides. The cache is reset on success.
func (c *Component) SetRecurrence(info *recurrence.RecurrenceInfo) error {
	return c.Redefine(nil, 0, info)
}

// Redefine edits the base bag and replaces the recurrence definition in one
// step. Both are validated before either is committed.
func (c *Component) Redefine(partial *props.Bag, remove props.Field, info *recurrence.RecurrenceInfo) error {
	nb := c.base.Clone()
	nb.Clear(remove)
	nb.Union(partial)
	if err := nb.Validate(c.kind); err != nil {
		return err
	}

	var gen *recurrence.Generator
	if info != nil && info.IsRecurring() {
		var err error
		if gen, err = c.newGenerator(nb, *info); err != nil {
			return err
		}
	}

	*c.base = *nb
	c.gen = gen
	if gen == nil {
		c.overrides = nil
	}
	c.ResetCache()
	return nil
}
