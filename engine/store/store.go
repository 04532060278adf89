package store

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/cyp0633/caldora/engine/component"
	"github.com/cyp0633/caldora/engine/interval"
	"github.com/cyp0633/caldora/engine/layout"
	"github.com/cyp0633/caldora/engine/props"
	"github.com/cyp0633/caldora/engine/recurrence"
	"github.com/google/uuid"
	"github.com/samber/mo"
)

// Record is one parsed calendar record as handed over by a loader or an
// editor.
type Record struct {
	UID        string
	Kind       props.Kind
	Props      *props.Bag
	Recurrence *recurrence.RecurrenceInfo
	Overrides  []RecordOverride
}

// RecordOverride carries the property values of one overridden occurrence,
// keyed by the occurrence's original start.
type RecordOverride struct {
	Key   time.Time
	Props *props.Bag
}

// Options configures a Store.
type Options struct {
	Logger *slog.Logger
	Engine recurrence.EngineConfig
}

// Node is one materialized occurrence in an index. It refers to its
// component by slot, never by pointer.
type Node struct {
	Component int
	Key       mo.Option[time.Time]
	Range     interval.Range
	Timing    props.Timing
	Override  bool

	bag *props.Bag
}

// Result is one occurrence returned by a query.
type Result struct {
	UID        string
	Kind       props.Kind
	Key        mo.Option[time.Time]
	Range      interval.Range
	Timing     props.Timing
	Bag        *props.Bag
	IsOverride bool
}

// LoadResult reports how many records were stored and why the others were
// not.
type LoadResult struct {
	Loaded   int
	Rejected []error
}

type index struct {
	dirty   bool
	tree    *interval.Tree[*Node]
	horizon mo.Option[time.Time]
}

// Store owns all components and index nodes. It is single-writer and
// performs no locking.
type Store struct {
	logger *slog.Logger
	engine recurrence.EngineConfig

	components []*component.Component
	tombstones []bool
	byUID      map[string]int

	indexes map[props.Kind]*index
}

// New creates an empty store.
func New(opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		logger:  logger,
		engine:  opts.Engine.Normalize(),
		byUID:   make(map[string]int),
		indexes: make(map[props.Kind]*index, len(props.Kinds)),
	}
	for _, k := range props.Kinds {
		s.indexes[k] = &index{tree: interval.NewTree[*Node]()}
	}
	return s
}

func (s *Store) index(kind props.Kind) *index {
	idx, ok := s.indexes[kind]
	if !ok {
		idx = &index{tree: interval.NewTree[*Node]()}
		s.indexes[kind] = idx
	}
	return idx
}

// Load adds records one by one. Invalid records are logged, reported in the
// result and skipped; the rest of the load proceeds.
func (s *Store) Load(records []Record) LoadResult {
	var res LoadResult
	for _, rec := range records {
		if rec.UID == "" {
			err := invalid("record has no uid", nil)
			s.logger.Warn("rejected record", "kind", rec.Kind, "error", err)
			res.Rejected = append(res.Rejected, err)
			continue
		}
		if _, err := s.add(rec); err != nil {
			s.logger.Warn("rejected record", "uid", rec.UID, "kind", rec.Kind, "error", err)
			res.Rejected = append(res.Rejected, err)
			continue
		}
		res.Loaded++
	}
	s.logger.Debug("records loaded", "loaded", res.Loaded, "rejected", len(res.Rejected))
	return res
}

// Create stores a new record. A uid is generated when rec.UID is empty; an
// explicit uid that is already live is rejected.
func (s *Store) Create(rec Record) (string, error) {
	if rec.UID == "" {
		rec.UID = uuid.NewString()
	}
	return s.add(rec)
}

func (s *Store) add(rec Record) (string, error) {
	if _, exists := s.byUID[rec.UID]; exists {
		return "", &Error{Type: ErrAlreadyExists, Message: fmt.Sprintf("uid %s already exists", rec.UID)}
	}
	c, err := component.New(rec.UID, rec.Kind, rec.Props, rec.Recurrence, s.engine)
	if err != nil {
		return "", invalid(fmt.Sprintf("record %s", rec.UID), err)
	}
	for _, ov := range rec.Overrides {
		if err := c.AddOverride(ov.Key, ov.Props); err != nil {
			return "", invalid(fmt.Sprintf("record %s override %s", rec.UID, ov.Key.Format(time.RFC3339)), err)
		}
	}

	slot := s.freeSlot()
	if slot < 0 {
		slot = len(s.components)
		s.components = append(s.components, c)
		s.tombstones = append(s.tombstones, false)
	} else {
		s.components[slot] = c
		s.tombstones[slot] = false
	}
	s.byUID[rec.UID] = slot
	return rec.UID, nil
}

// freeSlot returns a tombstoned slot whose kind has been rebuilt since the
// tombstone, so no node can still refer to it, or -1.
func (s *Store) freeSlot() int {
	for i, dead := range s.tombstones {
		if dead && !s.index(s.components[i].Kind()).dirty {
			return i
		}
	}
	return -1
}

func (s *Store) lookup(uid string) (int, *component.Component, error) {
	slot, ok := s.byUID[uid]
	if !ok {
		return 0, nil, notFound(fmt.Sprintf("uid %s", uid), nil)
	}
	return slot, s.components[slot], nil
}

func (s *Store) markDirty(kind props.Kind) {
	s.index(kind).dirty = true
}

// Expand materializes every live component of kind up to horizon. The
// effective horizon never shrinks. A dirty kind is rebuilt from scratch
// first.
func (s *Store) Expand(kind props.Kind, horizon time.Time) {
	idx := s.index(kind)
	if last, ok := idx.horizon.Get(); ok && last.After(horizon) {
		horizon = last
	}
	idx.horizon = mo.Some(horizon)

	if idx.dirty {
		idx.tree.Clear()
		for i, c := range s.components {
			if !s.tombstones[i] && c.Kind() == kind {
				c.ResetCache()
			}
		}
		idx.dirty = false
		s.logger.Debug("index rebuilt", "kind", kind, "horizon", horizon)
	}

	for i, c := range s.components {
		if s.tombstones[i] || c.Kind() != kind {
			continue
		}
		truncated := c.Truncated()
		c.Expand(horizon, func(in component.Instance) {
			start, end, ok := in.Timing.Range()
			if !ok {
				return
			}
			r := interval.New(start, end)
			idx.tree.Insert(r, &Node{
				Component: i,
				Key:       in.Key,
				Range:     r,
				Timing:    in.Timing,
				Override:  in.Override,
				bag:       in.Bag,
			})
		})
		if !truncated && c.Truncated() {
			s.logger.Debug("recurrence expansion truncated",
				"uid", c.UID(),
				"max_iterations", s.engine.MaxIterations)
		}
	}
}

// Query returns every occurrence of kind overlapping r, in start order. It
// never mutates the store.
func (s *Store) Query(kind props.Kind, r interval.Range) []Result {
	idx, ok := s.indexes[kind]
	if !ok {
		return nil
	}
	var out []Result
	idx.tree.Query(r, func(_ interval.Range, n *Node) bool {
		if s.tombstones[n.Component] {
			return true
		}
		out = append(out, Result{
			UID:        s.components[n.Component].UID(),
			Kind:       kind,
			Key:        n.Key,
			Range:      n.Range,
			Timing:     n.Timing,
			Bag:        n.bag,
			IsOverride: n.Override,
		})
		return true
	})
	return out
}

// QueryWithLayout is Query plus the display column of every result.
func (s *Store) QueryWithLayout(kind props.Kind, r interval.Range) ([]Result, []layout.Slot) {
	results := s.Query(kind, r)
	return results, Layout(results)
}

// Layout assigns display columns to results, e.g. after filtering them.
func Layout(results []Result) []layout.Slot {
	ranges := make([]interval.Range, len(results))
	for i, res := range results {
		ranges[i] = res.Range
	}
	return layout.Columns(ranges)
}

// Window expands kind to the end of r and queries it.
func (s *Store) Window(kind props.Kind, r interval.Range) []Result {
	s.Expand(kind, r.End)
	return s.Query(kind, r)
}

// Get returns a snapshot of the live record uid.
func (s *Store) Get(uid string) (Record, error) {
	_, c, err := s.lookup(uid)
	if err != nil {
		return Record{}, err
	}
	return snapshot(c), nil
}

func snapshot(c *component.Component) Record {
	rec := Record{
		UID:   c.UID(),
		Kind:  c.Kind(),
		Props: c.Base().Clone(),
	}
	if info, ok := c.Recurrence(); ok {
		rec.Recurrence = &info
	}
	for _, ov := range c.Overrides() {
		rec.Overrides = append(rec.Overrides, RecordOverride{Key: ov.Key, Props: ov.Bag.Clone()})
	}
	return rec
}

// Unscheduled returns the live records of kind that have neither start nor
// due, in slot order. They are never indexed.
func (s *Store) Unscheduled(kind props.Kind) []Record {
	var out []Record
	for i, c := range s.components {
		if s.tombstones[i] || c.Kind() != kind {
			continue
		}
		if _, _, ok := c.Base().Timing().Range(); !ok {
			out = append(out, snapshot(c))
		}
	}
	return out
}

// Len returns the number of live components.
func (s *Store) Len() int {
	return len(s.byUID)
}

// NodeCount returns the number of index nodes of kind, tombstoned ones
// included until the next rebuild.
func (s *Store) NodeCount(kind props.Kind) int {
	if idx, ok := s.indexes[kind]; ok {
		return idx.tree.Len()
	}
	return 0
}

// Dirty reports whether the next Expand of kind rebuilds its index.
func (s *Store) Dirty(kind props.Kind) bool {
	idx, ok := s.indexes[kind]
	return ok && idx.dirty
}

// Horizon returns the largest horizon kind has been expanded to.
func (s *Store) Horizon(kind props.Kind) mo.Option[time.Time] {
	if idx, ok := s.indexes[kind]; ok {
		return idx.horizon
	}
	return mo.None[time.Time]()
}
