// Package icalsrc turns iCalendar streams into store records.
package icalsrc

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/cyp0633/caldora/engine/props"
	"github.com/cyp0633/caldora/engine/recurrence"
	"github.com/cyp0633/caldora/engine/store"
	"github.com/emersion/go-ical"
	"github.com/samber/mo"
)

const (
	propRecurrenceID      = "RECURRENCE-ID"
	propClass             = "CLASS"
	propPercentComplete   = "PERCENT-COMPLETE"
	propRelatedTo         = "RELATED-TO"
	propEstimatedDuration = "ESTIMATED-DURATION"
)

// ErrMissingUID is reported for components without a UID.
var ErrMissingUID = errors.New("component has no UID")

// Decode reads every VCALENDAR in r and returns one result per record, in
// the order UIDs first appear. Components sharing a UID are folded into one
// record: the one without RECURRENCE-ID is the master, the others become its
// overrides. A record that cannot be converted yields an error result
// without affecting the others. Floating times are read in loc.
func Decode(r io.Reader, loc *time.Location) ([]mo.Result[store.Record], error) {
	if loc == nil {
		loc = time.UTC
	}

	var comps []*ical.Component
	dec := ical.NewDecoder(r)
	for {
		cal, err := dec.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode calendar: %w", err)
		}
		for _, child := range cal.Children {
			if child.Name == ical.CompEvent || child.Name == ical.CompToDo {
				comps = append(comps, child)
			}
		}
	}

	type group struct {
		master     *ical.Component
		exceptions []*ical.Component
		err        error
	}
	var (
		order   []string
		groups  = make(map[string]*group)
		results []mo.Result[store.Record]
	)
	for _, comp := range comps {
		uid, _ := comp.Props.Text(ical.PropUID)
		if uid == "" {
			results = append(results, mo.Err[store.Record](fmt.Errorf("%s: %w", comp.Name, ErrMissingUID)))
			continue
		}
		g, ok := groups[uid]
		if !ok {
			g = &group{}
			groups[uid] = g
			order = append(order, uid)
		}
		switch {
		case comp.Props.Get(propRecurrenceID) != nil:
			g.exceptions = append(g.exceptions, comp)
		case g.master != nil:
			g.err = fmt.Errorf("%s: duplicate master component", uid)
		default:
			g.master = comp
		}
	}

	for _, uid := range order {
		g := groups[uid]
		switch {
		case g.err != nil:
			results = append(results, mo.Err[store.Record](g.err))
		case g.master == nil:
			results = append(results, mo.Err[store.Record](fmt.Errorf("%s: overrides without a master component", uid)))
		default:
			results = append(results, mo.TupleToResult(toRecord(uid, g.master, g.exceptions, loc)))
		}
	}
	return results, nil
}

func toRecord(uid string, master *ical.Component, exceptions []*ical.Component, loc *time.Location) (store.Record, error) {
	kind, err := props.ParseKind(master.Name)
	if err != nil {
		return store.Record{}, fmt.Errorf("%s: %w", uid, err)
	}
	bag, err := ReadBag(master, loc)
	if err != nil {
		return store.Record{}, fmt.Errorf("%s: %w", uid, err)
	}
	rec := store.Record{UID: uid, Kind: kind, Props: bag}

	info, err := recurrence.ExtractRecurrenceInfoFromComponent(master, loc)
	if err != nil {
		return store.Record{}, fmt.Errorf("%s: %w", uid, err)
	}
	if info.IsRecurring() {
		rec.Recurrence = &info
	}

	for _, exc := range exceptions {
		excInfo, err := recurrence.ExtractRecurrenceInfoFromComponent(exc, loc)
		if err != nil {
			return store.Record{}, fmt.Errorf("%s: %w", uid, err)
		}
		if excInfo.RecurrenceID == nil {
			return store.Record{}, fmt.Errorf("%s: override has an empty %s", uid, propRecurrenceID)
		}
		ovBag, err := ReadBag(exc, loc)
		if err != nil {
			return store.Record{}, fmt.Errorf("%s override: %w", uid, err)
		}
		rec.Overrides = append(rec.Overrides, store.RecordOverride{Key: *excInfo.RecurrenceID, Props: ovBag})
	}
	return rec, nil
}

// ReadBag maps the properties of a VEVENT or VTODO onto a bag. It does not
// validate the result.
func ReadBag(comp *ical.Component, loc *time.Location) (*props.Bag, error) {
	bag := props.New()

	start, startIsDate, err := readTime(comp, ical.PropDateTimeStart, loc)
	if err != nil {
		return nil, err
	}
	bag.Start = start

	end, _, err := readTime(comp, ical.PropDateTimeEnd, loc)
	if err != nil {
		return nil, err
	}
	if s, ok := start.Get(); ok {
		switch e, hasEnd := end.Get(); {
		case hasEnd && startIsDate && !e.After(s):
			// DTEND on the same date as an all-day DTSTART covers that day.
			end = mo.Some(s.AddDate(0, 0, 1))
		case hasEnd:
		case comp.Props.Get(ical.PropDuration) != nil:
			d, err := comp.Props.Get(ical.PropDuration).Duration()
			if err != nil {
				return nil, fmt.Errorf("DURATION: %w", err)
			}
			end = mo.Some(s.Add(d))
		case startIsDate && comp.Name == ical.CompEvent:
			end = mo.Some(s.AddDate(0, 0, 1))
		}
	}
	bag.End = end

	if bag.Due, _, err = readTime(comp, ical.PropDue, loc); err != nil {
		return nil, err
	}

	if v := text(comp, ical.PropStatus); v != "" {
		st, err := props.ParseStatus(v)
		if err != nil {
			return nil, err
		}
		bag.Status = mo.Some(st)
	}
	if v := text(comp, propClass); v != "" {
		cl, err := props.ParseClass(v)
		if err != nil {
			return nil, err
		}
		bag.Class = mo.Some(cl)
	}
	if p := comp.Props.Get(propPercentComplete); p != nil && strings.TrimSpace(p.Value) != "" {
		pct, err := strconv.Atoi(strings.TrimSpace(p.Value))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", propPercentComplete, err)
		}
		bag.PercentComplete = mo.Some(pct)
	}
	if p := comp.Props.Get(propEstimatedDuration); p != nil {
		d, err := p.Duration()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", propEstimatedDuration, err)
		}
		bag.EstimatedDuration = mo.Some(d)
	}

	if p := comp.Props.Get(ical.PropColor); p != nil {
		bag.SetColor(p.Value)
	}
	if p := comp.Props.Get(ical.PropSummary); p != nil {
		bag.Summary = mo.Some(text(comp, ical.PropSummary))
	}
	if p := comp.Props.Get(ical.PropLocation); p != nil {
		bag.Location = mo.Some(text(comp, ical.PropLocation))
	}
	if p := comp.Props.Get(ical.PropDescription); p != nil {
		bag.Description = mo.Some(text(comp, ical.PropDescription))
	}

	var cats []string
	for _, p := range comp.Props[ical.PropCategories] {
		cats = append(cats, splitList(p.Value)...)
	}
	if len(cats) > 0 {
		bag.Categories = mo.Some(cats)
	}

	var rels []props.Relation
	for _, p := range comp.Props[propRelatedTo] {
		kind := strings.ToUpper(p.Params.Get("RELTYPE"))
		if kind == "" {
			kind = "PARENT"
		}
		rels = append(rels, props.Relation{Kind: kind, UID: p.Value})
	}
	if len(rels) > 0 {
		bag.RelatedTo = mo.Some(rels)
	}
	return bag, nil
}

func readTime(comp *ical.Component, name string, loc *time.Location) (mo.Option[time.Time], bool, error) {
	p := comp.Props.Get(name)
	if p == nil || p.Value == "" {
		return mo.None[time.Time](), false, nil
	}
	t, dateOnly, err := recurrence.ParseDateProp(p, loc)
	if err != nil {
		return mo.None[time.Time](), false, fmt.Errorf("%s: %w", name, err)
	}
	return mo.Some(t), dateOnly, nil
}

func text(comp *ical.Component, name string) string {
	v, err := comp.Props.Text(name)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(v)
}

// splitList splits a comma separated TEXT list, honoring backslash escapes.
func splitList(v string) []string {
	var (
		out []string
		cur strings.Builder
	)
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			out = append(out, s)
		}
		cur.Reset()
	}
	for i := 0; i < len(v); i++ {
		switch c := v[i]; {
		case c == '\\' && i+1 < len(v):
			i++
			switch v[i] {
			case 'n', 'N':
				cur.WriteByte('\n')
			default:
				cur.WriteByte(v[i])
			}
		case c == ',':
			flush()
		default:
			cur.WriteByte(c)
		}
	}
	flush()
	return out
}
