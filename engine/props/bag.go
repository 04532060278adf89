// Package props implements the sparse property bag carried by every calendar
// record and per-occurrence override.
//
// Every field is independently optional. Setters never check cross-field
// invariants; callers run Validate when a bag is adopted by a component.
package props

import (
	"slices"
	"strings"
	"time"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/samber/mo"
)

// Bag is the set of typed, optionally present fields of one record.
type Bag struct {
	Start mo.Option[time.Time]
	End   mo.Option[time.Time]
	Due   mo.Option[time.Time]

	Status mo.Option[Status]
	Class  mo.Option[Class]

	EstimatedDuration mo.Option[time.Duration]
	PercentComplete   mo.Option[int]

	Summary     mo.Option[string]
	Location    mo.Option[string]
	Description mo.Option[string]
	Categories  mo.Option[[]string]
	RelatedTo   mo.Option[[]Relation]

	// color is text; its parsed form is resolved lazily on read.
	color      mo.Option[string]
	display    colorful.Color
	displayOK  bool
	colorStale bool
}

// New returns an empty bag.
func New() *Bag {
	return &Bag{}
}

// Color returns the raw color text.
func (b *Bag) Color() (string, bool) {
	return b.color.Get()
}

// SetColor stores the color text and marks the display color for recompute.
func (b *Bag) SetColor(c string) {
	b.color = mo.Some(c)
	b.colorStale = true
}

// DisplayColor returns the parsed color. Accepts "#rgb", "#rrggbb" and a
// handful of basic color names.
func (b *Bag) DisplayColor() (colorful.Color, bool) {
	if b.colorStale {
		b.display, b.displayOK = resolveColor(b.color)
		b.colorStale = false
	}
	return b.display, b.displayOK
}

var namedColors = map[string]string{
	"black":   "#000000",
	"white":   "#ffffff",
	"red":     "#ff0000",
	"green":   "#008000",
	"blue":    "#0000ff",
	"yellow":  "#ffff00",
	"cyan":    "#00ffff",
	"magenta": "#ff00ff",
	"orange":  "#ffa500",
	"purple":  "#800080",
	"gray":    "#808080",
}

func resolveColor(c mo.Option[string]) (colorful.Color, bool) {
	text, ok := c.Get()
	if !ok {
		return colorful.Color{}, false
	}
	text = strings.ToLower(strings.TrimSpace(text))
	if hex, ok := namedColors[text]; ok {
		text = hex
	}
	if !strings.HasPrefix(text, "#") {
		text = "#" + text
	}
	col, err := colorful.Hex(text)
	if err != nil {
		return colorful.Color{}, false
	}
	return col, true
}

// Has reports whether every field in mask is present.
func (b *Bag) Has(mask Field) bool {
	return b.Present()&mask == mask
}

// Present returns the mask of present fields.
func (b *Bag) Present() Field {
	var m Field
	set := func(f Field, present bool) {
		if present {
			m |= f
		}
	}
	set(FieldStart, b.Start.IsPresent())
	set(FieldEnd, b.End.IsPresent())
	set(FieldDue, b.Due.IsPresent())
	set(FieldStatus, b.Status.IsPresent())
	set(FieldClass, b.Class.IsPresent())
	set(FieldEstimatedDuration, b.EstimatedDuration.IsPresent())
	set(FieldPercentComplete, b.PercentComplete.IsPresent())
	set(FieldColor, b.color.IsPresent())
	set(FieldSummary, b.Summary.IsPresent())
	set(FieldLocation, b.Location.IsPresent())
	set(FieldDescription, b.Description.IsPresent())
	set(FieldCategories, b.Categories.IsPresent())
	set(FieldRelatedTo, b.RelatedTo.IsPresent())
	return m
}

// Clear removes every field in mask.
func (b *Bag) Clear(mask Field) {
	if mask&FieldStart != 0 {
		b.Start = mo.None[time.Time]()
	}
	if mask&FieldEnd != 0 {
		b.End = mo.None[time.Time]()
	}
	if mask&FieldDue != 0 {
		b.Due = mo.None[time.Time]()
	}
	if mask&FieldStatus != 0 {
		b.Status = mo.None[Status]()
	}
	if mask&FieldClass != 0 {
		b.Class = mo.None[Class]()
	}
	if mask&FieldEstimatedDuration != 0 {
		b.EstimatedDuration = mo.None[time.Duration]()
	}
	if mask&FieldPercentComplete != 0 {
		b.PercentComplete = mo.None[int]()
	}
	if mask&FieldColor != 0 {
		b.color = mo.None[string]()
		b.colorStale = true
	}
	if mask&FieldSummary != 0 {
		b.Summary = mo.None[string]()
	}
	if mask&FieldLocation != 0 {
		b.Location = mo.None[string]()
	}
	if mask&FieldDescription != 0 {
		b.Description = mo.None[string]()
	}
	if mask&FieldCategories != 0 {
		b.Categories = mo.None[[]string]()
	}
	if mask&FieldRelatedTo != 0 {
		b.RelatedTo = mo.None[[]Relation]()
	}
}

// Union copies every field present in src onto b.
func (b *Bag) Union(src *Bag) {
	if src == nil {
		return
	}
	if src.Start.IsPresent() {
		b.Start = src.Start
	}
	if src.End.IsPresent() {
		b.End = src.End
	}
	if src.Due.IsPresent() {
		b.Due = src.Due
	}
	if src.Status.IsPresent() {
		b.Status = src.Status
	}
	if src.Class.IsPresent() {
		b.Class = src.Class
	}
	if src.EstimatedDuration.IsPresent() {
		b.EstimatedDuration = src.EstimatedDuration
	}
	if src.PercentComplete.IsPresent() {
		b.PercentComplete = src.PercentComplete
	}
	if c, ok := src.color.Get(); ok {
		b.SetColor(c)
	}
	if src.Summary.IsPresent() {
		b.Summary = src.Summary
	}
	if src.Location.IsPresent() {
		b.Location = src.Location
	}
	if src.Description.IsPresent() {
		b.Description = src.Description
	}
	if cats, ok := src.Categories.Get(); ok {
		b.Categories = mo.Some(slices.Clone(cats))
	}
	if rels, ok := src.RelatedTo.Get(); ok {
		b.RelatedTo = mo.Some(slices.Clone(rels))
	}
}

// Clone returns a deep copy of b.
func (b *Bag) Clone() *Bag {
	out := New()
	out.Union(b)
	return out
}

// Equal compares all fields by value. A field present on one side only makes
// the bags unequal.
func (b *Bag) Equal(o *Bag) bool {
	if b == nil || o == nil {
		return b == o
	}
	if b.Present() != o.Present() {
		return false
	}
	return b.Timing().Equal(o.Timing()) &&
		b.Status.OrEmpty() == o.Status.OrEmpty() &&
		b.Class.OrEmpty() == o.Class.OrEmpty() &&
		b.EstimatedDuration.OrEmpty() == o.EstimatedDuration.OrEmpty() &&
		b.PercentComplete.OrEmpty() == o.PercentComplete.OrEmpty() &&
		b.color.OrEmpty() == o.color.OrEmpty() &&
		b.Summary.OrEmpty() == o.Summary.OrEmpty() &&
		b.Location.OrEmpty() == o.Location.OrEmpty() &&
		b.Description.OrEmpty() == o.Description.OrEmpty() &&
		slices.Equal(b.Categories.OrEmpty(), o.Categories.OrEmpty()) &&
		slices.Equal(b.RelatedTo.OrEmpty(), o.RelatedTo.OrEmpty())
}

// Timing returns the start/end/due triple of the bag.
func (b *Bag) Timing() Timing {
	return Timing{Start: b.Start, End: b.End, Due: b.Due}
}

// ApplyTiming overwrites the timing fields present in t.
func (b *Bag) ApplyTiming(t Timing) {
	if t.Start.IsPresent() {
		b.Start = t.Start
	}
	if t.End.IsPresent() {
		b.End = t.End
	}
	if t.Due.IsPresent() {
		b.Due = t.Due
	}
}

// Timing is the (start, end, due) triple of one occurrence.
type Timing struct {
	Start mo.Option[time.Time]
	End   mo.Option[time.Time]
	Due   mo.Option[time.Time]
}

// Range returns the span covered by the timing: [start, end), else
// [start, due), else a point at start or due. ok is false when neither start
// nor due is present.
func (t Timing) Range() (start, end time.Time, ok bool) {
	s, hasStart := t.Start.Get()
	if !hasStart {
		d, hasDue := t.Due.Get()
		return d, d, hasDue
	}
	if e, hasEnd := t.End.Get(); hasEnd {
		return s, e, true
	}
	if d, hasDue := t.Due.Get(); hasDue {
		return s, d, true
	}
	return s, s, true
}

// Equal compares presence and instants of all three fields.
func (t Timing) Equal(o Timing) bool {
	return timeOptEqual(t.Start, o.Start) && timeOptEqual(t.End, o.End) && timeOptEqual(t.Due, o.Due)
}

func timeOptEqual(a, b mo.Option[time.Time]) bool {
	av, aok := a.Get()
	bv, bok := b.Get()
	if aok != bok {
		return false
	}
	return !aok || av.Equal(bv)
}
