// Package xcal renders query results as an xCal (RFC 6321) document.
package xcal

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/cyp0633/caldora/engine/layout"
	"github.com/cyp0633/caldora/engine/props"
	"github.com/cyp0633/caldora/engine/store"
)

// Namespace is the xCal namespace.
const Namespace = "urn:ietf:params:xml:ns:icalendar-2.0"

// ProdID is written into every document.
const ProdID = "-//caldora//agenda//EN"

const dateTimeLayout = "2006-01-02T15:04:05Z"

// Document builds an xCal document with one component per result. When
// slots is non-nil it must be parallel to results; every component then
// carries its display column as X-CALDORA-COLUMN and X-CALDORA-COLUMNS.
func Document(results []store.Result, slots []layout.Slot) (*etree.Document, error) {
	if slots != nil && len(slots) != len(results) {
		return nil, fmt.Errorf("got %d slots for %d results", len(slots), len(results))
	}

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement("icalendar")
	root.CreateAttr("xmlns", Namespace)

	cal := root.CreateElement("vcalendar")
	calProps := cal.CreateElement("properties")
	textProp(calProps, "prodid", ProdID)
	textProp(calProps, "version", "2.0")

	comps := cal.CreateElement("components")
	for i, res := range results {
		comp := comps.CreateElement(componentName(res.Kind))
		p := comp.CreateElement("properties")
		writeResult(p, res)
		if slots != nil {
			intProp(p, "x-caldora-column", slots[i].Column)
			intProp(p, "x-caldora-columns", slots[i].MaxN)
		}
	}
	return doc, nil
}

// Write renders results as indented xCal to w.
func Write(w io.Writer, results []store.Result, slots []layout.Slot) error {
	doc, err := Document(results, slots)
	if err != nil {
		return err
	}
	doc.Indent(2)
	if _, err := doc.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write xCal: %w", err)
	}
	return nil
}

func componentName(k props.Kind) string {
	if k == props.KindTask {
		return "vtodo"
	}
	return "vevent"
}

func writeResult(p *etree.Element, res store.Result) {
	textProp(p, "uid", res.UID)
	if key, ok := res.Key.Get(); ok {
		dateTimeProp(p, "recurrence-id", key)
	}
	if t, ok := res.Timing.Start.Get(); ok {
		dateTimeProp(p, "dtstart", t)
	}
	if t, ok := res.Timing.End.Get(); ok {
		dateTimeProp(p, "dtend", t)
	}
	if t, ok := res.Timing.Due.Get(); ok {
		dateTimeProp(p, "due", t)
	}

	bag := res.Bag
	if bag == nil {
		return
	}
	if v, ok := bag.Summary.Get(); ok {
		textProp(p, "summary", v)
	}
	if v, ok := bag.Location.Get(); ok {
		textProp(p, "location", v)
	}
	if v, ok := bag.Description.Get(); ok {
		textProp(p, "description", v)
	}
	if v, ok := bag.Status.Get(); ok {
		textProp(p, "status", v.String())
	}
	if v, ok := bag.Class.Get(); ok {
		textProp(p, "class", v.String())
	}
	if v, ok := bag.PercentComplete.Get(); ok {
		intProp(p, "percent-complete", v)
	}
	if v, ok := bag.EstimatedDuration.Get(); ok {
		p.CreateElement("estimated-duration").CreateElement("duration").SetText(FormatDuration(v))
	}
	if cats, ok := bag.Categories.Get(); ok && len(cats) > 0 {
		el := p.CreateElement("categories")
		for _, c := range cats {
			el.CreateElement("text").SetText(c)
		}
	}
	if rels, ok := bag.RelatedTo.Get(); ok {
		for _, r := range rels {
			el := p.CreateElement("related-to")
			el.CreateElement("parameters").CreateElement("reltype").CreateElement("text").SetText(r.Kind)
			el.CreateElement("text").SetText(r.UID)
		}
	}
	if v, ok := bag.Color(); ok {
		textProp(p, "color", v)
		if col, ok := bag.DisplayColor(); ok {
			textProp(p, "x-caldora-display-color", col.Hex())
		}
	}
}

func textProp(parent *etree.Element, name, value string) {
	parent.CreateElement(name).CreateElement("text").SetText(value)
}

func intProp(parent *etree.Element, name string, value int) {
	parent.CreateElement(name).CreateElement("integer").SetText(strconv.Itoa(value))
}

func dateTimeProp(parent *etree.Element, name string, t time.Time) {
	parent.CreateElement(name).CreateElement("date-time").SetText(t.UTC().Format(dateTimeLayout))
}

// FormatDuration renders d as an RFC 5545 duration, e.g. "P1DT2H30M".
// Sub-second precision is dropped.
func FormatDuration(d time.Duration) string {
	var b strings.Builder
	if d < 0 {
		b.WriteByte('-')
		d = -d
	}
	b.WriteByte('P')

	secs := int64(d / time.Second)
	days := secs / 86400
	secs %= 86400
	h, m, s := secs/3600, secs%3600/60, secs%60

	if days > 0 {
		fmt.Fprintf(&b, "%dD", days)
	}
	if h > 0 || m > 0 || s > 0 || days == 0 {
		b.WriteByte('T')
		if h > 0 {
			fmt.Fprintf(&b, "%dH", h)
		}
		if m > 0 {
			fmt.Fprintf(&b, "%dM", m)
		}
		if s > 0 || (h == 0 && m == 0) {
			fmt.Fprintf(&b, "%dS", s)
		}
	}
	return b.String()
}
