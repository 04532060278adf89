package store

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cyp0633/caldora/engine/props"
)

// Collations understood by TextMatch.
const (
	CollationCaseMap = "i;unicode-casemap"
	CollationOctet   = "i;octet"
)

// Match types understood by TextMatch.
const (
	MatchEquals     = "equals"
	MatchContains   = "contains"
	MatchStartsWith = "starts-with"
	MatchEndsWith   = "ends-with"
)

// TextMatch is a text constraint on a property value.
type TextMatch struct {
	Collation string // CollationCaseMap (default) or CollationOctet
	MatchType string // MatchContains (default), MatchEquals, ...
	Negate    bool
	Value     string
}

// PropFilter constrains one bag field.
type PropFilter struct {
	Field        props.Field
	IsNotDefined bool
	TextMatch    *TextMatch // optional
}

// Filter narrows query results by their property values. An empty filter
// matches everything.
type Filter struct {
	PropFilters []PropFilter
	Test        string // "anyof" (default) or "allof"
}

const textFields = props.FieldStatus | props.FieldClass | props.FieldPercentComplete |
	props.FieldColor | props.FieldSummary | props.FieldLocation |
	props.FieldDescription | props.FieldCategories | props.FieldRelatedTo

// Validate reports filters that can never be evaluated.
func (f Filter) Validate() error {
	switch f.Test {
	case "", "anyof", "allof":
	default:
		return invalid(fmt.Sprintf("unknown filter test %q", f.Test), nil)
	}
	for _, pf := range f.PropFilters {
		if pf.Field == 0 || pf.Field&(pf.Field-1) != 0 {
			return invalid(fmt.Sprintf("filter needs exactly one field, got %s", pf.Field), nil)
		}
		if tm := pf.TextMatch; tm != nil {
			if pf.Field&textFields == 0 {
				return invalid(fmt.Sprintf("field %s has no text to match", pf.Field), nil)
			}
			switch tm.Collation {
			case "", CollationCaseMap, CollationOctet:
			default:
				return invalid(fmt.Sprintf("unknown collation %q", tm.Collation), nil)
			}
			switch tm.MatchType {
			case "", MatchEquals, MatchContains, MatchStartsWith, MatchEndsWith:
			default:
				return invalid(fmt.Sprintf("unknown match type %q", tm.MatchType), nil)
			}
		}
	}
	return nil
}

// Match reports whether bag satisfies the filter.
func (f Filter) Match(bag *props.Bag) bool {
	if len(f.PropFilters) == 0 {
		return true
	}
	all := f.Test == "allof"
	for _, pf := range f.PropFilters {
		ok := pf.match(bag)
		if all && !ok {
			return false
		}
		if !all && ok {
			return true
		}
	}
	return all
}

// Apply returns the results whose bag matches, in their original order.
func (f Filter) Apply(results []Result) []Result {
	if len(f.PropFilters) == 0 {
		return results
	}
	var out []Result
	for _, r := range results {
		if r.Bag != nil && f.Match(r.Bag) {
			out = append(out, r)
		}
	}
	return out
}

func (pf PropFilter) match(bag *props.Bag) bool {
	defined := bag.Has(pf.Field)
	if pf.IsNotDefined {
		return !defined
	}
	if !defined {
		return false
	}
	if pf.TextMatch == nil {
		return true
	}
	hit := false
	for _, v := range fieldValues(bag, pf.Field) {
		if pf.TextMatch.matches(v) {
			hit = true
			break
		}
	}
	return hit != pf.TextMatch.Negate
}

func (tm *TextMatch) matches(v string) bool {
	want := tm.Value
	if tm.Collation != CollationOctet {
		v, want = strings.ToLower(v), strings.ToLower(want)
	}
	switch tm.MatchType {
	case MatchEquals:
		return v == want
	case MatchStartsWith:
		return strings.HasPrefix(v, want)
	case MatchEndsWith:
		return strings.HasSuffix(v, want)
	default:
		return strings.Contains(v, want)
	}
}

func fieldValues(bag *props.Bag, f props.Field) []string {
	switch f {
	case props.FieldSummary:
		return []string{bag.Summary.OrEmpty()}
	case props.FieldLocation:
		return []string{bag.Location.OrEmpty()}
	case props.FieldDescription:
		return []string{bag.Description.OrEmpty()}
	case props.FieldColor:
		c, _ := bag.Color()
		return []string{c}
	case props.FieldStatus:
		return []string{bag.Status.OrEmpty().String()}
	case props.FieldClass:
		return []string{bag.Class.OrEmpty().String()}
	case props.FieldPercentComplete:
		return []string{strconv.Itoa(bag.PercentComplete.OrEmpty())}
	case props.FieldCategories:
		return bag.Categories.OrEmpty()
	case props.FieldRelatedTo:
		var uids []string
		for _, r := range bag.RelatedTo.OrEmpty() {
			uids = append(uids, r.UID)
		}
		return uids
	}
	return nil
}

// ParsePropFilter parses the command-line filter forms
//
//	field=text    field contains text (case-insensitive)
//	field==text   field equals text
//	field^=text   field starts with text
//	field$=text   field ends with text
//	!field=text   negated, any of the above
//	field         field is defined
//	-field        field is not defined
func ParsePropFilter(s string) (PropFilter, error) {
	s = strings.TrimSpace(s)
	if name, ok := strings.CutPrefix(s, "-"); ok {
		f, err := props.ParseField(name)
		if err != nil {
			return PropFilter{}, invalid("filter", err)
		}
		return PropFilter{Field: f, IsNotDefined: true}, nil
	}

	negate := false
	if rest, ok := strings.CutPrefix(s, "!"); ok {
		negate, s = true, rest
	}
	name, value, hasValue := strings.Cut(s, "=")
	if !hasValue {
		if negate {
			return PropFilter{}, invalid(fmt.Sprintf("filter %q: negation needs a value", s), nil)
		}
		f, err := props.ParseField(name)
		if err != nil {
			return PropFilter{}, invalid("filter", err)
		}
		return PropFilter{Field: f}, nil
	}

	tm := &TextMatch{Collation: CollationCaseMap, MatchType: MatchContains, Negate: negate}
	switch {
	case strings.HasPrefix(value, "="):
		tm.MatchType, value = MatchEquals, value[1:]
	case strings.HasSuffix(name, "^"):
		tm.MatchType, name = MatchStartsWith, strings.TrimSuffix(name, "^")
	case strings.HasSuffix(name, "$"):
		tm.MatchType, name = MatchEndsWith, strings.TrimSuffix(name, "$")
	}
	tm.Value = value

	f, err := props.ParseField(name)
	if err != nil {
		return PropFilter{}, invalid("filter", err)
	}
	pf := PropFilter{Field: f, TextMatch: tm}
	if err := (Filter{PropFilters: []PropFilter{pf}}).Validate(); err != nil {
		return PropFilter{}, err
	}
	return pf, nil
}
