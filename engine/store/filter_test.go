package store

import (
	"testing"
	"time"

	"github.com/cyp0633/caldora/engine/interval"
	"github.com/cyp0633/caldora/engine/props"
	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func filterBag() *props.Bag {
	b := props.New()
	b.Summary = mo.Some("Weekly Standup")
	b.Categories = mo.Some([]string{"Work", "daily"})
	b.Status = mo.Some(props.StatusConfirmed)
	b.RelatedTo = mo.Some([]props.Relation{{Kind: "PARENT", UID: "team-rituals"}})
	return b
}

func TestFilter_Match(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{"empty", Filter{}, true},
		{"defined", Filter{PropFilters: []PropFilter{{Field: props.FieldSummary}}}, true},
		{"not defined", Filter{PropFilters: []PropFilter{{Field: props.FieldLocation, IsNotDefined: true}}}, true},
		{"absent field", Filter{PropFilters: []PropFilter{{Field: props.FieldLocation}}}, false},
		{"contains casemap", Filter{PropFilters: []PropFilter{{
			Field:     props.FieldSummary,
			TextMatch: &TextMatch{Value: "standup"},
		}}}, true},
		{"contains octet", Filter{PropFilters: []PropFilter{{
			Field:     props.FieldSummary,
			TextMatch: &TextMatch{Collation: CollationOctet, Value: "standup"},
		}}}, false},
		{"equals", Filter{PropFilters: []PropFilter{{
			Field:     props.FieldStatus,
			TextMatch: &TextMatch{MatchType: MatchEquals, Value: "confirmed"},
		}}}, true},
		{"starts-with", Filter{PropFilters: []PropFilter{{
			Field:     props.FieldSummary,
			TextMatch: &TextMatch{MatchType: MatchStartsWith, Value: "weekly"},
		}}}, true},
		{"ends-with", Filter{PropFilters: []PropFilter{{
			Field:     props.FieldSummary,
			TextMatch: &TextMatch{MatchType: MatchEndsWith, Value: "weekly"},
		}}}, false},
		{"any category", Filter{PropFilters: []PropFilter{{
			Field:     props.FieldCategories,
			TextMatch: &TextMatch{MatchType: MatchEquals, Value: "work"},
		}}}, true},
		{"negated category", Filter{PropFilters: []PropFilter{{
			Field:     props.FieldCategories,
			TextMatch: &TextMatch{MatchType: MatchEquals, Value: "work", Negate: true},
		}}}, false},
		{"related uid", Filter{PropFilters: []PropFilter{{
			Field:     props.FieldRelatedTo,
			TextMatch: &TextMatch{Value: "rituals"},
		}}}, true},
		{"anyof", Filter{PropFilters: []PropFilter{
			{Field: props.FieldLocation},
			{Field: props.FieldSummary},
		}}, true},
		{"allof", Filter{Test: "allof", PropFilters: []PropFilter{
			{Field: props.FieldLocation},
			{Field: props.FieldSummary},
		}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.filter.Validate())
			assert.Equal(t, tt.want, tt.filter.Match(filterBag()))
		})
	}
}

func TestFilter_Validate(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
	}{
		{"test", Filter{Test: "someof"}},
		{"no field", Filter{PropFilters: []PropFilter{{}}}},
		{"two fields", Filter{PropFilters: []PropFilter{{Field: props.FieldSummary | props.FieldLocation}}}},
		{"text on timing", Filter{PropFilters: []PropFilter{{Field: props.FieldStart, TextMatch: &TextMatch{Value: "x"}}}}},
		{"collation", Filter{PropFilters: []PropFilter{{Field: props.FieldSummary, TextMatch: &TextMatch{Collation: "i;ascii-numeric"}}}}},
		{"match type", Filter{PropFilters: []PropFilter{{Field: props.FieldSummary, TextMatch: &TextMatch{MatchType: "regex"}}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.filter.Validate()
			require.Error(t, err)
			assert.True(t, IsType(err, ErrInvalidInput))
		})
	}
}

func TestParsePropFilter(t *testing.T) {
	tests := []struct {
		in   string
		want PropFilter
	}{
		{"summary=standup", PropFilter{Field: props.FieldSummary, TextMatch: &TextMatch{
			Collation: CollationCaseMap, MatchType: MatchContains, Value: "standup"}}},
		{"status==cancelled", PropFilter{Field: props.FieldStatus, TextMatch: &TextMatch{
			Collation: CollationCaseMap, MatchType: MatchEquals, Value: "cancelled"}}},
		{"summary^=weekly", PropFilter{Field: props.FieldSummary, TextMatch: &TextMatch{
			Collation: CollationCaseMap, MatchType: MatchStartsWith, Value: "weekly"}}},
		{"location$=room", PropFilter{Field: props.FieldLocation, TextMatch: &TextMatch{
			Collation: CollationCaseMap, MatchType: MatchEndsWith, Value: "room"}}},
		{"!categories=home", PropFilter{Field: props.FieldCategories, TextMatch: &TextMatch{
			Collation: CollationCaseMap, MatchType: MatchContains, Negate: true, Value: "home"}}},
		{"due", PropFilter{Field: props.FieldDue}},
		{"-location", PropFilter{Field: props.FieldLocation, IsNotDefined: true}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePropFilter(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"", "colour=red", "!summary", "start=2024", "-nothing"} {
		_, err := ParsePropFilter(bad)
		assert.Error(t, err, bad)
	}
}

func TestFilter_Apply(t *testing.T) {
	s := New(Options{})
	day := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	for i, name := range []string{"Standup", "Lunch", "Standup retro"} {
		b := props.New()
		b.Start = mo.Some(day.Add(time.Duration(9+i) * time.Hour))
		b.End = mo.Some(day.Add(time.Duration(10+i) * time.Hour))
		b.Summary = mo.Some(name)
		_, err := s.Create(Record{Kind: props.KindEvent, Props: b})
		require.NoError(t, err)
	}

	all := s.Window(props.KindEvent, interval.New(day, day.AddDate(0, 0, 1)))
	require.Len(t, all, 3)

	pf, err := ParsePropFilter("summary^=standup")
	require.NoError(t, err)
	got := Filter{PropFilters: []PropFilter{pf}}.Apply(all)
	require.Len(t, got, 2)
	assert.Equal(t, "Standup", got[0].Bag.Summary.MustGet())
	assert.Equal(t, "Standup retro", got[1].Bag.Summary.MustGet())

	slots := Layout(got)
	require.Len(t, slots, 2)
	assert.Equal(t, 1, slots[0].MaxN)
	assert.Equal(t, 1, slots[1].MaxN)
}
