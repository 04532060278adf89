package schedule

import (
	"testing"
	"time"

	"github.com/cyp0633/caldora/engine/interval"
	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var origin = time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)

func at(h int) time.Time { return origin.Add(time.Duration(h) * time.Hour) }

func hours(start, end int) interval.Range { return interval.New(at(start), at(end)) }

func item(d int) Item { return Item{Duration: time.Duration(d) * time.Hour} }

func after(h, d int) Item {
	return Item{EarliestStart: mo.Some(at(h)), Duration: time.Duration(d) * time.Hour}
}

func placed(t *testing.T, got []mo.Option[interval.Range]) []interval.Range {
	t.Helper()
	out := make([]interval.Range, len(got))
	for i, r := range got {
		v, ok := r.Get()
		require.True(t, ok, "item %d not placed", i)
		out[i] = v
	}
	return out
}

func TestFit_Example(t *testing.T) {
	occupied := []interval.Range{hours(3, 8), hours(6, 10), hours(13, 15)}
	got := Fit(origin, occupied, []Item{item(3), item(2), item(1), item(2)})

	assert.Equal(t, []interval.Range{hours(0, 3), hours(10, 12), hours(12, 13), hours(15, 17)}, placed(t, got))
}

func TestFit(t *testing.T) {
	tests := []struct {
		name     string
		occupied []interval.Range
		items    []Item
		want     []mo.Option[interval.Range]
	}{
		{
			name:  "nothing occupied",
			items: []Item{item(1), item(2)},
			want:  []mo.Option[interval.Range]{mo.Some(hours(0, 1)), mo.Some(hours(1, 3))},
		},
		{
			name:     "unsorted occupied ranges",
			occupied: []interval.Range{hours(4, 5), hours(1, 2)},
			items:    []Item{item(2), item(1)},
			want:     []mo.Option[interval.Range]{mo.Some(hours(2, 4)), mo.Some(hours(0, 1))},
		},
		{
			name:     "occupied before origin is ignored",
			occupied: []interval.Range{interval.New(at(-5), at(-1))},
			items:    []Item{item(1)},
			want:     []mo.Option[interval.Range]{mo.Some(hours(0, 1))},
		},
		{
			name:     "origin inside a busy range",
			occupied: []interval.Range{interval.New(at(-1), at(2))},
			items:    []Item{item(1)},
			want:     []mo.Option[interval.Range]{mo.Some(hours(2, 3))},
		},
		{
			name:  "zero duration is never placed",
			items: []Item{item(0), item(1)},
			want:  []mo.Option[interval.Range]{mo.None[interval.Range](), mo.Some(hours(0, 1))},
		},
		{
			name:     "earliest start after the cursor waits for a later gap",
			occupied: []interval.Range{hours(6, 8)},
			items:    []Item{after(2, 2)},
			want:     []mo.Option[interval.Range]{mo.Some(hours(8, 10))},
		},
		{
			name:     "earliest start pushes to a later gap",
			occupied: []interval.Range{hours(3, 8)},
			items:    []Item{after(2, 2), item(1)},
			want:     []mo.Option[interval.Range]{mo.Some(hours(8, 10)), mo.Some(hours(0, 1))},
		},
		{
			name:     "earliest start after the trailing gap cursor is never placed",
			occupied: []interval.Range{hours(0, 1)},
			items:    []Item{after(20, 1)},
			want:     []mo.Option[interval.Range]{mo.None[interval.Range]()},
		},
		{
			name:     "points do not occupy",
			occupied: []interval.Range{hours(1, 1)},
			items:    []Item{item(3)},
			want:     []mo.Option[interval.Range]{mo.Some(hours(0, 3))},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Fit(origin, tt.occupied, tt.items))
		})
	}
}

func TestFitWithOptions_WaitForEarliestStart(t *testing.T) {
	opts := Options{WaitForEarliestStart: true}
	tests := []struct {
		name     string
		occupied []interval.Range
		items    []Item
		want     []mo.Option[interval.Range]
	}{
		{
			name:     "earliest start inside the gap",
			occupied: []interval.Range{hours(6, 8)},
			items:    []Item{after(2, 2)},
			want:     []mo.Option[interval.Range]{mo.Some(hours(2, 4))},
		},
		{
			name:     "earliest start in the trailing gap",
			occupied: []interval.Range{hours(0, 1)},
			items:    []Item{after(20, 1)},
			want:     []mo.Option[interval.Range]{mo.Some(hours(20, 21))},
		},
		{
			name:     "items fitting at the cursor go first",
			occupied: []interval.Range{hours(6, 8)},
			items:    []Item{after(3, 1), item(2)},
			want:     []mo.Option[interval.Range]{mo.Some(hours(3, 4)), mo.Some(hours(0, 2))},
		},
		{
			name:     "example is unchanged",
			occupied: []interval.Range{hours(3, 8), hours(6, 10), hours(13, 15)},
			items:    []Item{item(3), item(2), item(1), item(2)},
			want: []mo.Option[interval.Range]{
				mo.Some(hours(0, 3)), mo.Some(hours(10, 12)), mo.Some(hours(12, 13)), mo.Some(hours(15, 17)),
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FitWithOptions(origin, tt.occupied, tt.items, opts))
		})
	}
}

func TestFit_PlacementsAvoidOccupied(t *testing.T) {
	occupied := []interval.Range{hours(1, 3), hours(5, 6), hours(7, 12)}
	items := []Item{item(2), item(1), after(4, 1), item(3), item(1)}
	got := placed(t, Fit(origin, occupied, items))

	for i, r := range got {
		for _, busy := range occupied {
			assert.False(t, r.Overlaps(busy), "item %d at %s overlaps %s", i, r, busy)
		}
		for j := i + 1; j < len(got); j++ {
			assert.False(t, r.Overlaps(got[j]), "items %d and %d overlap", i, j)
		}
		assert.Equal(t, items[i].Duration, r.Duration())
	}
}
