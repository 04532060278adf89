package layout

import (
	"math/rand"
	"testing"
	"time"

	"github.com/cyp0633/caldora/engine/interval"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2024, 5, 6, 8, 0, 0, 0, time.UTC)

func hr(start, end float64) interval.Range {
	return interval.New(
		base.Add(time.Duration(start*float64(time.Hour))),
		base.Add(time.Duration(end*float64(time.Hour))),
	)
}

func TestColumns(t *testing.T) {
	tests := []struct {
		name   string
		ranges []interval.Range
		want   []Slot
	}{
		{
			name: "empty",
		},
		{
			name:   "single",
			ranges: []interval.Range{hr(0, 1)},
			want:   []Slot{{0, 1}},
		},
		{
			name:   "touching ranges share a column",
			ranges: []interval.Range{hr(0, 1), hr(1, 2)},
			want:   []Slot{{0, 1}, {0, 1}},
		},
		{
			name:   "pair overlaps",
			ranges: []interval.Range{hr(0, 2), hr(1, 3)},
			want:   []Slot{{0, 2}, {1, 2}},
		},
		{
			name:   "freed column is reused",
			ranges: []interval.Range{hr(0, 2), hr(1, 4), hr(2, 3)},
			want:   []Slot{{0, 2}, {1, 2}, {0, 2}},
		},
		{
			name:   "separate groups get separate widths",
			ranges: []interval.Range{hr(0, 2), hr(1, 2), hr(0.5, 1.5), hr(5, 6)},
			want:   []Slot{{0, 3}, {2, 3}, {1, 3}, {0, 1}},
		},
		{
			name:   "point inside a range",
			ranges: []interval.Range{hr(0, 2), hr(1, 1)},
			want:   []Slot{{0, 2}, {1, 2}},
		},
		{
			name:   "point at an end does not overlap",
			ranges: []interval.Range{hr(0, 1), hr(1, 1)},
			want:   []Slot{{0, 1}, {0, 1}},
		},
		{
			name:   "identical ranges",
			ranges: []interval.Range{hr(0, 1), hr(0, 1), hr(0, 1)},
			want:   []Slot{{0, 3}, {1, 3}, {2, 3}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Columns(tt.ranges)
			if len(tt.want) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestColumns_ManyColumns(t *testing.T) {
	var ranges []interval.Range
	for i := 0; i < 130; i++ {
		ranges = append(ranges, hr(0, 1))
	}
	slots := Columns(ranges)
	for i, s := range slots {
		assert.Equal(t, i, s.Column)
		assert.Equal(t, 130, s.MaxN)
	}
}

// groupPeak computes the true maximum concurrency of the connected overlap
// group containing i, by brute force.
func groupPeak(ranges []interval.Range, i int) int {
	inGroup := map[int]bool{i: true}
	for changed := true; changed; {
		changed = false
		for a := range ranges {
			if inGroup[a] {
				continue
			}
			for b := range inGroup {
				if ranges[a].Overlaps(ranges[b]) {
					inGroup[a] = true
					changed = true
					break
				}
			}
		}
	}
	peak := 0
	for a := range inGroup {
		n := 0
		for b := range inGroup {
			if ranges[b].Contains(ranges[a].Start) || (ranges[b].IsPoint() && ranges[b].Start.Equal(ranges[a].Start)) {
				n++
			}
		}
		peak = max(peak, n)
	}
	return peak
}

func TestColumns_Random(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 200; round++ {
		n := 1 + rng.Intn(25)
		ranges := make([]interval.Range, n)
		for i := range ranges {
			start := rng.Intn(40)
			length := 1 + rng.Intn(8)
			ranges[i] = interval.New(base.Add(time.Duration(start)*15*time.Minute), base.Add(time.Duration(start+length)*15*time.Minute))
		}

		slots := Columns(ranges)
		require.Len(t, slots, n)
		for i := range ranges {
			assert.GreaterOrEqual(t, slots[i].Column, 0)
			assert.Less(t, slots[i].Column, slots[i].MaxN)
			assert.Equal(t, groupPeak(ranges, i), slots[i].MaxN, "round %d range %d", round, i)
			for j := i + 1; j < n; j++ {
				if ranges[i].Overlaps(ranges[j]) {
					assert.NotEqual(t, slots[i].Column, slots[j].Column, "round %d: %s and %s", round, ranges[i], ranges[j])
				}
			}
		}
	}
}
