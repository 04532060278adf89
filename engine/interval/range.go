// Package interval provides a half-open time range and an augmented balanced
// tree answering "which stored ranges overlap this window".
package interval

import (
	"fmt"
	"time"
)

// Range is the half-open interval [Start, End). A range whose End is not
// after its Start is treated as the single instant Start.
type Range struct {
	Start time.Time
	End   time.Time
}

// New returns [start, end).
func New(start, end time.Time) Range {
	return Range{Start: start, End: end}
}

// IsPoint reports whether the range has no extent.
func (r Range) IsPoint() bool {
	return !r.End.After(r.Start)
}

// Duration returns End-Start, or zero for points.
func (r Range) Duration() time.Duration {
	if r.IsPoint() {
		return 0
	}
	return r.End.Sub(r.Start)
}

// Contains reports whether t lies in [Start, End).
func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// Overlaps reports whether r and q share at least one instant. Touching ends
// do not overlap. A point overlaps q when q contains it.
func (r Range) Overlaps(q Range) bool {
	switch {
	case r.IsPoint() && q.IsPoint():
		return r.Start.Equal(q.Start)
	case r.IsPoint():
		return q.Contains(r.Start)
	case q.IsPoint():
		return r.Contains(q.Start)
	}
	return r.Start.Before(q.End) && q.Start.Before(r.End)
}

func (r Range) String() string {
	return fmt.Sprintf("[%s, %s)", r.Start.Format(time.RFC3339), r.End.Format(time.RFC3339))
}
