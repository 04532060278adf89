package recurrence

import (
	"slices"
	"time"
)

// RecurrenceInfo contains all recurrence-related information for a record
type RecurrenceInfo struct {
	RRULE        string      // The RRULE string (without "RRULE:" prefix)
	RDATE        []time.Time // Additional recurrence dates
	EXDATE       []time.Time // Exception date-times, matched exactly
	EXDATEDays   []time.Time // VALUE=DATE exceptions (midnight UTC), exclude the whole day
	RecurrenceID *time.Time  // For exception instances - which occurrence this overrides
}

// IsRecurring reports whether the info defines more than a single occurrence.
func (ri RecurrenceInfo) IsRecurring() bool {
	return ri.RRULE != "" || len(ri.RDATE) > 0
}

// Clone returns a deep copy so callers can't mutate a generator's rule.
func (ri RecurrenceInfo) Clone() RecurrenceInfo {
	out := RecurrenceInfo{
		RRULE:      ri.RRULE,
		RDATE:      slices.Clone(ri.RDATE),
		EXDATE:     slices.Clone(ri.EXDATE),
		EXDATEDays: slices.Clone(ri.EXDATEDays),
	}
	if ri.RecurrenceID != nil {
		id := *ri.RecurrenceID
		out.RecurrenceID = &id
	}
	return out
}
