package recurrence

import (
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-ical"
)

const propRecurrenceID = "RECURRENCE-ID"

// ExtractRecurrenceInfoFromComponent extracts recurrence information from an
// iCal component. Floating date-times are read in loc (UTC when nil).
func ExtractRecurrenceInfoFromComponent(comp *ical.Component, loc *time.Location) (RecurrenceInfo, error) {
	info := RecurrenceInfo{}
	if loc == nil {
		loc = time.UTC
	}

	if rruleProp := comp.Props.Get(ical.PropRecurrenceRule); rruleProp != nil && rruleProp.Value != "" {
		info.RRULE = rruleProp.Value
	}

	var err error
	for _, p := range comp.Props[ical.PropRecurrenceDates] {
		if info.RDATE, err = appendDateList(info.RDATE, p, loc); err != nil {
			return info, fmt.Errorf("RDATE: %w", err)
		}
	}
	for _, p := range comp.Props[ical.PropExceptionDates] {
		if err = appendExDates(&info, p, loc); err != nil {
			return info, fmt.Errorf("EXDATE: %w", err)
		}
	}

	if ridProp := comp.Props.Get(propRecurrenceID); ridProp != nil && ridProp.Value != "" {
		recID, err := parseDateTime(ridProp.Value, ridProp.Params, loc)
		if err != nil {
			return info, fmt.Errorf("RECURRENCE-ID: %w", err)
		}
		info.RecurrenceID = &recID
	}

	return info, nil
}

// ParseDateProp parses a DATE or DATE-TIME property. dateOnly reports a DATE
// value, which is returned as midnight UTC.
func ParseDateProp(prop *ical.Prop, loc *time.Location) (t time.Time, dateOnly bool, err error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err = parseDateTime(prop.Value, prop.Params, loc)
	return t, isDateValue(prop.Params) || len(prop.Value) == len("20060102"), err
}

// appendDateList parses a comma separated RDATE/EXDATE value.
func appendDateList(dst []time.Time, prop ical.Prop, loc *time.Location) ([]time.Time, error) {
	for _, part := range strings.Split(prop.Value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		t, err := parseDateTime(part, prop.Params, loc)
		if err != nil {
			return dst, err
		}
		dst = append(dst, t)
	}
	return dst, nil
}

// appendExDates sorts EXDATE values into exact date-times and whole days.
func appendExDates(info *RecurrenceInfo, prop ical.Prop, loc *time.Location) error {
	for _, part := range strings.Split(prop.Value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		t, err := parseDateTime(part, prop.Params, loc)
		if err != nil {
			return err
		}
		if isDateValue(prop.Params) || len(part) == len("20060102") {
			info.EXDATEDays = append(info.EXDATEDays, t)
		} else {
			info.EXDATE = append(info.EXDATE, t)
		}
	}
	return nil
}

// parseDateTime parses an iCalendar DATE or DATE-TIME honoring VALUE and TZID.
// Date-only values become midnight UTC.
func parseDateTime(value string, params ical.Params, loc *time.Location) (time.Time, error) {
	if isDateValue(params) || len(value) == len("20060102") {
		t, err := time.Parse("20060102", value)
		if err != nil {
			return time.Time{}, err
		}
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
	}

	if strings.HasSuffix(value, "Z") {
		return time.Parse("20060102T150405Z", value)
	}

	if tzids := params["TZID"]; len(tzids) > 0 {
		tz, err := time.LoadLocation(tzids[0])
		if err != nil {
			return time.Time{}, fmt.Errorf("unknown TZID %q: %w", tzids[0], err)
		}
		loc = tz
	}
	return time.ParseInLocation("20060102T150405", value, loc)
}

func isDateValue(params ical.Params) bool {
	v := params["VALUE"]
	return len(v) > 0 && strings.EqualFold(v[0], "DATE")
}
