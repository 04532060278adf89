package icalsrc

import (
	"strings"
	"testing"
	"time"

	"github.com/cyp0633/caldora/engine/interval"
	"github.com/cyp0633/caldora/engine/props"
	"github.com/cyp0633/caldora/engine/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//caldora//test//EN
BEGIN:VEVENT
UID:standup@example.com
DTSTAMP:20240101T000000Z
DTSTART:20240108T090000Z
DTEND:20240108T091500Z
SUMMARY:Standup
LOCATION:Room 1
CATEGORIES:work,daily
COLOR:teal
STATUS:CONFIRMED
CLASS:PRIVATE
RRULE:FREQ=WEEKLY;BYDAY=MO
EXDATE:20240122T090000Z
END:VEVENT
BEGIN:VEVENT
UID:standup@example.com
DTSTAMP:20240101T000000Z
RECURRENCE-ID:20240115T090000Z
DTSTART:20240115T100000Z
DTEND:20240115T101500Z
LOCATION:Cafe
END:VEVENT
BEGIN:VEVENT
UID:holiday@example.com
DTSTAMP:20240101T000000Z
DTSTART;VALUE=DATE:20240110
SUMMARY:Day off
END:VEVENT
BEGIN:VTODO
UID:report@example.com
DTSTAMP:20240101T000000Z
SUMMARY:Write report
ESTIMATED-DURATION:PT2H
PERCENT-COMPLETE:40
STATUS:IN-PROCESS
RELATED-TO;RELTYPE=CHILD:outline@example.com
END:VTODO
BEGIN:VTODO
DTSTAMP:20240101T000000Z
SUMMARY:No uid
END:VTODO
BEGIN:VEVENT
UID:meeting@example.com
DTSTAMP:20240101T000000Z
DTSTART:20240109T130000Z
DURATION:PT45M
SUMMARY:Planning
END:VEVENT
END:VCALENDAR
`

func decodeSample(t *testing.T) (map[string]store.Record, []error) {
	t.Helper()
	results, err := Decode(strings.NewReader(sample), time.UTC)
	require.NoError(t, err)

	records := make(map[string]store.Record)
	var errs []error
	for _, res := range results {
		rec, err := res.Get()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		records[rec.UID] = rec
	}
	return records, errs
}

func TestDecode(t *testing.T) {
	records, errs := decodeSample(t)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrMissingUID)
	require.Len(t, records, 4)

	standup := records["standup@example.com"]
	assert.Equal(t, props.KindEvent, standup.Kind)
	assert.Equal(t, "Standup", standup.Props.Summary.MustGet())
	assert.Equal(t, []string{"work", "daily"}, standup.Props.Categories.MustGet())
	assert.Equal(t, props.StatusConfirmed, standup.Props.Status.MustGet())
	assert.Equal(t, props.ClassPrivate, standup.Props.Class.MustGet())
	color, ok := standup.Props.Color()
	assert.True(t, ok)
	assert.Equal(t, "teal", color)
	assert.Equal(t, 15*time.Minute, standup.Props.End.MustGet().Sub(standup.Props.Start.MustGet()))

	require.NotNil(t, standup.Recurrence)
	assert.Equal(t, "FREQ=WEEKLY;BYDAY=MO", standup.Recurrence.RRULE)
	require.Len(t, standup.Recurrence.EXDATE, 1)

	require.Len(t, standup.Overrides, 1)
	ov := standup.Overrides[0]
	assert.True(t, time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC).Equal(ov.Key))
	assert.Equal(t, "Cafe", ov.Props.Location.MustGet())
	assert.True(t, time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC).Equal(ov.Props.Start.MustGet()))

	holiday := records["holiday@example.com"]
	assert.Nil(t, holiday.Recurrence)
	assert.Equal(t, time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), holiday.Props.Start.MustGet())
	assert.Equal(t, time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC), holiday.Props.End.MustGet())

	report := records["report@example.com"]
	assert.Equal(t, props.KindTask, report.Kind)
	assert.Equal(t, 2*time.Hour, report.Props.EstimatedDuration.MustGet())
	assert.Equal(t, 40, report.Props.PercentComplete.MustGet())
	assert.Equal(t, props.StatusInProcess, report.Props.Status.MustGet())
	assert.Equal(t, []props.Relation{{Kind: "CHILD", UID: "outline@example.com"}}, report.Props.RelatedTo.MustGet())
	assert.True(t, report.Props.Start.IsAbsent())

	meeting := records["meeting@example.com"]
	assert.True(t, time.Date(2024, 1, 9, 13, 45, 0, 0, time.UTC).Equal(meeting.Props.End.MustGet()))
}

func TestDecode_IntoStore(t *testing.T) {
	records, _ := decodeSample(t)
	var list []store.Record
	for _, rec := range records {
		list = append(list, rec)
	}

	s := store.New(store.Options{})
	res := s.Load(list)
	require.Empty(t, res.Rejected)
	assert.Equal(t, 4, res.Loaded)

	from := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)
	results := s.Window(props.KindEvent, interval.New(from, from.AddDate(0, 0, 21)))

	var standups []store.Result
	for _, r := range results {
		if r.UID == "standup@example.com" {
			standups = append(standups, r)
		}
	}
	// Jan 8, Jan 15 (moved), Jan 22 excluded, Jan 29 is outside.
	require.Len(t, standups, 2)
	assert.True(t, standups[1].IsOverride)
	assert.Equal(t, "Cafe", standups[1].Bag.Location.MustGet())
	assert.Equal(t, 10, standups[1].Range.Start.Hour())

	assert.Len(t, s.Unscheduled(props.KindTask), 1)
}

func TestDecode_Rejections(t *testing.T) {
	const ics = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//caldora//test//EN
BEGIN:VEVENT
UID:orphan
DTSTAMP:20240101T000000Z
RECURRENCE-ID:20240115T090000Z
DTSTART:20240115T100000Z
DTEND:20240115T101500Z
END:VEVENT
BEGIN:VEVENT
UID:twice
DTSTAMP:20240101T000000Z
DTSTART:20240115T100000Z
DTEND:20240115T101500Z
END:VEVENT
BEGIN:VEVENT
UID:twice
DTSTAMP:20240101T000000Z
DTSTART:20240116T100000Z
DTEND:20240116T101500Z
END:VEVENT
BEGIN:VTODO
UID:badstatus
DTSTAMP:20240101T000000Z
STATUS:SOMEDAY
END:VTODO
BEGIN:VEVENT
UID:blankid
DTSTAMP:20240101T000000Z
DTSTART:20240115T100000Z
DTEND:20240115T101500Z
RRULE:FREQ=DAILY
END:VEVENT
BEGIN:VEVENT
UID:blankid
DTSTAMP:20240101T000000Z
RECURRENCE-ID:
DTSTART:20240116T110000Z
DTEND:20240116T111500Z
END:VEVENT
BEGIN:VTODO
UID:badpercent
DTSTAMP:20240101T000000Z
PERCENT-COMPLETE:most
END:VTODO
END:VCALENDAR
`
	results, err := Decode(strings.NewReader(ics), nil)
	require.NoError(t, err)
	require.Len(t, results, 5)
	for _, res := range results {
		assert.True(t, res.IsError())
	}
}

func TestDecode_Malformed(t *testing.T) {
	_, err := Decode(strings.NewReader("BEGIN:VCALENDAR\nnot a property\n"), nil)
	assert.Error(t, err)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b,c", "d"}, splitList(`a, b\,c ,d`))
	assert.Empty(t, splitList(""))
}
