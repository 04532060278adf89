package props

import (
	"fmt"
	"strings"
)

// Kind is the record type a bag belongs to.
type Kind int

const (
	KindEvent Kind = iota
	KindTask
)

// Kinds lists every record kind, in index order.
var Kinds = []Kind{KindEvent, KindTask}

func (k Kind) String() string {
	switch k {
	case KindEvent:
		return "VEVENT"
	case KindTask:
		return "VTODO"
	default:
		return "UNKNOWN"
	}
}

// ParseKind maps an iCalendar component name to a Kind.
func ParseKind(name string) (Kind, error) {
	switch strings.ToUpper(name) {
	case "VEVENT":
		return KindEvent, nil
	case "VTODO":
		return KindTask, nil
	}
	return 0, fmt.Errorf("unsupported component %q", name)
}

// Status mirrors the iCalendar STATUS values used by events and tasks.
type Status int

const (
	StatusTentative Status = iota + 1
	StatusConfirmed
	StatusCancelled
	StatusNeedsAction
	StatusCompleted
	StatusInProcess
)

var statusNames = map[Status]string{
	StatusTentative:   "TENTATIVE",
	StatusConfirmed:   "CONFIRMED",
	StatusCancelled:   "CANCELLED",
	StatusNeedsAction: "NEEDS-ACTION",
	StatusCompleted:   "COMPLETED",
	StatusInProcess:   "IN-PROCESS",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// ParseStatus parses an iCalendar STATUS value (case-insensitive).
func ParseStatus(v string) (Status, error) {
	v = strings.ToUpper(strings.TrimSpace(v))
	for s, name := range statusNames {
		if name == v {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown status %q", v)
}

// AllowedFor reports whether the status may appear on a bag of the given kind.
func (s Status) AllowedFor(k Kind) bool {
	switch k {
	case KindEvent:
		return s == StatusTentative || s == StatusConfirmed || s == StatusCancelled
	case KindTask:
		return s == StatusNeedsAction || s == StatusCompleted || s == StatusInProcess || s == StatusCancelled
	}
	return false
}

// Class is the iCalendar access classification.
type Class int

const (
	ClassPublic Class = iota + 1
	ClassPrivate
	ClassConfidential
)

func (c Class) String() string {
	switch c {
	case ClassPublic:
		return "PUBLIC"
	case ClassPrivate:
		return "PRIVATE"
	case ClassConfidential:
		return "CONFIDENTIAL"
	default:
		return "UNKNOWN"
	}
}

// ParseClass parses an iCalendar CLASS value (case-insensitive).
func ParseClass(v string) (Class, error) {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case "PUBLIC":
		return ClassPublic, nil
	case "PRIVATE":
		return ClassPrivate, nil
	case "CONFIDENTIAL":
		return ClassConfidential, nil
	}
	return 0, fmt.Errorf("unknown class %q", v)
}

// Relation is one RELATED-TO entry.
type Relation struct {
	Kind string // RELTYPE, e.g. "PARENT", "CHILD", "SIBLING"
	UID  string
}

// Field identifies a single bag field. Fields combine into masks.
type Field uint32

const (
	FieldStart Field = 1 << iota
	FieldEnd
	FieldDue
	FieldStatus
	FieldClass
	FieldEstimatedDuration
	FieldPercentComplete
	FieldColor
	FieldSummary
	FieldLocation
	FieldDescription
	FieldCategories
	FieldRelatedTo
)

const (
	// TimingFields are the fields that decide where an occurrence sits in time.
	TimingFields = FieldStart | FieldEnd | FieldDue
	AllFields    = FieldRelatedTo<<1 - 1
)

var fieldNames = []struct {
	f    Field
	name string
}{
	{FieldStart, "start"},
	{FieldEnd, "end"},
	{FieldDue, "due"},
	{FieldStatus, "status"},
	{FieldClass, "class"},
	{FieldEstimatedDuration, "estimated-duration"},
	{FieldPercentComplete, "percent-complete"},
	{FieldColor, "color"},
	{FieldSummary, "summary"},
	{FieldLocation, "location"},
	{FieldDescription, "description"},
	{FieldCategories, "categories"},
	{FieldRelatedTo, "related-to"},
}

func (f Field) String() string {
	var parts []string
	for _, fn := range fieldNames {
		if f&fn.f != 0 {
			parts = append(parts, fn.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// ParseField maps a field name (as printed by Field.String) back to a Field.
func ParseField(name string) (Field, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, fn := range fieldNames {
		if fn.name == name {
			return fn.f, nil
		}
	}
	return 0, fmt.Errorf("unknown field %q", name)
}
