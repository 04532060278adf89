package props

import (
	"errors"
	"fmt"
)

// ErrInvalidBag is wrapped by every ValidationError.
var ErrInvalidBag = errors.New("invalid property bag")

// ValidationError names the field combination that broke a type invariant.
type ValidationError struct {
	Kind   Kind
	Field  Field
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s %s: %s", ErrInvalidBag, e.Kind, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidBag
}

// Validate checks the type invariants of kind against the bag.
func (b *Bag) Validate(kind Kind) error {
	fail := func(f Field, reason string) error {
		return &ValidationError{Kind: kind, Field: f, Reason: reason}
	}

	switch kind {
	case KindEvent:
		if b.Start.IsPresent() != b.End.IsPresent() {
			return fail(FieldStart|FieldEnd, "start and end must be set together")
		}
		if s, ok := b.Start.Get(); ok && !s.Before(b.End.MustGet()) {
			return fail(FieldStart|FieldEnd, "start must be before end")
		}
		if b.Due.IsPresent() {
			return fail(FieldDue, "not allowed on events")
		}
		if b.PercentComplete.IsPresent() {
			return fail(FieldPercentComplete, "not allowed on events")
		}
		if b.EstimatedDuration.IsPresent() {
			return fail(FieldEstimatedDuration, "not allowed on events")
		}
	case KindTask:
		if b.End.IsPresent() {
			return fail(FieldEnd, "not allowed on tasks")
		}
		s, hasStart := b.Start.Get()
		d, hasDue := b.Due.Get()
		if hasStart && hasDue && !s.Before(d) {
			return fail(FieldStart|FieldDue, "start must be before due")
		}
		if p, ok := b.PercentComplete.Get(); ok && (p < 0 || p > 100) {
			return fail(FieldPercentComplete, fmt.Sprintf("%d out of range 0..100", p))
		}
		if d, ok := b.EstimatedDuration.Get(); ok && d <= 0 {
			return fail(FieldEstimatedDuration, "must be positive")
		}
	default:
		return fail(0, "unknown kind")
	}

	if st, ok := b.Status.Get(); ok && !st.AllowedFor(kind) {
		return fail(FieldStatus, fmt.Sprintf("%s not allowed", st))
	}
	return nil
}
