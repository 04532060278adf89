/*
Package store keeps calendar components and an interval index of their
materialized occurrences, one index per record kind.

# Basic Usage

Load parsed records, expand a kind up to a horizon and query a window:

	s := store.New(store.Options{Logger: slog.Default()})
	res := s.Load(records)
	for _, err := range res.Rejected {
		log.Println(err)
	}
	s.Expand(props.KindEvent, horizon)
	for _, r := range s.Query(props.KindEvent, interval.New(from, to)) {
		fmt.Println(r.UID, r.Range)
	}

Window combines both steps. QueryWithLayout also returns the display column
of each result.

# Invalidation

Components live in slots that are never moved. Index nodes refer to a slot
by position, and Query skips slots that have been tombstoned. Edits that
change timing or recurrence structure, and whole-record deletes, mark the
kind dirty. The next Expand of a dirty kind drops every node of that kind,
rewinds every live component and re-expands it to the largest horizon
requested so far. Edits that touch only non-timing fields are committed in
place and are visible to the next Query without a rebuild.

Expansion without invalidation is incremental: expanding to the same
horizon twice adds nothing, and a larger horizon continues from each
generator's cursor.

# Editing

	uid, err := s.Create(store.Record{Kind: props.KindTask, Props: bag})
	err = s.Update(store.UpdateRequest{UID: uid, Props: partial})
	err = s.Delete(uid, mo.None[time.Time]())

Errors are *Error values with a Type of ErrNotFound, ErrAlreadyExists or
ErrInvalidInput. Deleting a single occurrence excludes it from the
recurrence. It never tombstones the component, even when no occurrence is
left.
*/
package store
