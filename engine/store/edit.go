package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/cyp0633/caldora/engine/component"
	"github.com/cyp0633/caldora/engine/props"
	"github.com/cyp0633/caldora/engine/recurrence"
	"github.com/samber/mo"
)

// UpdateRequest describes one edit. With Key absent it targets the whole
// component, otherwise the single occurrence originally starting at Key.
// Remove is applied before Props is unioned in.
type UpdateRequest struct {
	UID    string
	Key    mo.Option[time.Time]
	Props  *props.Bag
	Remove props.Field

	// Recurrence replaces the recurrence definition; RemoveRecurrence turns
	// the component into a single occurrence. Whole-component edits only.
	Recurrence       *recurrence.RecurrenceInfo
	RemoveRecurrence bool
}

// Update applies req. A rejected edit changes nothing.
func (s *Store) Update(req UpdateRequest) error {
	_, c, err := s.lookup(req.UID)
	if err != nil {
		return err
	}

	if key, ok := req.Key.Get(); ok {
		if req.Recurrence != nil || req.RemoveRecurrence {
			return invalid("recurrence can only be changed on the whole component", nil)
		}
		created, timing, err := c.UpdateOccurrence(key, req.Props, req.Remove)
		if err != nil {
			return editError(req.UID, key, err)
		}
		// A new override replaces the base bag a node already points to.
		if created || timing {
			s.markDirty(c.Kind())
		}
		return nil
	}

	if req.Recurrence != nil || req.RemoveRecurrence {
		if req.Recurrence != nil && req.RemoveRecurrence {
			return invalid("recurrence both set and removed", nil)
		}
		if err := c.Redefine(req.Props, req.Remove, req.Recurrence); err != nil {
			return invalid(fmt.Sprintf("update %s", req.UID), err)
		}
		s.markDirty(c.Kind())
		return nil
	}

	timing, err := c.UpdateBase(req.Props, req.Remove)
	if err != nil {
		return invalid(fmt.Sprintf("update %s", req.UID), err)
	}
	if timing {
		s.markDirty(c.Kind())
	}
	return nil
}

// Delete tombstones the whole component uid when key is absent. Otherwise it
// excludes the single occurrence originally starting at key and drops its
// override; the component stays live.
func (s *Store) Delete(uid string, key mo.Option[time.Time]) error {
	slot, c, err := s.lookup(uid)
	if err != nil {
		return err
	}

	if k, ok := key.Get(); ok {
		if err := c.ExcludeOccurrence(k); err != nil {
			return editError(uid, k, err)
		}
		s.markDirty(c.Kind())
		return nil
	}

	s.tombstones[slot] = true
	delete(s.byUID, uid)
	s.markDirty(c.Kind())
	s.logger.Debug("component tombstoned", "uid", uid, "slot", slot)
	return nil
}

func editError(uid string, key time.Time, err error) error {
	msg := fmt.Sprintf("occurrence %s of %s", key.Format(time.RFC3339), uid)
	if errors.Is(err, component.ErrUnknownOccurrence) || errors.Is(err, component.ErrNotRecurring) {
		return notFound(msg, err)
	}
	return invalid(msg, err)
}
