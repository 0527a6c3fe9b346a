package trigger

import (
	"fmt"

	"github.com/nathoo/questlogic/engine/registry"
	"github.com/nathoo/questlogic/engine/stream"
	"github.com/nathoo/questlogic/types"
)

// SaveData writes the element count, then per element its id, status,
// payload reference and outgoing link statuses. A guarded link is followed
// by its guard's runtime state.
func (c *Chain) SaveData(w *stream.Writer) {
	w.Int32(int32(len(c.Elements)))
	for _, e := range c.Elements {
		w.Int32(e.ID)
		w.Int32(int32(e.status))
		e.Payload.Ref.SaveData(w)
		w.Int32(int32(len(e.children)))
		for _, l := range e.children {
			w.Int32(l.To.ID)
			w.Int32(int32(l.status))
			if l.Guard != nil {
				l.Guard.SaveData(w)
			}
		}
	}
}

// LoadData reads what SaveData wrote. Payload references are present from
// VersionElementPayloads on, guard state from VersionGuardState on; older
// blobs leave guards reset. Incoming link statuses follow from the
// outgoing ones, since both sides share the same link.
func (c *Chain) LoadData(r *stream.Reader, version int) error {
	if err := stream.CheckVersion(version); err != nil {
		return err
	}
	n := r.Int32()
	if err := r.Err(); err != nil {
		return err
	}
	if int(n) != len(c.Elements) {
		return fmt.Errorf("chain %q: saved %d elements, script has %d", c.Name, n, len(c.Elements))
	}

	type linkState struct {
		link   *Link
		status types.LinkStatus
	}
	statuses := make([]types.ElementStatus, len(c.Elements))
	refs := make([]registry.Reference, len(c.Elements))
	var links []linkState

	for i, e := range c.Elements {
		id := r.Int32()
		st := types.ElementStatus(r.Int32())
		if err := r.Err(); err != nil {
			return err
		}
		if id != e.ID {
			return fmt.Errorf("chain %q: element %d saved with id %d", c.Name, e.ID, id)
		}
		if st < types.ElementInactive || st > types.ElementDone {
			return fmt.Errorf("chain %q: element %d: invalid status %d", c.Name, id, st)
		}
		statuses[i] = st
		refs[i] = e.Payload.Ref
		if version >= types.VersionElementPayloads {
			ref, err := registry.LoadReference(r)
			if err != nil {
				return fmt.Errorf("chain %q: element %d: %w", c.Name, id, err)
			}
			refs[i] = ref
		}

		nl := r.Int32()
		if err := r.Err(); err != nil {
			return err
		}
		if int(nl) != len(e.children) {
			return fmt.Errorf("chain %q: element %d: saved %d links, script has %d", c.Name, id, nl, len(e.children))
		}
		for _, l := range e.children {
			to := r.Int32()
			ls := types.LinkStatus(r.Int32())
			if err := r.Err(); err != nil {
				return err
			}
			if to != l.To.ID {
				return fmt.Errorf("chain %q: link %d->%d saved as %d->%d", c.Name, id, l.To.ID, id, to)
			}
			if ls < types.LinkInactive || ls > types.LinkDone {
				return fmt.Errorf("chain %q: link %d->%d: invalid status %d", c.Name, id, to, ls)
			}
			if l.Guard != nil && version >= types.VersionGuardState {
				if err := l.Guard.LoadData(r); err != nil {
					return fmt.Errorf("chain %q: link %d->%d guard: %w", c.Name, id, to, err)
				}
			}
			links = append(links, linkState{l, ls})
		}
	}

	for i, e := range c.Elements {
		e.status = statuses[i]
		if !e.Payload.Ref.Equal(refs[i]) {
			e.Payload.Set(refs[i])
		}
	}
	for _, ls := range links {
		ls.link.status = ls.status
	}
	return nil
}
