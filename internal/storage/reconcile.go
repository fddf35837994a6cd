package storage

import (
	"fmt"

	"fondi/internal/core"
)

// lineWrite is one line the replace-all upsert will persist, with its
// identity resolved and its creation timestamp settled.
type lineWrite struct {
	Line core.FundEventLine
	// Existing reports whether the resolved id was already present on the
	// event, in which case CreatedAt carries the original creation time.
	Existing bool
}

// reconcilePlan is the diff between an event's stored lines and the desired
// payload: everything in Writes is persisted in order, everything in
// DeleteIDs disappears.
type reconcilePlan struct {
	Writes    []lineWrite
	DeleteIDs []string
}

// reconcileLines resolves line identity for a replace-all upsert. For each
// desired line, identity is the requested id if given, else the id of the
// existing line occupying the same position, else a fresh id from newID.
// LineNo is always reassigned from payload order. Existing lines not claimed
// by the desired set are scheduled for deletion.
func reconcileLines(existing, desired []core.FundEventLine, newID func() string) (reconcilePlan, error) {
	byID := make(map[string]core.FundEventLine, len(existing))
	byPos := make(map[int]core.FundEventLine, len(existing))
	for _, l := range existing {
		byID[l.ID] = l
		byPos[l.LineNo] = l
	}

	claimed := make(map[string]bool, len(desired))
	plan := reconcilePlan{Writes: make([]lineWrite, 0, len(desired))}
	for i, d := range desired {
		id := d.ID
		if id != "" {
			if claimed[id] {
				return reconcilePlan{}, fmt.Errorf("line id %s requested twice", id)
			}
		} else {
			if ex, ok := byPos[i]; ok && !claimed[ex.ID] {
				id = ex.ID
			} else {
				id = newID()
			}
		}
		claimed[id] = true

		d.ID = id
		d.LineNo = i
		w := lineWrite{Line: d}
		if ex, ok := byID[id]; ok {
			w.Existing = true
			w.Line.CreatedAt = ex.CreatedAt
		}
		plan.Writes = append(plan.Writes, w)
	}

	for _, l := range existing {
		if !claimed[l.ID] {
			plan.DeleteIDs = append(plan.DeleteIDs, l.ID)
		}
	}
	return plan, nil
}
