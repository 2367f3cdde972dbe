// Package allocation implements the preference-based seat matcher.
//
// The matcher is pure: it takes an ordered member pool, each member's ranked
// project choices, and each project's remaining seats, and returns a proposed
// seat assignment. Nothing in this package performs I/O. Inputs are validated
// when they are built (NewCapacitySnapshot, NewPreferenceIndex, ValidatePool),
// so Match itself has no failure mode.
package allocation

import (
	"github.com/dalemusser/seatplan/internal/domain/errs"
)

// ProjectSeats is one project's remaining seat count at matching time.
type ProjectSeats struct {
	ProjectID string
	Remaining int
}

// CapacitySnapshot is a read-only view of remaining seats per project, kept
// in project-listing order. The order is the fallback order used by Match.
type CapacitySnapshot struct {
	order     []string
	remaining map[string]int
}

// NewCapacitySnapshot builds a snapshot from projects in listing order.
//
// Returns *errs.InvalidInputError for an empty project ID, a duplicate
// project ID, or a negative seat count.
func NewCapacitySnapshot(projects []ProjectSeats) (CapacitySnapshot, error) {
	snap := CapacitySnapshot{
		order:     make([]string, 0, len(projects)),
		remaining: make(map[string]int, len(projects)),
	}
	for i, p := range projects {
		if p.ProjectID == "" {
			return CapacitySnapshot{}, errs.InvalidInput("project at position %d has an empty id", i)
		}
		if _, dup := snap.remaining[p.ProjectID]; dup {
			return CapacitySnapshot{}, errs.InvalidInput("project %s listed more than once", p.ProjectID)
		}
		if p.Remaining < 0 {
			return CapacitySnapshot{}, errs.InvalidInput("project %s has negative capacity %d", p.ProjectID, p.Remaining)
		}
		snap.order = append(snap.order, p.ProjectID)
		snap.remaining[p.ProjectID] = p.Remaining
	}
	return snap, nil
}

// Projects returns project IDs in listing order.
func (c CapacitySnapshot) Projects() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Remaining returns the seat count for a project and whether it is known.
func (c CapacitySnapshot) Remaining(projectID string) (int, bool) {
	n, ok := c.remaining[projectID]
	return n, ok
}

// Len returns the number of projects in the snapshot.
func (c CapacitySnapshot) Len() int { return len(c.order) }

// TotalSeats returns the sum of remaining seats across all projects.
func (c CapacitySnapshot) TotalSeats() int {
	total := 0
	for _, n := range c.remaining {
		total += n
	}
	return total
}

// seats copies the remaining counts into a fresh working map owned by one
// Match call.
func (c CapacitySnapshot) seats() map[string]int {
	m := make(map[string]int, len(c.remaining))
	for id, n := range c.remaining {
		m[id] = n
	}
	return m
}
