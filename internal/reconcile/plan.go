// Package reconcile turns "the members that should be assigned to a task"
// into the minimal set of assign and unassign calls against the task API.
package reconcile

import (
	"sort"

	"github.com/huangang/taskdesk/internal/models"
)

// Plan is the minimal edit from the current assignments to the selection.
// It is derived, never stored, and recomputed on every save attempt.
type Plan struct {
	ToAdd    []int64             `json:"to_add"`
	ToRemove []models.Assignment `json:"to_remove"`
}

// IsEmpty reports whether applying the plan would issue no calls.
func (p Plan) IsEmpty() bool {
	return len(p.ToAdd) == 0 && len(p.ToRemove) == 0
}

// ComputePlan diffs the current assignments of one task against the target
// set of project member ids. Both inputs are treated as sets: duplicates and
// ordering have no effect on the result. ToAdd is sorted ascending and
// ToRemove by assignment id so equal inputs yield equal plans.
func ComputePlan(current []models.Assignment, target []int64) Plan {
	assigned := make(map[int64]struct{}, len(current))
	for _, a := range current {
		assigned[a.ProjectMemberID] = struct{}{}
	}

	wanted := make(map[int64]struct{}, len(target))
	for _, id := range target {
		wanted[id] = struct{}{}
	}

	plan := Plan{ToAdd: []int64{}, ToRemove: []models.Assignment{}}
	for id := range wanted {
		if _, ok := assigned[id]; !ok {
			plan.ToAdd = append(plan.ToAdd, id)
		}
	}

	seen := make(map[int64]struct{}, len(current))
	for _, a := range current {
		if _, keep := wanted[a.ProjectMemberID]; keep {
			continue
		}
		if _, dup := seen[a.ID]; dup {
			continue
		}
		seen[a.ID] = struct{}{}
		plan.ToRemove = append(plan.ToRemove, a)
	}

	sort.Slice(plan.ToAdd, func(i, j int) bool { return plan.ToAdd[i] < plan.ToAdd[j] })
	sort.Slice(plan.ToRemove, func(i, j int) bool { return plan.ToRemove[i].ID < plan.ToRemove[j].ID })
	return plan
}

// MemberIDs returns the distinct project member ids referenced by assignments,
// in first-seen order.
func MemberIDs(assignments []models.Assignment) []int64 {
	ids := make([]int64, 0, len(assignments))
	seen := make(map[int64]struct{}, len(assignments))
	for _, a := range assignments {
		if _, ok := seen[a.ProjectMemberID]; ok {
			continue
		}
		seen[a.ProjectMemberID] = struct{}{}
		ids = append(ids, a.ProjectMemberID)
	}
	return ids
}

// RestrictRemovals drops from plan every removal whose assignment id is not
// in seen and returns those assignments separately. A client can only mean
// to remove an assignment it was shown; the others are left in place.
func RestrictRemovals(plan Plan, seen []int64) (Plan, []models.Assignment) {
	known := make(map[int64]struct{}, len(seen))
	for _, id := range seen {
		known[id] = struct{}{}
	}

	out := Plan{ToAdd: plan.ToAdd, ToRemove: []models.Assignment{}}
	kept := []models.Assignment{}
	for _, a := range plan.ToRemove {
		if _, ok := known[a.ID]; ok {
			out.ToRemove = append(out.ToRemove, a)
		} else {
			kept = append(kept, a)
		}
	}
	return out, kept
}
