package reconcile

import "github.com/huangang/taskdesk/internal/models"

// AssignedView is the list of members shown as assigned to a task.
type AssignedView struct {
	Members []models.ProjectMember `json:"members"`
	// Orphaned counts assignments whose member is not among the project's
	// members. They are left out of Members.
	Orphaned []models.Assignment `json:"orphaned,omitempty"`
}

// DeriveAssignedView returns the members of allMembers that appear as a
// projectMemberId in assignments, in allMembers order. Either input being
// empty yields an empty, non-nil list.
func DeriveAssignedView(allMembers []models.ProjectMember, assignments []models.Assignment) []models.ProjectMember {
	return BuildAssignedView(allMembers, assignments).Members
}

// BuildAssignedView is DeriveAssignedView plus the assignments that referenced
// unknown members, so callers can flag the inconsistency.
func BuildAssignedView(allMembers []models.ProjectMember, assignments []models.Assignment) AssignedView {
	view := AssignedView{Members: []models.ProjectMember{}}
	if len(allMembers) == 0 && len(assignments) == 0 {
		return view
	}

	known := make(map[int64]struct{}, len(allMembers))
	for _, m := range allMembers {
		known[m.ID] = struct{}{}
	}

	assigned := make(map[int64]struct{}, len(assignments))
	for _, a := range assignments {
		assigned[a.ProjectMemberID] = struct{}{}
		if _, ok := known[a.ProjectMemberID]; !ok {
			view.Orphaned = append(view.Orphaned, a)
		}
	}

	for _, m := range allMembers {
		if _, ok := assigned[m.ID]; ok {
			view.Members = append(view.Members, m)
		}
	}
	return view
}
