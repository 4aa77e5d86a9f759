package reconcile

import (
	"testing"

	"github.com/huangang/taskdesk/internal/models"
)

func members(ids ...int64) []models.ProjectMember {
	out := make([]models.ProjectMember, 0, len(ids))
	for _, id := range ids {
		out = append(out, models.ProjectMember{
			ID:   id,
			Role: models.RoleMember,
			User: models.MemberUser{ID: id * 100, Username: "user"},
		})
	}
	return out
}

func memberIDs(list []models.ProjectMember) []int64 {
	ids := make([]int64, 0, len(list))
	for _, m := range list {
		ids = append(ids, m.ID)
	}
	return ids
}

func TestDeriveAssignedView(t *testing.T) {
	tests := []struct {
		name        string
		members     []models.ProjectMember
		assignments []models.Assignment
		want        []int64
	}{
		{"no members", nil, assignments([2]int64{1, 10}), []int64{}},
		{"no assignments", members(10, 20), nil, []int64{}},
		{"both empty", nil, nil, []int64{}},
		{"keeps member order", members(30, 10, 20), assignments([2]int64{1, 20}, [2]int64{2, 30}), []int64{30, 20}},
		{"drops unknown members", members(10), assignments([2]int64{1, 10}, [2]int64{2, 99}), []int64{10}},
		{"duplicate assignment shows member once", members(10), assignments([2]int64{1, 10}, [2]int64{2, 10}), []int64{10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveAssignedView(tt.members, tt.assignments)
			if got == nil {
				t.Fatal("DeriveAssignedView returned nil, expected a non-nil slice")
			}
			ids := memberIDs(got)
			if len(ids) != len(tt.want) {
				t.Fatalf("view = %v, expected %v", ids, tt.want)
			}
			for i := range ids {
				if ids[i] != tt.want[i] {
					t.Errorf("view[%d] = %d, expected %d", i, ids[i], tt.want[i])
				}
			}
		})
	}
}

func TestBuildAssignedViewFlagsOrphans(t *testing.T) {
	view := BuildAssignedView(members(10, 20), assignments([2]int64{1, 10}, [2]int64{2, 77}, [2]int64{3, 88}))

	if len(view.Members) != 1 || view.Members[0].ID != 10 {
		t.Errorf("Members = %v, expected only member 10", memberIDs(view.Members))
	}
	if len(view.Orphaned) != 2 {
		t.Fatalf("Orphaned = %v, expected 2 entries", view.Orphaned)
	}
	if view.Orphaned[0].ProjectMemberID != 77 || view.Orphaned[1].ProjectMemberID != 88 {
		t.Errorf("Orphaned = %v, expected members 77 and 88", view.Orphaned)
	}
}
