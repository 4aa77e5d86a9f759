package upstream

import (
	"context"
	"net/http"

	"github.com/huangang/taskdesk/internal/models"
)

// FetchAssignments lists the assignments of one task.
func (c *Client) FetchAssignments(ctx context.Context, cred Credential, taskID int64) ([]models.Assignment, error) {
	out := []models.Assignment{}
	if err := c.do(ctx, cred, http.MethodGet, idPath("/task-assignments/by-task/%d", taskID), nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Assign links a project member to a task. There is no batch endpoint.
func (c *Client) Assign(ctx context.Context, cred Credential, taskID, projectMemberID int64) (models.Assignment, error) {
	var out models.Assignment
	body := map[string]int64{"taskId": taskID, "projectMemberId": projectMemberID}
	if err := c.do(ctx, cred, http.MethodPost, "/task-assignments", nil, body, &out); err != nil {
		return models.Assignment{}, err
	}
	if out.TaskID == 0 {
		out.TaskID = taskID
	}
	if out.ProjectMemberID == 0 {
		out.ProjectMemberID = projectMemberID
	}
	return out, nil
}

func (c *Client) Unassign(ctx context.Context, cred Credential, assignmentID int64) error {
	return c.do(ctx, cred, http.MethodDelete, idPath("/task-assignments/%d", assignmentID), nil, nil, nil)
}
