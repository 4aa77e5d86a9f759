package upstream

import (
	"context"
	"net/http"

	"github.com/huangang/taskdesk/internal/models"
)

// ProjectInput is the body of create and update calls.
type ProjectInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	StartDate   string `json:"startDate,omitempty"`
}

func (c *Client) ListProjects(ctx context.Context, cred Credential) ([]models.Project, error) {
	out := []models.Project{}
	if err := c.do(ctx, cred, http.MethodGet, "/projects", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetProject(ctx context.Context, cred Credential, id int64) (*models.Project, error) {
	var out models.Project
	if err := c.do(ctx, cred, http.MethodGet, idPath("/projects/%d", id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateProject(ctx context.Context, cred Credential, in ProjectInput) (*models.Project, error) {
	var out models.Project
	if err := c.do(ctx, cred, http.MethodPost, "/projects", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateProject(ctx context.Context, cred Credential, id int64, in ProjectInput) (*models.Project, error) {
	var out models.Project
	if err := c.do(ctx, cred, http.MethodPut, idPath("/projects/%d", id), nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteProject(ctx context.Context, cred Credential, id int64) error {
	return c.do(ctx, cred, http.MethodDelete, idPath("/projects/%d", id), nil, nil, nil)
}

func (c *Client) GetProjectStats(ctx context.Context, cred Credential, id int64) (*models.ProjectStats, error) {
	var out models.ProjectStats
	if err := c.do(ctx, cred, http.MethodGet, idPath("/projects/%d/stats", id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchProjectMembers lists the memberships of one project.
func (c *Client) FetchProjectMembers(ctx context.Context, cred Credential, projectID int64) ([]models.ProjectMember, error) {
	out := []models.ProjectMember{}
	if err := c.do(ctx, cred, http.MethodGet, idPath("/projects/%d/members", projectID), nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListProjectTasks(ctx context.Context, cred Credential, projectID int64) ([]models.Task, error) {
	out := []models.Task{}
	if err := c.do(ctx, cred, http.MethodGet, idPath("/projects/%d/tasks", projectID), nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
