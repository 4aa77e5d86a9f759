package upstream

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/huangang/taskdesk/internal/models"
)

// TaskInput is the body of create and update calls. The API merges only
// the non-empty fields on update.
type TaskInput struct {
	Name        string              `json:"name,omitempty"`
	Description string              `json:"description,omitempty"`
	DueDate     string              `json:"dueDate,omitempty"`
	EndDate     string              `json:"endDate,omitempty"`
	Priority    models.TaskPriority `json:"priority,omitempty"`
	Status      models.TaskStatus   `json:"status,omitempty"`
	CreatedBy   int64               `json:"createdBy,omitempty"`
	ProjectID   int64               `json:"projectId,omitempty"`
}

func (c *Client) ListTasks(ctx context.Context, cred Credential) ([]models.Task, error) {
	out := []models.Task{}
	if err := c.do(ctx, cred, http.MethodGet, "/tasks", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetTask(ctx context.Context, cred Credential, id int64) (*models.Task, error) {
	var out models.Task
	if err := c.do(ctx, cred, http.MethodGet, idPath("/tasks/%d", id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListTasksByStatus(ctx context.Context, cred Credential, projectID int64, status models.TaskStatus) ([]models.Task, error) {
	q := url.Values{}
	q.Set("projectId", strconv.FormatInt(projectID, 10))
	q.Set("status", string(status))

	out := []models.Task{}
	if err := c.do(ctx, cred, http.MethodGet, "/tasks/by-status", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateTask(ctx context.Context, cred Credential, in TaskInput) (*models.Task, error) {
	var out models.Task
	if err := c.do(ctx, cred, http.MethodPost, "/tasks", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateTask(ctx context.Context, cred Credential, id int64, in TaskInput) (*models.Task, error) {
	var out models.Task
	if err := c.do(ctx, cred, http.MethodPut, idPath("/tasks/%d", id), nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateTaskStatus(ctx context.Context, cred Credential, id int64, status models.TaskStatus) (*models.Task, error) {
	var out models.Task
	body := map[string]models.TaskStatus{"status": status}
	if err := c.do(ctx, cred, http.MethodPatch, idPath("/tasks/%d/status", id), nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteTask(ctx context.Context, cred Credential, id int64) error {
	return c.do(ctx, cred, http.MethodDelete, idPath("/tasks/%d", id), nil, nil, nil)
}

func (c *Client) TaskHistory(ctx context.Context, cred Credential, taskID int64) ([]models.TaskHistory, error) {
	out := []models.TaskHistory{}
	if err := c.do(ctx, cred, http.MethodGet, idPath("/tasks/%d/history", taskID), nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
