package upstream

import (
	"context"
	"net/http"

	"github.com/huangang/taskdesk/internal/models"
)

type AddMemberRequest struct {
	ProjectID int64       `json:"projectId"`
	UserID    int64       `json:"userId"`
	Role      models.Role `json:"role"`
}

func (c *Client) ListMembers(ctx context.Context, cred Credential) ([]models.ProjectMember, error) {
	out := []models.ProjectMember{}
	if err := c.do(ctx, cred, http.MethodGet, "/project-members", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) AddMember(ctx context.Context, cred Credential, req AddMemberRequest) (*models.ProjectMember, error) {
	var out models.ProjectMember
	if err := c.do(ctx, cred, http.MethodPost, "/project-members", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateMemberRole(ctx context.Context, cred Credential, memberID int64, role models.Role) (*models.ProjectMember, error) {
	var out models.ProjectMember
	body := map[string]models.Role{"role": role}
	if err := c.do(ctx, cred, http.MethodPut, idPath("/project-members/%d/role", memberID), nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RemoveMember(ctx context.Context, cred Credential, memberID int64) error {
	return c.do(ctx, cred, http.MethodDelete, idPath("/project-members/%d", memberID), nil, nil, nil)
}
