package upstream

import (
	"context"
	"net/http"

	"github.com/huangang/taskdesk/internal/models"
)

func (c *Client) ListUsers(ctx context.Context, cred Credential) ([]models.User, error) {
	out := []models.User{}
	if err := c.do(ctx, cred, http.MethodGet, "/users", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
