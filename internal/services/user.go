package services

import (
	"context"

	"github.com/huangang/taskdesk/internal/models"
	"github.com/huangang/taskdesk/internal/upstream"
)

type UserService struct {
	api *upstream.Client
}

func NewUserService(api *upstream.Client) *UserService {
	return &UserService{api: api}
}

func (s *UserService) List(ctx context.Context, cred upstream.Credential) ([]models.User, error) {
	users, err := s.api.ListUsers(ctx, cred)
	if err != nil {
		return nil, upstreamError(err, "Failed to load users")
	}
	return users, nil
}
