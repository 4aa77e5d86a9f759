package services

import (
	"context"

	"github.com/huangang/taskdesk/internal/models"
	"github.com/huangang/taskdesk/internal/upstream"
	"golang.org/x/sync/errgroup"
)

type MemberService struct {
	api *upstream.Client
}

func NewMemberService(api *upstream.Client) *MemberService {
	return &MemberService{api: api}
}

type AddMemberRequest struct {
	ProjectID int64       `json:"project_id"`
	UserID    int64       `json:"user_id"`
	Role      models.Role `json:"role"`
}

// CandidateList is the set of users that can still be added to a project.
type CandidateList struct {
	Users   []models.User `json:"users"`
	Notices []Notice      `json:"notices,omitempty"`
}

func (s *MemberService) List(ctx context.Context, cred upstream.Credential, projectID int64) ([]models.ProjectMember, error) {
	members, err := s.api.FetchProjectMembers(ctx, cred, projectID)
	if err != nil {
		return nil, upstreamError(err, "Failed to load project members")
	}
	return validMembers(members), nil
}

func (s *MemberService) Add(ctx context.Context, cred upstream.Credential, req *AddMemberRequest) (*models.ProjectMember, error) {
	if req.UserID == 0 {
		return nil, validationError("Please select a user")
	}
	if req.ProjectID == 0 {
		return nil, validationError("Project is required")
	}
	role := req.Role
	if role == "" {
		role = models.RoleMember
	}
	if !role.Valid() {
		return nil, validationError("Role must be ADMIN, MEMBER or OBSERVER")
	}

	member, err := s.api.AddMember(ctx, cred, upstream.AddMemberRequest{
		ProjectID: req.ProjectID,
		UserID:    req.UserID,
		Role:      role,
	})
	if err != nil {
		return nil, upstreamError(err, "Failed to add member")
	}
	return member, nil
}

func (s *MemberService) UpdateRole(ctx context.Context, cred upstream.Credential, memberID int64, role models.Role) (*models.ProjectMember, error) {
	if !role.Valid() {
		return nil, validationError("Role must be ADMIN, MEMBER or OBSERVER")
	}
	member, err := s.api.UpdateMemberRole(ctx, cred, memberID, role)
	if err != nil {
		return nil, upstreamError(err, "Failed to update role")
	}
	return member, nil
}

func (s *MemberService) Remove(ctx context.Context, cred upstream.Credential, memberID int64) error {
	if err := s.api.RemoveMember(ctx, cred, memberID); err != nil {
		return upstreamError(err, "Failed to remove member")
	}
	return nil
}

// Candidates lists users that are not yet members of the project. If the
// member list cannot be loaded every user is offered, with a notice.
func (s *MemberService) Candidates(ctx context.Context, cred upstream.Credential, projectID int64) (*CandidateList, error) {
	var (
		users      []models.User
		members    []models.ProjectMember
		usersErr   error
		membersErr error
	)

	var g errgroup.Group
	g.Go(func() error {
		users, usersErr = s.api.ListUsers(ctx, cred)
		return nil
	})
	g.Go(func() error {
		members, membersErr = s.api.FetchProjectMembers(ctx, cred, projectID)
		return nil
	})
	_ = g.Wait()

	if usersErr != nil {
		return nil, upstreamError(usersErr, "Failed to load users")
	}

	list := &CandidateList{Users: make([]models.User, 0, len(users))}
	if membersErr != nil {
		list.Users = append(list.Users, users...)
		list.Notices = append(list.Notices, loadNotice("members", "Could not load project members", membersErr))
		return list, nil
	}

	joined := make(map[int64]struct{}, len(members))
	for _, m := range members {
		joined[m.User.ID] = struct{}{}
	}
	for _, u := range users {
		if _, ok := joined[u.ID]; !ok {
			list.Users = append(list.Users, u)
		}
	}
	return list, nil
}
