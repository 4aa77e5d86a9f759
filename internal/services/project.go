package services

import (
	"context"
	"strings"
	"time"

	"github.com/huangang/taskdesk/internal/models"
	"github.com/huangang/taskdesk/internal/upstream"
	"golang.org/x/sync/errgroup"
)

type ProjectService struct {
	api *upstream.Client
}

func NewProjectService(api *upstream.Client) *ProjectService {
	return &ProjectService{api: api}
}

type CreateProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	StartDate   string `json:"start_date"`
}

type UpdateProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	StartDate   string `json:"start_date"`
}

// ProjectDetail is everything the project page shows. Tasks and Members
// are empty, with a Notice, when their load failed.
type ProjectDetail struct {
	Project *models.Project        `json:"project"`
	Tasks   []models.Task          `json:"tasks"`
	Members []models.ProjectMember `json:"members"`
	Stats   models.ProjectStats    `json:"stats"`
	Notices []Notice               `json:"notices,omitempty"`
}

func (s *ProjectService) List(ctx context.Context, cred upstream.Credential) ([]models.Project, error) {
	projects, err := s.api.ListProjects(ctx, cred)
	if err != nil {
		return nil, upstreamError(err, "Failed to load projects")
	}
	return projects, nil
}

func (s *ProjectService) Get(ctx context.Context, cred upstream.Credential, id int64) (*models.Project, error) {
	project, err := s.api.GetProject(ctx, cred, id)
	if err != nil {
		return nil, upstreamError(err, "Failed to load project")
	}
	return project, nil
}

func (s *ProjectService) Create(ctx context.Context, cred upstream.Credential, req *CreateProjectRequest) (*models.Project, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, validationError("Project name is required")
	}
	startDate := strings.TrimSpace(req.StartDate)
	if startDate == "" {
		startDate = time.Now().Format("2006-01-02")
	} else if _, err := time.Parse("2006-01-02", startDate); err != nil {
		return nil, validationError("Start date must be YYYY-MM-DD")
	}

	project, err := s.api.CreateProject(ctx, cred, upstream.ProjectInput{
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		StartDate:   startDate,
	})
	if err != nil {
		return nil, upstreamError(err, "Failed to create project")
	}
	return project, nil
}

func (s *ProjectService) Update(ctx context.Context, cred upstream.Credential, id int64, req *UpdateProjectRequest) (*models.Project, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, validationError("Project name is required")
	}
	project, err := s.api.UpdateProject(ctx, cred, id, upstream.ProjectInput{
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		StartDate:   strings.TrimSpace(req.StartDate),
	})
	if err != nil {
		return nil, upstreamError(err, "Failed to update project")
	}
	return project, nil
}

func (s *ProjectService) Delete(ctx context.Context, cred upstream.Credential, id int64) error {
	if err := s.api.DeleteProject(ctx, cred, id); err != nil {
		return upstreamError(err, "Failed to delete project")
	}
	return nil
}

// Stats returns the task API's own figures for a project.
func (s *ProjectService) Stats(ctx context.Context, cred upstream.Credential, id int64) (*models.ProjectStats, error) {
	stats, err := s.api.GetProjectStats(ctx, cred, id)
	if err != nil {
		return nil, upstreamError(err, "Failed to load project stats")
	}
	return stats, nil
}

// Detail loads the project, its tasks and its members concurrently. Only a
// failure to load the project itself fails the call.
func (s *ProjectService) Detail(ctx context.Context, cred upstream.Credential, id int64) (*ProjectDetail, error) {
	var (
		project    *models.Project
		tasks      []models.Task
		members    []models.ProjectMember
		projectErr error
		tasksErr   error
		membersErr error
	)

	var g errgroup.Group
	g.Go(func() error {
		project, projectErr = s.api.GetProject(ctx, cred, id)
		return nil
	})
	g.Go(func() error {
		tasks, tasksErr = s.api.ListProjectTasks(ctx, cred, id)
		return nil
	})
	g.Go(func() error {
		members, membersErr = s.api.FetchProjectMembers(ctx, cred, id)
		return nil
	})
	_ = g.Wait()

	if projectErr != nil {
		return nil, upstreamError(projectErr, "Failed to load project")
	}

	detail := &ProjectDetail{
		Project: project,
		Tasks:   []models.Task{},
		Members: []models.ProjectMember{},
	}
	if tasksErr != nil {
		detail.Notices = append(detail.Notices, loadNotice("tasks", "Could not load tasks", tasksErr))
	} else {
		detail.Tasks = tasks
	}
	if membersErr != nil {
		detail.Notices = append(detail.Notices, loadNotice("members", "Could not load project members", membersErr))
	} else {
		detail.Members = validMembers(members)
	}
	detail.Stats = models.ComputeStats(detail.Tasks)
	return detail, nil
}

// validMembers drops entries without an id, which the API emits for
// memberships whose user was deleted.
func validMembers(members []models.ProjectMember) []models.ProjectMember {
	out := make([]models.ProjectMember, 0, len(members))
	for _, m := range members {
		if m.ID != 0 {
			out = append(out, m)
		}
	}
	return out
}
