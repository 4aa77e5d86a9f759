package services

import (
	"context"
	"strings"
	"time"

	"github.com/huangang/taskdesk/internal/models"
	"github.com/huangang/taskdesk/internal/upstream"
)

type TaskService struct {
	api    *upstream.Client
	events *EventHub
}

func NewTaskService(api *upstream.Client, events *EventHub) *TaskService {
	return &TaskService{api: api, events: events}
}

type CreateTaskRequest struct {
	ProjectID   int64               `json:"project_id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Priority    models.TaskPriority `json:"priority"`
	DueDate     string              `json:"due_date"`
}

func validDate(s string) bool {
	if s == "" {
		return true
	}
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

func (s *TaskService) Create(ctx context.Context, cred upstream.Credential, req *CreateTaskRequest) (*models.Task, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, validationError("Task name is required")
	}
	if cred.UserID == 0 {
		return nil, validationError("User not authenticated")
	}
	if req.ProjectID == 0 {
		return nil, validationError("Project is required")
	}
	priority := req.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !priority.Valid() {
		return nil, validationError("Priority must be LOW, MEDIUM or HIGH")
	}
	dueDate := strings.TrimSpace(req.DueDate)
	if !validDate(dueDate) {
		return nil, validationError("Due date must be YYYY-MM-DD")
	}

	task, err := s.api.CreateTask(ctx, cred, upstream.TaskInput{
		Name:        name,
		Description: req.Description,
		DueDate:     dueDate,
		Priority:    priority,
		Status:      models.StatusTodo,
		CreatedBy:   cred.UserID,
		ProjectID:   req.ProjectID,
	})
	if err != nil {
		return nil, upstreamError(err, "Failed to create task")
	}

	s.events.Publish(TaskEvent{Type: EventTaskCreated, TaskID: task.ID, ProjectID: req.ProjectID, Actor: cred.Username})
	return task, nil
}

func (s *TaskService) Get(ctx context.Context, cred upstream.Credential, id int64) (*models.Task, error) {
	task, err := s.api.GetTask(ctx, cred, id)
	if err != nil {
		return nil, upstreamError(err, "Failed to load task")
	}
	return task, nil
}

func (s *TaskService) ListByProject(ctx context.Context, cred upstream.Credential, projectID int64) ([]models.Task, error) {
	tasks, err := s.api.ListProjectTasks(ctx, cred, projectID)
	if err != nil {
		return nil, upstreamError(err, "Failed to load tasks")
	}
	return tasks, nil
}

func (s *TaskService) ListByStatus(ctx context.Context, cred upstream.Credential, projectID int64, status models.TaskStatus) ([]models.Task, error) {
	if projectID == 0 {
		return nil, validationError("Project is required")
	}
	if !status.Valid() {
		return nil, validationError("Status must be TODO, IN_PROGRESS or DONE")
	}
	tasks, err := s.api.ListTasksByStatus(ctx, cred, projectID, status)
	if err != nil {
		return nil, upstreamError(err, "Failed to load tasks")
	}
	return tasks, nil
}

func (s *TaskService) UpdateStatus(ctx context.Context, cred upstream.Credential, id int64, status models.TaskStatus) (*models.Task, error) {
	if !status.Valid() {
		return nil, validationError("Status must be TODO, IN_PROGRESS or DONE")
	}
	task, err := s.api.UpdateTaskStatus(ctx, cred, id, status)
	if err != nil {
		return nil, upstreamError(err, "Failed to update status")
	}
	s.events.Publish(TaskEvent{Type: EventTaskStatusChanged, TaskID: id, ProjectID: task.ProjectID, Actor: cred.Username})
	return task, nil
}

func (s *TaskService) Delete(ctx context.Context, cred upstream.Credential, id int64) error {
	if err := s.api.DeleteTask(ctx, cred, id); err != nil {
		return upstreamError(err, "Failed to delete task")
	}
	s.events.Publish(TaskEvent{Type: EventTaskDeleted, TaskID: id, Actor: cred.Username})
	return nil
}

func (s *TaskService) History(ctx context.Context, cred upstream.Credential, taskID int64) ([]models.TaskHistory, error) {
	history, err := s.api.TaskHistory(ctx, cred, taskID)
	if err != nil {
		return nil, upstreamError(err, "Failed to load task history")
	}
	return history, nil
}
