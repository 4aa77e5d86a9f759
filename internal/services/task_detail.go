package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/huangang/taskdesk/internal/models"
	"github.com/huangang/taskdesk/internal/reconcile"
	"github.com/huangang/taskdesk/internal/upstream"
	"github.com/huangang/taskdesk/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// TaskDetailService backs the task detail and assign dialogs: it loads a
// task with its assignees and saves edits plus the member selection.
type TaskDetailService struct {
	api           *upstream.Client
	events        *EventHub
	queue         TaskQueue
	saves         *SaveRegistry
	maxConcurrent int
}

func NewTaskDetailService(api *upstream.Client, events *EventHub, queue TaskQueue, saves *SaveRegistry, maxConcurrent int) *TaskDetailService {
	if saves == nil {
		saves = NewSaveRegistry()
	}
	return &TaskDetailService{
		api:           api,
		events:        events,
		queue:         queue,
		saves:         saves,
		maxConcurrent: maxConcurrent,
	}
}

// Saves exposes the registry so the cancel endpoint can reach it.
func (s *TaskDetailService) Saves() *SaveRegistry { return s.saves }

type TaskDetail struct {
	Task              *models.Task           `json:"task"`
	Members           []models.ProjectMember `json:"members"`
	Assignments       []models.Assignment    `json:"assignments"`
	Assigned          []models.ProjectMember `json:"assigned"`
	AssignedUsernames string                 `json:"assigned_usernames"`
	SelectedMemberIDs []int64                `json:"selected_member_ids"`
	// KnownAssignmentIDs must be sent back with a save that changes
	// assignees. It is empty when assignments could not be loaded.
	KnownAssignmentIDs []int64  `json:"known_assignment_ids"`
	AssignmentsLoaded  bool     `json:"assignments_loaded"`
	Orphaned           int      `json:"orphaned_assignments"`
	Notices            []Notice `json:"notices,omitempty"`
}

type SaveRequest struct {
	SaveID      string              `json:"save_id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Status      models.TaskStatus   `json:"status"`
	Priority    models.TaskPriority `json:"priority"`
	DueDate     string              `json:"due_date"`
	EndDate     string              `json:"end_date"`

	// MemberIDs is the wanted set of assignees. Absent means the save
	// leaves assignments alone; an empty list unassigns everyone shown.
	MemberIDs *[]int64 `json:"member_ids"`
	// KnownAssignmentIDs echoes TaskDetail.KnownAssignmentIDs. Only these
	// assignments may be removed by the save.
	KnownAssignmentIDs *[]int64 `json:"known_assignment_ids"`
}

type SaveResult struct {
	SaveID  string              `json:"save_id"`
	Task    *models.Task        `json:"task"`
	Plan    reconcile.Plan      `json:"plan"`
	Added   []models.Assignment `json:"added"`
	Removed []models.Assignment `json:"removed"`

	// Untouched holds assignments kept because the client had not seen them.
	Untouched []models.Assignment `json:"untouched,omitempty"`
}

// PartialSaveDetails is attached to a partial_reconciliation_failure.
type PartialSaveDetails struct {
	SaveID  string               `json:"save_id"`
	Task    *models.Task         `json:"task"`
	Plan    reconcile.Plan       `json:"plan"`
	Results []reconcile.OpResult `json:"results"`
}

// Load fetches the task, then its project's members and its assignments
// side by side. Either collection may fail on its own; it is then shown as
// empty with a notice.
func (s *TaskDetailService) Load(ctx context.Context, cred upstream.Credential, taskID int64) (*TaskDetail, error) {
	task, err := s.api.GetTask(ctx, cred, taskID)
	if err != nil {
		return nil, upstreamError(err, "Failed to load task")
	}

	var (
		members        []models.ProjectMember
		assignments    []models.Assignment
		membersErr     error
		assignmentsErr error
	)

	var g errgroup.Group
	g.Go(func() error {
		members, membersErr = s.api.FetchProjectMembers(ctx, cred, task.ProjectID)
		return nil
	})
	g.Go(func() error {
		assignments, assignmentsErr = s.api.FetchAssignments(ctx, cred, taskID)
		return nil
	})
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, &Error{Kind: KindCanceled, Message: "Request canceled", Cause: err}
	}

	detail := &TaskDetail{
		Task:               task,
		Members:            []models.ProjectMember{},
		Assignments:        []models.Assignment{},
		KnownAssignmentIDs: []int64{},
	}
	if membersErr != nil {
		detail.Notices = append(detail.Notices, loadNotice("members", "Could not load project members", membersErr))
	} else {
		detail.Members = validMembers(members)
	}
	if assignmentsErr != nil {
		detail.Notices = append(detail.Notices, loadNotice("assignments", "Could not load assignments", assignmentsErr))
	} else {
		detail.Assignments = assignments
		detail.AssignmentsLoaded = true
		for _, a := range assignments {
			detail.KnownAssignmentIDs = append(detail.KnownAssignmentIDs, a.ID)
		}
	}

	view := reconcile.BuildAssignedView(detail.Members, detail.Assignments)
	detail.Assigned = view.Members
	detail.AssignedUsernames = joinUsernames(view.Members)
	detail.SelectedMemberIDs = reconcile.MemberIDs(detail.Assignments)

	// With no member list every assignment looks orphaned; only flag real ones.
	if membersErr == nil && len(view.Orphaned) > 0 {
		detail.Orphaned = len(view.Orphaned)
		logger.Warn().
			Int64("task_id", taskID).
			Int64("project_id", task.ProjectID).
			Int("orphaned", len(view.Orphaned)).
			Msg("assignments reference members outside the project")
		LogWarning("task_detail", "orphaned_assignments", "Assignments reference members outside the project",
			userRef(cred.UserID), "", "", view.Orphaned)
	}
	return detail, nil
}

func joinUsernames(members []models.ProjectMember) string {
	names := make([]string, 0, len(members))
	for _, m := range members {
		names = append(names, m.DisplayName())
	}
	return strings.Join(names, ", ")
}

func (r *SaveRequest) validate() error {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return validationError("Title is required")
	}
	if r.Status == "" {
		r.Status = models.StatusTodo
	}
	if !r.Status.Valid() {
		return validationError("Status must be TODO, IN_PROGRESS or DONE")
	}
	if r.Priority == "" {
		r.Priority = models.PriorityMedium
	}
	if !r.Priority.Valid() {
		return validationError("Priority must be LOW, MEDIUM or HIGH")
	}
	if !validDate(r.DueDate) || !validDate(r.EndDate) {
		return validationError("Dates must be YYYY-MM-DD")
	}
	if r.MemberIDs != nil && r.KnownAssignmentIDs == nil {
		return validationError("Reload the task before changing its assignees")
	}
	return nil
}

// Save updates the task fields and, when req.MemberIDs is present,
// reconciles its assignments with it. The plan is computed from the
// assignments the task API reports at save time, so nothing is added twice,
// but only assignments listed in req.KnownAssignmentIDs can be removed: a
// form that failed to load assignments, or loaded before someone else
// assigned a member, never unassigns what it did not show. Canceling ctx, or
// the save id through the registry, abandons outstanding calls.
func (s *TaskDetailService) Save(ctx context.Context, cred upstream.Credential, taskID int64, req *SaveRequest) (*SaveResult, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	saveCtx, saveID, done, err := s.saves.Begin(ctx, SaveOwner(cred), req.SaveID)
	if err != nil {
		return nil, validationError("This save is already in progress")
	}
	defer done()

	task, err := s.api.UpdateTask(saveCtx, cred, taskID, upstream.TaskInput{
		Name:        req.Name,
		Description: strings.TrimSpace(req.Description),
		Status:      req.Status,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
		EndDate:     req.EndDate,
	})
	if err != nil {
		return nil, s.saveFailure(saveCtx, err)
	}

	if req.MemberIDs == nil {
		s.events.Publish(TaskEvent{Type: EventTaskUpdated, TaskID: taskID, ProjectID: task.ProjectID, Actor: cred.Username})
		LogInfo("task_detail", "save", "Task saved", userRef(cred.UserID), "", "", map[string]interface{}{"task_id": taskID})
		return &SaveResult{
			SaveID:  saveID,
			Task:    task,
			Plan:    reconcile.Plan{ToAdd: []int64{}, ToRemove: []models.Assignment{}},
			Added:   []models.Assignment{},
			Removed: []models.Assignment{},
		}, nil
	}

	current, err := s.api.FetchAssignments(saveCtx, cred, taskID)
	if err != nil {
		return nil, s.saveFailure(saveCtx, err)
	}

	plan, untouched := reconcile.RestrictRemovals(reconcile.ComputePlan(current, *req.MemberIDs), *req.KnownAssignmentIDs)
	if len(untouched) > 0 {
		logger.Info().Int64("task_id", taskID).Int("untouched", len(untouched)).
			Msg("kept assignments the client had not seen")
	}
	outcome, err := reconcile.ApplyPlan(saveCtx, plan,
		func(ctx context.Context, memberID int64) (models.Assignment, error) {
			return s.api.Assign(ctx, cred, taskID, memberID)
		},
		func(ctx context.Context, a models.Assignment) error {
			return s.api.Unassign(ctx, cred, a.ID)
		},
		reconcile.WithConcurrency(s.maxConcurrent),
	)

	var partial *reconcile.PartialFailure
	switch {
	case errors.Is(err, reconcile.ErrCanceled):
		logger.Info().Str("save_id", saveID).Int64("task_id", taskID).Msg("task save canceled")
		return nil, &Error{Kind: KindCanceled, Message: "Save canceled", Cause: err}

	case errors.As(err, &partial):
		s.events.Publish(TaskEvent{Type: EventAssignmentsPartial, TaskID: taskID, ProjectID: task.ProjectID, Actor: cred.Username})
		s.notifyAdded(cred, task, succeededAdds(partial.Results))
		LogWarning("task_detail", "save_partial", partial.Message, userRef(cred.UserID), "", "", partial.Results)
		return nil, &Error{
			Kind:    KindPartialReconciliation,
			Message: partial.Message,
			Cause:   err,
			Details: PartialSaveDetails{SaveID: saveID, Task: task, Plan: plan, Results: partial.Results},
		}

	case err != nil:
		return nil, s.saveFailure(saveCtx, err)
	}

	eventType := EventTaskUpdated
	if !plan.IsEmpty() {
		eventType = EventAssignmentsChanged
	}
	s.events.Publish(TaskEvent{Type: eventType, TaskID: taskID, ProjectID: task.ProjectID, Actor: cred.Username})
	s.notifyAdded(cred, task, plan.ToAdd)
	LogInfo("task_detail", "save", "Task saved", userRef(cred.UserID), "", "", map[string]interface{}{
		"task_id": taskID,
		"added":   len(outcome.Added),
		"removed": len(outcome.Removed),
	})

	return &SaveResult{
		SaveID:    saveID,
		Task:      task,
		Plan:      plan,
		Added:     outcome.Added,
		Removed:   outcome.Removed,
		Untouched: untouched,
	}, nil
}

// CancelSave abandons a save started with the same credential.
func (s *TaskDetailService) CancelSave(cred upstream.Credential, saveID string) bool {
	return s.saves.Cancel(SaveOwner(cred), saveID)
}

func (s *TaskDetailService) saveFailure(ctx context.Context, err error) *Error {
	if ctx.Err() != nil {
		return &Error{Kind: KindCanceled, Message: "Save canceled", Cause: err}
	}
	return upstreamError(err, reconcile.FallbackMessage)
}

func succeededAdds(results []reconcile.OpResult) []int64 {
	var ids []int64
	for _, r := range results {
		if r.OK && r.Op == reconcile.OpAssign {
			ids = append(ids, r.MemberID)
		}
	}
	return ids
}

// Assign links one more member to the task. A member that is already
// assigned is rejected before any mutation call is made.
func (s *TaskDetailService) Assign(ctx context.Context, cred upstream.Credential, taskID, memberID int64) (*models.Assignment, error) {
	if memberID == 0 {
		return nil, validationError("Please select a member")
	}

	current, err := s.api.FetchAssignments(ctx, cred, taskID)
	if err != nil {
		return nil, upstreamError(err, "Failed to assign task")
	}
	for _, a := range current {
		if a.ProjectMemberID == memberID {
			return nil, validationError("Member is already assigned to this task")
		}
	}

	a, err := s.api.Assign(ctx, cred, taskID, memberID)
	if err != nil {
		return nil, upstreamError(err, "Failed to assign task")
	}

	var projectID int64
	task, err := s.api.GetTask(ctx, cred, taskID)
	if err == nil {
		projectID = task.ProjectID
	} else {
		task = &models.Task{ID: taskID}
	}
	s.events.Publish(TaskEvent{Type: EventAssignmentsChanged, TaskID: taskID, ProjectID: projectID, Actor: cred.Username})
	s.notifyAdded(cred, task, []int64{memberID})
	return &a, nil
}

// notifyAdded queues a notification for members that were just linked.
// Member names are resolved best-effort; the job still goes out without them.
func (s *TaskDetailService) notifyAdded(cred upstream.Credential, task *models.Task, memberIDs []int64) {
	if s.queue == nil || len(memberIDs) == 0 {
		return
	}

	job := &AssignmentNotificationTask{
		TaskID:     task.ID,
		TaskName:   task.Name,
		ProjectID:  task.ProjectID,
		AssignedBy: cred.Username,
		MemberIDs:  memberIDs,
	}
	if task.ProjectID != 0 {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if members, err := s.api.FetchProjectMembers(ctx, cred, task.ProjectID); err == nil {
			wanted := make(map[int64]struct{}, len(memberIDs))
			for _, id := range memberIDs {
				wanted[id] = struct{}{}
			}
			for _, m := range members {
				if _, ok := wanted[m.ID]; ok {
					job.Assignees = append(job.Assignees, m.DisplayName())
				}
			}
		}
	}

	if err := s.queue.Enqueue(job); err != nil {
		logger.Warn().Err(err).Int64("task_id", task.ID).Msg("failed to enqueue assignment notification")
	}
}
