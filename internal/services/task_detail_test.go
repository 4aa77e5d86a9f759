package services

import (
	"context"
	"net/http"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/huangang/taskdesk/internal/models"
	"github.com/huangang/taskdesk/internal/reconcile"
	"github.com/huangang/taskdesk/internal/upstream"
)

// recordingQueue keeps enqueued jobs instead of running them.
type recordingQueue struct {
	mu   sync.Mutex
	jobs []*AssignmentNotificationTask
}

func (q *recordingQueue) Enqueue(task *AssignmentNotificationTask) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, task)
	return nil
}

func (q *recordingQueue) IsAsync() bool { return false }
func (q *recordingQueue) Close() error  { return nil }

func (q *recordingQueue) snapshot() []*AssignmentNotificationTask {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]*AssignmentNotificationTask(nil), q.jobs...)
}

func assignedMembers(assignments []models.Assignment) []int64 {
	return reconcile.MemberIDs(assignments)
}

func ids(v ...int64) *[]int64 {
	if v == nil {
		v = []int64{}
	}
	return &v
}

func TestTaskDetailService_Load(t *testing.T) {
	f, api := newFakeAPI(t)
	f.seed()
	f.mu.Lock()
	f.assignments[2] = models.Assignment{ID: 2, TaskID: 5, ProjectMemberID: 99}
	f.mu.Unlock()
	svc := NewTaskDetailService(api, nil, nil, nil, 4)

	detail, err := svc.Load(context.Background(), testCred, 5)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if detail.Task.Name != "Launch" {
		t.Errorf("Task.Name = %q, expected %q", detail.Task.Name, "Launch")
	}
	if len(detail.Members) != 2 {
		t.Errorf("Members = %d, expected 2", len(detail.Members))
	}
	if len(detail.Assigned) != 1 || detail.Assigned[0].ID != 10 {
		t.Errorf("Assigned = %+v, expected member 10 only", detail.Assigned)
	}
	if detail.AssignedUsernames != "bob" {
		t.Errorf("AssignedUsernames = %q, expected %q", detail.AssignedUsernames, "bob")
	}
	if !reflect.DeepEqual(detail.SelectedMemberIDs, []int64{10, 99}) {
		t.Errorf("SelectedMemberIDs = %v, expected [10 99]", detail.SelectedMemberIDs)
	}
	if detail.Orphaned != 1 {
		t.Errorf("Orphaned = %d, expected 1", detail.Orphaned)
	}
	if len(detail.Notices) != 0 {
		t.Errorf("Notices = %+v, expected none", detail.Notices)
	}
}

func TestTaskDetailService_LoadWithoutMembers(t *testing.T) {
	f, api := newFakeAPI(t)
	f.seed()
	f.fail("GET", "/api/projects/1/members", http.StatusInternalServerError, "")
	svc := NewTaskDetailService(api, nil, nil, nil, 4)

	detail, err := svc.Load(context.Background(), testCred, 5)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(detail.Members) != 0 || len(detail.Assigned) != 0 {
		t.Errorf("Members = %d, Assigned = %d, expected both empty", len(detail.Members), len(detail.Assigned))
	}
	if detail.Orphaned != 0 {
		t.Errorf("Orphaned = %d, expected 0 when the member list is missing", detail.Orphaned)
	}
	if !reflect.DeepEqual(detail.SelectedMemberIDs, []int64{10}) {
		t.Errorf("SelectedMemberIDs = %v, expected [10]", detail.SelectedMemberIDs)
	}
	if len(detail.Notices) != 1 || detail.Notices[0].Source != "members" {
		t.Errorf("Notices = %+v, expected a members notice", detail.Notices)
	}
}

func TestTaskDetailService_LoadWithoutAssignments(t *testing.T) {
	f, api := newFakeAPI(t)
	f.seed()
	f.fail("GET", "/api/task-assignments/by-task/5", http.StatusInternalServerError, "")
	svc := NewTaskDetailService(api, nil, nil, nil, 4)

	detail, err := svc.Load(context.Background(), testCred, 5)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(detail.Members) != 2 {
		t.Errorf("Members = %d, expected 2", len(detail.Members))
	}
	if detail.AssignmentsLoaded {
		t.Error("AssignmentsLoaded = true, expected false")
	}
	if len(detail.KnownAssignmentIDs) != 0 || len(detail.SelectedMemberIDs) != 0 {
		t.Errorf("KnownAssignmentIDs = %v, SelectedMemberIDs = %v, expected both empty",
			detail.KnownAssignmentIDs, detail.SelectedMemberIDs)
	}
	if len(detail.Notices) != 1 || detail.Notices[0].Source != "assignments" {
		t.Errorf("Notices = %+v, expected an assignments notice", detail.Notices)
	}
}

func TestTaskDetailService_LoadMissingTask(t *testing.T) {
	_, api := newFakeAPI(t)
	svc := NewTaskDetailService(api, nil, nil, nil, 4)

	_, err := svc.Load(context.Background(), testCred, 404)
	assertServiceError(t, err, KindUpstream, "Failed to load task")
}

func TestTaskDetailService_SaveValidation(t *testing.T) {
	f, api := newFakeAPI(t)
	f.seed()
	svc := NewTaskDetailService(api, nil, nil, nil, 4)

	tests := []struct {
		name    string
		req     SaveRequest
		message string
	}{
		{"blank title", SaveRequest{Name: "   "}, "Title is required"},
		{"bad status", SaveRequest{Name: "x", Status: "BLOCKED"}, "Status must be TODO, IN_PROGRESS or DONE"},
		{"bad priority", SaveRequest{Name: "x", Priority: "URGENT"}, "Priority must be LOW, MEDIUM or HIGH"},
		{"bad date", SaveRequest{Name: "x", EndDate: "31/12/2025"}, "Dates must be YYYY-MM-DD"},
		{"members without known assignments", SaveRequest{Name: "x", MemberIDs: ids()}, "Reload the task before changing its assignees"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Save(context.Background(), testCred, 5, &tt.req)
			assertServiceError(t, err, KindValidation, tt.message)
		})
	}
	if n := f.called("PUT /api/tasks/5"); n != 0 {
		t.Errorf("update calls = %d, expected none", n)
	}
}

func TestTaskDetailService_Save(t *testing.T) {
	f, api := newFakeAPI(t)
	f.seed()
	hub := NewEventHub()
	events := hub.Subscribe("test")
	queue := &recordingQueue{}
	svc := NewTaskDetailService(api, hub, queue, nil, 4)

	result, err := svc.Save(context.Background(), testCred, 5, &SaveRequest{
		Name:      "Launch v2",
		Status:    models.StatusInProgress,
		MemberIDs:          ids(20),
		KnownAssignmentIDs: ids(1),
	})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if result.SaveID == "" {
		t.Error("SaveID is empty, expected a generated id")
	}
	if result.Task.Name != "Launch v2" || result.Task.Status != models.StatusInProgress {
		t.Errorf("Task = %+v, expected the updated fields", result.Task)
	}
	if !reflect.DeepEqual(result.Plan.ToAdd, []int64{20}) || len(result.Plan.ToRemove) != 1 {
		t.Errorf("Plan = %+v, expected add 20 and remove one", result.Plan)
	}
	if len(result.Added) != 1 || len(result.Removed) != 1 {
		t.Errorf("Added = %d, Removed = %d, expected 1 and 1", len(result.Added), len(result.Removed))
	}
	if got := assignedMembers(f.taskAssignments(5)); !reflect.DeepEqual(got, []int64{20}) {
		t.Errorf("assigned members = %v, expected [20]", got)
	}

	select {
	case ev := <-events:
		if ev.Type != EventAssignmentsChanged || ev.TaskID != 5 || ev.ProjectID != 1 {
			t.Errorf("event = %+v", ev)
		}
	case <-time.After(time.Second):
		t.Error("expected an assignments event")
	}

	jobs := queue.snapshot()
	if len(jobs) != 1 {
		t.Fatalf("jobs = %d, expected 1", len(jobs))
	}
	if !reflect.DeepEqual(jobs[0].MemberIDs, []int64{20}) || !reflect.DeepEqual(jobs[0].Assignees, []string{"carol"}) {
		t.Errorf("job = %+v, expected carol", jobs[0])
	}
	if svc.Saves().Active() != 0 {
		t.Errorf("Active() = %d, expected the save to be released", svc.Saves().Active())
	}
}

func TestTaskDetailService_SaveWithoutMembershipChange(t *testing.T) {
	f, api := newFakeAPI(t)
	f.seed()
	hub := NewEventHub()
	events := hub.Subscribe("test")
	queue := &recordingQueue{}
	svc := NewTaskDetailService(api, hub, queue, nil, 4)

	result, err := svc.Save(context.Background(), testCred, 5, &SaveRequest{Name: "Launch", MemberIDs: ids(10), KnownAssignmentIDs: ids(1)})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if !result.Plan.IsEmpty() {
		t.Errorf("Plan = %+v, expected empty", result.Plan)
	}
	if n := f.called("POST /api/task-assignments"); n != 0 {
		t.Errorf("assign calls = %d, expected none", n)
	}
	if ev := <-events; ev.Type != EventTaskUpdated {
		t.Errorf("event type = %q, expected %q", ev.Type, EventTaskUpdated)
	}
	if len(queue.snapshot()) != 0 {
		t.Error("expected no notification for an unchanged membership")
	}
}

func TestTaskDetailService_SavePartialFailure(t *testing.T) {
	f, api := newFakeAPI(t)
	f.seed()
	f.fail("DELETE", "/api/task-assignments/1", http.StatusBadRequest, "Assignment is locked")
	queue := &recordingQueue{}
	svc := NewTaskDetailService(api, nil, queue, nil, 4)

	_, err := svc.Save(context.Background(), testCred, 5, &SaveRequest{SaveID: "s-1", Name: "Launch", MemberIDs: ids(20), KnownAssignmentIDs: ids(1)})
	svcErr := assertServiceError(t, err, KindPartialReconciliation, "Assignment is locked")

	details, ok := svcErr.Details.(PartialSaveDetails)
	if !ok {
		t.Fatalf("Details = %T, expected PartialSaveDetails", svcErr.Details)
	}
	if details.SaveID != "s-1" {
		t.Errorf("SaveID = %q, expected %q", details.SaveID, "s-1")
	}
	if len(details.Results) != 2 {
		t.Fatalf("Results = %d, expected 2", len(details.Results))
	}
	if !details.Results[0].OK || details.Results[0].Op != reconcile.OpAssign {
		t.Errorf("Results[0] = %+v, expected a successful assign", details.Results[0])
	}
	if details.Results[1].OK || details.Results[1].Op != reconcile.OpUnassign {
		t.Errorf("Results[1] = %+v, expected a failed unassign", details.Results[1])
	}

	// the successful add stays in place
	if got := assignedMembers(f.taskAssignments(5)); !reflect.DeepEqual(got, []int64{10, 20}) {
		t.Errorf("assigned members = %v, expected [10 20]", got)
	}
	if jobs := queue.snapshot(); len(jobs) != 1 || !reflect.DeepEqual(jobs[0].MemberIDs, []int64{20}) {
		t.Errorf("jobs = %+v, expected a notification for member 20", jobs)
	}
}

func TestTaskDetailService_SaveUpdateFails(t *testing.T) {
	f, api := newFakeAPI(t)
	f.seed()
	f.fail("PUT", "/api/tasks/5", http.StatusInternalServerError, "")
	svc := NewTaskDetailService(api, nil, nil, nil, 4)

	_, err := svc.Save(context.Background(), testCred, 5, &SaveRequest{Name: "Launch", MemberIDs: ids(20), KnownAssignmentIDs: ids(1)})
	assertServiceError(t, err, KindUpstream, reconcile.FallbackMessage)

	if n := f.called("GET /api/task-assignments/by-task/5"); n != 0 {
		t.Errorf("assignment loads = %d, expected none after a failed update", n)
	}
}

func TestTaskDetailService_SaveInProgress(t *testing.T) {
	f, api := newFakeAPI(t)
	f.seed()
	svc := NewTaskDetailService(api, nil, nil, nil, 4)

	_, _, done, err := svc.Saves().Begin(context.Background(), SaveOwner(testCred), "dup")
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	defer done()

	_, err = svc.Save(context.Background(), testCred, 5, &SaveRequest{SaveID: "dup", Name: "Launch"})
	assertServiceError(t, err, KindValidation, "This save is already in progress")
}

func TestTaskDetailService_SaveCanceled(t *testing.T) {
	f, api := newFakeAPI(t)
	f.seed()
	f.mu.Lock()
	f.blockAssign = true
	f.mu.Unlock()
	svc := NewTaskDetailService(api, nil, nil, nil, 4)

	errc := make(chan error, 1)
	go func() {
		_, err := svc.Save(context.Background(), testCred, 5, &SaveRequest{
			SaveID:             "s-cancel",
			Name:               "Launch",
			MemberIDs:          ids(10, 20),
			KnownAssignmentIDs: ids(1),
		})
		errc <- err
	}()

	select {
	case <-f.assignStarted:
	case <-time.After(3 * time.Second):
		t.Fatal("assign call never started")
	}
	other := upstream.Credential{Token: "someone-else", UserID: 8, Username: "mallory"}
	if svc.CancelSave(other, "s-cancel") {
		t.Fatal("CancelSave() = true for a different session")
	}
	if !svc.CancelSave(testCred, "s-cancel") {
		t.Fatal("CancelSave() = false, expected the save to be registered")
	}

	select {
	case err := <-errc:
		assertServiceError(t, err, KindCanceled, "Save canceled")
	case <-time.After(3 * time.Second):
		t.Fatal("Save did not return after cancel")
	}
	if svc.CancelSave(testCred, "s-cancel") {
		t.Error("CancelSave() = true after the save finished")
	}
}

func TestTaskDetailService_Assign(t *testing.T) {
	f, api := newFakeAPI(t)
	f.seed()
	queue := &recordingQueue{}
	svc := NewTaskDetailService(api, nil, queue, nil, 4)

	a, err := svc.Assign(context.Background(), testCred, 5, 20)
	if err != nil {
		t.Fatalf("Assign() error = %v", err)
	}
	if a.TaskID != 5 || a.ProjectMemberID != 20 {
		t.Errorf("assignment = %+v, expected task 5 member 20", a)
	}
	if jobs := queue.snapshot(); len(jobs) != 1 || jobs[0].TaskName != "Launch" {
		t.Errorf("jobs = %+v, expected one for task Launch", jobs)
	}
}

func TestTaskDetailService_AssignRejected(t *testing.T) {
	f, api := newFakeAPI(t)
	f.seed()
	svc := NewTaskDetailService(api, nil, nil, nil, 4)

	_, err := svc.Assign(context.Background(), testCred, 5, 0)
	assertServiceError(t, err, KindValidation, "Please select a member")

	_, err = svc.Assign(context.Background(), testCred, 5, 10)
	assertServiceError(t, err, KindValidation, "Member is already assigned to this task")

	if n := f.called("POST /api/task-assignments"); n != 0 {
		t.Errorf("assign calls = %d, expected none", n)
	}
}

func TestTaskDetailService_AssignFallbackMessage(t *testing.T) {
	f, api := newFakeAPI(t)
	f.seed()
	f.fail("POST", "/api/task-assignments", http.StatusInternalServerError, "<html>boom</html>")
	svc := NewTaskDetailService(api, nil, nil, nil, 4)

	_, err := svc.Assign(context.Background(), testCred, 5, 20)
	assertServiceError(t, err, KindUpstream, "Failed to assign task")
}

func TestTaskDetailService_SaveAfterFailedAssignmentLoad(t *testing.T) {
	f, api := newFakeAPI(t)
	f.seed()
	f.fail("GET", "/api/task-assignments/by-task/5", http.StatusInternalServerError, "")
	svc := NewTaskDetailService(api, nil, nil, nil, 4)

	detail, err := svc.Load(context.Background(), testCred, 5)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	f.recover("GET", "/api/task-assignments/by-task/5")

	// the form showed nobody assigned and the user saved it unchanged
	selected := append([]int64{}, detail.SelectedMemberIDs...)
	known := append([]int64{}, detail.KnownAssignmentIDs...)
	result, err := svc.Save(context.Background(), testCred, 5, &SaveRequest{
		Name:               "Launch",
		MemberIDs:          &selected,
		KnownAssignmentIDs: &known,
	})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if n := f.called("DELETE /api/task-assignments/1"); n != 0 {
		t.Errorf("unassign calls = %d, expected none", n)
	}
	if got := assignedMembers(f.taskAssignments(5)); !reflect.DeepEqual(got, []int64{10}) {
		t.Errorf("assigned members = %v, expected [10]", got)
	}
	if len(result.Untouched) != 1 || result.Untouched[0].ID != 1 {
		t.Errorf("Untouched = %+v, expected assignment 1", result.Untouched)
	}
}

func TestTaskDetailService_SaveKeepsAssignmentsMadeElsewhere(t *testing.T) {
	f, api := newFakeAPI(t)
	f.seed()
	svc := NewTaskDetailService(api, nil, nil, nil, 4)

	detail, err := svc.Load(context.Background(), testCred, 5)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	// someone assigns carol while the form is open
	f.mu.Lock()
	f.assignments[2] = models.Assignment{ID: 2, TaskID: 5, ProjectMemberID: 20}
	f.mu.Unlock()

	known := detail.KnownAssignmentIDs
	result, err := svc.Save(context.Background(), testCred, 5, &SaveRequest{
		Name:               "Launch",
		MemberIDs:          ids(),
		KnownAssignmentIDs: &known,
	})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if got := assignedMembers(f.taskAssignments(5)); !reflect.DeepEqual(got, []int64{20}) {
		t.Errorf("assigned members = %v, expected [20]", got)
	}
	if len(result.Removed) != 1 || result.Removed[0].ID != 1 {
		t.Errorf("Removed = %+v, expected assignment 1", result.Removed)
	}
	if len(result.Untouched) != 1 || result.Untouched[0].ID != 2 {
		t.Errorf("Untouched = %+v, expected assignment 2", result.Untouched)
	}
}

func TestTaskDetailService_SaveFieldsOnly(t *testing.T) {
	f, api := newFakeAPI(t)
	f.seed()
	hub := NewEventHub()
	events := hub.Subscribe("test")
	svc := NewTaskDetailService(api, hub, nil, nil, 4)

	result, err := svc.Save(context.Background(), testCred, 5, &SaveRequest{Name: "Launch v2"})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if result.Task.Name != "Launch v2" {
		t.Errorf("Task.Name = %q, expected %q", result.Task.Name, "Launch v2")
	}
	if !result.Plan.IsEmpty() {
		t.Errorf("Plan = %+v, expected empty", result.Plan)
	}
	if n := f.called("GET /api/task-assignments/by-task/5"); n != 0 {
		t.Errorf("assignment loads = %d, expected none", n)
	}
	if got := assignedMembers(f.taskAssignments(5)); !reflect.DeepEqual(got, []int64{10}) {
		t.Errorf("assigned members = %v, expected [10]", got)
	}
	if ev := <-events; ev.Type != EventTaskUpdated {
		t.Errorf("event type = %q, expected %q", ev.Type, EventTaskUpdated)
	}
}

func TestTaskDetailService_SaveAssignmentLoadFails(t *testing.T) {
	f, api := newFakeAPI(t)
	f.seed()
	f.fail("GET", "/api/task-assignments/by-task/5", http.StatusServiceUnavailable, "")
	svc := NewTaskDetailService(api, nil, nil, nil, 4)

	_, err := svc.Save(context.Background(), testCred, 5, &SaveRequest{Name: "Launch", MemberIDs: ids(20), KnownAssignmentIDs: ids(1)})
	assertServiceError(t, err, KindUpstream, reconcile.FallbackMessage)

	if n := f.called("POST /api/task-assignments"); n != 0 {
		t.Errorf("assign calls = %d, expected none", n)
	}
	if n := f.called("DELETE /api/task-assignments/1"); n != 0 {
		t.Errorf("unassign calls = %d, expected none", n)
	}
}
