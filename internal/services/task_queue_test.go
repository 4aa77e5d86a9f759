package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/huangang/taskdesk/internal/config"
)

func TestTaskTypeAssignmentNotify_Constant(t *testing.T) {
	if TaskTypeAssignmentNotify != "assignment:notify" {
		t.Errorf("TaskTypeAssignmentNotify = %q, expected %q", TaskTypeAssignmentNotify, "assignment:notify")
	}
}

func TestNewAssignmentTask_Payload(t *testing.T) {
	job := &AssignmentNotificationTask{
		TaskID:     5,
		TaskName:   "Launch",
		ProjectID:  1,
		AssignedBy: "alice",
		MemberIDs:  []int64{10, 20},
		Assignees:  []string{"bob", "carol"},
	}

	task, err := newAssignmentTask(job)
	if err != nil {
		t.Fatalf("newAssignmentTask() error = %v", err)
	}
	if task.Type() != TaskTypeAssignmentNotify {
		t.Errorf("Type() = %q, expected %q", task.Type(), TaskTypeAssignmentNotify)
	}

	var decoded AssignmentNotificationTask
	if err := json.Unmarshal(task.Payload(), &decoded); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if decoded.TaskID != 5 || decoded.AssignedBy != "alice" || len(decoded.MemberIDs) != 2 {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestSyncQueue_IsAsync(t *testing.T) {
	if NewSyncQueue().IsAsync() {
		t.Error("SyncQueue.IsAsync() should return false")
	}
}

func TestSyncQueue_WithoutProcessor(t *testing.T) {
	q := NewSyncQueue()
	if err := q.Enqueue(&AssignmentNotificationTask{TaskID: 1}); err != nil {
		t.Errorf("Enqueue() error = %v, expected nil", err)
	}
	if err := q.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestSyncQueue_CloseWaitsForJobs(t *testing.T) {
	q := NewSyncQueue()
	var processed atomic.Int32
	q.SetProcessor(func(ctx context.Context, task *AssignmentNotificationTask) error {
		time.Sleep(20 * time.Millisecond)
		processed.Add(1)
		return nil
	})

	for i := 0; i < 3; i++ {
		if err := q.Enqueue(&AssignmentNotificationTask{TaskID: int64(i)}); err != nil {
			t.Fatalf("Enqueue() error = %v", err)
		}
	}
	q.Close()

	if got := processed.Load(); got != 3 {
		t.Errorf("processed = %d, expected 3 after Close", got)
	}
}

func TestDecodeAssignmentTask(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		wantSkip bool
	}{
		{"valid", `{"task_id":5,"member_ids":[20],"assignees":["carol"]}`, false},
		{"malformed json", `{"task_id":`, true},
		{"no task", `{"member_ids":[20]}`, true},
		{"no assignees", `{"task_id":5}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task, err := decodeAssignmentTask([]byte(tt.payload))
			if tt.wantSkip {
				if !errors.Is(err, asynq.SkipRetry) {
					t.Errorf("err = %v, expected asynq.SkipRetry", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if task.TaskID != 5 || len(task.Assignees) != 1 || task.Assignees[0] != "carol" {
				t.Errorf("task = %+v, expected task 5 for carol", task)
			}
		})
	}
}

func TestNewWorkerDisabled(t *testing.T) {
	if w := NewWorker(&config.RedisConfig{Enabled: false}); w != nil {
		t.Error("NewWorker should return nil when Redis is disabled")
	}
}
