package services

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/hibiken/asynq"
	"github.com/huangang/taskdesk/internal/config"
	"github.com/huangang/taskdesk/pkg/logger"
)

const (
	TaskTypeAssignmentNotify = "assignment:notify"
	QueueNotifications       = "notifications"
)

// AssignmentNotificationTask tells the assignees of a task that they were
// added to it.
type AssignmentNotificationTask struct {
	TaskID     int64    `json:"task_id"`
	TaskName   string   `json:"task_name"`
	ProjectID  int64    `json:"project_id"`
	AssignedBy string   `json:"assigned_by"`
	MemberIDs  []int64  `json:"member_ids"`
	Assignees  []string `json:"assignees"`
}

// TaskQueue defines the interface for background notification jobs
type TaskQueue interface {
	Enqueue(task *AssignmentNotificationTask) error
	// IsAsync returns true if queue processes tasks asynchronously
	IsAsync() bool
	Close() error
}

var (
	globalTaskQueue TaskQueue
	taskQueueOnce   sync.Once
)

// InitTaskQueue initializes the global task queue based on config
func InitTaskQueue(cfg *config.Config) TaskQueue {
	taskQueueOnce.Do(func() {
		if cfg.Redis.Enabled {
			queue, err := NewAsyncQueue(&cfg.Redis)
			if err != nil {
				logger.Warnf("[TaskQueue] Redis unavailable, falling back to in-process mode: %v", err)
				globalTaskQueue = NewSyncQueue()
			} else {
				logger.Infof("[TaskQueue] Async queue initialized with Redis at %s", cfg.Redis.Addr)
				globalTaskQueue = queue
			}
		} else {
			logger.Infof("[TaskQueue] In-process queue initialized (Redis disabled)")
			globalTaskQueue = NewSyncQueue()
		}
	})
	return globalTaskQueue
}

// GetTaskQueue returns the global task queue instance
func GetTaskQueue() TaskQueue {
	return globalTaskQueue
}

// AsyncQueue implements TaskQueue using asynq (Redis-based)
type AsyncQueue struct {
	client *asynq.Client
}

func NewAsyncQueue(cfg *config.RedisConfig) (*AsyncQueue, error) {
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}

	client := asynq.NewClient(redisOpt)

	// Verify the connection before committing to async mode
	inspector := asynq.NewInspector(redisOpt)
	defer inspector.Close()

	if _, err := inspector.Queues(); err != nil {
		client.Close()
		return nil, err
	}

	return &AsyncQueue{client: client}, nil
}

// newAssignmentTask builds the asynq task for a notification job.
func newAssignmentTask(task *AssignmentNotificationTask) (*asynq.Task, error) {
	payload, err := json.Marshal(task)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeAssignmentNotify, payload), nil
}

func (q *AsyncQueue) Enqueue(task *AssignmentNotificationTask) error {
	t, err := newAssignmentTask(task)
	if err != nil {
		return err
	}

	info, err := q.client.Enqueue(t,
		asynq.Queue(QueueNotifications),
		asynq.MaxRetry(3),
	)
	if err != nil {
		return err
	}

	logger.Debug().Str("id", info.ID).Str("queue", info.Queue).Int64("task_id", task.TaskID).Msg("[AsyncQueue] notification enqueued")
	return nil
}

func (q *AsyncQueue) IsAsync() bool {
	return true
}

func (q *AsyncQueue) Close() error {
	return q.client.Close()
}

// SyncQueue runs jobs on a goroutine in this process (no Redis)
type SyncQueue struct {
	processor func(context.Context, *AssignmentNotificationTask) error
	wg        sync.WaitGroup
}

func NewSyncQueue() *SyncQueue {
	return &SyncQueue{}
}

func (q *SyncQueue) SetProcessor(processor func(context.Context, *AssignmentNotificationTask) error) {
	q.processor = processor
}

// Enqueue starts the job and returns immediately
func (q *SyncQueue) Enqueue(task *AssignmentNotificationTask) error {
	if q.processor == nil {
		logger.Debug().Int64("task_id", task.TaskID).Msg("[SyncQueue] no processor set, notification dropped")
		return nil
	}

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		if err := q.processor(context.Background(), task); err != nil {
			logger.Warnf("[SyncQueue] Notification failed: %v", err)
		}
	}()

	return nil
}

func (q *SyncQueue) IsAsync() bool {
	return false
}

// Close waits for running jobs to finish
func (q *SyncQueue) Close() error {
	q.wg.Wait()
	return nil
}
