package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/hibiken/asynq"
	"github.com/huangang/taskdesk/internal/config"
	"github.com/huangang/taskdesk/pkg/logger"
)

// Worker drains assignment notifications from Redis.
type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	processor func(context.Context, *AssignmentNotificationTask) error
	running   bool
	mu        sync.Mutex
}

// NewWorker returns nil when Redis is disabled.
func NewWorker(cfg *config.RedisConfig) *Worker {
	if !cfg.Enabled {
		return nil
	}

	concurrency := cfg.WorkerConcurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	server := asynq.NewServer(
		asynq.RedisClientOpt{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB},
		asynq.Config{
			Concurrency: concurrency,
			Queues:      map[string]int{QueueNotifications: 1},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				retried, _ := asynq.GetRetryCount(ctx)
				maxRetry, _ := asynq.GetMaxRetry(ctx)
				logger.Warn().Err(err).Str("type", task.Type()).Int("retry", retried).Int("max_retry", maxRetry).
					Msg("[Worker] notification failed")
			}),
		},
	)

	return &Worker{
		server: server,
		mux:    asynq.NewServeMux(),
	}
}

func (w *Worker) SetProcessor(processor func(context.Context, *AssignmentNotificationTask) error) {
	w.processor = processor
}

// Start runs the asynq server in the background. Calling it twice is a no-op.
func (w *Worker) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}
	if w.processor == nil {
		return fmt.Errorf("worker: no processor set")
	}

	w.mux.HandleFunc(TaskTypeAssignmentNotify, w.handleAssignmentTask)
	if err := w.server.Start(w.mux); err != nil {
		return fmt.Errorf("worker: %w", err)
	}
	w.running = true
	logger.Info().Str("queue", QueueNotifications).Msg("[Worker] notification worker started")
	return nil
}

// Stop waits for in-flight jobs and shuts the server down.
func (w *Worker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}
	w.server.Shutdown()
	w.running = false
	logger.Info().Msg("[Worker] notification worker stopped")
}

// decodeAssignmentTask rejects payloads that can never succeed so asynq
// does not retry them.
func decodeAssignmentTask(payload []byte) (*AssignmentNotificationTask, error) {
	var task AssignmentNotificationTask
	if err := json.Unmarshal(payload, &task); err != nil {
		return nil, fmt.Errorf("decode %s payload: %v: %w", TaskTypeAssignmentNotify, err, asynq.SkipRetry)
	}
	if task.TaskID <= 0 || len(task.MemberIDs) == 0 {
		return nil, fmt.Errorf("%s payload without task or assignees: %w", TaskTypeAssignmentNotify, asynq.SkipRetry)
	}
	return &task, nil
}

func (w *Worker) handleAssignmentTask(ctx context.Context, t *asynq.Task) error {
	task, err := decodeAssignmentTask(t.Payload())
	if err != nil {
		return err
	}
	logger.Debug().Int64("task_id", task.TaskID).Int("assignees", len(task.MemberIDs)).Msg("[Worker] processing assignment notification")
	return w.processor(ctx, task)
}
