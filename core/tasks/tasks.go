package tasks

import (
	"context"
	"errors"
	"time"

	"gameplan-api/core/logger"

	"github.com/hibiken/asynq"
)

// TaskClient is the scheduling surface consumed by services. Schedule calls
// are idempotent by construction: a deterministic task ID identifies one
// logical job, and rescheduling it is last-write-wins.
type TaskClient interface {
	// Schedule enqueues a task to run after delay under the given
	// deterministic ID on the given queue. Any pending task with the same ID
	// is replaced.
	Schedule(ctx context.Context, task *asynq.Task, taskID string, queue string, delay time.Duration) error
	// Cancel removes the pending task with the given ID. Returns false when
	// no such task exists (it may already have fired; that race is accepted).
	Cancel(ctx context.Context, taskID string, queue string) (bool, error)
	Close() error
}

type Client struct {
	client    *asynq.Client
	inspector *asynq.Inspector
}

func NewClient(redisOpt asynq.RedisClientOpt) *Client {
	return &Client{
		client:    asynq.NewClient(redisOpt),
		inspector: asynq.NewInspector(redisOpt),
	}
}

func (c *Client) Schedule(ctx context.Context, task *asynq.Task, taskID string, queue string, delay time.Duration) error {
	// Replace any pending task under the same ID so a reschedule always wins.
	if err := c.inspector.DeleteTask(queue, taskID); err != nil &&
		!errors.Is(err, asynq.ErrTaskNotFound) && !errors.Is(err, asynq.ErrQueueNotFound) {
		logger.Warn("Tasks:Schedule:DeleteExisting", "task_id", taskID, "error", err)
	}

	info, err := c.client.EnqueueContext(ctx, task,
		asynq.TaskID(taskID),
		asynq.Queue(queue),
		asynq.ProcessIn(delay),
		asynq.MaxRetry(3),
	)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			// Lost a race against a concurrent schedule of the same job.
			logger.Info("Tasks:Schedule:Duplicate", "task_id", taskID)
			return nil
		}
		return err
	}

	logger.Info("Tasks:Schedule:Enqueued",
		"task_id", info.ID,
		"type", task.Type(),
		"queue", info.Queue,
		"process_at", info.NextProcessAt,
	)
	return nil
}

func (c *Client) Cancel(ctx context.Context, taskID string, queue string) (bool, error) {
	err := c.inspector.DeleteTask(queue, taskID)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskNotFound) || errors.Is(err, asynq.ErrQueueNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

// NewServer builds the worker that executes scheduled jobs. Handler failures
// must not vanish silently; the error handler logs task identity and error
// before asynq applies its retry policy.
func NewServer(redisOpt asynq.RedisClientOpt, queues map[string]int) *asynq.Server {
	return asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 10,
		Queues:      queues,
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			id, _ := asynq.GetTaskID(ctx)
			logger.Error("Tasks:HandlerFailed",
				"task_id", id,
				"type", task.Type(),
				"error", err,
			)
		}),
	})
}
