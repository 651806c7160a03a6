package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/geoyang/Visitor/internal/services"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// Task type definitions
const (
	TypeWorkflowAction = "workflow:action"

	DefaultQueue = "default"
)

// Enqueuer is the part of *asynq.Client the dispatcher needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// NewWorkflowActionTask wraps one workflow action for the queue. Actions are
// delivered at most once, like inline dispatch, so the task never retries.
func NewWorkflowActionTask(task services.ActionTask) (*asynq.Task, error) {
	data, err := json.Marshal(task)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeWorkflowAction, data, asynq.MaxRetry(0)), nil
}

// QueueDispatcher sends workflow actions to the asynq worker instead of
// running them in the request goroutine.
type QueueDispatcher struct {
	client Enqueuer
	queue  string
	log    *zap.Logger
}

func NewQueueDispatcher(client Enqueuer, queue string, log *zap.Logger) *QueueDispatcher {
	if queue == "" {
		queue = DefaultQueue
	}
	return &QueueDispatcher{client: client, queue: queue, log: log}
}

func (d *QueueDispatcher) Dispatch(ctx context.Context, task services.ActionTask) error {
	t, err := NewWorkflowActionTask(task)
	if err != nil {
		return fmt.Errorf("failed to marshal workflow task: %w", err)
	}
	info, err := d.client.EnqueueContext(ctx, t, asynq.Queue(d.queue))
	if err != nil {
		return fmt.Errorf("failed to enqueue workflow task: %w", err)
	}
	d.log.Debug("workflow action enqueued",
		zap.String("task_id", info.ID),
		zap.String("workflow_id", task.WorkflowID.String()),
		zap.String("action", task.Action.Type),
	)
	return nil
}

// WorkflowActionHandler runs queued workflow actions on the worker side.
type WorkflowActionHandler struct {
	executor services.ActionExecutor
	log      *zap.Logger
}

func NewWorkflowActionHandler(executor services.ActionExecutor, log *zap.Logger) *WorkflowActionHandler {
	return &WorkflowActionHandler{executor: executor, log: log}
}

// ProcessTask handles workflow:action tasks
func (h *WorkflowActionHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var task services.ActionTask
	if err := json.Unmarshal(t.Payload(), &task); err != nil {
		return fmt.Errorf("failed to unmarshal workflow payload: %v: %w", err, asynq.SkipRetry)
	}

	if err := h.executor.Execute(ctx, task); err != nil {
		h.log.Warn("workflow action failed",
			zap.String("workflow_id", task.WorkflowID.String()),
			zap.String("action", task.Action.Type),
			zap.String("trigger", task.Trigger),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// NewServeMux routes every task type the worker understands.
func NewServeMux(workflows *WorkflowActionHandler) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Handle(TypeWorkflowAction, workflows)
	return mux
}
