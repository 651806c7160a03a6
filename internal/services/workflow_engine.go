package services

import (
	"context"
	"fmt"
	"time"

	"github.com/geoyang/Visitor/internal/metrics"
	"github.com/geoyang/Visitor/internal/models"
	"github.com/geoyang/Visitor/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ActionTask is one workflow action fired for one visitor event. It is the
// payload of queued workflow deliveries, so it must stay JSON-serializable.
type ActionTask struct {
	WorkflowID uuid.UUID              `json:"workflow_id"`
	CompanyID  uuid.UUID              `json:"company_id"`
	Trigger    string                 `json:"trigger"`
	Action     models.WorkflowAction  `json:"action"`
	Visitor    map[string]interface{} `json:"visitor"`
}

// ActionDispatcher hands a task to whatever runs it: inline, or a queue.
type ActionDispatcher interface {
	Dispatch(ctx context.Context, task ActionTask) error
}

// ActionExecutor runs a single task against the notification channels.
type ActionExecutor interface {
	ActionDispatcher
	Execute(ctx context.Context, task ActionTask) error
}

// WorkflowTrigger fires the workflows matching a visitor event. Failures are
// logged and counted; they never reach the caller.
type WorkflowTrigger interface {
	Fire(ctx context.Context, visitor *models.Visitor, trigger string)
}

type actionExecutor struct {
	notifier NotificationService
	metrics  *metrics.Metrics
	log      *zap.Logger
}

func NewActionExecutor(notifier NotificationService, m *metrics.Metrics, log *zap.Logger) ActionExecutor {
	return &actionExecutor{notifier: notifier, metrics: m, log: log}
}

// Dispatch runs the task in the calling goroutine.
func (e *actionExecutor) Dispatch(ctx context.Context, task ActionTask) error {
	return e.Execute(ctx, task)
}

func (e *actionExecutor) Execute(ctx context.Context, task ActionTask) error {
	cfg := task.Action.Config
	var err error
	switch task.Action.Type {
	case models.ActionEmail:
		err = e.notifier.SendEmail(ctx, task.CompanyID, configString(cfg, "recipient"), configString(cfg, "template"), task.Visitor)
	case models.ActionSMS:
		err = e.notifier.SendSMS(ctx, task.CompanyID, configString(cfg, "phone"), configString(cfg, "message"))
	case models.ActionWebhook:
		payload := map[string]interface{}{
			"event":       task.Trigger,
			"workflow_id": task.WorkflowID.String(),
			"visitor":     task.Visitor,
		}
		err = e.notifier.SendWebhook(ctx, task.CompanyID, configString(cfg, "url"), payload)
	case models.ActionNotification:
		err = e.notifier.SendPush(ctx, task.CompanyID, cfg, task.Visitor)
	default:
		err = fmt.Errorf("unsupported workflow action type %q", task.Action.Type)
	}

	if err != nil {
		e.metrics.RecordWorkflowAction(task.Action.Type, "failed")
		return fmt.Errorf("workflow %s action %s: %w", task.WorkflowID, task.Action.Type, err)
	}
	e.metrics.RecordWorkflowAction(task.Action.Type, "sent")
	return nil
}

type workflowTrigger struct {
	workflows  repositories.WorkflowRepository
	dispatcher ActionDispatcher
	metrics    *metrics.Metrics
	log        *zap.Logger
}

func NewWorkflowTrigger(workflows repositories.WorkflowRepository, dispatcher ActionDispatcher, m *metrics.Metrics, log *zap.Logger) WorkflowTrigger {
	return &workflowTrigger{workflows: workflows, dispatcher: dispatcher, metrics: m, log: log}
}

// Fire selects the active workflows of the visitor's company bound to the
// visitor's form or to no form, and dispatches every action whose trigger matches.
func (t *workflowTrigger) Fire(ctx context.Context, visitor *models.Visitor, trigger string) {
	workflows, err := t.workflows.ListActiveForForm(ctx, visitor.CompanyID, visitor.FormID)
	if err != nil {
		t.log.Error("failed to load workflows",
			zap.String("visitor_id", visitor.ID.String()),
			zap.String("trigger", trigger),
			zap.Error(err),
		)
		return
	}

	payload := visitorPayload(visitor)
	for _, wf := range workflows {
		if !wf.AppliesToLocation(visitor.LocationID) {
			continue
		}
		for _, action := range wf.Actions {
			if action.Trigger != trigger {
				continue
			}
			task := ActionTask{
				WorkflowID: wf.ID,
				CompanyID:  wf.CompanyID,
				Trigger:    trigger,
				Action:     action,
				Visitor:    payload,
			}
			if err := t.dispatcher.Dispatch(ctx, task); err != nil {
				t.metrics.RecordWorkflowAction(action.Type, "dispatch_failed")
				t.log.Warn("workflow action failed",
					zap.String("workflow_id", wf.ID.String()),
					zap.String("action", action.Type),
					zap.String("trigger", trigger),
					zap.Error(err),
				)
			}
		}
	}
}

func visitorPayload(v *models.Visitor) map[string]interface{} {
	payload := map[string]interface{}{
		"id":            v.ID.String(),
		"company_id":    v.CompanyID.String(),
		"form_id":       v.FormID,
		"location_id":   v.LocationID.String(),
		"data":          v.Data,
		"status":        v.Status,
		"check_in_time": v.CheckInTime.UTC().Format(time.RFC3339),
		"host_notified": v.HostNotified,
	}
	if v.CheckOutTime != nil {
		payload["check_out_time"] = v.CheckOutTime.UTC().Format(time.RFC3339)
	}
	return payload
}

func configString(cfg map[string]interface{}, key string) string {
	if cfg == nil {
		return ""
	}
	s, _ := cfg[key].(string)
	return s
}
