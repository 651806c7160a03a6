package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/geoyang/Visitor/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testVisitor(companyID, locationID uuid.UUID) *models.Visitor {
	return &models.Visitor{
		ID:          uuid.New(),
		CompanyID:   companyID,
		FormID:      models.DefaultFormKey,
		LocationID:  locationID,
		Data:        map[string]interface{}{"full_name": "Ada"},
		CheckInTime: time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC),
		Status:      models.VisitorStatusCheckedIn,
	}
}

func TestWorkflowTrigger_DispatchesMatchingActions(t *testing.T) {
	ctx := context.Background()
	companyID, locationID := uuid.New(), uuid.New()
	visitor := testVisitor(companyID, locationID)

	everywhere := &models.Workflow{
		ID:        uuid.New(),
		CompanyID: companyID,
		IsActive:  true,
		Actions: []models.WorkflowAction{
			{Type: models.ActionEmail, Trigger: models.TriggerOnCheckin, Config: map[string]interface{}{"recipient": "host@example.com"}},
			{Type: models.ActionSMS, Trigger: models.TriggerOnCheckout},
		},
	}
	elsewhere := &models.Workflow{
		ID:          uuid.New(),
		CompanyID:   companyID,
		IsActive:    true,
		LocationIDs: []uuid.UUID{uuid.New()},
		Actions:     []models.WorkflowAction{{Type: models.ActionWebhook, Trigger: models.TriggerOnCheckin}},
	}

	workflows := &MockWorkflowRepository{}
	workflows.On("ListActiveForForm", ctx, companyID, models.DefaultFormKey).Return([]*models.Workflow{everywhere, elsewhere}, nil).Once()
	dispatcher := &MockActionDispatcher{}
	dispatcher.On("Dispatch", ctx, mock.MatchedBy(func(task ActionTask) bool {
		return task.WorkflowID == everywhere.ID && task.Action.Type == models.ActionEmail &&
			task.Visitor["check_in_time"] == "2024-02-01T09:00:00Z"
	})).Return(nil).Once()

	NewWorkflowTrigger(workflows, dispatcher, nil, zap.NewNop()).Fire(ctx, visitor, models.TriggerOnCheckin)

	workflows.AssertExpectations(t)
	dispatcher.AssertExpectations(t)
}

func TestWorkflowTrigger_FailuresDoNotPropagate(t *testing.T) {
	ctx := context.Background()
	companyID, locationID := uuid.New(), uuid.New()
	visitor := testVisitor(companyID, locationID)

	wf := &models.Workflow{
		ID:        uuid.New(),
		CompanyID: companyID,
		Actions: []models.WorkflowAction{
			{Type: models.ActionWebhook, Trigger: models.TriggerOnCheckout},
			{Type: models.ActionEmail, Trigger: models.TriggerOnCheckout},
		},
	}
	workflows := &MockWorkflowRepository{}
	workflows.On("ListActiveForForm", ctx, companyID, models.DefaultFormKey).Return([]*models.Workflow{wf}, nil).Once()
	dispatcher := &MockActionDispatcher{}
	dispatcher.On("Dispatch", ctx, mock.Anything).Return(errors.New("smtp down")).Twice()

	assert.NotPanics(t, func() {
		NewWorkflowTrigger(workflows, dispatcher, nil, zap.NewNop()).Fire(ctx, visitor, models.TriggerOnCheckout)
	})
	dispatcher.AssertExpectations(t)

	broken := &MockWorkflowRepository{}
	broken.On("ListActiveForForm", ctx, companyID, models.DefaultFormKey).Return(nil, errors.New("db gone")).Once()
	NewWorkflowTrigger(broken, dispatcher, nil, zap.NewNop()).Fire(ctx, visitor, models.TriggerOnCheckin)
	broken.AssertExpectations(t)
}

func TestActionExecutor_RoutesByType(t *testing.T) {
	ctx := context.Background()
	companyID := uuid.New()
	notifier := &MockNotificationService{}
	executor := NewActionExecutor(notifier, nil, zap.NewNop())
	visitor := map[string]interface{}{"id": "v1"}

	notifier.On("SendEmail", ctx, companyID, "host@example.com", "welcome", visitor).Return(nil).Once()
	notifier.On("SendSMS", ctx, companyID, "+15550100", "hi").Return(nil).Once()
	notifier.On("SendWebhook", ctx, companyID, "https://hooks.example.com", mock.MatchedBy(func(p map[string]interface{}) bool {
		return p["event"] == models.TriggerOnCheckin && p["visitor"] != nil
	})).Return(nil).Once()

	require.NoError(t, executor.Execute(ctx, ActionTask{CompanyID: companyID, Visitor: visitor,
		Action: models.WorkflowAction{Type: models.ActionEmail, Config: map[string]interface{}{"recipient": "host@example.com", "template": "welcome"}}}))
	require.NoError(t, executor.Execute(ctx, ActionTask{CompanyID: companyID, Visitor: visitor,
		Action: models.WorkflowAction{Type: models.ActionSMS, Config: map[string]interface{}{"phone": "+15550100", "message": "hi"}}}))
	require.NoError(t, executor.Dispatch(ctx, ActionTask{CompanyID: companyID, Visitor: visitor, Trigger: models.TriggerOnCheckin,
		Action: models.WorkflowAction{Type: models.ActionWebhook, Config: map[string]interface{}{"url": "https://hooks.example.com"}}}))

	err := executor.Execute(ctx, ActionTask{Action: models.WorkflowAction{Type: "fax"}})
	assert.Error(t, err)
	notifier.AssertExpectations(t)
}

func TestConfigString(t *testing.T) {
	assert.Equal(t, "", configString(nil, "url"))
	assert.Equal(t, "", configString(map[string]interface{}{"url": 5}, "url"))
	assert.Equal(t, "x", configString(map[string]interface{}{"url": "x"}, "url"))
}
