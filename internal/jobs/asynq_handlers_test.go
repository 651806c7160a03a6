package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/geoyang/Visitor/internal/models"
	"github.com/geoyang/Visitor/internal/services"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockEnqueuer struct {
	mock.Mock
}

func (m *MockEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	args := m.Called(ctx, task, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*asynq.TaskInfo), args.Error(1)
}

type MockExecutor struct {
	mock.Mock
}

func (m *MockExecutor) Dispatch(ctx context.Context, task services.ActionTask) error {
	return m.Called(ctx, task).Error(0)
}

func (m *MockExecutor) Execute(ctx context.Context, task services.ActionTask) error {
	return m.Called(ctx, task).Error(0)
}

func sampleTask() services.ActionTask {
	return services.ActionTask{
		WorkflowID: uuid.New(),
		CompanyID:  uuid.New(),
		Trigger:    models.TriggerOnCheckin,
		Action:     models.WorkflowAction{Type: models.ActionWebhook, Trigger: models.TriggerOnCheckin, Config: map[string]interface{}{"url": "https://hooks.example.com"}},
		Visitor:    map[string]interface{}{"id": "v-1"},
	}
}

func TestNewWorkflowActionTask(t *testing.T) {
	task := sampleTask()
	at, err := NewWorkflowActionTask(task)
	require.NoError(t, err)
	assert.Equal(t, TypeWorkflowAction, at.Type())

	var decoded services.ActionTask
	require.NoError(t, json.Unmarshal(at.Payload(), &decoded))
	assert.Equal(t, task.WorkflowID, decoded.WorkflowID)
	assert.Equal(t, "https://hooks.example.com", decoded.Action.Config["url"])
}

func TestQueueDispatcher_Enqueues(t *testing.T) {
	ctx := context.Background()
	client := &MockEnqueuer{}
	client.On("EnqueueContext", ctx, mock.MatchedBy(func(at *asynq.Task) bool {
		return at.Type() == TypeWorkflowAction
	}), mock.Anything).Return(&asynq.TaskInfo{ID: "task-1"}, nil).Once()

	d := NewQueueDispatcher(client, "", zap.NewNop())
	require.NoError(t, d.Dispatch(ctx, sampleTask()))
	client.AssertExpectations(t)
}

func TestQueueDispatcher_EnqueueFailure(t *testing.T) {
	ctx := context.Background()
	client := &MockEnqueuer{}
	client.On("EnqueueContext", ctx, mock.Anything, mock.Anything).Return(nil, errors.New("redis down")).Once()

	err := NewQueueDispatcher(client, "workflows", zap.NewNop()).Dispatch(ctx, sampleTask())
	assert.ErrorContains(t, err, "enqueue")
}

func TestWorkflowActionHandler_ExecutesPayload(t *testing.T) {
	ctx := context.Background()
	task := sampleTask()
	executor := &MockExecutor{}
	executor.On("Execute", ctx, mock.MatchedBy(func(got services.ActionTask) bool {
		return got.WorkflowID == task.WorkflowID && got.Action.Type == models.ActionWebhook
	})).Return(nil).Once()

	at, err := NewWorkflowActionTask(task)
	require.NoError(t, err)
	require.NoError(t, NewWorkflowActionHandler(executor, zap.NewNop()).ProcessTask(ctx, at))
	executor.AssertExpectations(t)
}

func TestWorkflowActionHandler_BadPayloadSkipsRetry(t *testing.T) {
	executor := &MockExecutor{}
	err := NewWorkflowActionHandler(executor, zap.NewNop()).ProcessTask(context.Background(), asynq.NewTask(TypeWorkflowAction, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
	executor.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
}

func TestWorkflowActionHandler_PropagatesFailure(t *testing.T) {
	ctx := context.Background()
	executor := &MockExecutor{}
	executor.On("Execute", ctx, mock.Anything).Return(errors.New("timeout")).Once()

	at, _ := NewWorkflowActionTask(sampleTask())
	assert.Error(t, NewWorkflowActionHandler(executor, zap.NewNop()).ProcessTask(ctx, at))
}

func TestNewServeMux_RoutesWorkflowTasks(t *testing.T) {
	ctx := context.Background()
	executor := &MockExecutor{}
	executor.On("Execute", ctx, mock.Anything).Return(nil).Once()

	mux := NewServeMux(NewWorkflowActionHandler(executor, zap.NewNop()))
	at, _ := NewWorkflowActionTask(sampleTask())
	require.NoError(t, mux.ProcessTask(ctx, at))
	executor.AssertExpectations(t)
}
