package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"servicehub/models"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockEnqueuer struct {
	mock.Mock
}

func (m *MockEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	args := m.Called(task.Type(), string(task.Payload()), taskID(opts))
	info, _ := args.Get(0).(*asynq.TaskInfo)
	return info, args.Error(1)
}

func taskID(opts []asynq.Option) string {
	for _, o := range opts {
		if o.Type() == asynq.TaskIDOpt {
			return o.Value().(string)
		}
	}
	return ""
}

func TestStatsTriggerEnqueuesOnCompletion(t *testing.T) {
	q := new(MockEnqueuer)
	q.On("EnqueueContext", TypeStatsRecompute, `{"providerId":"p1"}`, "stats:p1:b1:completed").Return(&asynq.TaskInfo{ID: "stats:p1:b1:completed"}, nil).Once()
	q.On("EnqueueContext", TypeStatsRecompute, `{"providerId":"p1"}`, "stats:p1:b1:payment_received").Return(&asynq.TaskInfo{ID: "stats:p1:b1:payment_received"}, nil).Once()
	trigger := &StatsTrigger{Client: q}
	b := &models.Booking{ID: "b1", ProviderID: "p1"}

	require.NoError(t, trigger.BookingTransitioned(context.Background(), b, models.StatusInProgress, models.StatusCompleted))
	require.NoError(t, trigger.BookingTransitioned(context.Background(), b, models.StatusCompleted, models.StatusPaymentReceived))
	require.NoError(t, trigger.BookingTransitioned(context.Background(), b, models.StatusPending, models.StatusAccepted))
	require.NoError(t, trigger.BookingTransitioned(context.Background(), &models.Booking{ID: "b2"}, models.StatusInProgress, models.StatusCompleted))

	q.AssertExpectations(t)
	q.AssertNumberOfCalls(t, "EnqueueContext", 2)
}

func TestEnqueueStatsRecomputeIgnoresDuplicates(t *testing.T) {
	q := new(MockEnqueuer)
	q.On("EnqueueContext", TypeStatsRecompute, mock.Anything, "stats:p1:b1:completed").Return(nil, asynq.ErrTaskIDConflict)
	assert.NoError(t, EnqueueStatsRecompute(context.Background(), q, "p1", "b1:completed"))

	q = new(MockEnqueuer)
	q.On("EnqueueContext", TypeStatsRecompute, mock.Anything, mock.Anything).Return(nil, errors.New("redis down"))
	assert.Error(t, EnqueueStatsRecompute(context.Background(), q, "p1", "b1:completed"))
}

func TestStatsTriggerDistinctBookingsAreNotDeduped(t *testing.T) {
	q := new(MockEnqueuer)
	q.On("EnqueueContext", TypeStatsRecompute, `{"providerId":"p1"}`, "stats:p1:b1:completed").Return(&asynq.TaskInfo{ID: "a"}, nil).Once()
	q.On("EnqueueContext", TypeStatsRecompute, `{"providerId":"p1"}`, "stats:p1:b2:completed").Return(&asynq.TaskInfo{ID: "b"}, nil).Once()
	trigger := &StatsTrigger{Client: q}

	for _, id := range []string{"b1", "b2"} {
		b := &models.Booking{ID: id, ProviderID: "p1"}
		require.NoError(t, trigger.BookingTransitioned(context.Background(), b, models.StatusInProgress, models.StatusCompleted))
	}
	q.AssertExpectations(t)
}

func TestManualStatsRecomputeHasNoTaskID(t *testing.T) {
	_, opts, err := NewStatsRecomputeTask("p1", "")
	require.NoError(t, err)
	assert.Empty(t, taskID(opts))

	q := new(MockEnqueuer)
	q.On("EnqueueContext", TypeStatsRecompute, `{"providerId":"p1"}`, "").Return(&asynq.TaskInfo{ID: "x"}, nil).Twice()
	require.NoError(t, EnqueueStatsRecompute(context.Background(), q, "p1", ""))
	require.NoError(t, EnqueueStatsRecompute(context.Background(), q, "p1", ""))
	q.AssertExpectations(t)
}

func TestNewConversationReconcileTask(t *testing.T) {
	task, opts, err := NewConversationReconcileTask("c1")
	require.NoError(t, err)
	assert.Equal(t, TypeConversationReconcile, task.Type())
	assert.NotEmpty(t, opts)

	var p ConversationReconcilePayload
	require.NoError(t, json.Unmarshal(task.Payload(), &p))
	assert.Equal(t, "c1", p.ConversationID)
}
