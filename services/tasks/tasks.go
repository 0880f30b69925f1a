package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"servicehub/models"
	"servicehub/utils"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const (
	TypeStatsRecompute        = "stats:recompute"
	TypeConversationReconcile = "conversation:reconcile"
)

type StatsRecomputePayload struct {
	ProviderID string `json:"providerId"`
}

type ConversationReconcilePayload struct {
	ConversationID string `json:"conversationId"`
}

// NewStatsRecomputeTask builds a task that recomputes one provider. A
// non-empty dedupeKey becomes part of the task ID, so the same event is
// enqueued at most once while its task is retained by the queue.
func NewStatsRecomputeTask(providerID, dedupeKey string) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(StatsRecomputePayload{ProviderID: providerID})
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeStatsRecompute, b)
	opts := []asynq.Option{
		asynq.ProcessIn(5 * time.Second),
		asynq.MaxRetry(5),
	}
	if dedupeKey != "" {
		opts = append(opts, asynq.TaskID("stats:"+providerID+":"+dedupeKey))
	}
	return task, opts, nil
}

func NewConversationReconcileTask(conversationID string) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(ConversationReconcilePayload{ConversationID: conversationID})
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeConversationReconcile, b)
	return task, []asynq.Option{asynq.MaxRetry(5)}, nil
}

// Enqueuer is the subset of *asynq.Client used here.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// StatsTrigger schedules a stats recomputation whenever a booking reaches
// a status that changes the provider's completed-job count.
type StatsTrigger struct {
	Client Enqueuer
}

// BookingTransitioned implements booking.Listener.
func (t *StatsTrigger) BookingTransitioned(ctx context.Context, b *models.Booking, from, to models.BookingStatus) error {
	if b.ProviderID == "" {
		return nil
	}
	// Both directions matter: entering completed adds a job, moving on to
	// payment_received takes it out of the completed count.
	if to != models.StatusCompleted && to != models.StatusPaymentReceived {
		return nil
	}
	return EnqueueStatsRecompute(ctx, t.Client, b.ProviderID, b.ID+":"+string(to))
}

// EnqueueStatsRecompute queues a recompute for providerID. Pass an empty
// dedupeKey to always enqueue.
func EnqueueStatsRecompute(ctx context.Context, c Enqueuer, providerID, dedupeKey string) error {
	task, opts, err := NewStatsRecomputeTask(providerID, dedupeKey)
	if err != nil {
		return err
	}
	info, err := c.EnqueueContext(ctx, task, opts...)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		// This booking transition was already enqueued.
		return nil
	}
	if err != nil {
		return fmt.Errorf("error enqueuing stats recompute for %s: %w", providerID, err)
	}
	utils.GetLogger().Debug("stats recompute enqueued", zap.String("providerId", providerID), zap.String("task", info.ID))
	return nil
}

func EnqueueConversationReconcile(ctx context.Context, c Enqueuer, conversationID string) error {
	task, opts, err := NewConversationReconcileTask(conversationID)
	if err != nil {
		return err
	}
	if _, err := c.EnqueueContext(ctx, task, opts...); err != nil {
		return fmt.Errorf("error enqueuing reconcile for %s: %w", conversationID, err)
	}
	return nil
}
