package cron

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"servicehub/config"
	"servicehub/services/conversation"
	"servicehub/services/stats"
	"servicehub/services/tasks"
	"servicehub/utils"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// RedisOpt returns the asynq connection for the maintenance queue.
func RedisOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	}
}

// NewMux routes maintenance tasks to their services.
func NewMux(convSvc conversation.ConversationService, statsSvc stats.StatsService) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeStatsRecompute, handleStatsRecompute(statsSvc))
	mux.HandleFunc(tasks.TypeConversationReconcile, handleConversationReconcile(convSvc))
	return mux
}

// NewWorker builds the asynq server. Concurrency follows the batch setting
// so queued work and batch runs put a similar load on the store.
func NewWorker() *asynq.Server {
	concurrency := config.AppConfig.BatchConcurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return asynq.NewServer(
		RedisOpt(),
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				"default": 1,
			},
			Logger: utils.GetLogger().Sugar(),
		},
	)
}

func handleStatsRecompute(svc stats.StatsService) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p tasks.StatsRecomputePayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			return fmt.Errorf("invalid payload: %v: %w", err, asynq.SkipRetry)
		}
		sum, err := svc.Recompute(ctx, p.ProviderID)
		if err != nil {
			return skipIfPermanent(err)
		}
		utils.GetLogger().Info("stats recomputed from queue",
			zap.String("providerId", p.ProviderID),
			zap.Int("completedJobs", sum.CompletedJobs),
			zap.Float64("rating", sum.Rating),
		)
		return nil
	}
}

func handleConversationReconcile(svc conversation.ConversationService) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p tasks.ConversationReconcilePayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			return fmt.Errorf("invalid payload: %v: %w", err, asynq.SkipRetry)
		}
		res, err := svc.Reconcile(ctx, p.ConversationID, false)
		if err != nil {
			return skipIfPermanent(err)
		}
		if _, err := svc.RepairDeletedFlags(ctx, p.ConversationID, false); err != nil {
			return skipIfPermanent(err)
		}
		utils.GetLogger().Info("conversation reconciled from queue",
			zap.String("conversationId", p.ConversationID),
			zap.Strings("added", res.Added),
		)
		return nil
	}
}

// skipIfPermanent stops asynq from retrying errors that cannot succeed later.
func skipIfPermanent(err error) error {
	var nf *utils.NotFoundError
	if errors.As(err, &nf) {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	return err
}
