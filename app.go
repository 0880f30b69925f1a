package main

import (
	"context"

	"servicehub/config"
	workerpkg "servicehub/cron"
	"servicehub/database"
	"servicehub/database/repository"
	"servicehub/services/batch"
	"servicehub/services/booking"
	"servicehub/services/conversation"
	"servicehub/services/notification"
	"servicehub/services/stats"
	"servicehub/services/tasks"
	"servicehub/store"
	"servicehub/utils"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// app holds the wired services for one process.
type app struct {
	store         store.Store
	repos         *repository.Repositories
	bookings      *booking.DefaultBookingService
	conversations *conversation.DefaultConversationService
	stats         *stats.DefaultStatsService
	jobs          *batch.Jobs
	queue         *asynq.Client
}

func newApp(ctx context.Context) (*app, error) {
	logger := utils.GetLogger()

	s, err := database.OpenStore(ctx)
	if err != nil {
		return nil, err
	}
	repos := repository.New(s)

	retry := utils.RetryPolicy{
		Attempts:  config.AppConfig.RetryAttempts,
		BaseDelay: config.AppConfig.RetryBaseDelay,
	}

	var locker utils.Locker = utils.NoopLocker{}
	var queue *asynq.Client
	if err := utils.InitLockCache(); err != nil {
		logger.Warn("redis unavailable, running without record locks or task queue", zap.Error(err))
	} else {
		locker = &utils.RedisLocker{Client: utils.LockClient, TTL: config.AppConfig.LockTTL}
		queue = asynq.NewClient(workerpkg.RedisOpt())
	}

	var listeners booking.Listeners
	if queue != nil {
		listeners = append(listeners, &tasks.StatsTrigger{Client: queue})
	}
	if config.AppConfig.NotifyStatusChanges {
		fcm, err := utils.MessagingClient(ctx)
		if err != nil {
			logger.Warn("push notifications disabled", zap.Error(err))
		} else if n, err := notification.NewStatusNotifier(repos.Users, fcm); err == nil {
			listeners = append(listeners, n)
		}
	}

	a := &app{
		store: s,
		repos: repos,
		bookings: &booking.DefaultBookingService{
			Repo:      repos.Bookings,
			Locker:    locker,
			Retry:     retry,
			Listeners: listeners,
		},
		conversations: &conversation.DefaultConversationService{
			Repo:   repos.Conversations,
			Locker: locker,
			Retry:  retry,
		},
		stats: &stats.DefaultStatsService{
			Users:    repos.Users,
			Bookings: repos.Bookings,
			Reviews:  repos.Reviews,
			Retry:    retry,
		},
		queue: queue,
	}
	a.jobs = &batch.Jobs{
		Runner:        batch.NewRunner(config.AppConfig.BatchConcurrency, config.AppConfig.BatchRatePerSec),
		Conversations: a.conversations,
		Stats:         a.stats,
	}
	return a, nil
}

func (a *app) Close(ctx context.Context) {
	if a.queue != nil {
		_ = a.queue.Close()
	}
	if err := a.store.Close(ctx); err != nil {
		utils.GetLogger().Warn("error closing store", zap.Error(err))
	}
}
