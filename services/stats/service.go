package stats

import (
	"context"
	"fmt"

	"servicehub/database/repository"
	"servicehub/models"
	"servicehub/observability"
	"servicehub/store"
	"servicehub/utils"

	"go.uber.org/zap"
)

// StatsService recomputes provider reputation fields.
type StatsService interface {
	ListProviderIDs(ctx context.Context) ([]string, error)
	Recompute(ctx context.Context, providerID string) (*Summary, error)
}

type DefaultStatsService struct {
	Users    repository.UserRepository
	Bookings repository.BookingRepository
	Reviews  repository.ReviewRepository
	Retry    utils.RetryPolicy
}

func (s *DefaultStatsService) ListProviderIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := utils.Retry(ctx, s.Retry, "list providers", func(ctx context.Context) error {
		var err error
		ids, err = s.Users.ListProviderIDs(ctx)
		return err
	})
	return ids, err
}

// Recompute rebuilds the provider's reputation from bookings and reviews and
// overwrites every alias field in one update. It never applies deltas, so
// repeated or concurrent runs converge.
func (s *DefaultStatsService) Recompute(ctx context.Context, providerID string) (*Summary, error) {
	err := utils.Retry(ctx, s.Retry, "get provider", func(ctx context.Context) error {
		_, err := s.Users.GetByID(ctx, providerID)
		return err
	})
	if err != nil {
		return nil, utils.NotFoundIfMissing(err, "provider", providerID)
	}

	var completed int
	err = utils.Retry(ctx, s.Retry, "count completed bookings", func(ctx context.Context) error {
		var err error
		completed, err = s.Bookings.CountCompletedForProvider(ctx, providerID)
		return err
	})
	if err != nil {
		return nil, err
	}

	var reviews []models.Review
	err = utils.Retry(ctx, s.Retry, "list reviews", func(ctx context.Context) error {
		var err error
		reviews, err = s.Reviews.ListByProvider(ctx, providerID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("error reading reviews for provider %s: %w", providerID, err)
	}

	summary := Summarize(providerID, completed, reviews)
	err = utils.Retry(ctx, s.Retry, "update provider stats", func(ctx context.Context) error {
		return s.Users.Update(ctx, providerID, summaryUpdates(summary))
	})
	if err != nil {
		return nil, utils.NotFoundIfMissing(err, "provider", providerID)
	}

	observability.StatsRecomputed.Inc()
	utils.GetLogger().Debug("provider stats recomputed",
		zap.String("providerId", providerID),
		zap.Int("completedJobs", summary.CompletedJobs),
		zap.Int("reviewCount", summary.ReviewCount),
		zap.Float64("rating", summary.Rating),
	)
	return &summary, nil
}

func summaryUpdates(sum Summary) []store.FieldUpdate {
	return []store.FieldUpdate{
		store.Set(models.FieldCompletedJobs, sum.CompletedJobs),
		store.Set(models.FieldJobsCompleted, sum.CompletedJobs),
		store.Set(models.FieldReviewCount, sum.ReviewCount),
		store.Set(models.FieldTotalReviews, sum.ReviewCount),
		store.Set(models.FieldRating, sum.Rating),
		store.Set(models.FieldAverageRating, sum.Rating),
		store.Set(models.FieldUpdatedAt, store.ServerTimestamp),
	}
}
