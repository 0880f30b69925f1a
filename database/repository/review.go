package repository

import (
	"context"

	"servicehub/models"
	"servicehub/store"
)

type ReviewRepository interface {
	ListByProvider(ctx context.Context, providerID string) ([]models.Review, error)
}

type storeReviewRepo struct {
	store store.Store
}

func (r *storeReviewRepo) ListByProvider(ctx context.Context, providerID string) ([]models.Review, error) {
	docs, err := r.store.Query(ctx, store.Reviews, store.Eq(models.FieldProviderID, providerID))
	if err != nil {
		return nil, err
	}
	return models.DecodeReviews(docs)
}
