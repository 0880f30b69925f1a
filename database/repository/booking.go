// database/repository/booking.go
package repository

import (
	"context"
	"fmt"

	"servicehub/models"
	"servicehub/store"
)

// BookingRepository defines the interface for booking data access.
type BookingRepository interface {
	GetByID(ctx context.Context, id string) (*models.Booking, error)
	// Update writes all fields in one call. Preconditions make it a
	// compare-and-swap.
	Update(ctx context.Context, id string, updates []store.FieldUpdate, preconditions ...store.Predicate) error
	CountCompletedForProvider(ctx context.Context, providerID string) (int, error)
}

type storeBookingRepo struct {
	store store.Store
}

func (r *storeBookingRepo) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	doc, err := r.store.Get(ctx, store.Bookings, id)
	if err != nil {
		return nil, err
	}
	return models.DecodeBooking(*doc)
}

func (r *storeBookingRepo) Update(ctx context.Context, id string, updates []store.FieldUpdate, preconditions ...store.Predicate) error {
	return r.store.Update(ctx, store.Bookings, id, updates, preconditions...)
}

func (r *storeBookingRepo) CountCompletedForProvider(ctx context.Context, providerID string) (int, error) {
	docs, err := r.store.Query(ctx, store.Bookings,
		store.Eq(models.FieldProviderID, providerID),
		store.Eq(models.FieldStatus, string(models.StatusCompleted)),
	)
	if err != nil {
		return 0, fmt.Errorf("error counting completed bookings for provider %s: %w", providerID, err)
	}
	return len(docs), nil
}
