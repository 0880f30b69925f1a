package booking

import (
	"context"

	"servicehub/models"
	"servicehub/utils"

	"go.uber.org/zap"
)

// Listener is told about every applied transition. Listeners run after the
// write and their failures never undo it.
type Listener interface {
	BookingTransitioned(ctx context.Context, b *models.Booking, from, to models.BookingStatus) error
}

// Listeners fans an event out to every listener, logging failures.
type Listeners []Listener

func (ls Listeners) BookingTransitioned(ctx context.Context, b *models.Booking, from, to models.BookingStatus) error {
	for _, l := range ls {
		if err := l.BookingTransitioned(ctx, b, from, to); err != nil {
			utils.GetLogger().Warn("booking listener failed",
				zap.String("bookingId", b.ID),
				zap.String("to", string(to)),
				zap.Error(err),
			)
		}
	}
	return nil
}
