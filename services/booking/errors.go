package booking

import (
	"fmt"

	"servicehub/models"
)

// InvalidTransitionError is returned when the target status cannot be
// reached from the booking's current status. It is never coerced.
type InvalidTransitionError struct {
	Code      string
	BookingID string
	From      models.BookingStatus
	To        models.BookingStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("%s: booking %s cannot move from %q to %q", e.Code, e.BookingID, e.From, e.To)
}

func NewInvalidTransitionError(bookingID string, from, to models.BookingStatus) error {
	return &InvalidTransitionError{
		Code:      "invalidTransition",
		BookingID: bookingID,
		From:      from,
		To:        to,
	}
}
