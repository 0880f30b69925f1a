package booking

import "servicehub/models"

// forward is the happy path; each status may only advance to the next one.
var forward = map[models.BookingStatus]models.BookingStatus{
	models.StatusPending:    models.StatusAccepted,
	models.StatusAccepted:   models.StatusTraveling,
	models.StatusTraveling:  models.StatusArrived,
	models.StatusArrived:    models.StatusInProgress,
	models.StatusInProgress: models.StatusCompleted,
	// Payment collected after the job rather than before.
	models.StatusCompleted: models.StatusPaymentReceived,
}

// phaseFields maps each target status to the timestamp it stamps.
var phaseFields = map[models.BookingStatus]string{
	models.StatusAccepted:        models.FieldAcceptedAt,
	models.StatusTraveling:       models.FieldTravelingAt,
	models.StatusArrived:         models.FieldArrivedAt,
	models.StatusInProgress:      models.FieldStartedAt,
	models.StatusCompleted:       models.FieldCompletedAt,
	models.StatusCancelled:       models.FieldCancelledAt,
	models.StatusRejected:        models.FieldRejectedAt,
	models.StatusPaymentReceived: models.FieldPaymentReceivedAt,
}

// resetFields are erased by Reset so presence checks read "not reached".
var resetFields = []string{
	models.FieldAcceptedAt,
	models.FieldTravelingAt,
	models.FieldArrivedAt,
	models.FieldStartedAt,
}

// Statuses lists every known status in lifecycle order.
var Statuses = []models.BookingStatus{
	models.StatusPending,
	models.StatusAccepted,
	models.StatusTraveling,
	models.StatusArrived,
	models.StatusInProgress,
	models.StatusCompleted,
	models.StatusCancelled,
	models.StatusRejected,
	models.StatusPaymentReceived,
}

func IsKnownStatus(s models.BookingStatus) bool {
	_, ok := phaseFields[s]
	return ok || s == models.StatusPending
}

// IsTerminal reports whether cancellation and rejection are no longer possible.
func IsTerminal(s models.BookingStatus) bool {
	switch s {
	case models.StatusCompleted, models.StatusCancelled, models.StatusRejected, models.StatusPaymentReceived:
		return true
	}
	return false
}

// CanTransition reports whether to is reachable from from in one step.
func CanTransition(from, to models.BookingStatus) bool {
	if !IsKnownStatus(from) {
		return false
	}
	if to == models.StatusCancelled || to == models.StatusRejected {
		return !IsTerminal(from)
	}
	next, ok := forward[from]
	return ok && next == to
}

// PhaseField returns the timestamp field stamped when entering s.
func PhaseField(s models.BookingStatus) (string, bool) {
	f, ok := phaseFields[s]
	return f, ok
}
