package booking

import (
	"testing"

	"servicehub/models"

	"github.com/stretchr/testify/assert"
)

func TestCanTransitionTable(t *testing.T) {
	allowed := map[[2]models.BookingStatus]bool{
		{models.StatusPending, models.StatusAccepted}:          true,
		{models.StatusAccepted, models.StatusTraveling}:        true,
		{models.StatusTraveling, models.StatusArrived}:         true,
		{models.StatusArrived, models.StatusInProgress}:        true,
		{models.StatusInProgress, models.StatusCompleted}:      true,
		{models.StatusCompleted, models.StatusPaymentReceived}: true,
	}
	for _, from := range []models.BookingStatus{
		models.StatusPending, models.StatusAccepted, models.StatusTraveling,
		models.StatusArrived, models.StatusInProgress,
	} {
		allowed[[2]models.BookingStatus{from, models.StatusCancelled}] = true
		allowed[[2]models.BookingStatus{from, models.StatusRejected}] = true
	}

	for _, from := range Statuses {
		for _, to := range Statuses {
			want := allowed[[2]models.BookingStatus{from, to}]
			assert.Equal(t, want, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestCanTransitionUnknownStatus(t *testing.T) {
	assert.False(t, CanTransition("archived", models.StatusAccepted))
	assert.False(t, CanTransition(models.StatusPending, "archived"))
}

func TestPhaseFields(t *testing.T) {
	f, ok := PhaseField(models.StatusInProgress)
	assert.True(t, ok)
	assert.Equal(t, models.FieldStartedAt, f)

	_, ok = PhaseField(models.StatusPending)
	assert.False(t, ok)

	for _, s := range Statuses {
		if s == models.StatusPending {
			continue
		}
		_, ok := PhaseField(s)
		assert.True(t, ok, string(s))
	}
}
