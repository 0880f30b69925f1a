package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"servicehub/database/repository"
	"servicehub/models"
	"servicehub/store"
	"servicehub/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)

type MockListener struct {
	mock.Mock
}

func (m *MockListener) BookingTransitioned(ctx context.Context, b *models.Booking, from, to models.BookingStatus) error {
	args := m.Called(ctx, b, from, to)
	return args.Error(0)
}

func newTestService(t *testing.T, data map[string]any) (*DefaultBookingService, *store.MemoryStore) {
	t.Helper()
	mem := store.NewMemoryStore()
	mem.Now = func() time.Time { return testNow }
	if data != nil {
		mem.Put(store.Bookings, "b1", data)
	}
	return &DefaultBookingService{
		Repo:  repository.New(mem).Bookings,
		Retry: utils.RetryPolicy{Attempts: 2, BaseDelay: time.Millisecond},
	}, mem
}

func getDoc(t *testing.T, mem *store.MemoryStore) *store.Document {
	t.Helper()
	doc, err := mem.Get(context.Background(), store.Bookings, "b1")
	require.NoError(t, err)
	return doc
}

func TestTransitionStampsPhaseField(t *testing.T) {
	svc, mem := newTestService(t, map[string]any{"status": "accepted", "providerId": "p1"})
	listener := new(MockListener)
	listener.On("BookingTransitioned", mock.Anything, mock.Anything, models.StatusAccepted, models.StatusTraveling).Return(nil)
	svc.Listeners = listener

	res, err := svc.Transition(context.Background(), "b1", models.StatusTraveling)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, res.From)
	assert.Equal(t, models.FieldTravelingAt, res.PhaseField)

	doc := getDoc(t, mem)
	assert.Equal(t, "traveling", doc.Data["status"])
	assert.Equal(t, testNow, doc.Data["travelingAt"])
	assert.Equal(t, testNow, doc.Data["updatedAt"])
	assert.False(t, doc.Has("arrivedAt"))
	assert.False(t, doc.Has("acceptedAt"))
	listener.AssertExpectations(t)
}

func TestTransitionRejectsInvalidMove(t *testing.T) {
	svc, mem := newTestService(t, map[string]any{"status": "completed"})

	_, err := svc.Transition(context.Background(), "b1", models.StatusCancelled)
	var invalid *InvalidTransitionError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, models.StatusCompleted, invalid.From)
	assert.Equal(t, 0, mem.Writes())
	assert.Equal(t, "completed", getDoc(t, mem).Data["status"])
}

func TestTransitionRejectsPendingTarget(t *testing.T) {
	svc, mem := newTestService(t, map[string]any{"status": "accepted"})

	_, err := svc.Transition(context.Background(), "b1", models.StatusPending)
	var invalid *InvalidTransitionError
	assert.True(t, errors.As(err, &invalid))
	assert.Equal(t, 0, mem.Writes())
}

func TestTransitionMissingBooking(t *testing.T) {
	svc, _ := newTestService(t, nil)

	_, err := svc.Transition(context.Background(), "b1", models.StatusAccepted)
	var nf *utils.NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "booking", nf.Kind)
}

// racingRepo changes the booking underneath the first conditional write.
type racingRepo struct {
	repository.BookingRepository
	mem   *store.MemoryStore
	raced bool
}

func (r *racingRepo) Update(ctx context.Context, id string, updates []store.FieldUpdate, preconditions ...store.Predicate) error {
	if !r.raced {
		r.raced = true
		if err := r.mem.Update(ctx, store.Bookings, id, []store.FieldUpdate{store.Set("status", "cancelled")}); err != nil {
			return err
		}
	}
	return r.BookingRepository.Update(ctx, id, updates, preconditions...)
}

func TestTransitionRevalidatesAfterConcurrentChange(t *testing.T) {
	svc, mem := newTestService(t, map[string]any{"status": "pending"})
	svc.Repo = &racingRepo{BookingRepository: svc.Repo, mem: mem}

	_, err := svc.Transition(context.Background(), "b1", models.StatusAccepted)
	var invalid *InvalidTransitionError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, models.StatusCancelled, invalid.From)

	doc := getDoc(t, mem)
	assert.Equal(t, "cancelled", doc.Data["status"])
	assert.False(t, doc.Has("acceptedAt"))
}

func TestTransitionListenerFailureKeepsWrite(t *testing.T) {
	svc, mem := newTestService(t, map[string]any{"status": "in_progress"})
	listener := new(MockListener)
	listener.On("BookingTransitioned", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("queue down"))
	svc.Listeners = Listeners{listener}

	_, err := svc.Transition(context.Background(), "b1", models.StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, "completed", getDoc(t, mem).Data["status"])
}

func TestTransitionRetriesTransientWrite(t *testing.T) {
	svc, mem := newTestService(t, map[string]any{"status": "pending"})
	failures := 1
	mem.Fail = func(op, collection, id string) error {
		if op == "update" && failures > 0 {
			failures--
			return &store.TransientStoreError{Op: op, Err: errors.New("unavailable")}
		}
		return nil
	}

	_, err := svc.Transition(context.Background(), "b1", models.StatusAccepted)
	require.NoError(t, err)
	assert.Equal(t, "accepted", getDoc(t, mem).Data["status"])
}

func TestResetClearsPhaseFields(t *testing.T) {
	svc, mem := newTestService(t, map[string]any{
		"status":        "arrived",
		"adminApproved": false,
		"acceptedAt":    testNow.Add(-3 * time.Hour),
		"travelingAt":   testNow.Add(-2 * time.Hour),
		"arrivedAt":     testNow.Add(-time.Hour),
		"createdAt":     testNow.Add(-24 * time.Hour),
	})

	require.NoError(t, svc.Reset(context.Background(), "b1"))

	doc := getDoc(t, mem)
	assert.Equal(t, "pending", doc.Data["status"])
	assert.Equal(t, true, doc.Data["adminApproved"])
	assert.Equal(t, testNow, doc.Data["updatedAt"])
	for _, f := range []string{"acceptedAt", "travelingAt", "arrivedAt", "startedAt"} {
		assert.False(t, doc.Has(f), f)
	}
	assert.True(t, doc.Has("createdAt"))
	assert.Equal(t, 1, mem.Writes())
}

func TestResetFromAnyStatus(t *testing.T) {
	svc, mem := newTestService(t, map[string]any{"status": "cancelled"})
	require.NoError(t, svc.Reset(context.Background(), "b1"))
	assert.Equal(t, "pending", getDoc(t, mem).Data["status"])

	b, err := svc.GetBooking(context.Background(), "b1")
	require.NoError(t, err)
	_, err = svc.Transition(context.Background(), b.ID, models.StatusAccepted)
	assert.NoError(t, err)
}

func TestResetMissingBooking(t *testing.T) {
	svc, _ := newTestService(t, nil)
	var nf *utils.NotFoundError
	assert.True(t, errors.As(svc.Reset(context.Background(), "b1"), &nf))
}

// lostAckRepo applies the first write but reports it as a transient failure.
type lostAckRepo struct {
	repository.BookingRepository
	dropped bool
}

func (r *lostAckRepo) Update(ctx context.Context, id string, updates []store.FieldUpdate, preconditions ...store.Predicate) error {
	err := r.BookingRepository.Update(ctx, id, updates, preconditions...)
	if err == nil && !r.dropped {
		r.dropped = true
		return &store.TransientStoreError{Op: "update", Err: errors.New("context deadline exceeded")}
	}
	return err
}

func TestTransitionAppliedDespiteLostAcknowledgement(t *testing.T) {
	svc, mem := newTestService(t, map[string]any{"status": "in_progress", "providerId": "p1"})
	svc.Repo = &lostAckRepo{BookingRepository: svc.Repo}
	listener := new(MockListener)
	listener.On("BookingTransitioned", mock.Anything, mock.Anything, models.StatusInProgress, models.StatusCompleted).Return(nil).Once()
	svc.Listeners = listener

	res, err := svc.Transition(context.Background(), "b1", models.StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, res.From)
	assert.Equal(t, models.StatusCompleted, res.To)

	doc := getDoc(t, mem)
	assert.Equal(t, "completed", doc.Data["status"])
	assert.Equal(t, testNow, doc.Data["completedAt"])
	assert.Equal(t, 1, mem.Writes())
	listener.AssertExpectations(t)
}

func TestTransitionSameTargetByOtherWriterIsRejected(t *testing.T) {
	svc, mem := newTestService(t, map[string]any{"status": "pending"})
	svc.Repo = &racingToTargetRepo{BookingRepository: svc.Repo, mem: mem}

	_, err := svc.Transition(context.Background(), "b1", models.StatusAccepted)
	var invalid *InvalidTransitionError
	assert.True(t, errors.As(err, &invalid), "no write of ours was in doubt")
}

// racingToTargetRepo lets another writer apply the same transition first.
type racingToTargetRepo struct {
	repository.BookingRepository
	mem   *store.MemoryStore
	raced bool
}

func (r *racingToTargetRepo) Update(ctx context.Context, id string, updates []store.FieldUpdate, preconditions ...store.Predicate) error {
	if !r.raced {
		r.raced = true
		err := r.mem.Update(ctx, store.Bookings, id, []store.FieldUpdate{
			store.Set("status", "accepted"),
			store.Set("acceptedAt", store.ServerTimestamp),
		})
		if err != nil {
			return err
		}
	}
	return r.BookingRepository.Update(ctx, id, updates, preconditions...)
}
