package booking

import (
	"context"
	"errors"
	"fmt"

	"servicehub/database/repository"
	"servicehub/models"
	"servicehub/observability"
	"servicehub/store"
	"servicehub/utils"

	"go.uber.org/zap"
)

// maxCASAttempts bounds how often a transition is re-validated after losing
// a race with another writer.
const maxCASAttempts = 3

// BookingService drives the booking lifecycle.
type BookingService interface {
	GetBooking(ctx context.Context, id string) (*models.Booking, error)
	Transition(ctx context.Context, id string, target models.BookingStatus) (*TransitionResult, error)
	// Reset puts a booking back to pending. Operator tooling only.
	Reset(ctx context.Context, id string) error
}

// TransitionResult describes an applied transition.
type TransitionResult struct {
	BookingID  string               `json:"bookingId"`
	From       models.BookingStatus `json:"from"`
	To         models.BookingStatus `json:"to"`
	PhaseField string               `json:"phaseField"`
}

type DefaultBookingService struct {
	Repo      repository.BookingRepository
	Locker    utils.Locker
	Retry     utils.RetryPolicy
	Listeners Listener
}

func (s *DefaultBookingService) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	var b *models.Booking
	err := utils.Retry(ctx, s.Retry, "get booking", func(ctx context.Context) error {
		var err error
		b, err = s.Repo.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, utils.NotFoundIfMissing(err, "booking", id)
	}
	return b, nil
}

// Transition moves a booking one step along the lifecycle. The write is
// conditional on the status read, so a transition that another writer has
// already invalidated is re-validated instead of applied.
func (s *DefaultBookingService) Transition(ctx context.Context, id string, target models.BookingStatus) (*TransitionResult, error) {
	if !IsKnownStatus(target) || target == models.StatusPending {
		observability.TransitionRejections.WithLabelValues("unknown_target").Inc()
		return nil, NewInvalidTransitionError(id, "", target)
	}

	unlock, err := s.lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	field, _ := PhaseField(target)
	// uncertain is set once a write attempt failed in a way that may still
	// have been applied.
	var uncertain bool
	var from models.BookingStatus
	for attempt := 1; attempt <= maxCASAttempts; attempt++ {
		b, err := s.GetBooking(ctx, id)
		if err != nil {
			return nil, err
		}
		if uncertain && b.Status == target && b.HasTimestamp(field) {
			utils.GetLogger().Info("transition write was applied before its acknowledgement was lost",
				zap.String("bookingId", id),
				zap.String("status", string(target)),
			)
			return s.applied(ctx, b, from, target, field), nil
		}
		from = b.Status
		if !CanTransition(from, target) {
			observability.TransitionRejections.WithLabelValues("invalid").Inc()
			return nil, NewInvalidTransitionError(id, from, target)
		}

		updates := []store.FieldUpdate{
			store.Set(models.FieldStatus, string(target)),
			store.Set(field, store.ServerTimestamp),
			store.Set(models.FieldUpdatedAt, store.ServerTimestamp),
		}
		uncertain = false
		err = utils.Retry(ctx, s.Retry, "transition booking", func(ctx context.Context) error {
			err := s.Repo.Update(ctx, id, updates, store.Eq(models.FieldStatus, string(from)))
			if store.IsTransient(err) {
				uncertain = true
			}
			return err
		})
		if errors.Is(err, store.ErrPreconditionFailed) {
			utils.GetLogger().Info("booking changed underneath transition, re-validating",
				zap.String("bookingId", id),
				zap.String("expected", string(from)),
				zap.Int("attempt", attempt),
			)
			continue
		}
		if err != nil {
			return nil, utils.NotFoundIfMissing(err, "booking", id)
		}
		return s.applied(ctx, b, from, target, field), nil
	}
	observability.TransitionRejections.WithLabelValues("contention").Inc()
	return nil, fmt.Errorf("booking %s kept changing during transition to %q: %w", id, target, store.ErrPreconditionFailed)
}

func (s *DefaultBookingService) applied(ctx context.Context, b *models.Booking, from, target models.BookingStatus, field string) *TransitionResult {
	observability.TransitionsTotal.WithLabelValues(string(from), string(target)).Inc()
	b.Status = target
	if s.Listeners != nil {
		_ = s.Listeners.BookingTransitioned(ctx, b, from, target)
	}
	return &TransitionResult{BookingID: b.ID, From: from, To: target, PhaseField: field}
}

// Reset sets status back to pending, approves the booking and deletes the
// phase timestamps. It skips status validation.
func (s *DefaultBookingService) Reset(ctx context.Context, id string) error {
	unlock, err := s.lock(ctx, id)
	if err != nil {
		return err
	}
	defer unlock()

	updates := []store.FieldUpdate{
		store.Set(models.FieldStatus, string(models.StatusPending)),
		store.Set(models.FieldAdminApproved, true),
		store.Set(models.FieldUpdatedAt, store.ServerTimestamp),
	}
	for _, f := range resetFields {
		// Delete rather than null: readers test for presence.
		updates = append(updates, store.Set(f, store.Delete))
	}

	err = utils.Retry(ctx, s.Retry, "reset booking", func(ctx context.Context) error {
		return s.Repo.Update(ctx, id, updates)
	})
	if err != nil {
		return utils.NotFoundIfMissing(err, "booking", id)
	}
	observability.BookingResets.Inc()
	utils.GetLogger().Info("booking reset to pending", zap.String("bookingId", id))
	return nil
}

func (s *DefaultBookingService) lock(ctx context.Context, id string) (func(), error) {
	if s.Locker == nil {
		return func() {}, nil
	}
	return utils.LockAdvisory(ctx, s.Locker, "booking:"+id)
}
