package conversation

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

// ConversationService repairs drift between a conversation's declared
// participants and what its messages and counters say.
type ConversationService interface {
	ListConversationIDs(ctx context.Context) ([]string, error)
	Reconcile(ctx context.Context, id string, dryRun bool) (*ReconcileResult, error)
	ClearDeletedFlag(ctx context.Context, id, userID string) (bool, error)
	RepairDeletedFlags(ctx context.Context, id string, dryRun bool) ([]string, error)
}

// ReconcileResult reports what reconciliation found for one conversation.
type ReconcileResult struct {
	ConversationID string   `json:"conversationId"`
	Before         []string `json:"before"`
	After          []string `json:"after"`
	Added          []string `json:"added"`
	Written        bool     `json:"written"`
}

type DefaultConversationService struct {
	Repo   repository.ConversationRepository
	Locker utils.Locker
	Retry  utils.RetryPolicy
}

func (s *DefaultConversationService) ListConversationIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := utils.Retry(ctx, s.Retry, "list conversations", func(ctx context.Context) error {
		var err error
		ids, err = s.Repo.ListIDs(ctx)
		return err
	})
	return ids, err
}

// maxCASAttempts bounds how often reconciliation is recomputed after another
// writer changed the participant list underneath it.
const maxCASAttempts = 3

// Reconcile adds every missing participant and writes only the
// participants field, conditional on the list it read. Running it again on
// the result is a no-op.
func (s *DefaultConversationService) Reconcile(ctx context.Context, id string, dryRun bool) (*ReconcileResult, error) {
	unlock, err := s.lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	for attempt := 1; attempt <= maxCASAttempts; attempt++ {
		conv, err := s.get(ctx, id)
		if err != nil {
			return nil, err
		}
		var msgs []models.Message
		err = utils.Retry(ctx, s.Retry, "list messages", func(ctx context.Context) error {
			var err error
			msgs, err = s.Repo.Messages(ctx, id)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("error reading messages of conversation %s: %w", id, err)
		}

		after, added := ReconcileParticipants(conv, msgs)
		res := &ReconcileResult{
			ConversationID: id,
			Before:         conv.Participants,
			After:          after,
			Added:          added,
		}
		if len(added) == 0 || dryRun {
			return res, nil
		}

		err = utils.Retry(ctx, s.Retry, "update participants", func(ctx context.Context) error {
			return s.Repo.Update(ctx, id,
				[]store.FieldUpdate{store.Set(models.FieldParticipants, after)},
				store.Eq(models.FieldParticipants, conv.Participants),
			)
		})
		if errors.Is(err, store.ErrPreconditionFailed) {
			utils.GetLogger().Info("participants changed underneath reconciliation, recomputing",
				zap.String("conversationId", id),
				zap.Int("attempt", attempt),
			)
			continue
		}
		if err != nil {
			return nil, utils.NotFoundIfMissing(err, "conversation", id)
		}
		res.Written = true
		observability.ParticipantsAdded.Add(float64(len(added)))
		utils.GetLogger().Info("conversation participants reconciled",
			zap.String("conversationId", id),
			zap.Strings("added", added),
		)
		return res, nil
	}
	return nil, fmt.Errorf("conversation %s kept changing during reconciliation: %w", id, store.ErrPreconditionFailed)
}

// ClearDeletedFlag sets deleted.<userID> back to false. It reports false
// without writing when the flag was not set.
func (s *DefaultConversationService) ClearDeletedFlag(ctx context.Context, id, userID string) (bool, error) {
	if userID == "" {
		return false, errors.New("user id is required")
	}
	unlock, err := s.lock(ctx, id)
	if err != nil {
		return false, err
	}
	defer unlock()

	conv, err := s.get(ctx, id)
	if err != nil {
		return false, err
	}
	if !conv.Deleted[userID] {
		return false, nil
	}
	if err := s.clearFlags(ctx, id, []string{userID}); err != nil {
		return false, err
	}
	return true, nil
}

// RepairDeletedFlags clears every stale deleted flag in one update.
func (s *DefaultConversationService) RepairDeletedFlags(ctx context.Context, id string, dryRun bool) ([]string, error) {
	unlock, err := s.lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	conv, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	stale := StaleDeletedFlags(conv)
	if len(stale) == 0 || dryRun {
		return stale, nil
	}
	if err := s.clearFlags(ctx, id, stale); err != nil {
		return nil, err
	}
	return stale, nil
}

// clearFlags touches only the deleted.<uid> fields so concurrent writers to
// the rest of the document are not clobbered.
func (s *DefaultConversationService) clearFlags(ctx context.Context, id string, userIDs []string) error {
	updates := make([]store.FieldUpdate, 0, len(userIDs))
	for _, uid := range userIDs {
		updates = append(updates, store.Set(models.FieldDeleted+"."+uid, false))
	}
	err := utils.Retry(ctx, s.Retry, "clear deleted flags", func(ctx context.Context) error {
		return s.Repo.Update(ctx, id, updates)
	})
	if err != nil {
		return utils.NotFoundIfMissing(err, "conversation", id)
	}
	observability.DeletedFlagsCleared.Add(float64(len(userIDs)))
	utils.GetLogger().Info("cleared deleted flags",
		zap.String("conversationId", id),
		zap.Strings("users", userIDs),
	)
	return nil
}

func (s *DefaultConversationService) get(ctx context.Context, id string) (*models.Conversation, error) {
	var conv *models.Conversation
	err := utils.Retry(ctx, s.Retry, "get conversation", func(ctx context.Context) error {
		var err error
		conv, err = s.Repo.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, utils.NotFoundIfMissing(err, "conversation", id)
	}
	return conv, nil
}

func (s *DefaultConversationService) lock(ctx context.Context, id string) (func(), error) {
	if s.Locker == nil {
		return func() {}, nil
	}
	return utils.LockAdvisory(ctx, s.Locker, "conversation:"+id)
}
