package repository

import (
	"context"

	"servicehub/models"
	"servicehub/store"
)

// ConversationRepository reads threads with their messages and writes
// targeted field updates.
type ConversationRepository interface {
	GetByID(ctx context.Context, id string) (*models.Conversation, error)
	ListIDs(ctx context.Context) ([]string, error)
	Messages(ctx context.Context, id string) ([]models.Message, error)
	// Update writes all fields in one call. Preconditions make it a
	// compare-and-swap.
	Update(ctx context.Context, id string, updates []store.FieldUpdate, preconditions ...store.Predicate) error
}

type storeConversationRepo struct {
	store store.Store
}

func (r *storeConversationRepo) GetByID(ctx context.Context, id string) (*models.Conversation, error) {
	doc, err := r.store.Get(ctx, store.Conversations, id)
	if err != nil {
		return nil, err
	}
	return models.DecodeConversation(*doc)
}

func (r *storeConversationRepo) ListIDs(ctx context.Context) ([]string, error) {
	docs, err := r.store.List(ctx, store.Conversations)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	return ids, nil
}

func (r *storeConversationRepo) Messages(ctx context.Context, id string) ([]models.Message, error) {
	docs, err := r.store.ListSubcollection(ctx, store.Conversations, id, store.Messages)
	if err != nil {
		return nil, err
	}
	return models.DecodeMessages(docs)
}

func (r *storeConversationRepo) Update(ctx context.Context, id string, updates []store.FieldUpdate, preconditions ...store.Predicate) error {
	return r.store.Update(ctx, store.Conversations, id, updates, preconditions...)
}
