package repository

import (
	"context"

	"servicehub/models"
	"servicehub/store"
)

// UserRepository defines methods for user data access.
type UserRepository interface {
	// GetByID retrieves a user by its unique ID.
	GetByID(ctx context.Context, id string) (*models.User, error)
	// ListProviderIDs returns the IDs of all users with the provider role.
	ListProviderIDs(ctx context.Context) ([]string, error)
	// Update writes the given fields in a single call.
	Update(ctx context.Context, id string, updates []store.FieldUpdate) error
}

type storeUserRepo struct {
	store store.Store
}

func (r *storeUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	doc, err := r.store.Get(ctx, store.Users, id)
	if err != nil {
		return nil, err
	}
	return models.DecodeUser(*doc)
}

func (r *storeUserRepo) ListProviderIDs(ctx context.Context) ([]string, error) {
	docs, err := r.store.Query(ctx, store.Users, store.Eq(models.FieldRole, string(models.RoleProvider)))
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	return ids, nil
}

func (r *storeUserRepo) Update(ctx context.Context, id string, updates []store.FieldUpdate) error {
	return r.store.Update(ctx, store.Users, id, updates)
}
