package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStore implements Store on Cloud Firestore. Document IDs are the
// Firestore document IDs and subcollections are native.
type FirestoreStore struct {
	client  *firestore.Client
	timeout time.Duration
}

func NewFirestoreStore(client *firestore.Client, timeout time.Duration) *FirestoreStore {
	return &FirestoreStore{client: client, timeout: timeout}
}

func (s *FirestoreStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	snap, err := s.client.Collection(collection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
		}
		return nil, classifyFirestore("get "+collection+"/"+id, err)
	}
	return &Document{ID: snap.Ref.ID, Data: snap.Data()}, nil
}

func (s *FirestoreStore) Query(ctx context.Context, collection string, preds ...Predicate) ([]Document, error) {
	q := s.client.Collection(collection).Query
	for _, p := range preds {
		switch p.Op {
		case OpEqual, OpIn, OpArrayContains:
			q = q.Where(p.Field, string(p.Op), p.Value)
		default:
			return nil, fmt.Errorf("unsupported predicate operator %q", p.Op)
		}
	}
	return s.getAll(ctx, "query "+collection, q.Documents)
}

func (s *FirestoreStore) List(ctx context.Context, collection string) ([]Document, error) {
	return s.getAll(ctx, "list "+collection, s.client.Collection(collection).Documents)
}

func (s *FirestoreStore) ListSubcollection(ctx context.Context, collection, id, subcollection string) ([]Document, error) {
	ref := s.client.Collection(collection).Doc(id).Collection(subcollection)
	return s.getAll(ctx, "list "+collection+"/"+id+"/"+subcollection, ref.Documents)
}

func (s *FirestoreStore) getAll(ctx context.Context, op string, iter func(context.Context) *firestore.DocumentIterator) ([]Document, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	snaps, err := iter(ctx).GetAll()
	if err != nil {
		return nil, classifyFirestore(op, err)
	}
	docs := make([]Document, 0, len(snaps))
	for _, snap := range snaps {
		docs = append(docs, Document{ID: snap.Ref.ID, Data: snap.Data()})
	}
	return docs, nil
}

func (s *FirestoreStore) Update(ctx context.Context, collection, id string, updates []FieldUpdate, preconditions ...Predicate) error {
	if err := validatePreconditions(preconditions); err != nil {
		return err
	}
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	ref := s.client.Collection(collection).Doc(id)
	fsUpdates := firestoreUpdates(updates)
	op := "update " + collection + "/" + id

	if len(preconditions) == 0 {
		if _, err := ref.Update(ctx, fsUpdates); err != nil {
			if status.Code(err) == codes.NotFound {
				return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
			}
			return classifyFirestore(op, err)
		}
		return nil
	}

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		doc := Document{ID: id, Data: snap.Data()}
		if !matchesAll(doc.Data, preconditions) {
			return ErrPreconditionFailed
		}
		return tx.Update(ref, fsUpdates)
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrPreconditionFailed):
		return fmt.Errorf("%s/%s: %w", collection, id, ErrPreconditionFailed)
	case status.Code(err) == codes.NotFound:
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	default:
		return classifyFirestore(op, err)
	}
}

func (s *FirestoreStore) Close(ctx context.Context) error {
	return s.client.Close()
}

func firestoreUpdates(updates []FieldUpdate) []firestore.Update {
	out := make([]firestore.Update, 0, len(updates))
	for _, u := range updates {
		var v any
		switch u.Value {
		case Delete:
			v = firestore.Delete
		case ServerTimestamp:
			v = firestore.ServerTimestamp
		default:
			v = u.Value
		}
		// FieldPath takes the segments verbatim, so keys such as uids may
		// contain characters that Path would reject.
		out = append(out, firestore.Update{FieldPath: firestore.FieldPath(strings.Split(u.Path, ".")), Value: v})
	}
	return out
}

func classifyFirestore(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &TransientStoreError{Op: op, Err: err}
	}
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted:
		return &TransientStoreError{Op: op, Err: err}
	}
	return fmt.Errorf("%s: %w", op, err)
}
