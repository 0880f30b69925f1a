// Package store is the record store adapter. Services only ever talk to the
// Store interface; the Mongo and Firestore backends translate field updates,
// markers and predicates into their native calls.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Collection names shared by every backend.
const (
	Bookings      = "bookings"
	Conversations = "conversations"
	Messages      = "messages"
	Users         = "users"
	Reviews       = "reviews"
)

var (
	// ErrNotFound is returned by Get and Update when the document does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrPreconditionFailed is returned by Update when a precondition no longer holds.
	ErrPreconditionFailed = errors.New("precondition failed")
)

// TransientStoreError marks network, timeout and availability failures that
// are worth retrying.
type TransientStoreError struct {
	Op  string
	Err error
}

func (e *TransientStoreError) Error() string {
	return fmt.Sprintf("transient store error during %s: %v", e.Op, e.Err)
}

func (e *TransientStoreError) Unwrap() error { return e.Err }

// IsTransient reports whether err (or anything it wraps) is a TransientStoreError.
func IsTransient(err error) bool {
	var t *TransientStoreError
	return errors.As(err, &t)
}

type marker string

const (
	// Delete removes the field instead of assigning a value.
	Delete marker = "__delete__"
	// ServerTimestamp asks the store to assign its current time.
	ServerTimestamp marker = "__server_timestamp__"
)

// Document is a single record. Data holds plain Go values: string, bool,
// int64, float64, time.Time, []any and map[string]any.
type Document struct {
	ID   string
	Data map[string]any
}

// Has reports whether the field is present, regardless of its value.
func (d Document) Has(path string) bool {
	_, ok := lookup(d.Data, path)
	return ok
}

// Value returns the value at a dotted path.
func (d Document) Value(path string) (any, bool) {
	return lookup(d.Data, path)
}

// FieldUpdate sets Path to Value. Value may be Delete or ServerTimestamp.
type FieldUpdate struct {
	Path  string
	Value any
}

// Set is shorthand for a FieldUpdate literal.
func Set(path string, value any) FieldUpdate {
	return FieldUpdate{Path: path, Value: value}
}

type Op string

const (
	OpEqual         Op = "=="
	OpIn            Op = "in"
	OpArrayContains Op = "array-contains"
)

// Predicate filters a query. Preconditions passed to Update must use OpEqual.
type Predicate struct {
	Field string
	Op    Op
	Value any
}

func Eq(field string, value any) Predicate {
	return Predicate{Field: field, Op: OpEqual, Value: value}
}

func In(field string, values ...any) Predicate {
	return Predicate{Field: field, Op: OpIn, Value: values}
}

func ArrayContains(field string, value any) Predicate {
	return Predicate{Field: field, Op: OpArrayContains, Value: value}
}

// Store is the capability the core consumes.
type Store interface {
	Get(ctx context.Context, collection, id string) (*Document, error)
	Query(ctx context.Context, collection string, preds ...Predicate) ([]Document, error)
	List(ctx context.Context, collection string) ([]Document, error)
	// Update applies all field updates in a single write. Any preconditions
	// are checked atomically with the write.
	Update(ctx context.Context, collection, id string, updates []FieldUpdate, preconditions ...Predicate) error
	ListSubcollection(ctx context.Context, collection, id, subcollection string) ([]Document, error)
	Close(ctx context.Context) error
}

func lookup(data map[string]any, path string) (any, bool) {
	parts := strings.Split(path, ".")
	var cur any = data
	for _, p := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[p]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func validatePreconditions(preds []Predicate) error {
	for _, p := range preds {
		if p.Op != OpEqual {
			return fmt.Errorf("precondition on %q must use %q, got %q", p.Field, OpEqual, p.Op)
		}
	}
	return nil
}

// withTimeout bounds a single store round trip.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
