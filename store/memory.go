package store

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-process Store used by tests and dry runs.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]map[string]map[string]any

	// Now stamps ServerTimestamp markers.
	Now func() time.Time
	// Fail, when set, is consulted before every operation; a non-nil error is
	// returned as-is. op is one of get, query, list, update, subcollection.
	Fail func(op, collection, id string) error

	writes int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]map[string]map[string]any),
		Now:  time.Now,
	}
}

// Put seeds a document, replacing any existing one.
func (m *MemoryStore) Put(collection, id string, data map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	coll, ok := m.data[collection]
	if !ok {
		coll = make(map[string]map[string]any)
		m.data[collection] = coll
	}
	coll[id] = deepCopyMap(data)
}

// PutSub seeds a subcollection document.
func (m *MemoryStore) PutSub(collection, id, subcollection, subID string, data map[string]any) {
	m.Put(subPath(collection, id, subcollection), subID, data)
}

// Writes returns the number of successful Update calls.
func (m *MemoryStore) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}

func (m *MemoryStore) check(op, collection, id string) error {
	if m.Fail == nil {
		return nil
	}
	return m.Fail(op, collection, id)
}

func (m *MemoryStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	if err := m.check("get", collection, id); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.data[collection][id]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	return &Document{ID: id, Data: deepCopyMap(doc)}, nil
}

func (m *MemoryStore) Query(ctx context.Context, collection string, preds ...Predicate) ([]Document, error) {
	if err := m.check("query", collection, ""); err != nil {
		return nil, err
	}
	return m.query(collection, preds), nil
}

func (m *MemoryStore) query(collection string, preds []Predicate) []Document {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Document
	for _, id := range m.sortedIDs(collection) {
		doc := m.data[collection][id]
		if matchesAll(doc, preds) {
			out = append(out, Document{ID: id, Data: deepCopyMap(doc)})
		}
	}
	return out
}

func (m *MemoryStore) List(ctx context.Context, collection string) ([]Document, error) {
	if err := m.check("list", collection, ""); err != nil {
		return nil, err
	}
	return m.query(collection, nil), nil
}

func (m *MemoryStore) Update(ctx context.Context, collection, id string, updates []FieldUpdate, preconditions ...Predicate) error {
	if err := m.check("update", collection, id); err != nil {
		return err
	}
	if err := validatePreconditions(preconditions); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.data[collection][id]
	if !ok {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	if !matchesAll(doc, preconditions) {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrPreconditionFailed)
	}
	next := deepCopyMap(doc)
	for _, u := range updates {
		switch u.Value {
		case Delete:
			unsetPath(next, u.Path)
		case ServerTimestamp:
			setPath(next, u.Path, m.Now().UTC())
		default:
			setPath(next, u.Path, copyValue(u.Value))
		}
	}
	m.data[collection][id] = next
	m.writes++
	return nil
}

func (m *MemoryStore) ListSubcollection(ctx context.Context, collection, id, subcollection string) ([]Document, error) {
	if err := m.check("subcollection", collection, id); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	path := subPath(collection, id, subcollection)
	var out []Document
	for _, subID := range m.sortedIDs(path) {
		out = append(out, Document{ID: subID, Data: deepCopyMap(m.data[path][subID])})
	}
	return out, nil
}

func (m *MemoryStore) Close(ctx context.Context) error { return nil }

func (m *MemoryStore) sortedIDs(collection string) []string {
	ids := make([]string, 0, len(m.data[collection]))
	for id := range m.data[collection] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func subPath(collection, id, subcollection string) string {
	return collection + "/" + id + "/" + subcollection
}

func matchesAll(doc map[string]any, preds []Predicate) bool {
	for _, p := range preds {
		v, ok := lookup(doc, p.Field)
		switch p.Op {
		case OpEqual:
			if !ok {
				// A missing field only equals an absent value.
				if !isNilValue(p.Value) {
					return false
				}
				continue
			}
			if !equalValues(v, p.Value) {
				return false
			}
		case OpIn:
			if !ok || !containsValue(p.Value, v) {
				return false
			}
		case OpArrayContains:
			if !ok || !containsValue(v, p.Value) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func containsValue(list, v any) bool {
	rv := reflect.ValueOf(list)
	if rv.Kind() != reflect.Slice {
		return false
	}
	for i := 0; i < rv.Len(); i++ {
		if equalValues(rv.Index(i).Interface(), v) {
			return true
		}
	}
	return false
}

// equalValues compares stored and query values the way the backends do:
// numbers by value regardless of width, slices element by element regardless
// of their Go element type.
func equalValues(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return fa == fb
		}
	}
	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
	if isList(ra) && isList(rb) {
		if ra.Len() != rb.Len() {
			return false
		}
		for i := 0; i < ra.Len(); i++ {
			if !equalValues(ra.Index(i).Interface(), rb.Index(i).Interface()) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}

func isList(v reflect.Value) bool {
	return v.IsValid() && (v.Kind() == reflect.Slice || v.Kind() == reflect.Array)
}

func isNilValue(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Pointer:
		return rv.IsNil()
	}
	return false
}

func toFloat(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

func setPath(data map[string]any, path string, value any) {
	parts := strings.Split(path, ".")
	cur := data
	for _, p := range parts[:len(parts)-1] {
		next, ok := cur[p].(map[string]any)
		if !ok {
			next = make(map[string]any)
			cur[p] = next
		}
		cur = next
	}
	cur[parts[len(parts)-1]] = value
}

func unsetPath(data map[string]any, path string) {
	parts := strings.Split(path, ".")
	cur := data
	for _, p := range parts[:len(parts)-1] {
		next, ok := cur[p].(map[string]any)
		if !ok {
			return
		}
		cur = next
	}
	delete(cur, parts[len(parts)-1])
}

func deepCopyMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return deepCopyMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = copyValue(e)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}
