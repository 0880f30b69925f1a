package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore implements Store on MongoDB. Documents are keyed by their "id"
// field; a subcollection lives in "<collection>_<subcollection>" with a
// "parentId" back-reference.
type MongoStore struct {
	db      *mongo.Database
	timeout time.Duration
}

// NewMongoStore returns a Store backed by the named database.
func NewMongoStore(client *mongo.Client, dbName string, timeout time.Duration) *MongoStore {
	return &MongoStore{
		db:      client.Database(dbName),
		timeout: timeout,
	}
}

func (s *MongoStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var raw bson.M
	err := s.db.Collection(collection).FindOne(ctx, bson.M{"id": id}).Decode(&raw)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
		}
		return nil, classifyMongo("get "+collection+"/"+id, err)
	}
	return mongoDocument(raw), nil
}

func (s *MongoStore) Query(ctx context.Context, collection string, preds ...Predicate) ([]Document, error) {
	filter, err := mongoFilter(preds)
	if err != nil {
		return nil, err
	}
	return s.find(ctx, collection, filter)
}

func (s *MongoStore) List(ctx context.Context, collection string) ([]Document, error) {
	return s.find(ctx, collection, bson.M{})
}

func (s *MongoStore) ListSubcollection(ctx context.Context, collection, id, subcollection string) ([]Document, error) {
	return s.find(ctx, collection+"_"+subcollection, bson.M{"parentId": id})
}

func (s *MongoStore) find(ctx context.Context, collection string, filter bson.M) ([]Document, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "id", Value: 1}})
	cursor, err := s.db.Collection(collection).Find(ctx, filter, opts)
	if err != nil {
		return nil, classifyMongo("find "+collection, err)
	}
	defer cursor.Close(ctx)

	var docs []Document
	for cursor.Next(ctx) {
		var raw bson.M
		if err := cursor.Decode(&raw); err != nil {
			return nil, fmt.Errorf("error decoding %s document: %w", collection, err)
		}
		docs = append(docs, *mongoDocument(raw))
	}
	if err := cursor.Err(); err != nil {
		return nil, classifyMongo("find "+collection, err)
	}
	return docs, nil
}

func (s *MongoStore) Update(ctx context.Context, collection, id string, updates []FieldUpdate, preconditions ...Predicate) error {
	if err := validatePreconditions(preconditions); err != nil {
		return err
	}
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	filter, err := mongoFilter(preconditions)
	if err != nil {
		return err
	}
	filter["id"] = id

	res, err := s.db.Collection(collection).UpdateOne(ctx, filter, mongoUpdate(updates))
	if err != nil {
		return classifyMongo("update "+collection+"/"+id, err)
	}
	if res.MatchedCount > 0 {
		return nil
	}

	// Nothing matched: tell a missing document apart from a lost precondition.
	n, err := s.db.Collection(collection).CountDocuments(ctx, bson.M{"id": id})
	if err != nil {
		return classifyMongo("count "+collection+"/"+id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	return fmt.Errorf("%s/%s: %w", collection, id, ErrPreconditionFailed)
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.db.Client().Disconnect(ctx)
}

func mongoFilter(preds []Predicate) (bson.M, error) {
	filter := bson.M{}
	for _, p := range preds {
		switch p.Op {
		case OpEqual, OpArrayContains:
			// An equality match on an array field matches any element.
			filter[p.Field] = p.Value
		case OpIn:
			filter[p.Field] = bson.M{"$in": p.Value}
		default:
			return nil, fmt.Errorf("unsupported predicate operator %q", p.Op)
		}
	}
	return filter, nil
}

func mongoUpdate(updates []FieldUpdate) bson.M {
	set := bson.M{}
	unset := bson.M{}
	now := bson.M{}
	for _, u := range updates {
		switch u.Value {
		case Delete:
			unset[u.Path] = ""
		case ServerTimestamp:
			now[u.Path] = true
		default:
			set[u.Path] = u.Value
		}
	}
	update := bson.M{}
	if len(set) > 0 {
		update["$set"] = set
	}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	if len(now) > 0 {
		update["$currentDate"] = now
	}
	return update
}

func mongoDocument(raw bson.M) *Document {
	data := normalizeBSON(raw).(map[string]any)
	delete(data, "_id")
	id, _ := data["id"].(string)
	return &Document{ID: id, Data: data}
}

// normalizeBSON converts driver types into the plain values Document promises.
func normalizeBSON(v any) any {
	switch t := v.(type) {
	case bson.M:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = normalizeBSON(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = normalizeBSON(e)
		}
		return out
	case bson.D:
		out := make(map[string]any, len(t))
		for _, e := range t {
			out[e.Key] = normalizeBSON(e.Value)
		}
		return out
	case bson.A:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalizeBSON(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalizeBSON(e)
		}
		return out
	case primitive.DateTime:
		return t.Time().UTC()
	case primitive.ObjectID:
		return t.Hex()
	case int32:
		return int64(t)
	case int:
		return int64(t)
	default:
		return v
	}
}

func classifyMongo(op string, err error) error {
	if mongo.IsTimeout(err) || mongo.IsNetworkError(err) || errors.Is(err, context.DeadlineExceeded) {
		return &TransientStoreError{Op: op, Err: err}
	}
	var se mongo.ServerError
	if errors.As(err, &se) && se.HasErrorLabel("RetryableWriteError") {
		return &TransientStoreError{Op: op, Err: err}
	}
	return fmt.Errorf("%s: %w", op, err)
}
