package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestMongoUpdateTranslatesMarkers(t *testing.T) {
	update := mongoUpdate([]FieldUpdate{
		Set("status", "pending"),
		Set("acceptedAt", Delete),
		Set("updatedAt", ServerTimestamp),
	})

	assert.Equal(t, bson.M{"status": "pending"}, update["$set"])
	assert.Equal(t, bson.M{"acceptedAt": ""}, update["$unset"])
	assert.Equal(t, bson.M{"updatedAt": true}, update["$currentDate"])
}

func TestMongoUpdateOmitsEmptyOperators(t *testing.T) {
	update := mongoUpdate([]FieldUpdate{Set("deleted.u1", false)})
	assert.Len(t, update, 1)
	_, hasUnset := update["$unset"]
	assert.False(t, hasUnset)
}

func TestMongoFilter(t *testing.T) {
	filter, err := mongoFilter([]Predicate{
		Eq("providerId", "p1"),
		In("status", "completed", "cancelled"),
		ArrayContains("participants", "u1"),
	})
	require.NoError(t, err)
	assert.Equal(t, "p1", filter["providerId"])
	assert.Equal(t, bson.M{"$in": []any{"completed", "cancelled"}}, filter["status"])
	assert.Equal(t, "u1", filter["participants"])

	_, err = mongoFilter([]Predicate{{Field: "x", Op: ">", Value: 1}})
	assert.Error(t, err)
}

func TestMongoDocumentNormalizes(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	raw := bson.M{
		"_id":          primitive.NewObjectID(),
		"id":           "c1",
		"participants": bson.A{"a", "b"},
		"unreadCount":  bson.M{"a": int32(2)},
		"deleted":      bson.D{{Key: "b", Value: true}},
		"updatedAt":    primitive.NewDateTimeFromTime(ts),
	}

	doc := mongoDocument(raw)
	assert.Equal(t, "c1", doc.ID)
	assert.NotContains(t, doc.Data, "_id")
	assert.Equal(t, []any{"a", "b"}, doc.Data["participants"])
	assert.Equal(t, map[string]any{"a": int64(2)}, doc.Data["unreadCount"])
	assert.Equal(t, map[string]any{"b": true}, doc.Data["deleted"])
	assert.Equal(t, ts, doc.Data["updatedAt"])
}
