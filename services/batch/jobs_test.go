package batch

import (
	"context"
	"errors"
	"testing"

	"servicehub/database/repository"
	"servicehub/services/conversation"
	"servicehub/services/stats"
	"servicehub/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJobs(mem *store.MemoryStore) *Jobs {
	repos := repository.New(mem)
	return &Jobs{
		Runner:        NewRunner(3, 0),
		Conversations: &conversation.DefaultConversationService{Repo: repos.Conversations},
		Stats:         &stats.DefaultStatsService{Users: repos.Users, Bookings: repos.Bookings, Reviews: repos.Reviews},
	}
}

func seedConversations(mem *store.MemoryStore) {
	mem.Put(store.Conversations, "c1", map[string]any{"participants": []any{"A"}, "unreadCount": map[string]any{"B": 1}})
	mem.Put(store.Conversations, "c2", map[string]any{"participants": []any{"A"}, "unreadCount": map[string]any{"C": 1}})
	mem.Put(store.Conversations, "c3", map[string]any{"participants": []any{"A", "B"}})
	mem.Put(store.Conversations, "c4", map[string]any{
		"participants": []any{"A", "B"},
		"unreadCount":  map[string]any{"B": 4},
		"deleted":      map[string]any{"B": true},
	})
}

func TestReconcileAllContinuesPastFailures(t *testing.T) {
	mem := store.NewMemoryStore()
	seedConversations(mem)
	mem.Fail = func(op, collection, id string) error {
		if op == "get" && id == "c2" {
			return errors.New("permission denied")
		}
		return nil
	}

	report, err := newTestJobs(mem).ReconcileAll(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Updated)
	assert.Equal(t, 2, report.Unchanged)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, "c2", report.Results[1].ID)
	assert.Equal(t, Failed, report.Results[1].Outcome)

	var pbf *PartialBatchFailure
	assert.True(t, errors.As(report.Err(), &pbf))

	doc, err := mem.Get(context.Background(), store.Conversations, "c1")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, doc.Data["participants"])
}

func TestReconcileAllDryRun(t *testing.T) {
	mem := store.NewMemoryStore()
	seedConversations(mem)

	report, err := newTestJobs(mem).ReconcileAll(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Updated)
	assert.Equal(t, 4, report.Unchanged)
	assert.Equal(t, "would have added B", report.Results[0].Detail)
	assert.Equal(t, 0, mem.Writes())
	assert.NoError(t, report.Err())
}

func TestRepairDeletedAll(t *testing.T) {
	mem := store.NewMemoryStore()
	seedConversations(mem)

	report, err := newTestJobs(mem).RepairDeletedAll(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Updated)
	assert.Equal(t, "cleared deleted flag for B", report.Results[3].Detail)

	doc, err := mem.Get(context.Background(), store.Conversations, "c4")
	require.NoError(t, err)
	v, _ := doc.Value("deleted.B")
	assert.Equal(t, false, v)
}

func TestAggregateAll(t *testing.T) {
	mem := store.NewMemoryStore()
	mem.Put(store.Users, "p1", map[string]any{"role": "PROVIDER"})
	mem.Put(store.Users, "p2", map[string]any{"role": "PROVIDER"})
	mem.Put(store.Reviews, "r1", map[string]any{"providerId": "p1", "rating": 5})

	report, err := newTestJobs(mem).AggregateAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Updated)
	assert.Equal(t, "completedJobs=0 reviewCount=1 rating=5.00", report.Results[0].Detail)
}

func TestJobsListingFailure(t *testing.T) {
	mem := store.NewMemoryStore()
	mem.Fail = func(op, collection, id string) error {
		if op == "list" {
			return errors.New("offline")
		}
		return nil
	}
	_, err := newTestJobs(mem).ReconcileAll(context.Background(), false)
	assert.Error(t, err)
}
