package batch

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunKeepsInputOrderAndCounts(t *testing.T) {
	r := NewRunner(4, 0)
	ids := []string{"a", "b", "c", "d", "e"}

	report := r.Run(context.Background(), "test", ids, func(ctx context.Context, id string) (Outcome, string, error) {
		switch id {
		case "b":
			return Failed, "", errors.New("read failed")
		case "d":
			panic("boom")
		case "e":
			return Unchanged, "", nil
		}
		return Updated, "did " + id, nil
	})

	require.Len(t, report.Results, 5)
	for i, id := range ids {
		assert.Equal(t, id, report.Results[i].ID)
	}
	assert.Equal(t, 2, report.Updated)
	assert.Equal(t, 1, report.Unchanged)
	assert.Equal(t, 2, report.Failed)
	assert.NotEmpty(t, report.RunID)

	var pbf *PartialBatchFailure
	require.True(t, errors.As(report.Err(), &pbf))
	assert.Equal(t, 2, pbf.Failed)
	assert.Equal(t, 5, pbf.Total)
}

func TestRunRespectsConcurrencyLimit(t *testing.T) {
	r := NewRunner(2, 0)
	var inFlight, peak int32
	ids := make([]string, 20)
	for i := range ids {
		ids[i] = string(rune('a' + i))
	}

	report := r.Run(context.Background(), "test", ids, func(ctx context.Context, id string) (Outcome, string, error) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		atomic.AddInt32(&inFlight, -1)
		return Unchanged, "", nil
	})

	assert.NoError(t, report.Err())
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestReportPrint(t *testing.T) {
	report := &Report{
		RunID:   "run-1",
		Kind:    "reconcile",
		Results: []ItemResult{{ID: "c1", Outcome: Updated, Detail: "added B"}, {ID: "c2", Outcome: Failed, Err: errors.New("unavailable")}},
		Updated: 1,
		Failed:  1,
	}
	var buf bytes.Buffer
	report.Print(&buf)

	out := buf.String()
	assert.Contains(t, out, "updated   c1: added B")
	assert.Contains(t, out, "failed    c2: unavailable")
	assert.Contains(t, out, "reconcile run run-1: 2 total, 1 updated, 0 unchanged, 1 failed")
}
