package batch

import (
	"context"
	"fmt"
	"strings"

	"servicehub/services/conversation"
	"servicehub/services/stats"
)

// Batch kinds, also used as metric labels.
const (
	KindReconcile     = "reconcile"
	KindRepairDeleted = "repair-deleted"
	KindAggregate     = "aggregate"
)

// Jobs wires the batch runner to the per-record services.
type Jobs struct {
	Runner        *Runner
	Conversations conversation.ConversationService
	Stats         stats.StatsService
}

// ReconcileAll reconciles the participants of every conversation.
func (j *Jobs) ReconcileAll(ctx context.Context, dryRun bool) (*Report, error) {
	ids, err := j.Conversations.ListConversationIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing conversations: %w", err)
	}
	return j.Runner.Run(ctx, KindReconcile, ids, func(ctx context.Context, id string) (Outcome, string, error) {
		res, err := j.Conversations.Reconcile(ctx, id, dryRun)
		if err != nil {
			return Failed, "", err
		}
		if len(res.Added) == 0 {
			return Unchanged, "", nil
		}
		detail := "added " + strings.Join(res.Added, ",")
		if dryRun {
			return Unchanged, "would have " + detail, nil
		}
		return Updated, detail, nil
	}), nil
}

// RepairDeletedAll clears stale deleted flags across all conversations.
func (j *Jobs) RepairDeletedAll(ctx context.Context, dryRun bool) (*Report, error) {
	ids, err := j.Conversations.ListConversationIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing conversations: %w", err)
	}
	return j.Runner.Run(ctx, KindRepairDeleted, ids, func(ctx context.Context, id string) (Outcome, string, error) {
		cleared, err := j.Conversations.RepairDeletedFlags(ctx, id, dryRun)
		if err != nil {
			return Failed, "", err
		}
		if len(cleared) == 0 {
			return Unchanged, "", nil
		}
		detail := "cleared deleted flag for " + strings.Join(cleared, ",")
		if dryRun {
			return Unchanged, "would have " + detail, nil
		}
		return Updated, detail, nil
	}), nil
}

// AggregateAll recomputes the statistics of every provider.
func (j *Jobs) AggregateAll(ctx context.Context) (*Report, error) {
	ids, err := j.Stats.ListProviderIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing providers: %w", err)
	}
	return j.Runner.Run(ctx, KindAggregate, ids, func(ctx context.Context, id string) (Outcome, string, error) {
		sum, err := j.Stats.Recompute(ctx, id)
		if err != nil {
			return Failed, "", err
		}
		return Updated, fmt.Sprintf("completedJobs=%d reviewCount=%d rating=%.2f", sum.CompletedJobs, sum.ReviewCount, sum.Rating), nil
	}), nil
}
