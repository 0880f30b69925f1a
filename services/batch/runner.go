package batch

import (
	"context"
	"fmt"
	"io"
	"time"

	"servicehub/observability"
	"servicehub/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Outcome of processing one record.
type Outcome string

const (
	Updated   Outcome = "updated"
	Unchanged Outcome = "unchanged"
	Failed    Outcome = "failed"
)

// ItemResult is the per-record line of a report.
type ItemResult struct {
	ID      string  `json:"id"`
	Outcome Outcome `json:"outcome"`
	Detail  string  `json:"detail,omitempty"`
	Err     error   `json:"-"`
}

// Report is the outcome of a batch run, in input order.
type Report struct {
	RunID     string        `json:"runId"`
	Kind      string        `json:"kind"`
	Results   []ItemResult  `json:"results"`
	Updated   int           `json:"updated"`
	Unchanged int           `json:"unchanged"`
	Failed    int           `json:"failed"`
	Duration  time.Duration `json:"duration"`
}

// PartialBatchFailure is returned when some records of a completed run failed.
type PartialBatchFailure struct {
	Code   string
	Kind   string
	Failed int
	Total  int
}

func (e *PartialBatchFailure) Error() string {
	return fmt.Sprintf("%s: %d of %d %s records failed", e.Code, e.Failed, e.Total, e.Kind)
}

// Err returns a PartialBatchFailure when any record failed.
func (r *Report) Err() error {
	if r.Failed == 0 {
		return nil
	}
	return &PartialBatchFailure{Code: "partialBatchFailure", Kind: r.Kind, Failed: r.Failed, Total: len(r.Results)}
}

// Print writes one line per record and a final summary.
func (r *Report) Print(w io.Writer) {
	for _, res := range r.Results {
		switch {
		case res.Err != nil:
			fmt.Fprintf(w, "%-9s %s: %v\n", res.Outcome, res.ID, res.Err)
		case res.Detail != "":
			fmt.Fprintf(w, "%-9s %s: %s\n", res.Outcome, res.ID, res.Detail)
		default:
			fmt.Fprintf(w, "%-9s %s\n", res.Outcome, res.ID)
		}
	}
	fmt.Fprintf(w, "%s run %s: %d total, %d updated, %d unchanged, %d failed (%s)\n",
		r.Kind, r.RunID, len(r.Results), r.Updated, r.Unchanged, r.Failed, r.Duration.Round(time.Millisecond))
}

// ItemFunc processes one record. It returns the outcome and an optional
// human-readable detail for the report line.
type ItemFunc func(ctx context.Context, id string) (Outcome, string, error)

// Runner drives an ItemFunc over many records with bounded parallelism.
// A failing record never stops the others.
type Runner struct {
	Concurrency int
	Limiter     *rate.Limiter
}

func NewRunner(concurrency int, perSecond float64) *Runner {
	r := &Runner{Concurrency: concurrency}
	if perSecond > 0 {
		r.Limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
	return r
}

func (r *Runner) Run(ctx context.Context, kind string, ids []string, fn ItemFunc) *Report {
	start := time.Now()
	report := &Report{
		RunID:   uuid.New().String(),
		Kind:    kind,
		Results: make([]ItemResult, len(ids)),
	}
	logger := utils.GetLogger().With(zap.String("run", report.RunID), zap.String("kind", kind))
	logger.Info("batch run started", zap.Int("records", len(ids)))

	var g errgroup.Group
	if r.Concurrency > 0 {
		g.SetLimit(r.Concurrency)
	} else {
		g.SetLimit(1)
	}
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			report.Results[i] = r.runOne(ctx, logger, id, fn)
			return nil
		})
	}
	_ = g.Wait()

	for _, res := range report.Results {
		switch res.Outcome {
		case Updated:
			report.Updated++
		case Unchanged:
			report.Unchanged++
		default:
			report.Failed++
		}
		observability.BatchItemsTotal.WithLabelValues(kind, string(res.Outcome)).Inc()
	}
	report.Duration = time.Since(start)
	observability.BatchDuration.WithLabelValues(kind).Observe(report.Duration.Seconds())
	logger.Info("batch run finished",
		zap.Int("updated", report.Updated),
		zap.Int("unchanged", report.Unchanged),
		zap.Int("failed", report.Failed),
	)
	return report
}

func (r *Runner) runOne(ctx context.Context, logger *zap.Logger, id string, fn ItemFunc) (res ItemResult) {
	res.ID = id
	defer func() {
		if p := recover(); p != nil {
			res.Outcome = Failed
			res.Err = fmt.Errorf("panic: %v", p)
			logger.Error("batch item panicked", zap.String("id", id), zap.Any("panic", p))
		}
	}()

	if r.Limiter != nil {
		if err := r.Limiter.Wait(ctx); err != nil {
			return ItemResult{ID: id, Outcome: Failed, Err: err}
		}
	}
	outcome, detail, err := fn(ctx, id)
	if err != nil {
		logger.Warn("batch item failed", zap.String("id", id), zap.Error(err))
		return ItemResult{ID: id, Outcome: Failed, Err: err}
	}
	return ItemResult{ID: id, Outcome: outcome, Detail: detail}
}
