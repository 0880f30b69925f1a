package cron

import (
	"context"
	"errors"
	"os"

	"servicehub/services/batch"
	"servicehub/utils"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// NewScheduler registers the periodic batch runs. An empty spec disables
// that job; with both empty the returned scheduler has no entries.
func NewScheduler(jobs *batch.Jobs, reconcileSpec, aggregateSpec string) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	logger := utils.GetLogger()

	if reconcileSpec != "" {
		_, err := c.AddFunc(reconcileSpec, func() {
			ctx := context.Background()
			runAndLog(logger, batch.KindReconcile, func() (*batch.Report, error) { return jobs.ReconcileAll(ctx, false) })
			runAndLog(logger, batch.KindRepairDeleted, func() (*batch.Report, error) { return jobs.RepairDeletedAll(ctx, false) })
		})
		if err != nil {
			return nil, err
		}
		logger.Info("periodic reconciliation scheduled", zap.String("spec", reconcileSpec))
	}
	if aggregateSpec != "" {
		_, err := c.AddFunc(aggregateSpec, func() {
			runAndLog(logger, batch.KindAggregate, func() (*batch.Report, error) { return jobs.AggregateAll(context.Background()) })
		})
		if err != nil {
			return nil, err
		}
		logger.Info("periodic aggregation scheduled", zap.String("spec", aggregateSpec))
	}
	return c, nil
}

func runAndLog(logger *zap.Logger, kind string, run func() (*batch.Report, error)) {
	report, err := run()
	if err != nil {
		logger.Error("scheduled batch could not start", zap.String("kind", kind), zap.Error(err))
		return
	}
	if logger.Core().Enabled(zap.DebugLevel) {
		report.Print(os.Stderr)
	}
	var pbf *batch.PartialBatchFailure
	if errors.As(report.Err(), &pbf) {
		logger.Warn("scheduled batch finished with failures",
			zap.String("kind", kind),
			zap.Int("failed", pbf.Failed),
			zap.Int("total", pbf.Total),
		)
	}
}
