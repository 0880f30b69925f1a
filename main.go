// File: servicehub/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"servicehub/config"
	workerpkg "servicehub/cron"
	"servicehub/handlers"
	"servicehub/models"
	"servicehub/routes"
	"servicehub/services/batch"
	"servicehub/services/tasks"
	"servicehub/store"
	"servicehub/utils"

	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

const usage = `usage: servicehub <command> [flags]

commands:
  transition          --booking ID --status STATUS
  reset               --booking ID            (operator only: back to pending)
  reconcile           --conversation ID [--dry-run]
  reconcile-all       [--dry-run]
  clear-deleted       --conversation ID --user ID
  repair-deleted-all  [--dry-run]
  aggregate           --provider ID
  aggregate-all
  worker              run the task worker and periodic jobs
  serve               run the admin HTTP API
  admin-token         --subject NAME [--ttl 1h]
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	os.Exit(run(os.Args[1], os.Args[2:], os.Stdout))
}

type options struct {
	bookingID      string
	status         string
	conversationID string
	userID         string
	providerID     string
	subject        string
	ttl            time.Duration
	dryRun         bool
}

func run(cmd string, args []string, out io.Writer) int {
	var opts options
	fs := pflag.NewFlagSet(cmd, pflag.ContinueOnError)
	config.RegisterStoreFlags(fs)
	fs.StringVar(&opts.bookingID, "booking", "", "booking ID")
	fs.StringVar(&opts.status, "status", "", "target booking status")
	fs.StringVar(&opts.conversationID, "conversation", "", "conversation ID")
	fs.StringVar(&opts.userID, "user", "", "user ID")
	fs.StringVar(&opts.providerID, "provider", "", "provider user ID")
	fs.StringVar(&opts.subject, "subject", "", "admin token subject")
	fs.DurationVar(&opts.ttl, "ttl", time.Hour, "admin token lifetime")
	fs.BoolVar(&opts.dryRun, "dry-run", false, "report what would change without writing")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, usage)
		return 2
	}

	config.LoadConfig(fs)
	logger := utils.GetLogger()
	defer logger.Sync() //nolint:errcheck

	if cmd == "admin-token" {
		return adminToken(opts, out)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		logger.Error("startup failed", zap.Error(err))
		fmt.Fprintf(out, "error: %v\n", err)
		return 1
	}
	defer a.Close(context.Background())

	switch cmd {
	case "worker":
		return a.runWorker(ctx)
	case "serve":
		return a.serve(ctx)
	}

	if err := a.dispatch(ctx, cmd, opts, out); err != nil {
		var pbf *batch.PartialBatchFailure
		if !errors.As(err, &pbf) {
			fmt.Fprintf(out, "error: %v\n", err)
		}
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
			return 2
		}
		return 1
	}
	return 0
}

var errUsage = errors.New("invalid usage")

func requireFlag(name, value string) error {
	if value == "" {
		return fmt.Errorf("--%s is required: %w", name, errUsage)
	}
	return nil
}

func (a *app) dispatch(ctx context.Context, cmd string, opts options, out io.Writer) error {
	switch cmd {
	case "transition":
		if err := errors.Join(requireFlag("booking", opts.bookingID), requireFlag("status", opts.status)); err != nil {
			return err
		}
		res, err := a.bookings.Transition(ctx, opts.bookingID, models.BookingStatus(opts.status))
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "booking %s: %s -> %s (%s stamped)\n", res.BookingID, res.From, res.To, res.PhaseField)

	case "reset":
		if err := requireFlag("booking", opts.bookingID); err != nil {
			return err
		}
		if err := a.bookings.Reset(ctx, opts.bookingID); err != nil {
			return err
		}
		fmt.Fprintf(out, "booking %s: reset to pending, phase timestamps removed\n", opts.bookingID)

	case "reconcile":
		if err := requireFlag("conversation", opts.conversationID); err != nil {
			return err
		}
		res, err := a.conversations.Reconcile(ctx, opts.conversationID, opts.dryRun)
		if err != nil {
			return err
		}
		switch {
		case len(res.Added) == 0:
			fmt.Fprintf(out, "conversation %s: participants already consistent %v\n", res.ConversationID, res.Before)
		case res.Written:
			fmt.Fprintf(out, "conversation %s: %v -> %v\n", res.ConversationID, res.Before, res.After)
		default:
			fmt.Fprintf(out, "conversation %s: would change %v -> %v\n", res.ConversationID, res.Before, res.After)
		}

	case "clear-deleted":
		if err := errors.Join(requireFlag("conversation", opts.conversationID), requireFlag("user", opts.userID)); err != nil {
			return err
		}
		cleared, err := a.conversations.ClearDeletedFlag(ctx, opts.conversationID, opts.userID)
		if err != nil {
			return err
		}
		if cleared {
			fmt.Fprintf(out, "conversation %s: deleted flag cleared for %s\n", opts.conversationID, opts.userID)
		} else {
			fmt.Fprintf(out, "conversation %s: deleted flag was not set for %s\n", opts.conversationID, opts.userID)
		}

	case "aggregate":
		if err := requireFlag("provider", opts.providerID); err != nil {
			return err
		}
		sum, err := a.stats.Recompute(ctx, opts.providerID)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "provider %s: completedJobs=%d reviewCount=%d rating=%.2f\n",
			sum.ProviderID, sum.CompletedJobs, sum.ReviewCount, sum.Rating)

	case "reconcile-all":
		return printReport(out)(a.jobs.ReconcileAll(ctx, opts.dryRun))
	case "repair-deleted-all":
		return printReport(out)(a.jobs.RepairDeletedAll(ctx, opts.dryRun))
	case "aggregate-all":
		return printReport(out)(a.jobs.AggregateAll(ctx))

	default:
		return fmt.Errorf("unknown command %q: %w", cmd, errUsage)
	}
	return nil
}

func printReport(out io.Writer) func(*batch.Report, error) error {
	return func(report *batch.Report, err error) error {
		if err != nil {
			return err
		}
		report.Print(out)
		return report.Err()
	}
}

func adminToken(opts options, out io.Writer) int {
	if opts.subject == "" {
		fmt.Fprintln(out, "error: --subject is required")
		return 2
	}
	token, err := utils.GenerateAdminToken(opts.subject, opts.ttl)
	if err != nil {
		fmt.Fprintf(out, "error: %v\n", err)
		return 1
	}
	fmt.Fprintln(out, token)
	return 0
}

func (a *app) runWorker(ctx context.Context) int {
	logger := utils.GetLogger()
	if a.queue == nil {
		logger.Error("worker needs redis for the task queue")
		return 1
	}

	scheduler, err := workerpkg.NewScheduler(a.jobs, config.AppConfig.ReconcileSchedule, config.AppConfig.AggregateSchedule)
	if err != nil {
		logger.Error("invalid cron schedule", zap.Error(err))
		return 1
	}
	scheduler.Start()
	defer func() { <-scheduler.Stop().Done() }()

	srv := workerpkg.NewWorker()
	if err := srv.Start(workerpkg.NewMux(a.conversations, a.stats)); err != nil {
		logger.Error("failed to start task worker", zap.Error(err))
		return 1
	}
	logger.Info("worker started")
	<-ctx.Done()
	logger.Info("worker shutting down...")
	srv.Shutdown()
	return 0
}

func (a *app) serve(ctx context.Context) int {
	logger := utils.GetLogger()
	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	if err := router.SetTrustedProxies(nil); err != nil {
		logger.Warn("could not reset trusted proxies", zap.Error(err))
	}
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())

	// Keep the interface nil when there is no queue so handlers can tell.
	var queue tasks.Enqueuer
	if a.queue != nil {
		queue = a.queue
	}
	adminHandler := handlers.NewAdminHandler(a.bookings, a.conversations, a.stats, queue)
	routes.RegisterRoutes(router, handlers.NewHandlerBundle(adminHandler, a.healthCheck))

	srv := &http.Server{
		Addr:    "0.0.0.0:" + config.AppConfig.AppPort,
		Handler: router,
	}
	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Sugar().Info("main: server is shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Sugar().Errorf("main: server forced to shutdown: %v", err)
		return 1
	}
	logger.Sugar().Info("main: server stopped gracefully")
	return 0
}

// healthCheck asks the store for a document that never exists; a not-found
// answer proves the store is reachable.
func (a *app) healthCheck(c *gin.Context) {
	_, err := a.store.Get(c.Request.Context(), store.Users, "__healthcheck__")
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
