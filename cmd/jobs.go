package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/vibast-solutions/ms-go-billing/app/service"
	"github.com/vibast-solutions/ms-go-billing/config"
)

var (
	workerMode       bool
	reconcileBatchID uint64
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Run billing job related commands",
}

var jobsRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Drain queued batch processing and billing sync jobs",
	Run: func(_ *cobra.Command, _ []string) {
		runCommand(
			"billing_jobs",
			func(cfg *config.Config) time.Duration { return cfg.Jobs.BillingPollInterval },
			func(s *service.BillingService, ctx context.Context) error {
				return drainJobs(s, ctx)
			},
		)
	},
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Remove chargebacked debtors from a batch",
	Run: func(_ *cobra.Command, _ []string) {
		if reconcileBatchID == 0 {
			logrus.Fatal("--batch-id is required")
		}
		_, billingService, cleanup := mustCreateBillingService()
		defer cleanup()

		runJob("reconcile", func() error {
			removed, err := billingService.ReconcileChargebacks(context.Background(), reconcileBatchID)
			if err != nil {
				return err
			}
			logrus.WithField("batch_id", reconcileBatchID).WithField("removed", removed).Info("Chargebacked debtors removed")
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(jobsCmd)
	rootCmd.AddCommand(reconcileCmd)
	jobsCmd.AddCommand(jobsRunCmd)

	rootCmd.PersistentFlags().BoolVar(&workerMode, "worker", false, "Run continuously using configured interval")
	reconcileCmd.Flags().Uint64Var(&reconcileBatchID, "batch-id", 0, "Batch to reconcile")
}

// drainJobs claims queued jobs until the queue is empty. A failed job is
// recorded on the job row and does not stop the drain.
func drainJobs(s *service.BillingService, ctx context.Context) error {
	var firstErr error
	for {
		claimed, err := s.ProcessNextJob(ctx)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			if !claimed {
				return firstErr
			}
			continue
		}
		if !claimed {
			return firstErr
		}
	}
}

func runCommand(
	name string,
	intervalResolver func(cfg *config.Config) time.Duration,
	fn func(s *service.BillingService, ctx context.Context) error,
) {
	cfg, billingService, cleanup := mustCreateBillingService()
	defer cleanup()

	if workerMode {
		runWorker(name, intervalResolver(cfg), billingService, fn)
		return
	}

	ctx := context.Background()
	runJob(name, func() error { return fn(billingService, ctx) })
}

func runWorker(
	name string,
	interval time.Duration,
	billingService *service.BillingService,
	fn func(s *service.BillingService, ctx context.Context) error,
) {
	if interval <= 0 {
		logrus.WithField("job", name).Fatal("invalid worker interval")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runJob(name, func() error { return fn(billingService, ctx) })

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	for {
		select {
		case <-quit:
			logrus.WithField("job", name).Info("Worker shutdown requested")
			return
		case <-ticker.C:
			runJob(name, func() error { return fn(billingService, ctx) })
		}
	}
}

func runJob(name string, fn func() error) {
	start := time.Now()
	err := fn()
	latency := time.Since(start)
	if err != nil && !errors.Is(err, context.Canceled) {
		logrus.WithError(err).WithField("job", name).WithField("latency", latency.String()).Error("job_failed")
		return
	}
	logrus.WithField("job", name).WithField("latency", latency.String()).Info("job_completed")
}
