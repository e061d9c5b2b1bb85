package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/commission-engine/internal/bootstrap"
	"github.com/angelmondragon/commission-engine/internal/cron"
	"github.com/angelmondragon/commission-engine/internal/deposits"
	"github.com/angelmondragon/commission-engine/pkg/logger"
	"github.com/angelmondragon/commission-engine/pkg/metrics"
)

func main() {
	runOnce := flag.String("run-once", "", "run the comma separated jobs (or \"all\") a single time and exit")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, *runOnce)
	stop()
	if err != nil {
		logger.New(logger.Options{ServiceName: "cron-worker"}).Error(context.Background(), "cron worker exited", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, runOnce string) error {
	infra, err := bootstrap.Open(ctx, "cron-worker")
	if err != nil {
		return err
	}
	logg := infra.Logger
	defer func() {
		if cerr := infra.Close(); cerr != nil {
			logg.Error(context.Background(), "closing connections", cerr)
		}
	}()
	cfg := infra.Config

	built, err := bootstrap.NewEngine(ctx, cfg, logg, infra.DB, prometheus.DefaultRegisterer)
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}

	reconcile, err := cron.NewReconcileJob(cron.ReconcileJobParams{
		Logger:   logg,
		Deposits: deposits.NewRepository(infra.DB.DB()),
		Engine:   built.Engine,
		Batch:    cfg.Cron.ReconcileBatch,
		Grace:    cfg.Cron.ReconcileGrace,
		Timeout:  cfg.Commission.DistributeTimeout,
	})
	if err != nil {
		return fmt.Errorf("build reconcile job: %w", err)
	}
	registry, err := cron.NewRegistry(reconcile)
	if err != nil {
		return fmt.Errorf("register cron jobs: %w", err)
	}

	lockKey := infra.Redis.LockKey("cron-worker:" + lockScope(cfg.App.Env))
	lock, err := cron.NewRedisLock(infra.Redis, lockKey, infra.Instance, 0)
	if err != nil {
		return fmt.Errorf("build cron lock: %w", err)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		return fmt.Errorf("build cron service: %w", err)
	}

	ctx = infra.LogContext(ctx)
	if runOnce != "" {
		if err := service.RunOnce(ctx, jobNames(runOnce)...); err != nil {
			return fmt.Errorf("one-off run: %w", err)
		}
		logg.Info(ctx, "one-off cron run complete")
		return nil
	}

	go func() {
		if err := built.Rates.Run(ctx, cfg.Commission.RateReloadInterval); err != nil && !errors.Is(err, context.Canceled) {
			logg.Error(ctx, "rate refresher stopped", err)
		}
	}()

	logg.Info(ctx, "starting cron worker")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logg.Info(ctx, "cron worker shutting down gracefully")
	return nil
}

// lockScope keeps environments sharing one Redis from contending for a lease.
func lockScope(env string) string {
	if env == "" {
		return "local"
	}
	return env
}

// jobNames parses the -run-once value. "all" maps to no names, which runs
// every registered job.
func jobNames(arg string) []string {
	if arg == "all" {
		return nil
	}
	var names []string
	for _, name := range strings.Split(arg, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}
