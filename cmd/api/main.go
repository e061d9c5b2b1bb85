package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/commission-engine/api/routes"
	"github.com/angelmondragon/commission-engine/internal/bootstrap"
	"github.com/angelmondragon/commission-engine/internal/deposits"
	"github.com/angelmondragon/commission-engine/internal/distributions"
	"github.com/angelmondragon/commission-engine/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx)
	stop()
	if err != nil {
		logger.New(logger.Options{ServiceName: "api"}).Error(context.Background(), "api exited", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	infra, err := bootstrap.Open(ctx, "api")
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

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	built, err := bootstrap.NewEngine(ctx, cfg, logg, infra.DB, registry)
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	distributionService, err := distributions.NewService(built.Distributions)
	if err != nil {
		return fmt.Errorf("build distribution service: %w", err)
	}

	addr := ":" + cfg.App.Port
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	ctx = logg.WithField(infra.LogContext(ctx), "addr", addr)

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			infra.DB,
			infra.Redis,
			promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
			deposits.NewRepository(infra.DB.DB()),
			built.Engine,
			distributionService,
			built.Users,
			built.Resolver,
			built.Assets,
			built.Rates,
		),
		ReadHeaderTimeout: 5 * time.Second,
	}

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		err := built.Rates.Run(gctx, cfg.Commission.RateReloadInterval)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	group.Go(func() error {
		logg.Info(gctx, "starting api server")
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		return err
	}
	logg.Info(ctx, "api server shut down")
	return nil
}
