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

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/commission-engine/internal/bootstrap"
	"github.com/angelmondragon/commission-engine/internal/deposits"
	"github.com/angelmondragon/commission-engine/pkg/idempotency"
	"github.com/angelmondragon/commission-engine/pkg/logger"
	"github.com/angelmondragon/commission-engine/pkg/pubsub"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx)
	stop()
	if err != nil {
		logger.New(logger.Options{ServiceName: "worker"}).Error(context.Background(), "worker exited", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	infra, err := bootstrap.Open(ctx, "worker")
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

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		return fmt.Errorf("connect pubsub: %w", err)
	}
	infra.OnClose(pubsubClient.Close)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	built, err := bootstrap.NewEngine(ctx, cfg, logg, infra.DB, registry)
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}

	claims, err := idempotency.NewManager(infra.Redis, cfg.Eventing.IdempotencyTTL)
	if err != nil {
		return fmt.Errorf("build idempotency manager: %w", err)
	}

	consumer, err := deposits.NewConsumer(deposits.ConsumerParams{
		Engine:       built.Engine,
		Subscription: pubsubClient.DepositsSubscriber(),
		Idempotency:  claims,
		Timeout:      cfg.Commission.DistributeTimeout,
		Logger:       logg,
	})
	if err != nil {
		return fmt.Errorf("build deposit consumer: %w", err)
	}

	metricsRouter := chi.NewRouter()
	metricsRouter.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	service, err := NewService(ServiceParams{
		Logger: logg,
		Dependencies: []dependency{
			{name: "database", ping: infra.DB.Ping},
			{name: "redis", ping: infra.Redis.Ping},
			{name: "pubsub", ping: pubsubClient.Ping},
		},
		Consumer:     consumer,
		Rates:        built.Rates,
		RateInterval: cfg.Commission.RateReloadInterval,
		MetricsServer: &http.Server{
			Addr:              ":" + cfg.App.Port,
			Handler:           metricsRouter,
			ReadHeaderTimeout: 5 * time.Second,
		},
	})
	if err != nil {
		return fmt.Errorf("build worker service: %w", err)
	}

	ctx = logg.WithField(infra.LogContext(ctx), "subscription", cfg.PubSub.DepositsSubscription)
	logg.Info(ctx, "starting worker")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logg.Info(ctx, "worker shutting down gracefully")
	return nil
}
