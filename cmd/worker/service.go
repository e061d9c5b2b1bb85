package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/commission-engine/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

type runner interface {
	Run(ctx context.Context) error
}

type rateRefresher interface {
	Run(ctx context.Context, interval time.Duration) error
}

type dependency struct {
	name string
	ping func(context.Context) error
}

type ServiceParams struct {
	Logger       *logger.Logger
	Dependencies []dependency
	Consumer     runner
	Rates        rateRefresher
	RateInterval time.Duration
	// MetricsServer is optional; when set it serves /metrics for the scraper.
	MetricsServer *http.Server
}

type Service struct {
	logg         *logger.Logger
	deps         []dependency
	consumer     runner
	rates        rateRefresher
	rateInterval time.Duration
	metrics      *http.Server
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.Consumer == nil {
		return nil, errors.New("deposit consumer is required")
	}
	if params.Rates == nil {
		return nil, errors.New("rate provider is required")
	}
	if params.RateInterval <= 0 {
		return nil, errors.New("rate reload interval must be positive")
	}
	return &Service{
		logg:         params.Logger,
		deps:         params.Dependencies,
		consumer:     params.Consumer,
		rates:        params.Rates,
		rateInterval: params.RateInterval,
		metrics:      params.MetricsServer,
	}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	for _, dep := range s.deps {
		if err := dep.ping(ctx); err != nil {
			s.logg.Error(ctx, fmt.Sprintf("%s ping failed", dep.name), err)
			return fmt.Errorf("%s ping failed: %w", dep.name, err)
		}
	}
	s.logg.Info(ctx, "all worker dependencies are ready")
	return nil
}

// Run blocks until ctx is cancelled or one of the loops fails; the first
// failure cancels the others.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.consumer.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("deposit consumer: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := s.rates.Run(gctx, s.rateInterval); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("rate refresher: %w", err)
		}
		return nil
	})
	if s.metrics != nil {
		g.Go(func() error {
			if err := s.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return s.metrics.Shutdown(shutdownCtx)
		})
	}

	err := g.Wait()
	if err != nil {
		s.logg.Error(ctx, "worker stopped unexpectedly", err)
		return err
	}
	s.logg.Info(ctx, "worker context canceled")
	return ctx.Err()
}
