// Package bootstrap assembles the commission engine from configuration for the
// binaries under cmd/.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/commission-engine/internal/assets"
	"github.com/angelmondragon/commission-engine/internal/commission"
	"github.com/angelmondragon/commission-engine/internal/distributions"
	"github.com/angelmondragon/commission-engine/internal/eligibility"
	"github.com/angelmondragon/commission-engine/internal/rates"
	"github.com/angelmondragon/commission-engine/internal/upline"
	"github.com/angelmondragon/commission-engine/internal/users"
	"github.com/angelmondragon/commission-engine/pkg/config"
	"github.com/angelmondragon/commission-engine/pkg/db"
	"github.com/angelmondragon/commission-engine/pkg/logger"
	"github.com/angelmondragon/commission-engine/pkg/metrics"
)

// Engine bundles the engine with the collaborators binaries also serve directly.
type Engine struct {
	Engine        *commission.Engine
	Rates         *rates.Provider
	Users         *users.Repository
	Resolver      *upline.Resolver
	Distributions distributions.Repository
	Assets        assets.Repository
}

// NewEngine wires the engine against dbClient and loads the rate table once.
// A failed initial load keeps the configured fallback rates.
func NewEngine(ctx context.Context, cfg *config.Config, logg *logger.Logger, dbClient *db.Client, reg prometheus.Registerer) (*Engine, error) {
	fallback, err := cfg.Commission.LevelRates()
	if err != nil {
		return nil, err
	}
	minimum, err := cfg.Commission.MinimumDepositAmount()
	if err != nil {
		return nil, err
	}

	provider, err := rates.NewProvider(rates.ProviderParams{
		Repo:     rates.NewRepository(dbClient.DB()),
		Fallback: fallback,
		Logger:   logg,
	})
	if err != nil {
		return nil, fmt.Errorf("rate provider: %w", err)
	}
	if _, err := provider.Reload(ctx); err != nil {
		logg.Warn(logg.WithField(ctx, "error", err.Error()), "initial rate load failed, using fallback rates")
	}

	directory := users.NewRepository(dbClient.DB())
	resolver, err := upline.NewResolver(directory)
	if err != nil {
		return nil, err
	}

	distRepo := distributions.NewRepository(dbClient.DB())
	assetRepo := assets.NewRepository(dbClient.DB())

	params := commission.EngineParams{
		Tx:            dbClient,
		Rates:         provider,
		Resolver:      resolver,
		Evaluator:     eligibility.NewEvaluator(minimum),
		Distributions: distRepo,
		Assets:        assetRepo,
		Logger:        logg,
	}
	if reg != nil {
		params.Metrics = metrics.NewCommissionMetrics(reg)
	}
	engine, err := commission.NewEngine(params)
	if err != nil {
		return nil, fmt.Errorf("commission engine: %w", err)
	}

	return &Engine{
		Engine:        engine,
		Rates:         provider,
		Users:         directory,
		Resolver:      resolver,
		Distributions: distRepo,
		Assets:        assetRepo,
	}, nil
}
