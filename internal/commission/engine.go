package commission

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/commission-engine/internal/assets"
	"github.com/angelmondragon/commission-engine/internal/distributions"
	"github.com/angelmondragon/commission-engine/internal/eligibility"
	"github.com/angelmondragon/commission-engine/internal/rates"
	"github.com/angelmondragon/commission-engine/internal/upline"
	"github.com/angelmondragon/commission-engine/pkg/db"
	"github.com/angelmondragon/commission-engine/pkg/db/models"
	"github.com/angelmondragon/commission-engine/pkg/enums"
	"github.com/angelmondragon/commission-engine/pkg/logger"
)

var hundred = decimal.NewFromInt(100)

// RateSource hands out the rate table a run uses.
type RateSource interface {
	Snapshot() *rates.Table
}

// UplineResolver returns a depositor's ancestors, nearest first.
type UplineResolver interface {
	ResolveChain(ctx context.Context, userID int64) ([]upline.Ancestor, error)
}

// Metrics observes finished runs.
type Metrics interface {
	ObserveRun(outcome enums.DistributionOutcome, credited decimal.Decimal, took time.Duration)
}

// EngineParams wires an Engine.
type EngineParams struct {
	Tx            db.TxRunner
	Rates         RateSource
	Resolver      UplineResolver
	Evaluator     *eligibility.Evaluator
	Distributions distributions.Repository
	Assets        assets.Repository
	Clock         clockwork.Clock
	Metrics       Metrics
	Logger        *logger.Logger
}

// Engine distributes deposit commissions across the upline.
type Engine struct {
	tx        db.TxRunner
	rates     RateSource
	resolver  UplineResolver
	evaluator *eligibility.Evaluator
	dists     distributions.Repository
	assets    assets.Repository
	clock     clockwork.Clock
	metrics   Metrics
	logg      *logger.Logger
}

// NewEngine validates params and returns an engine.
func NewEngine(params EngineParams) (*Engine, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Rates == nil {
		return nil, fmt.Errorf("rate source required")
	}
	if params.Resolver == nil {
		return nil, fmt.Errorf("upline resolver required")
	}
	if params.Evaluator == nil {
		return nil, fmt.Errorf("eligibility evaluator required")
	}
	if params.Distributions == nil {
		return nil, fmt.Errorf("distribution repository required")
	}
	if params.Assets == nil {
		return nil, fmt.Errorf("asset repository required")
	}
	clock := params.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Engine{
		tx:        params.Tx,
		rates:     params.Rates,
		resolver:  params.Resolver,
		evaluator: params.Evaluator,
		dists:     params.Distributions,
		assets:    params.Assets,
		clock:     clock,
		metrics:   params.Metrics,
		logg:      logg,
	}, nil
}

// Distribute computes and persists the commissions for one confirmed deposit.
// Calling it again for the same deposit returns the stored result.
func (e *Engine) Distribute(ctx context.Context, event DepositEvent) (*Result, error) {
	started := e.clock.Now()
	ctx = e.logg.WithFields(e.logg.WithDepositID(ctx, event.DepositID), map[string]any{
		"depositor_id": event.DepositorID,
		"amount":       event.Amount.String(),
	})

	res, outcome, err := e.distribute(ctx, event)
	credited := decimal.Zero
	if res != nil {
		credited = res.TotalCredited
	}
	if e.metrics != nil {
		e.metrics.ObserveRun(outcome, credited, e.clock.Since(started))
	}
	return res, err
}

func (e *Engine) distribute(ctx context.Context, event DepositEvent) (*Result, enums.DistributionOutcome, error) {
	if err := validateEvent(event); err != nil {
		return nil, enums.DistributionOutcomeInvalid, err
	}

	existing, err := e.Lookup(ctx, event.DepositID)
	switch {
	case err == nil:
		existing.Replayed = true
		e.logg.Info(ctx, "distribution.replayed")
		return existing, enums.DistributionOutcomeReplayed, nil
	case !errors.Is(err, ErrNotDistributed):
		return nil, enums.DistributionOutcomeFailed, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	chain, err := e.resolver.ResolveChain(ctx, event.DepositorID)
	if err != nil {
		switch {
		case errors.Is(err, upline.ErrCycleDetected), errors.Is(err, upline.ErrBrokenChain):
			e.logg.Error(ctx, "distribution.data_integrity", err)
			return nil, enums.DistributionOutcomeDataIntegrity, fmt.Errorf("%w: %w", ErrDataIntegrity, err)
		case errors.Is(err, upline.ErrResolutionTimeout):
			return nil, enums.DistributionOutcomeTimeout, err
		default:
			return nil, enums.DistributionOutcomeFailed, fmt.Errorf("%w: %w", ErrPersistence, err)
		}
	}

	entries, err := e.compute(ctx, event, chain)
	if err != nil {
		e.logg.Error(ctx, "distribution.configuration", err)
		return nil, enums.DistributionOutcomeConfiguration, err
	}

	res, err := e.persist(ctx, event, len(chain), entries)
	if err != nil {
		if errors.Is(err, ErrConcurrentDistribution) {
			e.logg.Warn(ctx, "distribution.concurrent")
			return nil, enums.DistributionOutcomeConcurrent, err
		}
		return nil, enums.DistributionOutcomeFailed, err
	}

	outcome := enums.DistributionOutcomeCredited
	if len(res.Entries) == 0 {
		outcome = enums.DistributionOutcomeEmpty
	}
	e.logg.Info(e.logg.WithFields(ctx, map[string]any{
		"ancestors":      res.AncestorsConsidered,
		"beneficiaries":  len(res.Entries),
		"total_credited": res.TotalCredited.StringFixed(2),
	}), "distribution.completed")
	return res, outcome, nil
}

// compute stages every credit in memory using a single rate snapshot.
func (e *Engine) compute(ctx context.Context, event DepositEvent, chain []upline.Ancestor) ([]Entry, error) {
	table := e.rates.Snapshot()
	dep := eligibility.Deposit{DepositorID: event.DepositorID, Amount: event.Amount}

	entries := make([]Entry, 0, len(chain))
	for _, ancestor := range chain {
		if reason := e.evaluator.Evaluate(dep, ancestor, ancestor.Level); reason != eligibility.ReasonEligible {
			e.logg.Debug(e.logg.WithFields(ctx, map[string]any{
				"beneficiary_id": ancestor.UserID,
				"level":          ancestor.Level,
				"reason":         string(reason),
			}), "distribution.skipped_ineligible")
			continue
		}

		rate, err := table.RateForLevel(ancestor.Level)
		if err != nil {
			return nil, err
		}
		amount := event.Amount.Mul(rate).Div(hundred).Round(2)
		if !amount.IsPositive() {
			continue
		}
		entries = append(entries, Entry{
			BeneficiaryID: ancestor.UserID,
			Level:         ancestor.Level,
			Rate:          rate,
			Amount:        amount,
		})
	}
	return entries, nil
}

func (e *Engine) persist(ctx context.Context, event DepositEvent, considered int, entries []Entry) (*Result, error) {
	// storage keeps microseconds; a replay must read back the same instant
	now := e.clock.Now().UTC().Truncate(time.Microsecond)

	total := decimal.Zero
	rows := make([]models.Distribution, 0, len(entries))
	credits := make(map[int64]decimal.Decimal, len(entries))
	for _, entry := range entries {
		total = total.Add(entry.Amount)
		rows = append(rows, models.Distribution{
			DepositID:     event.DepositID,
			BeneficiaryID: entry.BeneficiaryID,
			Level:         entry.Level,
			Rate:          entry.Rate,
			Amount:        entry.Amount,
			CreatedAt:     now,
		})
		credits[entry.BeneficiaryID] = credits[entry.BeneficiaryID].Add(entry.Amount)
	}

	// lock asset rows in a fixed order
	beneficiaries := make([]int64, 0, len(credits))
	for id := range credits {
		beneficiaries = append(beneficiaries, id)
	}
	sort.Slice(beneficiaries, func(i, j int) bool { return beneficiaries[i] < beneficiaries[j] })

	set := &models.DistributionSet{
		DepositID:           event.DepositID,
		DepositorID:         event.DepositorID,
		DepositAmount:       event.Amount,
		AncestorsConsidered: considered,
		TotalCredited:       total,
		CreatedAt:           now,
	}

	err := e.tx.WithTx(ctx, func(tx *gorm.DB) error {
		dists := e.dists.WithTx(tx)
		assetRepo := e.assets.WithTx(tx)

		if err := dists.CreateSet(ctx, set); err != nil {
			return err
		}
		if err := dists.CreateDistributions(ctx, rows); err != nil {
			return err
		}
		for _, id := range beneficiaries {
			if err := assetRepo.Credit(ctx, id, credits[id], now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, distributions.ErrSetExists) {
			return nil, fmt.Errorf("%w: %w", ErrConcurrentDistribution, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	return resultFromSet(set, rows), nil
}

// Lookup returns the stored result for a deposit, or ErrNotDistributed.
func (e *Engine) Lookup(ctx context.Context, depositID int64) (*Result, error) {
	set, err := e.dists.FindSetByDepositID(ctx, depositID)
	if err != nil {
		if errors.Is(err, distributions.ErrSetNotFound) {
			return nil, fmt.Errorf("%w: deposit %d", ErrNotDistributed, depositID)
		}
		return nil, err
	}
	rows, err := e.dists.ListByDepositID(ctx, depositID)
	if err != nil {
		return nil, err
	}
	return resultFromSet(set, rows), nil
}

func validateEvent(event DepositEvent) error {
	switch {
	case event.DepositID <= 0:
		return fmt.Errorf("%w: deposit id must be positive", ErrInvalidEvent)
	case event.DepositorID <= 0:
		return fmt.Errorf("%w: depositor id must be positive", ErrInvalidEvent)
	case event.Amount.IsNegative():
		return fmt.Errorf("%w: amount must not be negative", ErrInvalidEvent)
	case !event.Amount.Equal(event.Amount.Round(2)):
		return fmt.Errorf("%w: amount has more than two decimal places", ErrInvalidEvent)
	}
	return nil
}
