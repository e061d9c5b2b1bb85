package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/multierr"

	"github.com/angelmondragon/commission-engine/internal/commission"
	"github.com/angelmondragon/commission-engine/internal/deposits"
	"github.com/angelmondragon/commission-engine/pkg/db/models"
	pkgerrors "github.com/angelmondragon/commission-engine/pkg/errors"
	"github.com/angelmondragon/commission-engine/pkg/logger"
)

const (
	defaultReconcileBatch   = 100
	defaultReconcileGrace   = 5 * time.Minute
	defaultReconcileTimeout = 15 * time.Second
)

type depositStore interface {
	FindUndistributedConfirmed(ctx context.Context, before time.Time, limit int) ([]models.Deposit, error)
	RecordFailure(ctx context.Context, failure models.DistributionFailure) error
}

type distributor interface {
	Distribute(ctx context.Context, event commission.DepositEvent) (*commission.Result, error)
}

// ReconcileJobParams configure the job that distributes confirmed deposits
// whose event never reached the consumer.
type ReconcileJobParams struct {
	Logger   *logger.Logger
	Deposits depositStore
	Engine   distributor
	Clock    clockwork.Clock
	Batch    int
	Grace    time.Duration
	Timeout  time.Duration
}

func NewReconcileJob(params ReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Deposits == nil {
		return nil, fmt.Errorf("deposit repository required")
	}
	if params.Engine == nil {
		return nil, fmt.Errorf("commission engine required")
	}
	clock := params.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	batch := params.Batch
	if batch <= 0 {
		batch = defaultReconcileBatch
	}
	grace := params.Grace
	if grace < 0 {
		grace = defaultReconcileGrace
	}
	timeout := params.Timeout
	if timeout <= 0 {
		timeout = defaultReconcileTimeout
	}
	return &reconcileJob{
		logg:     params.Logger,
		deposits: params.Deposits,
		engine:   params.Engine,
		clock:    clock,
		batch:    batch,
		grace:    grace,
		timeout:  timeout,
	}, nil
}

type reconcileJob struct {
	logg     *logger.Logger
	deposits depositStore
	engine   distributor
	clock    clockwork.Clock
	batch    int
	grace    time.Duration
	timeout  time.Duration
}

func (j *reconcileJob) Name() string { return "reconcile-deposits" }

// Run distributes one batch. Deposits confirmed within the grace window are
// left to the consumer. Non-retryable failures are parked.
func (j *reconcileJob) Run(ctx context.Context) error {
	cutoff := j.clock.Now().UTC().Add(-j.grace)
	pending, err := j.deposits.FindUndistributedConfirmed(ctx, cutoff, j.batch)
	if err != nil {
		return fmt.Errorf("list undistributed deposits: %w", err)
	}

	var (
		errs        []error
		distributed int
		parked      int
	)
	for _, deposit := range pending {
		err := j.distribute(ctx, deposit)
		if err == nil {
			distributed++
			continue
		}
		errs = append(errs, fmt.Errorf("deposit %d: %w", deposit.ID, err))
		if commission.IsRetryable(err) {
			continue
		}
		if perr := j.park(ctx, deposit.ID, err); perr != nil {
			errs = append(errs, fmt.Errorf("deposit %d: %w", deposit.ID, perr))
			continue
		}
		parked++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":      cutoff,
		"found":       len(pending),
		"distributed": distributed,
		"parked":      parked,
		"failed":      len(errs),
	})
	j.logg.Info(logCtx, "deposit reconcile complete")
	return multierr.Combine(errs...)
}

func (j *reconcileJob) distribute(ctx context.Context, deposit models.Deposit) error {
	runCtx, cancel := context.WithTimeout(j.logg.WithDepositID(ctx, deposit.ID), j.timeout)
	defer cancel()

	_, err := j.engine.Distribute(runCtx, deposits.EventFromModel(deposit))
	if errors.Is(err, commission.ErrConcurrentDistribution) {
		return nil
	}
	return err
}

// park records a failure no retry can fix so later cycles stop selecting the
// deposit. An operator re-enables it by deleting the row.
func (j *reconcileJob) park(ctx context.Context, depositID int64, cause error) error {
	failure := models.DistributionFailure{
		DepositID: depositID,
		Code:      string(pkgerrors.CodeOf(commission.AsAPIError(cause))),
		Reason:    cause.Error(),
		CreatedAt: j.clock.Now().UTC(),
	}
	if err := j.deposits.RecordFailure(context.WithoutCancel(ctx), failure); err != nil {
		return fmt.Errorf("record failure: %w", err)
	}
	j.logg.Warn(j.logg.WithFields(j.logg.WithDepositID(ctx, depositID), map[string]any{
		"code":   failure.Code,
		"reason": failure.Reason,
	}), "deposit parked; needs manual investigation")
	return nil
}
