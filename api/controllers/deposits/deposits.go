package deposits

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/angelmondragon/commission-engine/api/responses"
	"github.com/angelmondragon/commission-engine/api/validators"
	"github.com/angelmondragon/commission-engine/internal/commission"
	internaldeposits "github.com/angelmondragon/commission-engine/internal/deposits"
	"github.com/angelmondragon/commission-engine/internal/distributions"
	"github.com/angelmondragon/commission-engine/pkg/db/models"
	"github.com/angelmondragon/commission-engine/pkg/enums"
	pkgerrors "github.com/angelmondragon/commission-engine/pkg/errors"
	"github.com/angelmondragon/commission-engine/pkg/logger"
)

const defaultDistributeTimeout = 15 * time.Second

// DepositFinder loads a single deposit.
type DepositFinder interface {
	FindByID(ctx context.Context, id int64) (*models.Deposit, error)
}

// Distribute runs the engine for a confirmed deposit. Repeating the call
// returns the stored result; losing a race to another run returns the
// winner's result.
func Distribute(deposits DepositFinder, engine internaldeposits.Distributor, timeout time.Duration, logg *logger.Logger) http.HandlerFunc {
	if timeout <= 0 {
		timeout = defaultDistributeTimeout
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if deposits == nil || engine == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "commission engine unavailable"))
			return
		}

		depositID, err := validators.ParsePathID(r, "depositId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := logg.WithDepositID(r.Context(), depositID)

		deposit, err := deposits.FindByID(ctx, depositID)
		if err != nil {
			if errors.Is(err, internaldeposits.ErrNotFound) {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "deposit not found"))
				return
			}
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load deposit"))
			return
		}
		if deposit.Status != enums.DepositStatusConfirmed {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeStateConflict, "deposit is not confirmed").
				WithDetails(map[string]any{"status": deposit.Status}))
			return
		}

		runCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		result, err := engine.Distribute(runCtx, internaldeposits.EventFromModel(*deposit))
		if errors.Is(err, commission.ErrConcurrentDistribution) {
			result, err = engine.Lookup(ctx, depositID)
		}
		if err != nil {
			responses.WriteError(ctx, logg, w, commission.AsAPIError(err))
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// Distributions lists the credits produced by one deposit.
func Distributions(svc distributions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "distribution service unavailable"))
			return
		}

		depositID, err := validators.ParsePathID(r, "depositId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.RecordsForDeposit(r.Context(), depositID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list deposit distributions"))
			return
		}
		responses.WriteSuccess(w, rows)
	}
}
