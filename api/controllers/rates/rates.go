package rates

import (
	"context"
	"errors"
	"net/http"

	"github.com/angelmondragon/commission-engine/api/responses"
	"github.com/angelmondragon/commission-engine/internal/commission"
	internalrates "github.com/angelmondragon/commission-engine/internal/rates"
	pkgerrors "github.com/angelmondragon/commission-engine/pkg/errors"
	"github.com/angelmondragon/commission-engine/pkg/logger"
)

// Source exposes the live rate table.
type Source interface {
	Snapshot() *internalrates.Table
	Reload(ctx context.Context) (*internalrates.Table, error)
}

// TableResponse is the rate table as served over HTTP.
type TableResponse struct {
	Rates    []internalrates.Rate `json:"rates"`
	Complete bool                 `json:"complete"`
}

func tableResponse(t *internalrates.Table) TableResponse {
	if t == nil {
		return TableResponse{Rates: []internalrates.Rate{}}
	}
	return TableResponse{Rates: t.Rates(), Complete: t.Complete()}
}

// List returns the snapshot new runs will use.
func List(src Source, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if src == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "rate provider unavailable"))
			return
		}
		responses.WriteSuccess(w, tableResponse(src.Snapshot()))
	}
}

// Reload re-reads commission_rates. Runs already in flight keep their snapshot.
func Reload(src Source, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if src == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "rate provider unavailable"))
			return
		}

		table, err := src.Reload(r.Context())
		if err != nil {
			if errors.Is(err, internalrates.ErrConfiguration) {
				responses.WriteError(r.Context(), logg, w, commission.AsAPIError(err))
				return
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload commission rates"))
			return
		}

		if logg != nil {
			logg.Info(logg.WithField(r.Context(), "levels", table.Len()), "commission rates reloaded")
		}
		responses.WriteSuccess(w, tableResponse(table))
	}
}
