package commission

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/commission-engine/pkg/db/models"
)

// DepositEvent is a confirmed deposit handed to the engine.
type DepositEvent struct {
	DepositID   int64           `json:"depositId" validate:"required,gt=0"`
	DepositorID int64           `json:"depositorId" validate:"required,gt=0"`
	Amount      decimal.Decimal `json:"amount"`
	ConfirmedAt time.Time       `json:"confirmedAt"`
}

// Entry is one credit inside a Result.
type Entry struct {
	BeneficiaryID int64           `json:"beneficiaryId"`
	Level         int             `json:"level"`
	Rate          decimal.Decimal `json:"rate"`
	Amount        decimal.Decimal `json:"amount"`
}

// Result describes the outcome of distributing one deposit.
type Result struct {
	DepositID           int64           `json:"depositId"`
	DepositorID         int64           `json:"depositorId"`
	AncestorsConsidered int             `json:"ancestorsConsidered"`
	TotalCredited       decimal.Decimal `json:"totalCredited"`
	Entries             []Entry         `json:"entries"`
	CreatedAt           time.Time       `json:"createdAt"`
	// Replayed is set when the deposit had already been distributed. It
	// describes the call, not the recorded outcome, so compare results
	// without it.
	Replayed bool `json:"replayed"`
}

func resultFromSet(set *models.DistributionSet, rows []models.Distribution) *Result {
	res := &Result{
		DepositID:           set.DepositID,
		DepositorID:         set.DepositorID,
		AncestorsConsidered: set.AncestorsConsidered,
		TotalCredited:       set.TotalCredited.Round(2),
		Entries:             make([]Entry, 0, len(rows)),
		CreatedAt:           set.CreatedAt.UTC(),
	}
	for _, row := range rows {
		res.Entries = append(res.Entries, Entry{
			BeneficiaryID: row.BeneficiaryID,
			Level:         row.Level,
			Rate:          row.Rate.Round(2),
			Amount:        row.Amount.Round(2),
		})
	}
	return res
}
