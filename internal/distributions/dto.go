package distributions

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/commission-engine/pkg/db/models"
)

// DistributionDTO is the transport shape of one distribution row.
type DistributionDTO struct {
	ID            uuid.UUID       `json:"id"`
	DepositID     int64           `json:"depositId"`
	BeneficiaryID int64           `json:"beneficiaryId"`
	Level         int             `json:"level"`
	Rate          decimal.Decimal `json:"rate"`
	Amount        decimal.Decimal `json:"amount"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// ListResult is one page of a beneficiary's distributions.
type ListResult struct {
	Distributions []DistributionDTO `json:"distributions"`
	NextCursor    string            `json:"nextCursor,omitempty"`
}

// LevelSummary is a beneficiary's lifetime earnings at one level.
type LevelSummary struct {
	Level  int             `json:"level"`
	Count  int64           `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

// Summary is a beneficiary's earnings broken down by level.
type Summary struct {
	BeneficiaryID int64           `json:"beneficiaryId"`
	Total         decimal.Decimal `json:"total"`
	Levels        []LevelSummary  `json:"levels"`
}

func FromModel(m models.Distribution) DistributionDTO {
	return DistributionDTO{
		ID:            m.ID,
		DepositID:     m.DepositID,
		BeneficiaryID: m.BeneficiaryID,
		Level:         m.Level,
		Rate:          m.Rate,
		Amount:        m.Amount.Round(2),
		CreatedAt:     m.CreatedAt.UTC(),
	}
}

func FromModels(rows []models.Distribution) []DistributionDTO {
	out := make([]DistributionDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromModel(row))
	}
	return out
}
