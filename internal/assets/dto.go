package assets

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/commission-engine/pkg/db/models"
)

// AssetDTO is the transport shape of a member's balance.
type AssetDTO struct {
	UserID           int64           `json:"userId"`
	AvailableBalance decimal.Decimal `json:"availableBalance"`
	TotalCommission  decimal.Decimal `json:"totalCommission"`
	UpdatedAt        *time.Time      `json:"updatedAt,omitempty"`
}

func FromModel(a *models.Asset) *AssetDTO {
	if a == nil {
		return nil
	}
	dto := &AssetDTO{
		UserID:           a.UserID,
		AvailableBalance: a.AvailableBalance.Round(2),
		TotalCommission:  a.TotalCommission.Round(2),
	}
	if !a.UpdatedAt.IsZero() {
		updated := a.UpdatedAt.UTC()
		dto.UpdatedAt = &updated
	}
	return dto
}
