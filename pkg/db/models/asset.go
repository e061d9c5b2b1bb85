package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Asset holds a member's spendable balance and lifetime commission counter.
type Asset struct {
	UserID           int64           `gorm:"column:user_id;primaryKey;autoIncrement:false"`
	AvailableBalance decimal.Decimal `gorm:"column:available_balance;type:numeric(18,2);not null"`
	TotalCommission  decimal.Decimal `gorm:"column:total_commission;type:numeric(18,2);not null"`
	UpdatedAt        time.Time       `gorm:"column:updated_at"`
}

func (Asset) TableName() string {
	return "assets"
}
