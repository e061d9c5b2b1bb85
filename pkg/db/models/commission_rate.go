package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CommissionRate is one row of the per-level rate table.
type CommissionRate struct {
	Level      int             `gorm:"column:level;primaryKey;autoIncrement:false"`
	Percentage decimal.Decimal `gorm:"column:percentage;type:numeric(5,2);not null"`
	UpdatedAt  time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (CommissionRate) TableName() string {
	return "commission_rates"
}
