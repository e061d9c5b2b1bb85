package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/commission-engine/pkg/enums"
)

// Deposit is owned by the funding service; the engine only reads confirmed rows.
type Deposit struct {
	ID          int64               `gorm:"column:id;primaryKey"`
	UserID      int64               `gorm:"column:user_id;not null"`
	Amount      decimal.Decimal     `gorm:"column:amount;type:numeric(18,2);not null"`
	Status      enums.DepositStatus `gorm:"column:status;type:deposit_status_enum;not null"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
	ConfirmedAt *time.Time          `gorm:"column:confirmed_at"`
}

func (Deposit) TableName() string {
	return "deposits"
}
