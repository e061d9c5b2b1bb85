package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DistributionSet is the per-deposit header written alongside the distribution
// rows. The unique deposit_id key makes a second run for the same deposit fail.
type DistributionSet struct {
	ID                  uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	DepositID           int64           `gorm:"column:deposit_id;not null;uniqueIndex:uq_distribution_sets_deposit"`
	DepositorID         int64           `gorm:"column:depositor_id;not null"`
	DepositAmount       decimal.Decimal `gorm:"column:deposit_amount;type:numeric(18,2);not null"`
	AncestorsConsidered int             `gorm:"column:ancestors_considered;not null"`
	TotalCredited       decimal.Decimal `gorm:"column:total_credited;type:numeric(18,2);not null"`
	CreatedAt           time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (DistributionSet) TableName() string {
	return "distribution_sets"
}

func (s *DistributionSet) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// Distribution records one commission credit to one beneficiary for one deposit.
// Rows are append-only.
type Distribution struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	DepositID     int64           `gorm:"column:deposit_id;not null;uniqueIndex:uq_distributions_deposit_beneficiary_level,priority:1"`
	BeneficiaryID int64           `gorm:"column:beneficiary_id;not null;uniqueIndex:uq_distributions_deposit_beneficiary_level,priority:2"`
	Level         int             `gorm:"column:level;not null;uniqueIndex:uq_distributions_deposit_beneficiary_level,priority:3"`
	Rate          decimal.Decimal `gorm:"column:rate;type:numeric(5,2);not null"`
	Amount        decimal.Decimal `gorm:"column:amount;type:numeric(18,2);not null"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (Distribution) TableName() string {
	return "distributions"
}

func (d *Distribution) BeforeCreate(*gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
