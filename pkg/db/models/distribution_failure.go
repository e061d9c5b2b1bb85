package models

import "time"

// DistributionFailure parks a deposit whose distribution failed in a way no
// retry can fix. Reconciliation skips parked deposits; deleting the row after
// repairing the data makes the deposit eligible again.
type DistributionFailure struct {
	DepositID int64     `gorm:"column:deposit_id;primaryKey;autoIncrement:false"`
	Code      string    `gorm:"column:code;not null"`
	Reason    string    `gorm:"column:reason;not null"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
}

func (DistributionFailure) TableName() string {
	return "distribution_failures"
}
