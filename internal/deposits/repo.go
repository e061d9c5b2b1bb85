package deposits

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/commission-engine/internal/repo"
	"github.com/angelmondragon/commission-engine/pkg/db/models"
	"github.com/angelmondragon/commission-engine/pkg/enums"
)

// ErrNotFound is returned when a deposit id does not resolve to a row.
var ErrNotFound = errors.New("deposit not found")

// Repository reads deposits owned by the funding service.
type Repository interface {
	FindByID(ctx context.Context, id int64) (*models.Deposit, error)
	FindUndistributedConfirmed(ctx context.Context, before time.Time, limit int) ([]models.Deposit, error)
	RecordFailure(ctx context.Context, failure models.DistributionFailure) error
}

type repository struct {
	base repo.Base
}

// NewRepository returns a deposit repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{base: repo.NewBase(db)}
}

func (r *repository) FindByID(ctx context.Context, id int64) (*models.Deposit, error) {
	var deposit models.Deposit
	err := r.base.DB(ctx).First(&deposit, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &deposit, nil
}

// FindUndistributedConfirmed lists confirmed deposits, oldest first, that were
// confirmed at or before the cutoff and have neither a distribution set nor a
// recorded permanent failure.
func (r *repository) FindUndistributedConfirmed(ctx context.Context, before time.Time, limit int) ([]models.Deposit, error) {
	var rows []models.Deposit
	if err := r.base.DB(ctx).
		Table("deposits AS d").
		Select("d.*").
		Joins("LEFT JOIN distribution_sets ds ON ds.deposit_id = d.id").
		Joins("LEFT JOIN distribution_failures df ON df.deposit_id = d.id").
		Where("d.status = ?", enums.DepositStatusConfirmed).
		Where("ds.id IS NULL AND df.deposit_id IS NULL").
		Where("d.confirmed_at IS NOT NULL AND d.confirmed_at <= ?", before).
		Order("d.confirmed_at ASC").
		Order("d.id ASC").
		Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// RecordFailure parks a deposit. A deposit that is already parked keeps its
// first recorded failure.
func (r *repository) RecordFailure(ctx context.Context, failure models.DistributionFailure) error {
	return r.base.DB(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "deposit_id"}}, DoNothing: true}).
		Create(&failure).Error
}
