package distributions

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/commission-engine/internal/repo"
	"github.com/angelmondragon/commission-engine/pkg/db"
	"github.com/angelmondragon/commission-engine/pkg/db/models"
	"github.com/angelmondragon/commission-engine/pkg/pagination"
)

var (
	// ErrSetNotFound is returned when a deposit has not been distributed yet.
	ErrSetNotFound = errors.New("distribution set not found")
	// ErrSetExists is returned when another run already wrote the deposit's set.
	ErrSetExists = errors.New("distribution set already exists")
)

const (
	setConstraint = "uq_distribution_sets_deposit"
	// sqlite reports the column list instead of the index name
	setColumn = "distribution_sets.deposit_id"
)

// Repository manages persistence for distribution sets and their rows.
// Rows are inserted once and never updated.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateSet(ctx context.Context, set *models.DistributionSet) error
	CreateDistributions(ctx context.Context, rows []models.Distribution) error
	FindSetByDepositID(ctx context.Context, depositID int64) (*models.DistributionSet, error)
	ListByDepositID(ctx context.Context, depositID int64) ([]models.Distribution, error)
	ListByBeneficiaryID(ctx context.Context, beneficiaryID int64) ([]models.Distribution, error)
	PageByBeneficiaryID(ctx context.Context, beneficiaryID int64, limit int, after *pagination.Cursor) ([]models.Distribution, error)
	SumByLevel(ctx context.Context, beneficiaryID int64) ([]LevelTotal, error)
}

// LevelTotal aggregates one beneficiary's earnings at one level.
type LevelTotal struct {
	Level  int             `gorm:"column:level"`
	Count  int64           `gorm:"column:count"`
	Amount decimal.Decimal `gorm:"column:amount"`
}

type repository struct {
	base repo.Base
}

// NewRepository returns a distribution repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{base: r.base.Bind(tx)}
}

func (r *repository) CreateSet(ctx context.Context, set *models.DistributionSet) error {
	err := r.base.DB(ctx).Create(set).Error
	if db.IsUniqueViolation(err, setConstraint) || db.IsUniqueViolation(err, setColumn) {
		return fmt.Errorf("%w: deposit %d", ErrSetExists, set.DepositID)
	}
	return err
}

func (r *repository) CreateDistributions(ctx context.Context, rows []models.Distribution) error {
	if len(rows) == 0 {
		return nil
	}
	return r.base.DB(ctx).Create(&rows).Error
}

func (r *repository) FindSetByDepositID(ctx context.Context, depositID int64) (*models.DistributionSet, error) {
	var set models.DistributionSet
	err := r.base.DB(ctx).Where("deposit_id = ?", depositID).First(&set).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSetNotFound
	}
	if err != nil {
		return nil, err
	}
	return &set, nil
}

func (r *repository) ListByDepositID(ctx context.Context, depositID int64) ([]models.Distribution, error) {
	var rows []models.Distribution
	if err := r.base.DB(ctx).
		Where("deposit_id = ?", depositID).
		Order("created_at ASC").
		Order("level ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListByBeneficiaryID(ctx context.Context, beneficiaryID int64) ([]models.Distribution, error) {
	var rows []models.Distribution
	if err := r.base.DB(ctx).
		Where("beneficiary_id = ?", beneficiaryID).
		Scopes(repo.LedgerOrder).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) PageByBeneficiaryID(ctx context.Context, beneficiaryID int64, limit int, after *pagination.Cursor) ([]models.Distribution, error) {
	var rows []models.Distribution
	if err := r.base.DB(ctx).
		Where("beneficiary_id = ?", beneficiaryID).
		Scopes(repo.After(after), repo.LedgerOrder).
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) SumByLevel(ctx context.Context, beneficiaryID int64) ([]LevelTotal, error) {
	var totals []LevelTotal
	if err := r.base.DB(ctx).
		Model(&models.Distribution{}).
		Select("level, COUNT(*) AS count, SUM(amount) AS amount").
		Where("beneficiary_id = ?", beneficiaryID).
		Group("level").
		Order("level ASC").
		Scan(&totals).Error; err != nil {
		return nil, err
	}
	return totals, nil
}
