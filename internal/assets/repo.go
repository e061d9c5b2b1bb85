package assets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/commission-engine/internal/repo"
	"github.com/angelmondragon/commission-engine/pkg/db/models"
)

// Repository mutates and reads member asset balances.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Credit(ctx context.Context, userID int64, amount decimal.Decimal, at time.Time) error
	FindByUserID(ctx context.Context, userID int64) (*models.Asset, error)
}

type repository struct {
	base repo.Base
}

// NewRepository returns an asset repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{base: r.base.Bind(tx)}
}

// Credit adds a commission to the member's available balance and lifetime total.
// The increment happens in SQL so concurrent credits to the same row serialize
// on the row lock instead of overwriting each other. The row is created on the
// first credit.
func (r *repository) Credit(ctx context.Context, userID int64, amount decimal.Decimal, at time.Time) error {
	if !amount.IsPositive() {
		return fmt.Errorf("credit amount must be positive, got %s", amount.String())
	}

	seed := models.Asset{
		UserID:           userID,
		AvailableBalance: decimal.Zero,
		TotalCommission:  decimal.Zero,
		UpdatedAt:        at,
	}
	if err := r.base.DB(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&seed).Error; err != nil {
		return fmt.Errorf("ensure asset row for user %d: %w", userID, err)
	}

	res := r.base.DB(ctx).
		Model(&models.Asset{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{
			"available_balance": gorm.Expr("available_balance + ?", amount),
			"total_commission":  gorm.Expr("total_commission + ?", amount),
			"updated_at":        at,
		})
	if res.Error != nil {
		return fmt.Errorf("credit asset for user %d: %w", userID, res.Error)
	}
	if res.RowsAffected != 1 {
		return fmt.Errorf("credit asset for user %d: expected 1 row, got %d", userID, res.RowsAffected)
	}
	return nil
}

func (r *repository) FindByUserID(ctx context.Context, userID int64) (*models.Asset, error) {
	var asset models.Asset
	err := r.base.DB(ctx).Where("user_id = ?", userID).First(&asset).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.Asset{UserID: userID, AvailableBalance: decimal.Zero, TotalCommission: decimal.Zero}, nil
	}
	if err != nil {
		return nil, err
	}
	return &asset, nil
}
