package rates

import (
	"context"

	"gorm.io/gorm"

	"github.com/angelmondragon/commission-engine/internal/repo"
	"github.com/angelmondragon/commission-engine/pkg/db/models"
)

// Repository reads the persisted rate table.
type Repository interface {
	List(ctx context.Context) ([]models.CommissionRate, error)
}

type repository struct {
	base repo.Base
}

// NewRepository returns a rate repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{base: repo.NewBase(db)}
}

func (r *repository) List(ctx context.Context) ([]models.CommissionRate, error) {
	var rows []models.CommissionRate
	if err := r.base.DB(ctx).Order("level ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
