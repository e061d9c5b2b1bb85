package users

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/angelmondragon/commission-engine/internal/repo"
	"github.com/angelmondragon/commission-engine/pkg/db/models"
)

// ErrNotFound is returned when a user id does not resolve to a row.
var ErrNotFound = errors.New("user not found")

// Repository reads the member directory.
type Repository struct {
	base repo.Base
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{base: repo.NewBase(db)}
}

// FindByID loads a user by id.
func (r *Repository) FindByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	err := r.base.DB(ctx).First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ChainRow is one hop of a referral chain. Depth 0 is the starting user.
type ChainRow struct {
	ID          int64  `gorm:"column:id"`
	ReferrerID  *int64 `gorm:"column:referrer_id"`
	IsActivated bool   `gorm:"column:is_activated"`
	Depth       int    `gorm:"column:depth"`
}

const chainQuery = `
WITH RECURSIVE chain (id, referrer_id, is_activated, depth) AS (
	SELECT u.id, u.referrer_id, u.is_activated, 0
	FROM users u
	WHERE u.id = ?
	UNION ALL
	SELECT p.id, p.referrer_id, p.is_activated, c.depth + 1
	FROM chain c
	JOIN users p ON p.id = c.referrer_id
	WHERE c.depth < ?
)
SELECT id, referrer_id, is_activated, depth FROM chain ORDER BY depth ASC`

// FindChain walks referrer pointers from userID in a single query, returning
// the user itself followed by at most maxDepth ancestors. The walk is bounded
// by depth only; callers must check for repeated ids. A referrer that does not
// exist ends the result early.
func (r *Repository) FindChain(ctx context.Context, userID int64, maxDepth int) ([]ChainRow, error) {
	var rows []ChainRow
	if err := r.base.DB(ctx).Raw(chainQuery, userID, maxDepth).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
