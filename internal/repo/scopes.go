package repo

import (
	"gorm.io/gorm"

	"github.com/angelmondragon/commission-engine/pkg/pagination"
)

// LedgerOrder sorts distribution rows by (created_at, deposit_id, level).
func LedgerOrder(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC").Order("deposit_id ASC").Order("level ASC")
}

// After restricts a LedgerOrder query to rows strictly past c. A nil cursor
// is a no-op.
func After(c *pagination.Cursor) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if c == nil {
			return db
		}
		return db.Where(
			"(created_at > ?) OR (created_at = ? AND deposit_id > ?) OR (created_at = ? AND deposit_id = ? AND level > ?)",
			c.CreatedAt, c.CreatedAt, c.DepositID, c.CreatedAt, c.DepositID, c.Level,
		)
	}
}
