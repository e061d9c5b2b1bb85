package repo

import (
	"context"

	"gorm.io/gorm"
)

// Base is embedded by value in each repository so WithTx can return a copy
// bound to a transaction.
type Base struct {
	conn *gorm.DB
}

func NewBase(conn *gorm.DB) Base {
	return Base{conn: conn}
}

// DB returns the connection carrying ctx for cancellation.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.conn
	}
	return b.conn.WithContext(ctx)
}

// Bind returns a Base running on tx. A nil tx leaves the receiver unchanged.
func (b Base) Bind(tx *gorm.DB) Base {
	if tx != nil {
		b.conn = tx
	}
	return b
}
