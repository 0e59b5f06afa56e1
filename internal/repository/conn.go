package repository

import (
	"context"

	"gorm.io/gorm"
)

// conn picks the open transaction when there is one, otherwise the pool.
func conn(ctx context.Context, db, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx.WithContext(ctx)
	}
	return db.WithContext(ctx)
}
