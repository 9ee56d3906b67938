package database

import (
	"gorm.io/gorm"

	"github.com/guanago/guanago/internal/models"
)

// AutoMigrate creates or updates the schema for all persistent models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.CacheEntry{},
		&models.AdminSession{},
	)
}
