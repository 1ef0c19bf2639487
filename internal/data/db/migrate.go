package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/thecmdrunner/swiftube-backend/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&domain.Customer{},
		&domain.VideoJob{},
	); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	return nil
}
