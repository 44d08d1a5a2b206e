package db

import (
	"fmt"

	"github.com/ldcshop/storefront/internal/models"
	"gorm.io/gorm"
)

// Migrate creates or updates every table owned by the storefront.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	if errMigrate := conn.AutoMigrate(
		&models.User{},
		&models.Admin{},
		&models.Setting{},
		&models.Product{},
		&models.Card{},
		&models.Order{},
		&models.AdminMessage{},
		&models.UserNotification{},
		&models.PaymentNotifyLog{},
	); errMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errMigrate)
	}
	return nil
}
