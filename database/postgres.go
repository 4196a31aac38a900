package database

import (
	"fmt"

	"github.com/Krish-Depani/account-security/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewPostgresClient(host, user, password, dbname, port string) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable", host, user, password, dbname, port)

	pgClient, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	return pgClient, nil
}

// Migrate creates or updates the account security tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&models.Account{}, &models.BackupCode{}, &models.Activity{})
}
