package database

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/raceday-mx/raceday-backend/internal/config"
	"github.com/raceday-mx/raceday-backend/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func Connect(cfg *config.Config) error {
	var err error
	DB, err = gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetMaxIdleConns(25)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	slog.Info("database connected")
	return nil
}

func Migrate() error {
	return DB.AutoMigrate(
		&models.User{},
		&models.Role{},
		&models.UserRole{},
		&models.Profile{},
		&models.ContactSubmission{},
		&models.Session{},
		&models.Account{},
		&models.Verification{},
		&models.AuditLog{},
	)
}

// SeedRoles inserts the static role reference data if missing.
func SeedRoles() error {
	roles := []models.Role{
		{Name: "admin", Description: "Internal administrator"},
		{Name: "staff", Description: "Internal staff"},
		{Name: "external.organizer", Description: "Event organizer"},
		{Name: "external.athlete", Description: "Registered athlete"},
		{Name: "external.volunteer", Description: "Event volunteer"},
	}
	for _, r := range roles {
		var existing models.Role
		if err := DB.Where("name = ?", r.Name).First(&existing).Error; err == nil {
			continue
		}
		if err := DB.Create(&r).Error; err != nil {
			return fmt.Errorf("failed to seed role %s: %w", r.Name, err)
		}
	}
	return nil
}

func Ping() error {
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
