package database

import (
	"fmt"
	"time"

	"github.com/buddy0323/IA-TEK-streamlit/internal/model"
	"github.com/mudler/xlog"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewConnection opens the connection pool. Call Migrate before serving.
func NewConnection(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

// Migrate creates or updates every table the application needs.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&model.Role{},
		&model.User{},
		&model.Agent{},
		&model.LanguageModelOption{},
		&model.SkillOption{},
		&model.PersonalityOption{},
		&model.GoalOption{},
		&model.Query{},
		&model.Configuration{},
	)
	if err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	xlog.Debug("Schema migrated")
	return nil
}
