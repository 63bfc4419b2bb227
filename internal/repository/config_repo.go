package repository

import (
	"context"

	"github.com/buddy0323/IA-TEK-streamlit/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ConfigRepository interface {
	Get(ctx context.Context, key string) (*model.Configuration, error)
	ListByCategory(ctx context.Context, category string) ([]model.Configuration, error)
	// Upsert inserts or updates by key. An empty description keeps the stored one.
	Upsert(ctx context.Context, cfg *model.Configuration) error
}

type configRepository struct {
	db *gorm.DB
}

func NewConfigRepository(db *gorm.DB) ConfigRepository {
	return &configRepository{db: db}
}

func (r *configRepository) Get(ctx context.Context, key string) (*model.Configuration, error) {
	var cfg model.Configuration
	if err := GetDB(ctx, r.db).First(&cfg, "key = ?", key).Error; err != nil {
		return nil, translate(err)
	}
	return &cfg, nil
}

func (r *configRepository) ListByCategory(ctx context.Context, category string) ([]model.Configuration, error) {
	var cfgs []model.Configuration
	db := GetDB(ctx, r.db).Order("key asc")
	if category != "" {
		db = db.Where("category = ?", category)
	}
	if err := db.Find(&cfgs).Error; err != nil {
		return nil, err
	}
	return cfgs, nil
}

func (r *configRepository) Upsert(ctx context.Context, cfg *model.Configuration) error {
	columns := []string{"value", "updated_at"}
	if cfg.Category != "" {
		columns = append(columns, "category")
	}
	if cfg.Description != "" {
		columns = append(columns, "description")
	}
	return GetDB(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns(columns),
	}).Create(cfg).Error
}
