package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/buddy0323/IA-TEK-streamlit/internal/model"
	"gorm.io/gorm"
)

// StatisticsRepository serves the overview counters.
type StatisticsRepository interface {
	AgentCounts(ctx context.Context) (model.AgentCounts, error)
	QueryCounts(ctx context.Context, from, to time.Time) (model.QuerySuccessCounts, error)
}

type statisticsRepository struct {
	db *gorm.DB
}

func NewStatisticsRepository(db *gorm.DB) StatisticsRepository {
	return &statisticsRepository{db: db}
}

func (r *statisticsRepository) AgentCounts(ctx context.Context) (model.AgentCounts, error) {
	var counts model.AgentCounts
	if err := GetDB(ctx, r.db).Model(&model.Agent{}).
		Select("COUNT(*) as total, COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) as active", model.StatusActive).
		Scan(&counts).Error; err != nil {
		return counts, fmt.Errorf("failed to count agents: %w", err)
	}
	return counts, nil
}

// QueryCounts tallies queries in [from, to). Zero bounds are open.
func (r *statisticsRepository) QueryCounts(ctx context.Context, from, to time.Time) (model.QuerySuccessCounts, error) {
	var counts model.QuerySuccessCounts
	db := GetDB(ctx, r.db).Model(&model.Query{}).
		Select("COUNT(*) as total, COALESCE(SUM(CASE WHEN success THEN 1 ELSE 0 END), 0) as successful")
	if !from.IsZero() {
		db = db.Where("created_at >= ?", from)
	}
	if !to.IsZero() {
		db = db.Where("created_at < ?", to)
	}
	if err := db.Scan(&counts).Error; err != nil {
		return counts, fmt.Errorf("failed to count queries: %w", err)
	}
	return counts, nil
}
