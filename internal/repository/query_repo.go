package repository

import (
	"context"
	"time"

	"github.com/buddy0323/IA-TEK-streamlit/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// QueryFilter narrows the query log. Zero values mean "no filter".
type QueryFilter struct {
	AgentID *uuid.UUID
	From    time.Time // inclusive
	To      time.Time // exclusive
	Success *bool
	// OnlyTimed keeps rows with a positive response time.
	OnlyTimed bool
	Limit     int
	Offset    int
}

type QueryRepository interface {
	Create(ctx context.Context, q *model.Query) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Query, error)
	// Search returns matching rows newest first, with the agent preloaded, and the total match count.
	Search(ctx context.Context, f QueryFilter) ([]model.Query, int64, error)
}

type queryRepository struct {
	db *gorm.DB
}

func NewQueryRepository(db *gorm.DB) QueryRepository {
	return &queryRepository{db: db}
}

func (r *queryRepository) Create(ctx context.Context, q *model.Query) error {
	return GetDB(ctx, r.db).Omit("Agent").Create(q).Error
}

func (r *queryRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Query, error) {
	var q model.Query
	if err := GetDB(ctx, r.db).Preload("Agent").First(&q, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &q, nil
}

func (r *queryRepository) Search(ctx context.Context, f QueryFilter) ([]model.Query, int64, error) {
	var rows []model.Query
	var total int64

	scoped := applyQueryFilter(GetDB(ctx, r.db).Model(&model.Query{}), f)
	if err := scoped.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	q := applyQueryFilter(GetDB(ctx, r.db), f).Preload("Agent").Order("created_at desc")
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func applyQueryFilter(db *gorm.DB, f QueryFilter) *gorm.DB {
	if f.AgentID != nil {
		db = db.Where("agent_id = ?", *f.AgentID)
	}
	if !f.From.IsZero() {
		db = db.Where("created_at >= ?", f.From)
	}
	if !f.To.IsZero() {
		db = db.Where("created_at < ?", f.To)
	}
	if f.Success != nil {
		db = db.Where("success = ?", *f.Success)
	}
	if f.OnlyTimed {
		db = db.Where("response_time_ms > 0")
	}
	return db
}
