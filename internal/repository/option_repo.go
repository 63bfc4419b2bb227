package repository

import (
	"context"

	"github.com/buddy0323/IA-TEK-streamlit/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OptionRepository reads and writes the four agent option lookup tables.
type OptionRepository interface {
	List(ctx context.Context, kind model.OptionKind) ([]model.AgentOption, error)
	Names(ctx context.Context, kind model.OptionKind) ([]string, error)
	Create(ctx context.Context, kind model.OptionKind, opt *model.AgentOption) error
	Delete(ctx context.Context, kind model.OptionKind, id uuid.UUID) error
}

type optionRepository struct {
	db *gorm.DB
}

func NewOptionRepository(db *gorm.DB) OptionRepository {
	return &optionRepository{db: db}
}

func (r *optionRepository) List(ctx context.Context, kind model.OptionKind) ([]model.AgentOption, error) {
	var opts []model.AgentOption
	if err := GetDB(ctx, r.db).Table(kind.Table()).Order("name asc").Find(&opts).Error; err != nil {
		return nil, err
	}
	return opts, nil
}

func (r *optionRepository) Names(ctx context.Context, kind model.OptionKind) ([]string, error) {
	var names []string
	if err := GetDB(ctx, r.db).Table(kind.Table()).Order("name asc").Pluck("name", &names).Error; err != nil {
		return nil, err
	}
	return names, nil
}

func (r *optionRepository) Create(ctx context.Context, kind model.OptionKind, opt *model.AgentOption) error {
	if opt.ID == uuid.Nil {
		opt.ID = uuid.New()
	}
	return translate(GetDB(ctx, r.db).Table(kind.Table()).Create(opt).Error)
}

func (r *optionRepository) Delete(ctx context.Context, kind model.OptionKind, id uuid.UUID) error {
	res := GetDB(ctx, r.db).Table(kind.Table()).Where("id = ?", id).Delete(&model.AgentOption{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
