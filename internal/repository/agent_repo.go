package repository

import (
	"context"

	"github.com/buddy0323/IA-TEK-streamlit/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AgentRepository interface {
	Create(ctx context.Context, agent *model.Agent) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Agent, error)
	GetByName(ctx context.Context, name string) (*model.Agent, error)
	List(ctx context.Context) ([]model.Agent, error)
	ListActive(ctx context.Context) ([]model.Agent, error)
	Update(ctx context.Context, agent *model.Agent) error
	// Delete removes the agent together with its logged queries.
	Delete(ctx context.Context, id uuid.UUID) error
}

type agentRepository struct {
	db *gorm.DB
}

func NewAgentRepository(db *gorm.DB) AgentRepository {
	return &agentRepository{db: db}
}

func (r *agentRepository) Create(ctx context.Context, agent *model.Agent) error {
	return translate(GetDB(ctx, r.db).Create(agent).Error)
}

func (r *agentRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Agent, error) {
	var agent model.Agent
	if err := GetDB(ctx, r.db).First(&agent, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &agent, nil
}

func (r *agentRepository) GetByName(ctx context.Context, name string) (*model.Agent, error) {
	var agent model.Agent
	if err := GetDB(ctx, r.db).First(&agent, "name = ?", name).Error; err != nil {
		return nil, translate(err)
	}
	return &agent, nil
}

func (r *agentRepository) List(ctx context.Context) ([]model.Agent, error) {
	var agents []model.Agent
	if err := GetDB(ctx, r.db).Order("name asc").Find(&agents).Error; err != nil {
		return nil, err
	}
	return agents, nil
}

func (r *agentRepository) ListActive(ctx context.Context) ([]model.Agent, error) {
	var agents []model.Agent
	if err := GetDB(ctx, r.db).Where("status = ?", model.StatusActive).Order("name asc").Find(&agents).Error; err != nil {
		return nil, err
	}
	return agents, nil
}

func (r *agentRepository) Update(ctx context.Context, agent *model.Agent) error {
	return translate(GetDB(ctx, r.db).Omit("Name", "CreatedAt").Save(agent).Error)
}

func (r *agentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("agent_id = ?", id).Delete(&model.Query{}).Error; err != nil {
		return err
	}
	res := db.Delete(&model.Agent{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
