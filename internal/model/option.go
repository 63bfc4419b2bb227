package model

import (
	"time"

	"github.com/google/uuid"
)

// OptionKind identifies one of the agent option lookup tables.
type OptionKind string

const (
	OptionLanguageModel OptionKind = "language-models"
	OptionSkill         OptionKind = "skills"
	OptionPersonality   OptionKind = "personalities"
	OptionGoal          OptionKind = "goals"
)

var OptionKinds = []OptionKind{OptionLanguageModel, OptionSkill, OptionPersonality, OptionGoal}

// Table returns the lookup table backing the kind.
func (k OptionKind) Table() string {
	switch k {
	case OptionLanguageModel:
		return "agent_options_language_models"
	case OptionSkill:
		return "agent_options_skills"
	case OptionPersonality:
		return "agent_options_personalities"
	case OptionGoal:
		return "agent_options_goals"
	}
	return ""
}

func (k OptionKind) Valid() bool {
	return k.Table() != ""
}

// AgentOption is the shared row shape of the four lookup tables.
type AgentOption struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Per-table wrappers so AutoMigrate creates each lookup table.
type LanguageModelOption struct{ AgentOption }
type SkillOption struct{ AgentOption }
type PersonalityOption struct{ AgentOption }
type GoalOption struct{ AgentOption }

func (LanguageModelOption) TableName() string { return OptionLanguageModel.Table() }
func (SkillOption) TableName() string         { return OptionSkill.Table() }
func (PersonalityOption) TableName() string   { return OptionPersonality.Table() }
func (GoalOption) TableName() string          { return OptionGoal.Table() }
