package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	CategoryGeneral    = "general"
	CategoryAPI        = "api"
	CategoryAppearance = "appearance"
	CategorySecurity   = "security"
)

// Configuration is a key/value application setting, unique by key.
type Configuration struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Key         string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"key"`
	Value       string    `gorm:"type:text" json:"value"`
	Category    string    `gorm:"type:varchar(50);index" json:"category"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
