package model

import (
	"time"

	"github.com/google/uuid"
)

// Agent describes a conversational workflow hosted by the external engine.
// Skills, Goals and Personalities are JSON arrays of option names (NULL when empty).
type Agent struct {
	ID            uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name          string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	Description   string    `gorm:"type:text" json:"description"`
	ModelName     string    `gorm:"type:varchar(255)" json:"model_name"`
	Skills        *string   `gorm:"type:text" json:"-"`
	Goals         *string   `gorm:"type:text" json:"-"`
	Personalities *string   `gorm:"column:personalities;type:text" json:"-"`
	Status        string    `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	ChatURL       string    `gorm:"column:n8n_chat_url;type:varchar(512)" json:"n8n_chat_url"`
	DetailsURL    string    `gorm:"column:n8n_details_url;type:varchar(512)" json:"n8n_details_url"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
