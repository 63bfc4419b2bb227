package model

import (
	"time"

	"github.com/google/uuid"
)

// Query is one logged chat exchange. Rows are never updated after insert.
type Query struct {
	ID             uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	AgentID        uuid.UUID `gorm:"type:uuid;not null;index" json:"agent_id"`
	Agent          *Agent    `gorm:"foreignKey:AgentID;constraint:OnDelete:CASCADE;" json:"agent,omitempty"`
	SessionID      string    `gorm:"type:varchar(36);index" json:"session_id"`
	QueryText      string    `gorm:"type:text;not null" json:"query_text"`
	ResponseText   string    `gorm:"type:text" json:"response_text"`
	ResponseTimeMS int       `gorm:"column:response_time_ms" json:"response_time_ms"`
	Success        bool      `gorm:"not null" json:"success"`
	FeedbackScore  *int      `json:"feedback_score,omitempty"`
	ErrorMessage   *string   `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt      time.Time `gorm:"index" json:"created_at"`
}
