package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	StatusActive   = "active"
	StatusInactive = "inactive"

	// SuperadminUsername is protected from deletion, role changes and deactivation.
	SuperadminUsername = "superadmin"
)

// User is a dashboard operator. Role is the single source of permissions.
type User struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Username    string     `gorm:"type:varchar(80);uniqueIndex;not null" json:"username"`
	Password    string     `gorm:"type:varchar(255);not null" json:"-"`
	Email       string     `gorm:"type:varchar(120);uniqueIndex;not null" json:"email"`
	RoleID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"role_id"`
	Role        *Role      `gorm:"foreignKey:RoleID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"role,omitempty"`
	Description string     `gorm:"type:text" json:"description"`
	Status      string     `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	LastAccess  *time.Time `json:"last_access"`
}

func (u *User) IsSuperadmin() bool {
	return strings.EqualFold(u.Username, SuperadminUsername)
}

func (u *User) IsActive() bool {
	return u.Status == StatusActive
}
