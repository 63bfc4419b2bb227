package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// SuperRoleName is reserved; its permission set is always the full catalogue.
const SuperRoleName = "superadministrador"

// Role holds its permission names as a sorted, comma-separated string.
type Role struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"name"`
	Description string    `gorm:"type:varchar(255)" json:"description"`
	Permissions string    `gorm:"type:text;not null;default:''" json:"permissions"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (r *Role) IsSuper() bool {
	return IsSuperRole(r.Name)
}

func IsSuperRole(name string) bool {
	return strings.EqualFold(strings.TrimSpace(name), SuperRoleName)
}
