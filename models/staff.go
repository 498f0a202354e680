package models

import (
	"time"

	"gorm.io/gorm"
)

// Staff roles
const (
	RoleServer  = "server"
	RoleKitchen = "kitchen"
	RoleManager = "manager"
)

// Staff represents a staff member in the system (server, kitchen, or manager)
type Staff struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Auth0ID   string         `gorm:"uniqueIndex;not null" json:"auth0_id"` // Auth0 user ID (from 'sub' claim)
	Name      string         `gorm:"not null" json:"name"`
	Email     string         `gorm:"uniqueIndex;not null" json:"email"`
	Role      string         `gorm:"not null;default:'server'" json:"role"` // "server", "kitchen" or "manager"
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Staff model
func (Staff) TableName() string {
	return "staff"
}

// IsValidRole reports whether role is one of the known staff roles
func IsValidRole(role string) bool {
	return role == RoleServer || role == RoleKitchen || role == RoleManager
}
