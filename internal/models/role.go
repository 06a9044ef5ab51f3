package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role is static reference data. Internal roles ("admin", "staff") grant
// console access; everything else lives in the external namespace.
type Role struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name        string    `gorm:"size:100;not null;uniqueIndex" json:"name"`
	Description string    `gorm:"size:255" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// UserRole assigns a role to a user. Assignments are soft-deleted so the
// role history survives revocation and account deletion.
type UserRole struct {
	ID               uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID           uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	RoleID           uuid.UUID      `gorm:"type:uuid;not null;index" json:"role_id"`
	AssignedByUserID *uuid.UUID     `gorm:"type:uuid" json:"assigned_by_user_id,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}
