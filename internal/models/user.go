package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is the identity record. Deletion never removes the row: the
// anonymization workflow rewrites email/name and sets DeletedAt, so the
// unique email constraint can coexist with repeated deletions.
type User struct {
	ID              uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Email           string         `gorm:"size:255;not null;uniqueIndex" json:"email"`
	Name            string         `gorm:"size:255;not null" json:"name"`
	Image           *string        `gorm:"size:512" json:"image,omitempty"`
	EmailVerified   bool           `gorm:"not null;default:false" json:"email_verified"`
	DeletedByUserID *uuid.UUID     `gorm:"type:uuid" json:"-"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}
