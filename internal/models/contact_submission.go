package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ContactSubmission is an inbound contact-form entry, optionally linked to a
// signed-in user. When that user is deleted the row is redacted and detached,
// never removed.
type ContactSubmission struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    *uuid.UUID     `gorm:"type:uuid;index" json:"user_id,omitempty"`
	Name      string         `gorm:"size:255;not null" json:"name"`
	Email     string         `gorm:"size:255;not null" json:"email"`
	Subject   string         `gorm:"size:255" json:"subject"`
	Message   string         `gorm:"type:text;not null" json:"message"`
	Metadata  datatypes.JSON `gorm:"type:jsonb;default:'{}'" json:"metadata"`
	CreatedAt time.Time      `json:"created_at"`
}
