package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Profile holds the optional per-user registration data. Every field except
// Country is nullable; Country keeps a non-null default so the anonymization
// pass can reset it instead of nulling it.
type Profile struct {
	ID     uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`

	// Contact
	Phone           *string  `gorm:"size:32" json:"phone,omitempty"`
	City            *string  `gorm:"size:120" json:"city,omitempty"`
	State           *string  `gorm:"size:120" json:"state,omitempty"`
	PostalCode      *string  `gorm:"size:16" json:"postal_code,omitempty"`
	Country         string   `gorm:"size:2;not null;default:'MX'" json:"country"`
	Latitude        *float64 `json:"latitude,omitempty"`
	Longitude       *float64 `json:"longitude,omitempty"`
	LocationDisplay *string  `gorm:"size:255" json:"location_display,omitempty"`

	// Demographics
	DateOfBirth       *time.Time `json:"date_of_birth,omitempty"`
	Gender            *string    `gorm:"size:32" json:"gender,omitempty"`
	GenderDescription *string    `gorm:"size:120" json:"gender_description,omitempty"`

	// Emergency contact
	EmergencyContactName     *string `gorm:"size:255" json:"emergency_contact_name,omitempty"`
	EmergencyContactPhone    *string `gorm:"size:32" json:"emergency_contact_phone,omitempty"`
	EmergencyContactRelation *string `gorm:"size:120" json:"emergency_contact_relation,omitempty"`

	// Physical
	ShirtSize         *string  `gorm:"size:8" json:"shirt_size,omitempty"`
	WeightKg          *float64 `json:"weight_kg,omitempty"`
	HeightCm          *float64 `json:"height_cm,omitempty"`
	BloodType         *string  `gorm:"size:8" json:"blood_type,omitempty"`
	MedicalConditions *string  `gorm:"type:text" json:"medical_conditions,omitempty"`

	Bio *string `gorm:"type:text" json:"bio,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// GenderSelfDescribed is the gender value that makes GenderDescription a
// required field for profile completeness.
const GenderSelfDescribed = "self_described"
