package dto

import (
	"github.com/raceday-mx/raceday-backend/internal/access"
	"github.com/raceday-mx/raceday-backend/internal/models"
)

// ProfileUpsertRequest carries the full profile payload; omitted fields
// clear their columns. DateOfBirth uses the 2006-01-02 form.
type ProfileUpsertRequest struct {
	Phone           *string  `json:"phone"`
	City            *string  `json:"city"`
	State           *string  `json:"state"`
	PostalCode      *string  `json:"postal_code"`
	Country         string   `json:"country"`
	Latitude        *float64 `json:"latitude"`
	Longitude       *float64 `json:"longitude"`
	LocationDisplay *string  `json:"location_display"`

	DateOfBirth       *string `json:"date_of_birth"`
	Gender            *string `json:"gender"`
	GenderDescription *string `json:"gender_description"`

	EmergencyContactName     *string `json:"emergency_contact_name"`
	EmergencyContactPhone    *string `json:"emergency_contact_phone"`
	EmergencyContactRelation *string `json:"emergency_contact_relation"`

	ShirtSize         *string  `json:"shirt_size"`
	WeightKg          *float64 `json:"weight_kg"`
	HeightCm          *float64 `json:"height_cm"`
	BloodType         *string  `json:"blood_type"`
	MedicalConditions *string  `json:"medical_conditions"`

	Bio *string `json:"bio"`
}

type ProfileResponse struct {
	Profile *models.Profile      `json:"profile"`
	Status  access.ProfileStatus `json:"status"`
}

type MeResponse struct {
	Context *access.UserContext `json:"context"`
}

type ContactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}
