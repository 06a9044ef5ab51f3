package access

import (
	"strings"

	"github.com/raceday-mx/raceday-backend/internal/models"
)

// ProfileStatus is derived on every read, never persisted.
type ProfileStatus struct {
	HasProfile          bool `json:"has_profile"`
	IsComplete          bool `json:"is_complete"`
	MustCompleteProfile bool `json:"must_complete_profile"`
}

// ComputeProfileStatus evaluates the profile against the applicable
// requirement categories. Internal users are exempt from enforcement
// unconditionally, including when no profile exists. The function is pure:
// identical inputs yield identical output.
func ComputeProfileStatus(p *models.Profile, isInternal bool, categories []Category) ProfileStatus {
	if p == nil {
		return ProfileStatus{
			HasProfile:          false,
			IsComplete:          false,
			MustCompleteProfile: !isInternal,
		}
	}

	complete := true
	for _, c := range categories {
		if !categorySatisfied(p, c) {
			complete = false
			break
		}
	}

	return ProfileStatus{
		HasProfile:          true,
		IsComplete:          complete,
		MustCompleteProfile: !isInternal && !complete,
	}
}

func categorySatisfied(p *models.Profile, c Category) bool {
	switch c {
	case CategoryBasicContact:
		return present(p.Phone) && present(p.City) && present(p.State) &&
			strings.TrimSpace(p.Country) != ""
	case CategoryEmergencyContact:
		return present(p.EmergencyContactName) && present(p.EmergencyContactPhone)
	case CategoryDemographics:
		if p.DateOfBirth == nil || !present(p.Gender) {
			return false
		}
		if strings.TrimSpace(*p.Gender) == models.GenderSelfDescribed {
			return present(p.GenderDescription)
		}
		return true
	case CategoryPhysicalAttributes:
		return present(p.ShirtSize)
	default:
		// Unknown categories are vacuously satisfied.
		return true
	}
}

func present(s *string) bool {
	return s != nil && strings.TrimSpace(*s) != ""
}
