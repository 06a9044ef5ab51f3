package access

import "strings"

// Category names a group of required profile fields.
type Category string

const (
	CategoryBasicContact       Category = "basicContact"
	CategoryEmergencyContact   Category = "emergencyContact"
	CategoryDemographics       Category = "demographics"
	CategoryPhysicalAttributes Category = "physicalAttributes"
)

// categoryOrder fixes the order requirement sets are reported in.
var categoryOrder = []Category{
	CategoryBasicContact,
	CategoryEmergencyContact,
	CategoryDemographics,
	CategoryPhysicalAttributes,
}

// roleRequirements maps canonical roles to the categories they demand on top
// of the base set. Internal roles add nothing: internal users are exempt from
// completeness enforcement anyway.
var roleRequirements = map[string][]Category{
	"external.athlete": {
		CategoryEmergencyContact,
		CategoryDemographics,
		CategoryPhysicalAttributes,
	},
	"external.volunteer": {CategoryEmergencyContact},
}

// RequirementsFor resolves the requirement-category set for a canonical role
// set. Every external or role-less user starts from basicContact.
func RequirementsFor(canonicalRoles []string) []Category {
	set := map[Category]struct{}{}

	internalOnly := len(canonicalRoles) > 0
	for _, role := range canonicalRoles {
		if !strings.HasPrefix(role, NamespaceInternal+".") {
			internalOnly = false
		}
		for _, c := range roleRequirements[role] {
			set[c] = struct{}{}
		}
	}
	if !internalOnly {
		set[CategoryBasicContact] = struct{}{}
	}

	out := make([]Category, 0, len(set))
	for _, c := range categoryOrder {
		if _, ok := set[c]; ok {
			out = append(out, c)
		}
	}
	return out
}
