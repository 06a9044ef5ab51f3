package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/raceday-mx/raceday-backend/internal/access"
	"github.com/raceday-mx/raceday-backend/internal/action"
	"github.com/raceday-mx/raceday-backend/internal/dto"
	"github.com/raceday-mx/raceday-backend/internal/models"
	"github.com/raceday-mx/raceday-backend/internal/repository"
)

type ProfileService struct {
	store    repository.Store
	resolver *access.Resolver
}

func NewProfileService(store repository.Store, resolver *access.Resolver) *ProfileService {
	return &ProfileService{store: store, resolver: resolver}
}

// Get returns the profile (nil when none exists yet) with a freshly
// computed status against the actor's requirement categories.
func (s *ProfileService) Get(ctx context.Context, actor *access.UserContext) (*dto.ProfileResponse, error) {
	profile, err := s.store.Profiles().FindByUserID(ctx, actor.UserID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	return &dto.ProfileResponse{
		Profile: profile,
		Status:  access.ComputeProfileStatus(profile, actor.IsInternal, actor.Requirements),
	}, nil
}

var validGenders = map[string]struct{}{
	"male": {}, "female": {}, "non_binary": {},
	models.GenderSelfDescribed: {}, "prefer_not_to_say": {},
}

// Upsert replaces the profile with the request payload, creating the row on
// first write.
func (s *ProfileService) Upsert(ctx context.Context, actor *access.UserContext, req dto.ProfileUpsertRequest) (*dto.ProfileResponse, error) {
	fields := map[string]string{}

	country := strings.ToUpper(strings.TrimSpace(req.Country))
	if country == "" {
		country = "MX"
	}
	if len(country) != 2 {
		fields["country"] = "country must be a 2-letter code"
	}

	var dob *time.Time
	if req.DateOfBirth != nil && strings.TrimSpace(*req.DateOfBirth) != "" {
		parsed, err := time.Parse("2006-01-02", strings.TrimSpace(*req.DateOfBirth))
		if err != nil {
			fields["date_of_birth"] = "must be YYYY-MM-DD"
		} else if parsed.After(time.Now()) {
			fields["date_of_birth"] = "must be in the past"
		} else {
			dob = &parsed
		}
	}

	if req.Gender != nil && strings.TrimSpace(*req.Gender) != "" {
		g := strings.TrimSpace(*req.Gender)
		if _, ok := validGenders[g]; !ok {
			fields["gender"] = "unknown gender value"
		} else if g == models.GenderSelfDescribed &&
			(req.GenderDescription == nil || strings.TrimSpace(*req.GenderDescription) == "") {
			fields["gender_description"] = "required when gender is self described"
		}
	}

	if req.WeightKg != nil && (*req.WeightKg < 20 || *req.WeightKg > 300) {
		fields["weight_kg"] = "must be between 20 and 300"
	}
	if req.HeightCm != nil && (*req.HeightCm < 50 || *req.HeightCm > 260) {
		fields["height_cm"] = "must be between 50 and 260"
	}

	if len(fields) > 0 {
		return nil, action.Invalid(fields)
	}

	profile := models.Profile{
		ID:     uuid.New(),
		UserID: actor.UserID,

		Phone:           trimPtr(req.Phone),
		City:            trimPtr(req.City),
		State:           trimPtr(req.State),
		PostalCode:      trimPtr(req.PostalCode),
		Country:         country,
		Latitude:        req.Latitude,
		Longitude:       req.Longitude,
		LocationDisplay: trimPtr(req.LocationDisplay),

		DateOfBirth:       dob,
		Gender:            trimPtr(req.Gender),
		GenderDescription: trimPtr(req.GenderDescription),

		EmergencyContactName:     trimPtr(req.EmergencyContactName),
		EmergencyContactPhone:    trimPtr(req.EmergencyContactPhone),
		EmergencyContactRelation: trimPtr(req.EmergencyContactRelation),

		ShirtSize:         trimPtr(req.ShirtSize),
		WeightKg:          req.WeightKg,
		HeightCm:          req.HeightCm,
		BloodType:         trimPtr(req.BloodType),
		MedicalConditions: trimPtr(req.MedicalConditions),

		Bio: trimPtr(req.Bio),
	}

	if err := s.store.Profiles().Upsert(ctx, &profile); err != nil {
		return nil, fmt.Errorf("failed to upsert profile: %w", err)
	}
	s.resolver.InvalidateUser(ctx, actor.UserID)

	return &dto.ProfileResponse{
		Profile: &profile,
		Status:  access.ComputeProfileStatus(&profile, actor.IsInternal, actor.Requirements),
	}, nil
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}
