package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/raceday-mx/raceday-backend/internal/action"
	"github.com/raceday-mx/raceday-backend/internal/dto"
	"github.com/raceday-mx/raceday-backend/internal/models"
	"github.com/raceday-mx/raceday-backend/internal/repository"
	"gorm.io/datatypes"
)

type ContactService struct {
	store repository.Store
}

func NewContactService(store repository.Store) *ContactService {
	return &ContactService{store: store}
}

// Submit stores a contact-form entry, linked to the caller when signed in.
func (s *ContactService) Submit(ctx context.Context, userID *uuid.UUID, req dto.ContactRequest, client ClientInfo) error {
	name := strings.TrimSpace(req.Name)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	message := strings.TrimSpace(req.Message)

	fields := map[string]string{}
	if name == "" {
		fields["name"] = "name required"
	}
	if !validEmail(email) {
		fields["email"] = "valid email required"
	}
	if message == "" {
		fields["message"] = "message required"
	}
	if len(fields) > 0 {
		return action.Invalid(fields)
	}

	meta, _ := json.Marshal(map[string]string{
		"ip":         client.IPAddress,
		"user_agent": client.UserAgent,
	})

	submission := models.ContactSubmission{
		ID:       uuid.New(),
		UserID:   userID,
		Name:     name,
		Email:    email,
		Subject:  strings.TrimSpace(req.Subject),
		Message:  message,
		Metadata: datatypes.JSON(meta),
	}
	if err := s.store.ContactSubmissions().Create(ctx, &submission); err != nil {
		return fmt.Errorf("failed to store contact submission: %w", err)
	}
	return nil
}
