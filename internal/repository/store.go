package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/raceday-mx/raceday-backend/internal/models"
)

// ErrNotFound is returned when a lookup matches no non-deleted row.
var ErrNotFound = errors.New("record not found")

// UserAnonymization carries the rewrite values for the final user update of
// the deletion workflow. The service owns the sentinel formats.
type UserAnonymization struct {
	UserID          uuid.UUID
	DeletedByUserID uuid.UUID
	Email           string
	Name            string
}

// UserListQuery is the (already clamped) admin listing query.
type UserListQuery struct {
	Page     int
	PageSize int
	SortBy   string // created_at, name, email, role
	SortDir  string // asc, desc
	Role     string // all, admin, staff, external
	Search   string
}

type UserRepo interface {
	Create(ctx context.Context, u *models.User) error
	FindActiveByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindActiveByEmail(ctx context.Context, email string) (*models.User, error)
	MarkEmailVerified(ctx context.Context, id uuid.UUID) error
	Anonymize(ctx context.Context, a UserAnonymization) error
	List(ctx context.Context, q UserListQuery) ([]models.User, int64, error)
}

type RoleRepo interface {
	FindByName(ctx context.Context, name string) (*models.Role, error)
	FindByNames(ctx context.Context, names []string) ([]models.Role, error)
}

type UserRoleRepo interface {
	EffectiveRoleNames(ctx context.Context, userID uuid.UUID) ([]string, error)
	EffectiveRoleNamesForUsers(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID][]string, error)
	Assign(ctx context.Context, userID, roleID uuid.UUID, assignedBy *uuid.UUID) error
	Revoke(ctx context.Context, userID, roleID uuid.UUID) error
	SoftDeleteAllForUser(ctx context.Context, userID uuid.UUID) error
}

type ProfileRepo interface {
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	Upsert(ctx context.Context, p *models.Profile) error
	AnonymizeForUser(ctx context.Context, userID uuid.UUID) error
}

type ContactSubmissionRepo interface {
	Create(ctx context.Context, s *models.ContactSubmission) error
	RedactForUser(ctx context.Context, userID uuid.UUID) error
}

type SessionRepo interface {
	Create(ctx context.Context, s *models.Session) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Session, error)
	FindByTokenHash(ctx context.Context, hash string) (*models.Session, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteAllForUser(ctx context.Context, userID uuid.UUID) error
	DeleteOthersForUser(ctx context.Context, userID, keep uuid.UUID) error
}

type AccountRepo interface {
	Create(ctx context.Context, a *models.Account) error
	CredentialForUser(ctx context.Context, userID uuid.UUID) (*models.Account, error)
	UpdatePasswordHash(ctx context.Context, accountID uuid.UUID, hash string) error
	DeleteAllForUser(ctx context.Context, userID uuid.UUID) error
}

type VerificationRepo interface {
	Create(ctx context.Context, v *models.Verification) error
	FindByTokenHash(ctx context.Context, hash string) (*models.Verification, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByIdentifier(ctx context.Context, identifier string) error
}

// Store bundles the repositories behind one transactional boundary.
type Store interface {
	Users() UserRepo
	Roles() RoleRepo
	UserRoles() UserRoleRepo
	Profiles() ProfileRepo
	ContactSubmissions() ContactSubmissionRepo
	Sessions() SessionRepo
	Accounts() AccountRepo
	Verifications() VerificationRepo

	// WithTx runs fn against a Store bound to one database transaction.
	// Any error rolls back every write fn made.
	WithTx(ctx context.Context, fn func(Store) error) error
}
