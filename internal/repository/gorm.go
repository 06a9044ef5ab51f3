package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/raceday-mx/raceday-backend/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// NewGormStore wraps a gorm DB in the Store interface.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

type gormStore struct {
	db *gorm.DB
}

func (s *gormStore) Users() UserRepo                           { return &userRepo{db: s.db} }
func (s *gormStore) Roles() RoleRepo                           { return &roleRepo{db: s.db} }
func (s *gormStore) UserRoles() UserRoleRepo                   { return &userRoleRepo{db: s.db} }
func (s *gormStore) Profiles() ProfileRepo                     { return &profileRepo{db: s.db} }
func (s *gormStore) ContactSubmissions() ContactSubmissionRepo { return &contactRepo{db: s.db} }
func (s *gormStore) Sessions() SessionRepo                     { return &sessionRepo{db: s.db} }
func (s *gormStore) Accounts() AccountRepo                     { return &accountRepo{db: s.db} }
func (s *gormStore) Verifications() VerificationRepo           { return &verificationRepo{db: s.db} }

func (s *gormStore) WithTx(ctx context.Context, fn func(Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// --- users ---

type userRepo struct{ db *gorm.DB }

func (r *userRepo) Create(ctx context.Context, u *models.User) error {
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *userRepo) FindActiveByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	if err := r.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (r *userRepo) FindActiveByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := r.db.WithContext(ctx).First(&u, "email = ?", email).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (r *userRepo) MarkEmailVerified(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Update("email_verified", true).Error
}

func (r *userRepo) Anonymize(ctx context.Context, a UserAnonymization) error {
	now := time.Now().UTC()
	result := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", a.UserID).
		Updates(map[string]interface{}{
			"email":              a.Email,
			"name":               a.Name,
			"image":              nil,
			"email_verified":     false,
			"deleted_by_user_id": a.DeletedByUserID,
			"deleted_at":         now,
			"updated_at":         now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

const internalRoleSubquery = `SELECT ur.user_id FROM user_roles ur
JOIN roles r ON r.id = ur.role_id
WHERE ur.deleted_at IS NULL AND LOWER(r.name) IN ('admin','staff')`

func (r *userRepo) List(ctx context.Context, q UserListQuery) ([]models.User, int64, error) {
	base := r.db.WithContext(ctx).Model(&models.User{})

	switch q.Role {
	case "", "all":
	case "external":
		base = base.Where("users.id NOT IN (" + internalRoleSubquery + ")")
	default:
		base = base.Where(
			`users.id IN (SELECT ur.user_id FROM user_roles ur
JOIN roles r ON r.id = ur.role_id
WHERE ur.deleted_at IS NULL AND LOWER(r.name) = ?)`, q.Role)
	}

	if q.Search != "" {
		like := "%" + q.Search + "%"
		base = base.Where("users.name ILIKE ? OR users.email ILIKE ?", like, like)
	}

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	dir := "ASC"
	if q.SortDir == "desc" {
		dir = "DESC"
	}
	var order string
	switch q.SortBy {
	case "name":
		order = "users.name " + dir
	case "email":
		order = "users.email " + dir
	case "role":
		order = fmt.Sprintf(`(SELECT MIN(r.name) FROM user_roles ur
JOIN roles r ON r.id = ur.role_id
WHERE ur.user_id = users.id AND ur.deleted_at IS NULL) %s`, dir)
	default:
		order = "users.created_at " + dir
	}

	var users []models.User
	err := base.Order(order).
		Offset((q.Page - 1) * q.PageSize).
		Limit(q.PageSize).
		Find(&users).Error
	return users, total, err
}

// --- roles ---

type roleRepo struct{ db *gorm.DB }

func (r *roleRepo) FindByName(ctx context.Context, name string) (*models.Role, error) {
	var role models.Role
	if err := r.db.WithContext(ctx).First(&role, "name = ?", name).Error; err != nil {
		return nil, notFound(err)
	}
	return &role, nil
}

func (r *roleRepo) FindByNames(ctx context.Context, names []string) ([]models.Role, error) {
	var roles []models.Role
	if err := r.db.WithContext(ctx).Where("name IN ?", names).Find(&roles).Error; err != nil {
		return nil, err
	}
	return roles, nil
}

// --- user roles ---

type userRoleRepo struct{ db *gorm.DB }

func (r *userRoleRepo) EffectiveRoleNames(ctx context.Context, userID uuid.UUID) ([]string, error) {
	var names []string
	err := r.db.WithContext(ctx).Model(&models.UserRole{}).
		Joins("JOIN roles ON roles.id = user_roles.role_id").
		Where("user_roles.user_id = ?", userID).
		Pluck("roles.name", &names).Error
	return names, err
}

func (r *userRoleRepo) EffectiveRoleNamesForUsers(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID][]string, error) {
	result := make(map[uuid.UUID][]string, len(userIDs))
	if len(userIDs) == 0 {
		return result, nil
	}
	var rows []struct {
		UserID uuid.UUID
		Name   string
	}
	err := r.db.WithContext(ctx).Model(&models.UserRole{}).
		Select("user_roles.user_id, roles.name").
		Joins("JOIN roles ON roles.id = user_roles.role_id").
		Where("user_roles.user_id IN ?", userIDs).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		result[row.UserID] = append(result[row.UserID], row.Name)
	}
	return result, nil
}

func (r *userRoleRepo) Assign(ctx context.Context, userID, roleID uuid.UUID, assignedBy *uuid.UUID) error {
	var existing models.UserRole
	err := r.db.WithContext(ctx).Unscoped().
		Where("user_id = ? AND role_id = ?", userID, roleID).
		First(&existing).Error
	switch {
	case err == nil && !existing.DeletedAt.Valid:
		return nil
	case err == nil:
		// Revoked earlier; reactivate the same row.
		return r.db.WithContext(ctx).Unscoped().Model(&existing).
			Updates(map[string]interface{}{
				"deleted_at":          nil,
				"assigned_by_user_id": assignedBy,
			}).Error
	case errors.Is(err, gorm.ErrRecordNotFound):
		return r.db.WithContext(ctx).Create(&models.UserRole{
			UserID:           userID,
			RoleID:           roleID,
			AssignedByUserID: assignedBy,
		}).Error
	default:
		return err
	}
}

func (r *userRoleRepo) Revoke(ctx context.Context, userID, roleID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND role_id = ?", userID, roleID).
		Delete(&models.UserRole{}).Error
}

func (r *userRoleRepo) SoftDeleteAllForUser(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.UserRole{}).Error
}

// --- profiles ---

type profileRepo struct{ db *gorm.DB }

func (r *profileRepo) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	var p models.Profile
	if err := r.db.WithContext(ctx).First(&p, "user_id = ?", userID).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (r *profileRepo) Upsert(ctx context.Context, p *models.Profile) error {
	var existing models.Profile
	err := r.db.WithContext(ctx).First(&existing, "user_id = ?", p.UserID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r.db.WithContext(ctx).Create(p).Error
	}
	if err != nil {
		return err
	}
	p.ID = existing.ID
	p.CreatedAt = existing.CreatedAt
	return r.db.WithContext(ctx).Save(p).Error
}

func (r *profileRepo) AnonymizeForUser(ctx context.Context, userID uuid.UUID) error {
	now := time.Now().UTC()
	return r.db.WithContext(ctx).Model(&models.Profile{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"phone":                      nil,
			"city":                       nil,
			"state":                      nil,
			"postal_code":                nil,
			"country":                    "MX",
			"latitude":                   nil,
			"longitude":                  nil,
			"location_display":           nil,
			"date_of_birth":              nil,
			"gender":                     nil,
			"gender_description":         nil,
			"emergency_contact_name":     nil,
			"emergency_contact_phone":    nil,
			"emergency_contact_relation": nil,
			"shirt_size":                 nil,
			"weight_kg":                  nil,
			"height_cm":                  nil,
			"blood_type":                 nil,
			"medical_conditions":         nil,
			"bio":                        nil,
			"deleted_at":                 now,
			"updated_at":                 now,
		}).Error
}

// --- contact submissions ---

type contactRepo struct{ db *gorm.DB }

func (r *contactRepo) Create(ctx context.Context, s *models.ContactSubmission) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *contactRepo) RedactForUser(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&models.ContactSubmission{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"user_id":  nil,
			"name":     "Redacted",
			"email":    "redacted@example.invalid",
			"message":  "[redacted]",
			"metadata": datatypes.JSON([]byte("{}")),
		}).Error
}

// --- sessions ---

type sessionRepo struct{ db *gorm.DB }

func (r *sessionRepo) Create(ctx context.Context, s *models.Session) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *sessionRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	var s models.Session
	if err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

func (r *sessionRepo) FindByTokenHash(ctx context.Context, hash string) (*models.Session, error) {
	var s models.Session
	if err := r.db.WithContext(ctx).First(&s, "token_hash = ?", hash).Error; err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

func (r *sessionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Session{}, "id = ?", id).Error
}

func (r *sessionRepo) DeleteAllForUser(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Session{}, "user_id = ?", userID).Error
}

func (r *sessionRepo) DeleteOthersForUser(ctx context.Context, userID, keep uuid.UUID) error {
	return r.db.WithContext(ctx).
		Delete(&models.Session{}, "user_id = ? AND id <> ?", userID, keep).Error
}

// --- accounts ---

type accountRepo struct{ db *gorm.DB }

func (r *accountRepo) Create(ctx context.Context, a *models.Account) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *accountRepo) CredentialForUser(ctx context.Context, userID uuid.UUID) (*models.Account, error) {
	var a models.Account
	err := r.db.WithContext(ctx).
		First(&a, "user_id = ? AND provider_id = ?", userID, models.ProviderCredential).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

func (r *accountRepo) UpdatePasswordHash(ctx context.Context, accountID uuid.UUID, hash string) error {
	return r.db.WithContext(ctx).Model(&models.Account{}).
		Where("id = ?", accountID).
		Update("password_hash", hash).Error
}

func (r *accountRepo) DeleteAllForUser(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Account{}, "user_id = ?", userID).Error
}

// --- verifications ---

type verificationRepo struct{ db *gorm.DB }

func (r *verificationRepo) Create(ctx context.Context, v *models.Verification) error {
	return r.db.WithContext(ctx).Create(v).Error
}

func (r *verificationRepo) FindByTokenHash(ctx context.Context, hash string) (*models.Verification, error) {
	var v models.Verification
	if err := r.db.WithContext(ctx).First(&v, "token_hash = ?", hash).Error; err != nil {
		return nil, notFound(err)
	}
	return &v, nil
}

func (r *verificationRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Verification{}, "id = ?", id).Error
}

func (r *verificationRepo) DeleteByIdentifier(ctx context.Context, identifier string) error {
	return r.db.WithContext(ctx).Delete(&models.Verification{}, "identifier = ?", identifier).Error
}
