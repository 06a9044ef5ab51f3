package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/raceday-mx/raceday-backend/internal/access"
	"github.com/raceday-mx/raceday-backend/internal/action"
	"github.com/raceday-mx/raceday-backend/internal/dto"
	"github.com/raceday-mx/raceday-backend/internal/models"
	"github.com/raceday-mx/raceday-backend/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// AdminService backs the internal user console.
type AdminService struct {
	store    repository.Store
	resolver *access.Resolver
}

func NewAdminService(store repository.Store, resolver *access.Resolver) *AdminService {
	return &AdminService{store: store, resolver: resolver}
}

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

var sortColumns = map[string]string{
	"createdAt": "created_at",
	"name":      "name",
	"email":     "email",
	"role":      "role",
}

var roleFilters = map[string]struct{}{
	"all": {}, "admin": {}, "staff": {}, "external": {},
}

// clampQuery normalizes the listing parameters: page >= 1, pageSize 1..100
// (default 10), whitelisted sort column, direction defaulting to desc for
// createdAt and asc otherwise.
func clampQuery(q dto.AdminUserQuery) (repository.UserListQuery, error) {
	out := repository.UserListQuery{
		Page:     q.Page,
		PageSize: q.PageSize,
		Search:   strings.TrimSpace(q.Search),
	}
	if out.Page < 1 {
		out.Page = 1
	}
	if out.PageSize < 1 {
		out.PageSize = defaultPageSize
	}
	if out.PageSize > maxPageSize {
		out.PageSize = maxPageSize
	}

	sortBy := q.SortBy
	if sortBy == "" {
		sortBy = "createdAt"
	}
	col, ok := sortColumns[sortBy]
	if !ok {
		return out, action.Invalid(map[string]string{"sort_by": "unknown sort key"})
	}
	out.SortBy = col

	switch q.SortDir {
	case "asc", "desc":
		out.SortDir = q.SortDir
	case "":
		if sortBy == "createdAt" {
			out.SortDir = "desc"
		} else {
			out.SortDir = "asc"
		}
	default:
		return out, action.Invalid(map[string]string{"sort_dir": "must be asc or desc"})
	}

	role := q.Role
	if role == "" {
		role = "all"
	}
	if _, ok := roleFilters[role]; !ok {
		return out, action.Invalid(map[string]string{"role": "unknown role filter"})
	}
	out.Role = role
	return out, nil
}

func (s *AdminService) ListUsers(ctx context.Context, actor *access.UserContext, q dto.AdminUserQuery) (*dto.AdminUserList, error) {
	if !actor.HasPermission("users:read") {
		return nil, action.NewError(action.KindForbidden, "missing users:read")
	}

	clamped, err := clampQuery(q)
	if err != nil {
		return nil, err
	}

	users, total, err := s.store.Users().List(ctx, clamped)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	ids := make([]uuid.UUID, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	roleNames, err := s.store.UserRoles().EffectiveRoleNamesForUsers(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load roles: %w", err)
	}

	rows := make([]dto.AdminUserRow, len(users))
	for i, u := range users {
		canonical, _ := access.Canonicalize(roleNames[u.ID])
		rows[i] = dto.AdminUserRow{
			ID:            u.ID,
			Email:         u.Email,
			Name:          u.Name,
			EmailVerified: u.EmailVerified,
			Roles:         canonical,
			CreatedAt:     u.CreatedAt,
		}
	}

	return &dto.AdminUserList{
		Users:    rows,
		Total:    total,
		Page:     clamped.Page,
		PageSize: clamped.PageSize,
	}, nil
}

// CreateInternalUser provisions an admin or staff user with a temporary
// password and a pre-verified email.
func (s *AdminService) CreateInternalUser(ctx context.Context, actor *access.UserContext, req dto.CreateInternalUserRequest) (*dto.UserResponse, error) {
	if !actor.HasPermission("users:write") {
		return nil, action.NewError(action.KindForbidden, "missing users:write")
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	name := strings.TrimSpace(req.Name)
	fields := map[string]string{}
	if !validEmail(email) {
		fields["email"] = "valid email required"
	}
	if name == "" {
		fields["name"] = "name required"
	}
	if req.Role != "admin" && req.Role != "staff" {
		fields["role"] = "role must be admin or staff"
	}
	if len(req.TempPassword) < 8 {
		fields["temp_password"] = "password must be at least 8 characters"
	}
	if len(fields) > 0 {
		return nil, action.Invalid(fields)
	}

	if _, err := s.store.Users().FindActiveByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	role, err := s.store.Roles().FindByName(ctx, req.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to load role: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.TempPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{ID: uuid.New(), Email: email, Name: name, EmailVerified: true}
	assignedBy := actor.UserID
	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		if err := tx.Users().Create(ctx, &user); err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		h := string(hash)
		if err := tx.Accounts().Create(ctx, &models.Account{
			ID:           uuid.New(),
			UserID:       user.ID,
			ProviderID:   models.ProviderCredential,
			PasswordHash: &h,
		}); err != nil {
			return fmt.Errorf("failed to create account: %w", err)
		}
		return tx.UserRoles().Assign(ctx, user.ID, role.ID, &assignedBy)
	})
	if err != nil {
		return nil, err
	}

	slog.Warn("internal user created",
		"action", "admin.create_user",
		"user_id", user.ID.String(),
		"role", req.Role,
		"created_by", actor.UserID.String())
	resp := userResponse(&user)
	return &resp, nil
}

// AssignExternalRoles grants external roles to a user. Internal roles can
// only be granted through CreateInternalUser; requesting one here is a
// validation failure, not a silent skip.
func (s *AdminService) AssignExternalRoles(ctx context.Context, actor *access.UserContext, targetUserID uuid.UUID, roleNames []string) error {
	if !actor.HasPermission("roles:assign") {
		return action.NewError(action.KindForbidden, "missing roles:assign")
	}
	if len(roleNames) == 0 {
		return action.Invalid(map[string]string{"roles": "at least one role required"})
	}
	for _, name := range roleNames {
		if !strings.HasPrefix(name, access.NamespaceExternal+".") {
			return action.Invalid(map[string]string{"roles": "only external roles can be assigned here"})
		}
	}

	if _, err := s.store.Users().FindActiveByID(ctx, targetUserID); err != nil {
		return err
	}

	roles, err := s.store.Roles().FindByNames(ctx, roleNames)
	if err != nil {
		return fmt.Errorf("failed to load roles: %w", err)
	}
	if len(roles) != len(roleNames) {
		return action.Invalid(map[string]string{"roles": "unknown role name"})
	}

	assignedBy := actor.UserID
	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		for _, role := range roles {
			if err := tx.UserRoles().Assign(ctx, targetUserID, role.ID, &assignedBy); err != nil {
				return fmt.Errorf("failed to assign role %s: %w", role.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.resolver.InvalidateUser(ctx, targetUserID)
	slog.Warn("roles assigned",
		"action", "admin.assign_roles",
		"user_id", targetUserID.String(),
		"roles", strings.Join(roleNames, ","),
		"assigned_by", actor.UserID.String())
	return nil
}

// RevokeExternalRole soft-deletes one role assignment; history is preserved.
func (s *AdminService) RevokeExternalRole(ctx context.Context, actor *access.UserContext, targetUserID uuid.UUID, roleName string) error {
	if !actor.HasPermission("roles:assign") {
		return action.NewError(action.KindForbidden, "missing roles:assign")
	}
	if !strings.HasPrefix(roleName, access.NamespaceExternal+".") {
		return action.Invalid(map[string]string{"role": "only external roles can be revoked here"})
	}

	role, err := s.store.Roles().FindByName(ctx, roleName)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return action.Invalid(map[string]string{"role": "unknown role name"})
		}
		return fmt.Errorf("failed to load role: %w", err)
	}

	if err := s.store.UserRoles().Revoke(ctx, targetUserID, role.ID); err != nil {
		return fmt.Errorf("failed to revoke role: %w", err)
	}

	s.resolver.InvalidateUser(ctx, targetUserID)
	slog.Warn("role revoked",
		"action", "admin.revoke_role",
		"user_id", targetUserID.String(),
		"role", roleName,
		"revoked_by", actor.UserID.String())
	return nil
}
