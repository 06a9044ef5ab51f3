package access

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/raceday-mx/raceday-backend/internal/cache"
	"github.com/raceday-mx/raceday-backend/internal/models"
	"github.com/raceday-mx/raceday-backend/internal/repository"
)

// UserContext is the single consistent snapshot every authenticated request
// path consumes. Roles, internal flag and profile status always originate
// from the same Resolve call so they can never skew against each other.
type UserContext struct {
	UserID         uuid.UUID     `json:"user_id"`
	Email          string        `json:"email"`
	Name           string        `json:"name"`
	EmailVerified  bool          `json:"email_verified"`
	CanonicalRoles []string      `json:"canonical_roles"`
	IsInternal     bool          `json:"is_internal"`
	Permissions    []string      `json:"permissions"`
	Requirements   []Category    `json:"requirements"`
	ProfileStatus  ProfileStatus `json:"profile_status"`
}

// HasPermission reports whether the snapshot grants the permission.
func (u *UserContext) HasPermission(perm string) bool {
	for _, p := range u.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}

// RoleSet is the role-resolution half of the snapshot.
type RoleSet struct {
	CanonicalRoles []string
	IsInternal     bool
}

// Narrow read interfaces so tests can stand in for the store.
type UserSource interface {
	FindActiveByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type RoleSource interface {
	EffectiveRoleNames(ctx context.Context, userID uuid.UUID) ([]string, error)
}

type ProfileSource interface {
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
}

// projectionStore is the slice of the projection cache the resolver uses.
type projectionStore interface {
	Get(ctx context.Context, sessionID string, dest any) bool
	Set(ctx context.Context, userID, sessionID string, value any)
	InvalidateUser(ctx context.Context, userID string)
	InvalidateSession(ctx context.Context, userID, sessionID string)
}

// Resolver composes role resolution and profile-status computation. The
// optional projection cache memoizes snapshots per session.
type Resolver struct {
	users    UserSource
	roles    RoleSource
	profiles ProfileSource
	cache    projectionStore
}

func NewResolver(store repository.Store, projections *cache.ProjectionCache) *Resolver {
	r := &Resolver{
		users:    store.Users(),
		roles:    store.UserRoles(),
		profiles: store.Profiles(),
	}
	if projections != nil {
		r.cache = projections
	}
	return r
}

// RoleSet resolves the canonical role set and internal flag for a user.
// A user with no effective roles gets an empty set, never an error.
func (r *Resolver) RoleSet(ctx context.Context, userID uuid.UUID) (RoleSet, error) {
	names, err := r.roles.EffectiveRoleNames(ctx, userID)
	if err != nil {
		return RoleSet{}, fmt.Errorf("failed to load roles: %w", err)
	}
	canonical, isInternal := Canonicalize(names)
	return RoleSet{CanonicalRoles: canonical, IsInternal: isInternal}, nil
}

// Resolve builds a fresh snapshot for the user.
func (r *Resolver) Resolve(ctx context.Context, userID uuid.UUID) (*UserContext, error) {
	user, err := r.users.FindActiveByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	roleSet, err := r.RoleSet(ctx, userID)
	if err != nil {
		return nil, err
	}

	profile, err := r.profiles.FindByUserID(ctx, userID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	requirements := RequirementsFor(roleSet.CanonicalRoles)
	return &UserContext{
		UserID:         user.ID,
		Email:          user.Email,
		Name:           user.Name,
		EmailVerified:  user.EmailVerified,
		CanonicalRoles: roleSet.CanonicalRoles,
		IsInternal:     roleSet.IsInternal,
		Permissions:    PermissionsFor(roleSet.CanonicalRoles),
		Requirements:   requirements,
		ProfileStatus:  ComputeProfileStatus(profile, roleSet.IsInternal, requirements),
	}, nil
}

// ResolveForSession returns the cached projection for the session when one
// exists, resolving and filling it otherwise. A cache failure is a miss.
func (r *Resolver) ResolveForSession(ctx context.Context, userID, sessionID uuid.UUID) (*UserContext, error) {
	if r.cache != nil {
		var cached UserContext
		if r.cache.Get(ctx, sessionID.String(), &cached) {
			if cached.UserID == userID {
				return &cached, nil
			}
			// The projection belongs to another user; drop it so the stale
			// snapshot cannot be served again.
			r.cache.InvalidateSession(ctx, cached.UserID.String(), sessionID.String())
		}
	}

	resolved, err := r.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}
	if r.cache != nil {
		r.cache.Set(ctx, userID.String(), sessionID.String(), resolved)
	}
	return resolved, nil
}

// InvalidateUser drops every cached projection for the user. Called after
// role changes, profile writes, password changes and deletion.
func (r *Resolver) InvalidateUser(ctx context.Context, userID uuid.UUID) {
	if r.cache != nil {
		r.cache.InvalidateUser(ctx, userID.String())
	}
}

// InvalidateSession drops one session's projection on sign-out.
func (r *Resolver) InvalidateSession(ctx context.Context, userID, sessionID uuid.UUID) {
	if r.cache != nil {
		r.cache.InvalidateSession(ctx, userID.String(), sessionID.String())
	}
}
