package access

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/google/uuid"
	"github.com/raceday-mx/raceday-backend/internal/models"
	"github.com/raceday-mx/raceday-backend/internal/repository"
)

type fakeUserSource struct {
	user *models.User
	err  error
}

func (f *fakeUserSource) FindActiveByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.user, nil
}

type fakeRoleSource struct {
	names []string
	err   error
}

func (f *fakeRoleSource) EffectiveRoleNames(ctx context.Context, userID uuid.UUID) ([]string, error) {
	return f.names, f.err
}

type fakeProfileSource struct {
	profile *models.Profile
	err     error
}

func (f *fakeProfileSource) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.profile, nil
}

func testResolver(u *fakeUserSource, r *fakeRoleSource, p *fakeProfileSource) *Resolver {
	return &Resolver{users: u, roles: r, profiles: p}
}

func TestResolve_SnapshotComposition(t *testing.T) {
	id := uuid.New()
	r := testResolver(
		&fakeUserSource{user: &models.User{ID: id, Email: "a@b.mx", Name: "Ana", EmailVerified: true}},
		&fakeRoleSource{names: []string{"athlete", "admin"}},
		&fakeProfileSource{err: repository.ErrNotFound},
	)

	ctx, err := r.Resolve(context.Background(), id)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if ctx.UserID != id || ctx.Email != "a@b.mx" || !ctx.EmailVerified {
		t.Fatalf("identity fields wrong: %+v", ctx)
	}
	wantRoles := []string{"external.athlete", "internal.admin"}
	if !reflect.DeepEqual(ctx.CanonicalRoles, wantRoles) {
		t.Fatalf("roles = %v, want %v", ctx.CanonicalRoles, wantRoles)
	}
	if !ctx.IsInternal {
		t.Fatalf("admin role must mark the snapshot internal")
	}
	if !ctx.HasPermission("users:write") || ctx.HasPermission("roles:none") {
		t.Fatalf("permissions wrong: %v", ctx.Permissions)
	}
	// Internal flag exempts from completion even with the athlete categories.
	if ctx.ProfileStatus.HasProfile || ctx.ProfileStatus.MustCompleteProfile {
		t.Fatalf("profile status wrong: %+v", ctx.ProfileStatus)
	}
}

func TestResolve_MissingProfileTolerated(t *testing.T) {
	id := uuid.New()
	r := testResolver(
		&fakeUserSource{user: &models.User{ID: id, Email: "x@y.mx"}},
		&fakeRoleSource{},
		&fakeProfileSource{err: repository.ErrNotFound},
	)
	ctx, err := r.Resolve(context.Background(), id)
	if err != nil {
		t.Fatalf("missing profile must not fail Resolve: %v", err)
	}
	if ctx.ProfileStatus.HasProfile {
		t.Fatalf("HasProfile must be false")
	}
	if !ctx.ProfileStatus.MustCompleteProfile {
		t.Fatalf("role-less external user without profile must complete one")
	}
}

func TestResolve_UserNotFound(t *testing.T) {
	r := testResolver(&fakeUserSource{err: repository.ErrNotFound}, &fakeRoleSource{}, &fakeProfileSource{})
	if _, err := r.Resolve(context.Background(), uuid.New()); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestResolve_ProfileLoadFailure(t *testing.T) {
	boom := errors.New("db down")
	r := testResolver(
		&fakeUserSource{user: &models.User{ID: uuid.New()}},
		&fakeRoleSource{},
		&fakeProfileSource{err: boom},
	)
	if _, err := r.Resolve(context.Background(), uuid.New()); !errors.Is(err, boom) {
		t.Fatalf("non-not-found profile errors must propagate, got %v", err)
	}
}

func TestRoleSet_EmptyIsNotError(t *testing.T) {
	r := testResolver(&fakeUserSource{}, &fakeRoleSource{names: nil}, &fakeProfileSource{})
	rs, err := r.RoleSet(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("RoleSet: %v", err)
	}
	if len(rs.CanonicalRoles) != 0 || rs.IsInternal {
		t.Fatalf("want empty external role set, got %+v", rs)
	}
}

type fakeProjectionStore struct {
	snapshots           map[string]*UserContext
	sets                int
	invalidatedSessions []string
	invalidatedUsers    []string
}

func newFakeProjectionStore() *fakeProjectionStore {
	return &fakeProjectionStore{snapshots: map[string]*UserContext{}}
}

func (f *fakeProjectionStore) Get(ctx context.Context, sessionID string, dest any) bool {
	snap, ok := f.snapshots[sessionID]
	if !ok {
		return false
	}
	*dest.(*UserContext) = *snap
	return true
}

func (f *fakeProjectionStore) Set(ctx context.Context, userID, sessionID string, value any) {
	f.sets++
	f.snapshots[sessionID] = value.(*UserContext)
}

func (f *fakeProjectionStore) InvalidateUser(ctx context.Context, userID string) {
	f.invalidatedUsers = append(f.invalidatedUsers, userID)
}

func (f *fakeProjectionStore) InvalidateSession(ctx context.Context, userID, sessionID string) {
	f.invalidatedSessions = append(f.invalidatedSessions, sessionID)
	delete(f.snapshots, sessionID)
}

func TestResolveForSession_CacheHit(t *testing.T) {
	id := uuid.New()
	sessionID := uuid.New()
	store := newFakeProjectionStore()
	store.snapshots[sessionID.String()] = &UserContext{UserID: id, Email: "cached@raceday.mx"}

	r := testResolver(
		&fakeUserSource{err: repository.ErrNotFound},
		&fakeRoleSource{},
		&fakeProfileSource{},
	)
	r.cache = store

	ctx, err := r.ResolveForSession(context.Background(), id, sessionID)
	if err != nil {
		t.Fatalf("ResolveForSession: %v", err)
	}
	if ctx.Email != "cached@raceday.mx" {
		t.Fatalf("cached snapshot not served: %+v", ctx)
	}
}

func TestResolveForSession_UserMismatchDropsStaleProjection(t *testing.T) {
	userID := uuid.New()
	otherUser := uuid.New()
	sessionID := uuid.New()

	store := newFakeProjectionStore()
	store.snapshots[sessionID.String()] = &UserContext{UserID: otherUser}

	r := testResolver(
		&fakeUserSource{user: &models.User{ID: userID, Email: "real@raceday.mx"}},
		&fakeRoleSource{},
		&fakeProfileSource{err: repository.ErrNotFound},
	)
	r.cache = store

	ctx, err := r.ResolveForSession(context.Background(), userID, sessionID)
	if err != nil {
		t.Fatalf("ResolveForSession: %v", err)
	}
	if ctx.UserID != userID {
		t.Fatalf("mismatched projection must not be served: %+v", ctx)
	}
	if len(store.invalidatedSessions) != 1 || store.invalidatedSessions[0] != sessionID.String() {
		t.Fatalf("stale projection must be deleted, got %v", store.invalidatedSessions)
	}
	if store.sets != 1 {
		t.Fatalf("fresh snapshot must be cached, sets = %d", store.sets)
	}
	if got := store.snapshots[sessionID.String()]; got == nil || got.UserID != userID {
		t.Fatalf("cache holds %+v after refill", got)
	}
}

func TestResolveForSession_NilCacheFallsThrough(t *testing.T) {
	id := uuid.New()
	r := testResolver(
		&fakeUserSource{user: &models.User{ID: id, Email: "c@d.mx"}},
		&fakeRoleSource{},
		&fakeProfileSource{err: repository.ErrNotFound},
	)
	ctx, err := r.ResolveForSession(context.Background(), id, uuid.New())
	if err != nil {
		t.Fatalf("ResolveForSession: %v", err)
	}
	if ctx.UserID != id {
		t.Fatalf("wrong snapshot: %+v", ctx)
	}
}
