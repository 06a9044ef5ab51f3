package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/raceday-mx/raceday-backend/internal/models"
	"github.com/raceday-mx/raceday-backend/internal/repository"
)

// mockStore is an in-memory repository.Store that counts every write so
// tests can assert exactly which rows a workflow touched.
type mockStore struct {
	users         *mockUserRepo
	roles         *mockRoleRepo
	userRoles     *mockUserRoleRepo
	profiles      *mockProfileRepo
	contacts      *mockContactRepo
	sessions      *mockSessionRepo
	accounts      *mockAccountRepo
	verifications *mockVerificationRepo

	txCount int
	txErr   error
}

func newMockStore() *mockStore {
	return &mockStore{
		users:         &mockUserRepo{byID: map[uuid.UUID]*models.User{}},
		roles:         &mockRoleRepo{byName: map[string]*models.Role{}},
		userRoles:     &mockUserRoleRepo{names: map[uuid.UUID][]string{}},
		profiles:      &mockProfileRepo{byUser: map[uuid.UUID]*models.Profile{}},
		contacts:      &mockContactRepo{},
		sessions:      &mockSessionRepo{byHash: map[string]*models.Session{}},
		accounts:      &mockAccountRepo{byUser: map[uuid.UUID]*models.Account{}},
		verifications: &mockVerificationRepo{byHash: map[string]*models.Verification{}},
	}
}

func (m *mockStore) Users() repository.UserRepo                           { return m.users }
func (m *mockStore) Roles() repository.RoleRepo                           { return m.roles }
func (m *mockStore) UserRoles() repository.UserRoleRepo                   { return m.userRoles }
func (m *mockStore) Profiles() repository.ProfileRepo                     { return m.profiles }
func (m *mockStore) ContactSubmissions() repository.ContactSubmissionRepo { return m.contacts }
func (m *mockStore) Sessions() repository.SessionRepo                     { return m.sessions }
func (m *mockStore) Accounts() repository.AccountRepo                     { return m.accounts }
func (m *mockStore) Verifications() repository.VerificationRepo           { return m.verifications }

func (m *mockStore) WithTx(ctx context.Context, fn func(repository.Store) error) error {
	m.txCount++
	if m.txErr != nil {
		return m.txErr
	}
	return fn(m)
}

// deleteWrites sums the hard-delete statements of the deletion workflow.
func (m *mockStore) deleteWrites() int {
	return m.sessions.deleteAllCalls + m.accounts.deleteAllCalls + len(m.verifications.deletedIdentifiers)
}

// updateWrites sums the soft-delete and rewrite statements.
func (m *mockStore) updateWrites() int {
	return m.userRoles.softDeleteAllCalls + m.profiles.anonymizeCalls +
		m.contacts.redactCalls + len(m.users.anonymizeCalls)
}

type mockUserRepo struct {
	byID           map[uuid.UUID]*models.User
	created        []*models.User
	verifiedIDs    []uuid.UUID
	anonymizeCalls []repository.UserAnonymization
	listCalls      []repository.UserListQuery
	listResult     []models.User
	listTotal      int64
}

func (r *mockUserRepo) Create(ctx context.Context, u *models.User) error {
	r.created = append(r.created, u)
	r.byID[u.ID] = u
	return nil
}

func (r *mockUserRepo) FindActiveByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if u, ok := r.byID[id]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

func (r *mockUserRepo) FindActiveByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range r.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *mockUserRepo) MarkEmailVerified(ctx context.Context, id uuid.UUID) error {
	r.verifiedIDs = append(r.verifiedIDs, id)
	if u, ok := r.byID[id]; ok {
		u.EmailVerified = true
	}
	return nil
}

func (r *mockUserRepo) Anonymize(ctx context.Context, a repository.UserAnonymization) error {
	if _, ok := r.byID[a.UserID]; !ok {
		return repository.ErrNotFound
	}
	r.anonymizeCalls = append(r.anonymizeCalls, a)
	delete(r.byID, a.UserID)
	return nil
}

func (r *mockUserRepo) List(ctx context.Context, q repository.UserListQuery) ([]models.User, int64, error) {
	r.listCalls = append(r.listCalls, q)
	return r.listResult, r.listTotal, nil
}

type mockRoleRepo struct {
	byName map[string]*models.Role
}

func (r *mockRoleRepo) FindByName(ctx context.Context, name string) (*models.Role, error) {
	if role, ok := r.byName[name]; ok {
		return role, nil
	}
	return nil, repository.ErrNotFound
}

func (r *mockRoleRepo) FindByNames(ctx context.Context, names []string) ([]models.Role, error) {
	out := []models.Role{}
	for _, name := range names {
		if role, ok := r.byName[name]; ok {
			out = append(out, *role)
		}
	}
	return out, nil
}

type roleAssignment struct {
	userID, roleID uuid.UUID
}

type mockUserRoleRepo struct {
	names              map[uuid.UUID][]string
	assignCalls        []roleAssignment
	revokeCalls        []roleAssignment
	softDeleteAllCalls int
}

func (r *mockUserRoleRepo) EffectiveRoleNames(ctx context.Context, userID uuid.UUID) ([]string, error) {
	return r.names[userID], nil
}

func (r *mockUserRoleRepo) EffectiveRoleNamesForUsers(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID][]string, error) {
	out := map[uuid.UUID][]string{}
	for _, id := range userIDs {
		if names, ok := r.names[id]; ok {
			out[id] = names
		}
	}
	return out, nil
}

func (r *mockUserRoleRepo) Assign(ctx context.Context, userID, roleID uuid.UUID, assignedBy *uuid.UUID) error {
	r.assignCalls = append(r.assignCalls, roleAssignment{userID, roleID})
	return nil
}

func (r *mockUserRoleRepo) Revoke(ctx context.Context, userID, roleID uuid.UUID) error {
	r.revokeCalls = append(r.revokeCalls, roleAssignment{userID, roleID})
	return nil
}

func (r *mockUserRoleRepo) SoftDeleteAllForUser(ctx context.Context, userID uuid.UUID) error {
	r.softDeleteAllCalls++
	return nil
}

type mockProfileRepo struct {
	byUser         map[uuid.UUID]*models.Profile
	upserts        []*models.Profile
	anonymizeCalls int
}

func (r *mockProfileRepo) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	if p, ok := r.byUser[userID]; ok {
		return p, nil
	}
	return nil, repository.ErrNotFound
}

func (r *mockProfileRepo) Upsert(ctx context.Context, p *models.Profile) error {
	r.upserts = append(r.upserts, p)
	r.byUser[p.UserID] = p
	return nil
}

func (r *mockProfileRepo) AnonymizeForUser(ctx context.Context, userID uuid.UUID) error {
	r.anonymizeCalls++
	return nil
}

type mockContactRepo struct {
	created     []*models.ContactSubmission
	redactCalls int
}

func (r *mockContactRepo) Create(ctx context.Context, s *models.ContactSubmission) error {
	r.created = append(r.created, s)
	return nil
}

func (r *mockContactRepo) RedactForUser(ctx context.Context, userID uuid.UUID) error {
	r.redactCalls++
	return nil
}

type mockSessionRepo struct {
	byHash            map[string]*models.Session
	created           []*models.Session
	deletedIDs        []uuid.UUID
	deleteAllCalls    int
	deleteOthersCalls int
}

func (r *mockSessionRepo) Create(ctx context.Context, s *models.Session) error {
	r.created = append(r.created, s)
	r.byHash[s.TokenHash] = s
	return nil
}

func (r *mockSessionRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	for _, s := range r.byHash {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *mockSessionRepo) FindByTokenHash(ctx context.Context, hash string) (*models.Session, error) {
	if s, ok := r.byHash[hash]; ok {
		return s, nil
	}
	return nil, repository.ErrNotFound
}

func (r *mockSessionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.deletedIDs = append(r.deletedIDs, id)
	for hash, s := range r.byHash {
		if s.ID == id {
			delete(r.byHash, hash)
		}
	}
	return nil
}

func (r *mockSessionRepo) DeleteAllForUser(ctx context.Context, userID uuid.UUID) error {
	r.deleteAllCalls++
	return nil
}

func (r *mockSessionRepo) DeleteOthersForUser(ctx context.Context, userID, keep uuid.UUID) error {
	r.deleteOthersCalls++
	return nil
}

type mockAccountRepo struct {
	byUser         map[uuid.UUID]*models.Account
	created        []*models.Account
	hashUpdates    []uuid.UUID
	credentialGets int
	deleteAllCalls int
}

func (r *mockAccountRepo) Create(ctx context.Context, a *models.Account) error {
	r.created = append(r.created, a)
	r.byUser[a.UserID] = a
	return nil
}

func (r *mockAccountRepo) CredentialForUser(ctx context.Context, userID uuid.UUID) (*models.Account, error) {
	r.credentialGets++
	if a, ok := r.byUser[userID]; ok {
		return a, nil
	}
	return nil, repository.ErrNotFound
}

func (r *mockAccountRepo) UpdatePasswordHash(ctx context.Context, accountID uuid.UUID, hash string) error {
	r.hashUpdates = append(r.hashUpdates, accountID)
	for _, a := range r.byUser {
		if a.ID == accountID {
			h := hash
			a.PasswordHash = &h
		}
	}
	return nil
}

func (r *mockAccountRepo) DeleteAllForUser(ctx context.Context, userID uuid.UUID) error {
	r.deleteAllCalls++
	return nil
}

type mockVerificationRepo struct {
	byHash             map[string]*models.Verification
	created            []*models.Verification
	deletedIDs         []uuid.UUID
	deletedIdentifiers []string
}

func (r *mockVerificationRepo) Create(ctx context.Context, v *models.Verification) error {
	r.created = append(r.created, v)
	r.byHash[v.TokenHash] = v
	return nil
}

func (r *mockVerificationRepo) FindByTokenHash(ctx context.Context, hash string) (*models.Verification, error) {
	if v, ok := r.byHash[hash]; ok {
		return v, nil
	}
	return nil, repository.ErrNotFound
}

func (r *mockVerificationRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.deletedIDs = append(r.deletedIDs, id)
	for hash, v := range r.byHash {
		if v.ID == id {
			delete(r.byHash, hash)
		}
	}
	return nil
}

func (r *mockVerificationRepo) DeleteByIdentifier(ctx context.Context, identifier string) error {
	r.deletedIdentifiers = append(r.deletedIdentifiers, identifier)
	return nil
}

type sentMail struct {
	email, token string
}

type mockMailer struct {
	verifications []sentMail
	resets        []sentMail
}

func (m *mockMailer) SendVerification(ctx context.Context, email, token string) error {
	m.verifications = append(m.verifications, sentMail{email, token})
	return nil
}

func (m *mockMailer) SendPasswordReset(ctx context.Context, email, token string) error {
	m.resets = append(m.resets, sentMail{email, token})
	return nil
}
