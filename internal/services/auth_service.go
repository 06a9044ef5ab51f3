package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/raceday-mx/raceday-backend/internal/access"
	"github.com/raceday-mx/raceday-backend/internal/action"
	"github.com/raceday-mx/raceday-backend/internal/config"
	"github.com/raceday-mx/raceday-backend/internal/dto"
	"github.com/raceday-mx/raceday-backend/internal/models"
	"github.com/raceday-mx/raceday-backend/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmailTaken         = action.NewError(action.KindEmailTaken, "email already registered")
	ErrInvalidCredentials = action.NewError(action.KindInvalidPassword, "invalid email or password")
	ErrNoPassword         = action.NewError(action.KindNoPassword, "account has no password credential")
	ErrInvalidToken       = action.NewError(action.KindInvalidToken, "invalid or unknown token")
	ErrUserNotFound       = action.NewError(action.KindNotFound, "user not found")
)

// deletedEmailSuffix is reserved for anonymized accounts; sign-up rejects it.
const deletedEmailSuffix = "@example.invalid"

type AuthService struct {
	store    repository.Store
	resolver *access.Resolver
	cfg      *config.Config
	mailer   Mailer
}

func NewAuthService(store repository.Store, resolver *access.Resolver, cfg *config.Config, mailer Mailer) *AuthService {
	return &AuthService{store: store, resolver: resolver, cfg: cfg, mailer: mailer}
}

// ClientInfo is recorded on the session row.
type ClientInfo struct {
	UserAgent string
	IPAddress string
}

func (s *AuthService) SignUp(ctx context.Context, req dto.SignUpRequest, client ClientInfo) (*dto.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	name := strings.TrimSpace(req.Name)

	fields := map[string]string{}
	if !validEmail(email) {
		fields["email"] = "valid email required"
	}
	if strings.HasSuffix(email, deletedEmailSuffix) {
		fields["email"] = "email domain not allowed"
	}
	if len(req.Password) < 8 {
		fields["password"] = "password must be at least 8 characters"
	}
	if name == "" {
		fields["name"] = "name required"
	}
	if len(fields) > 0 {
		return nil, action.Invalid(fields)
	}

	if _, err := s.store.Users().FindActiveByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{ID: uuid.New(), Email: email, Name: name}
	var verifyToken string
	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		if err := tx.Users().Create(ctx, &user); err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		h := string(hash)
		account := models.Account{
			ID:           uuid.New(),
			UserID:       user.ID,
			ProviderID:   models.ProviderCredential,
			PasswordHash: &h,
		}
		if err := tx.Accounts().Create(ctx, &account); err != nil {
			return fmt.Errorf("failed to create account: %w", err)
		}
		verifyToken, err = s.issueVerification(ctx, tx, email, models.VerificationEmail, s.cfg.VerificationExpiry)
		return err
	})
	if err != nil {
		return nil, err
	}

	if err := s.mailer.SendVerification(ctx, email, verifyToken); err != nil {
		return nil, fmt.Errorf("failed to send verification mail: %w", err)
	}

	return s.issueTokenPair(ctx, &user, client)
}

func (s *AuthService) SignIn(ctx context.Context, req dto.SignInRequest, client ClientInfo) (*dto.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	user, err := s.store.Users().FindActiveByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if err := s.verifyPassword(ctx, s.store, user.ID, req.Password); err != nil {
		return nil, err
	}

	return s.issueTokenPair(ctx, user, client)
}

// Refresh exchanges a valid session token for a fresh access token. The
// session row itself is kept; an expired one is removed on sight.
func (s *AuthService) Refresh(ctx context.Context, req dto.RefreshRequest) (*dto.AuthResponse, error) {
	sess, err := s.store.Sessions().FindByTokenHash(ctx, hashToken(req.SessionToken))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	if time.Now().After(sess.ExpiresAt) {
		if err := s.store.Sessions().Delete(ctx, sess.ID); err != nil {
			return nil, fmt.Errorf("failed to expire session: %w", err)
		}
		return nil, ErrInvalidToken
	}

	user, err := s.store.Users().FindActiveByID(ctx, sess.UserID)
	if err != nil {
		return nil, ErrInvalidToken
	}

	accessToken, err := s.generateAccessToken(user, sess.ID)
	if err != nil {
		return nil, err
	}
	return &dto.AuthResponse{
		AccessToken:  accessToken,
		SessionToken: req.SessionToken,
		User:         userResponse(user),
	}, nil
}

func (s *AuthService) SignOut(ctx context.Context, sess *action.Session) error {
	if err := s.store.Sessions().Delete(ctx, sess.SessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	s.resolver.InvalidateSession(ctx, sess.UserID, sess.SessionID)
	return nil
}

// VerifyEmail consumes a verification token. An expired token is recovered
// from: the stale row is removed, a fresh token is issued to the same email,
// and the caller gets a typed EXPIRED_TOKEN result it can redirect on.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) error {
	v, err := s.store.Verifications().FindByTokenHash(ctx, hashToken(token))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidToken
		}
		return fmt.Errorf("failed to load verification: %w", err)
	}
	if v.Kind != models.VerificationEmail {
		return ErrInvalidToken
	}

	if time.Now().After(v.ExpiresAt) {
		var fresh string
		err := s.store.WithTx(ctx, func(tx repository.Store) error {
			if err := tx.Verifications().Delete(ctx, v.ID); err != nil {
				return err
			}
			fresh, err = s.issueVerification(ctx, tx, v.Identifier, models.VerificationEmail, s.cfg.VerificationExpiry)
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to reissue verification: %w", err)
		}
		if err := s.mailer.SendVerification(ctx, v.Identifier, fresh); err != nil {
			return fmt.Errorf("failed to send verification mail: %w", err)
		}
		return &action.Error{
			Kind:    action.KindExpiredToken,
			Message: "verification link expired; a new one was sent",
			Details: map[string]any{"email": v.Identifier, "reissued": true},
		}
	}

	user, err := s.store.Users().FindActiveByEmail(ctx, v.Identifier)
	if err != nil {
		return ErrInvalidToken
	}

	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		if err := tx.Users().MarkEmailVerified(ctx, user.ID); err != nil {
			return err
		}
		return tx.Verifications().Delete(ctx, v.ID)
	})
	if err != nil {
		return fmt.Errorf("failed to verify email: %w", err)
	}
	s.resolver.InvalidateUser(ctx, user.ID)
	return nil
}

// ResendVerification always reports success so it cannot be used to probe
// which addresses exist.
func (s *AuthService) ResendVerification(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.store.Users().FindActiveByEmail(ctx, email)
	if err != nil || user.EmailVerified {
		return nil
	}
	token, err := s.issueVerification(ctx, s.store, email, models.VerificationEmail, s.cfg.VerificationExpiry)
	if err != nil {
		return fmt.Errorf("failed to issue verification: %w", err)
	}
	return s.mailer.SendVerification(ctx, email, token)
}

// ChangePassword re-verifies the current password, rotates the hash, and
// revokes every other session in the same transaction.
func (s *AuthService) ChangePassword(ctx context.Context, actor *access.UserContext, sess *action.Session, req dto.ChangePasswordRequest) error {
	if len(req.NewPassword) < 8 {
		return action.Invalid(map[string]string{"new_password": "password must be at least 8 characters"})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		account, err := tx.Accounts().CredentialForUser(ctx, actor.UserID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrNoPassword
			}
			return err
		}
		if account.PasswordHash == nil {
			return ErrNoPassword
		}
		if bcrypt.CompareHashAndPassword([]byte(*account.PasswordHash), []byte(req.CurrentPassword)) != nil {
			return ErrInvalidCredentials
		}
		if err := tx.Accounts().UpdatePasswordHash(ctx, account.ID, string(hash)); err != nil {
			return err
		}
		return tx.Sessions().DeleteOthersForUser(ctx, actor.UserID, sess.SessionID)
	})
	if err != nil {
		return err
	}
	s.resolver.InvalidateUser(ctx, actor.UserID)
	return nil
}

// ForgotPassword always reports success; a reset token is issued only when
// the address belongs to an active user.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := s.store.Users().FindActiveByEmail(ctx, email); err != nil {
		return nil
	}
	token, err := s.issueVerification(ctx, s.store, email, models.VerificationPasswordReset, s.cfg.ResetExpiry)
	if err != nil {
		return fmt.Errorf("failed to issue reset token: %w", err)
	}
	return s.mailer.SendPasswordReset(ctx, email, token)
}

func (s *AuthService) ResetPassword(ctx context.Context, req dto.ResetPasswordRequest) error {
	if len(req.NewPassword) < 8 {
		return action.Invalid(map[string]string{"new_password": "password must be at least 8 characters"})
	}

	v, err := s.store.Verifications().FindByTokenHash(ctx, hashToken(req.Token))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidToken
		}
		return fmt.Errorf("failed to load verification: %w", err)
	}
	if v.Kind != models.VerificationPasswordReset {
		return ErrInvalidToken
	}
	if time.Now().After(v.ExpiresAt) {
		_ = s.store.Verifications().Delete(ctx, v.ID)
		return action.NewError(action.KindExpiredToken, "reset link expired; request a new one")
	}

	user, err := s.store.Users().FindActiveByEmail(ctx, v.Identifier)
	if err != nil {
		return ErrInvalidToken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		account, err := tx.Accounts().CredentialForUser(ctx, user.ID)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			h := string(hash)
			if err := tx.Accounts().Create(ctx, &models.Account{
				ID:           uuid.New(),
				UserID:       user.ID,
				ProviderID:   models.ProviderCredential,
				PasswordHash: &h,
			}); err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			if err := tx.Accounts().UpdatePasswordHash(ctx, account.ID, string(hash)); err != nil {
				return err
			}
		}
		if err := tx.Verifications().Delete(ctx, v.ID); err != nil {
			return err
		}
		return tx.Sessions().DeleteAllForUser(ctx, user.ID)
	})
	if err != nil {
		return err
	}
	s.resolver.InvalidateUser(ctx, user.ID)
	return nil
}

// verifyPassword re-checks the caller's credential for sensitive operations.
func (s *AuthService) verifyPassword(ctx context.Context, store repository.Store, userID uuid.UUID, password string) error {
	if password == "" {
		return action.Invalid(map[string]string{"password": "password required"})
	}
	account, err := store.Accounts().CredentialForUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNoPassword
		}
		return fmt.Errorf("failed to load credential: %w", err)
	}
	if account.PasswordHash == nil {
		return ErrNoPassword
	}
	if bcrypt.CompareHashAndPassword([]byte(*account.PasswordHash), []byte(password)) != nil {
		return ErrInvalidCredentials
	}
	return nil
}

func (s *AuthService) issueTokenPair(ctx context.Context, user *models.User, client ClientInfo) (*dto.AuthResponse, error) {
	rawToken, tokenHash, err := newOpaqueToken()
	if err != nil {
		return nil, err
	}

	session := models.Session{
		ID:        uuid.New(),
		UserID:    user.ID,
		TokenHash: tokenHash,
		UserAgent: client.UserAgent,
		IPAddress: client.IPAddress,
		ExpiresAt: time.Now().Add(s.cfg.SessionExpiry),
	}
	if err := s.store.Sessions().Create(ctx, &session); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	accessToken, err := s.generateAccessToken(user, session.ID)
	if err != nil {
		return nil, err
	}

	return &dto.AuthResponse{
		AccessToken:  accessToken,
		SessionToken: rawToken,
		User:         userResponse(user),
	}, nil
}

func (s *AuthService) generateAccessToken(user *models.User, sessionID uuid.UUID) (string, error) {
	claims := jwt.MapClaims{
		"sub":   user.ID.String(),
		"sid":   sessionID.String(),
		"email": user.Email,
		"iat":   time.Now().Unix(),
		"exp":   time.Now().Add(s.cfg.JWTAccessExpiry).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

func (s *AuthService) issueVerification(ctx context.Context, store repository.Store, email, kind string, ttl time.Duration) (string, error) {
	rawToken, tokenHash, err := newOpaqueToken()
	if err != nil {
		return "", err
	}
	v := models.Verification{
		ID:         uuid.New(),
		Identifier: email,
		TokenHash:  tokenHash,
		Kind:       kind,
		ExpiresAt:  time.Now().Add(ttl),
	}
	if err := store.Verifications().Create(ctx, &v); err != nil {
		return "", fmt.Errorf("failed to store verification: %w", err)
	}
	return rawToken, nil
}

func userResponse(user *models.User) dto.UserResponse {
	return dto.UserResponse{
		ID:            user.ID,
		Email:         user.Email,
		Name:          user.Name,
		EmailVerified: user.EmailVerified,
	}
}

func newOpaqueToken() (raw, hash string, err error) {
	rawBytes := make([]byte, 32)
	if _, err := rand.Read(rawBytes); err != nil {
		return "", "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	raw = base64.URLEncoding.EncodeToString(rawBytes)
	return raw, hashToken(raw), nil
}

func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return fmt.Sprintf("%x", h)
}

func validEmail(email string) bool {
	at := strings.Index(email, "@")
	return at > 0 && at < len(email)-1 && !strings.ContainsAny(email, " \t")
}
