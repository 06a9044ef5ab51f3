package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/raceday-mx/raceday-backend/internal/access"
	"github.com/raceday-mx/raceday-backend/internal/action"
	"github.com/raceday-mx/raceday-backend/internal/repository"
)

var ErrCannotDeleteSelf = action.NewError(action.KindCannotDeleteSelf, "cannot delete own account through the admin path")

// DeletedNamePlaceholder replaces the user's name on anonymization.
const DeletedNamePlaceholder = "Deleted User"

// DeletedEmailSentinel is the deterministic rewrite of a deleted user's
// email. The @example.invalid domain can never belong to a real sign-up, so
// the unique email constraint holds across repeated deletions.
func DeletedEmailSentinel(userID uuid.UUID) string {
	return "deleted+" + userID.String() + deletedEmailSuffix
}

// AccountService owns the deletion workflow and its two entry points.
type AccountService struct {
	store    repository.Store
	resolver *access.Resolver
	auth     *AuthService
}

func NewAccountService(store repository.Store, resolver *access.Resolver, auth *AuthService) *AccountService {
	return &AccountService{store: store, resolver: resolver, auth: auth}
}

// DeleteUser anonymizes the target user in one atomic transaction:
// revoke access (sessions, accounts), soft-delete role assignments, null the
// profile PII, redact contact submissions, drop verification tokens keyed by
// the pre-anonymization email, then rewrite the user row itself. Any failure
// rolls the whole thing back; a missing or already-deleted target returns
// repository.ErrNotFound with zero writes.
func (s *AccountService) DeleteUser(ctx context.Context, targetUserID, deletedByUserID uuid.UUID) error {
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		target, err := tx.Users().FindActiveByID(ctx, targetUserID)
		if err != nil {
			return err
		}
		// The email at this point is the real address; the verification
		// cleanup below must use it, not the sentinel.
		originalEmail := target.Email

		if err := tx.Sessions().DeleteAllForUser(ctx, targetUserID); err != nil {
			return fmt.Errorf("failed to delete sessions: %w", err)
		}
		if err := tx.Accounts().DeleteAllForUser(ctx, targetUserID); err != nil {
			return fmt.Errorf("failed to delete accounts: %w", err)
		}
		if err := tx.UserRoles().SoftDeleteAllForUser(ctx, targetUserID); err != nil {
			return fmt.Errorf("failed to revoke roles: %w", err)
		}
		if err := tx.Profiles().AnonymizeForUser(ctx, targetUserID); err != nil {
			return fmt.Errorf("failed to anonymize profile: %w", err)
		}
		if err := tx.ContactSubmissions().RedactForUser(ctx, targetUserID); err != nil {
			return fmt.Errorf("failed to redact contact submissions: %w", err)
		}
		if err := tx.Verifications().DeleteByIdentifier(ctx, originalEmail); err != nil {
			return fmt.Errorf("failed to delete verifications: %w", err)
		}
		return tx.Users().Anonymize(ctx, repository.UserAnonymization{
			UserID:          targetUserID,
			DeletedByUserID: deletedByUserID,
			Email:           DeletedEmailSentinel(targetUserID),
			Name:            DeletedNamePlaceholder,
		})
	})
	if err != nil {
		return err
	}

	s.resolver.InvalidateUser(ctx, targetUserID)
	slog.Warn("user deleted",
		"action", "account.delete",
		"user_id", targetUserID.String(),
		"deleted_by", deletedByUserID.String())
	return nil
}

// DeleteOwnAccount re-verifies the caller's password, then runs the
// workflow. A NOT_FOUND from the workflow means a concurrent request already
// deleted the account; that is collapsed into success so the self-service
// path stays idempotent.
func (s *AccountService) DeleteOwnAccount(ctx context.Context, actor *access.UserContext, password string) error {
	if err := s.auth.verifyPassword(ctx, s.store, actor.UserID, password); err != nil {
		return err
	}
	err := s.DeleteUser(ctx, actor.UserID, actor.UserID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	return nil
}

// AdminDeleteUser rejects self-deletion before any password check, then
// re-verifies the admin's own password and runs the workflow. NOT_FOUND is a
// hard error here.
func (s *AccountService) AdminDeleteUser(ctx context.Context, actor *access.UserContext, targetUserID uuid.UUID, adminPassword string) error {
	if targetUserID == actor.UserID {
		return ErrCannotDeleteSelf
	}
	if err := s.auth.verifyPassword(ctx, s.store, actor.UserID, adminPassword); err != nil {
		return err
	}
	return s.DeleteUser(ctx, targetUserID, actor.UserID)
}
