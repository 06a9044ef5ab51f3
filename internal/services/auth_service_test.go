package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/raceday-mx/raceday-backend/internal/access"
	"github.com/raceday-mx/raceday-backend/internal/action"
	"github.com/raceday-mx/raceday-backend/internal/dto"
	"github.com/raceday-mx/raceday-backend/internal/models"
	"golang.org/x/crypto/bcrypt"
)

func TestSignUp_Validation(t *testing.T) {
	store := newMockStore()
	auth, _, _ := newTestServices(store)

	_, err := auth.SignUp(context.Background(), dto.SignUpRequest{
		Email:    "nope",
		Password: "short",
		Name:     "  ",
	}, ClientInfo{})
	if action.KindOf(err) != action.KindInvalidInput {
		t.Fatalf("want INVALID_INPUT, got %v", err)
	}
	var ae *action.Error
	if !errors.As(err, &ae) {
		t.Fatalf("typed error lost: %v", err)
	}
	for _, field := range []string{"email", "password", "name"} {
		if _, ok := ae.Fields[field]; !ok {
			t.Errorf("missing field error for %s", field)
		}
	}
}

func TestSignUp_RejectsSentinelDomain(t *testing.T) {
	store := newMockStore()
	auth, _, _ := newTestServices(store)

	_, err := auth.SignUp(context.Background(), dto.SignUpRequest{
		Email:    "deleted+x@example.invalid",
		Password: "long-enough-pass",
		Name:     "Ghost",
	}, ClientInfo{})
	if action.KindOf(err) != action.KindInvalidInput {
		t.Fatalf("sentinel domain must be rejected, got %v", err)
	}
}

func TestSignUp_EmailTaken(t *testing.T) {
	store := newMockStore()
	auth, _, _ := newTestServices(store)
	seedUser(store, "taken@raceday.mx")

	_, err := auth.SignUp(context.Background(), dto.SignUpRequest{
		Email:    "Taken@RaceDay.mx",
		Password: "long-enough-pass",
		Name:     "Dup",
	}, ClientInfo{})
	if action.KindOf(err) != action.KindEmailTaken {
		t.Fatalf("want EMAIL_TAKEN, got %v", err)
	}
}

func TestSignUp_Success(t *testing.T) {
	store := newMockStore()
	auth, _, mailer := newTestServices(store)

	resp, err := auth.SignUp(context.Background(), dto.SignUpRequest{
		Email:    "  New.Runner@RaceDay.mx  ",
		Password: "long-enough-pass",
		Name:     "New Runner",
	}, ClientInfo{UserAgent: "test", IPAddress: "127.0.0.1"})
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if resp.User.Email != "new.runner@raceday.mx" {
		t.Fatalf("email not normalized: %q", resp.User.Email)
	}
	if resp.AccessToken == "" || resp.SessionToken == "" {
		t.Fatalf("token pair missing: %+v", resp)
	}
	if len(store.accounts.created) != 1 {
		t.Fatalf("credential account missing")
	}
	if len(mailer.verifications) != 1 || mailer.verifications[0].email != "new.runner@raceday.mx" {
		t.Fatalf("verification mail wrong: %+v", mailer.verifications)
	}
	// The stored session keeps only the hash of the opaque token.
	if len(store.sessions.created) != 1 {
		t.Fatalf("session missing")
	}
	if store.sessions.created[0].TokenHash == resp.SessionToken {
		t.Fatalf("raw session token must never be persisted")
	}
	if store.sessions.created[0].TokenHash != hashToken(resp.SessionToken) {
		t.Fatalf("session hash does not match issued token")
	}
}

func TestSignIn_UnknownEmail(t *testing.T) {
	store := newMockStore()
	auth, _, _ := newTestServices(store)

	_, err := auth.SignIn(context.Background(), dto.SignInRequest{Email: "who@raceday.mx", Password: "x"}, ClientInfo{})
	if action.KindOf(err) != action.KindInvalidPassword {
		t.Fatalf("unknown email must look like a bad password, got %v", err)
	}
}

func TestSignIn_NoCredential(t *testing.T) {
	store := newMockStore()
	auth, _, _ := newTestServices(store)
	seedUser(store, "oauth@raceday.mx")

	_, err := auth.SignIn(context.Background(), dto.SignInRequest{Email: "oauth@raceday.mx", Password: "x"}, ClientInfo{})
	if action.KindOf(err) != action.KindNoPassword {
		t.Fatalf("want NO_PASSWORD, got %v", err)
	}
}

func TestSignIn_WrongThenRightPassword(t *testing.T) {
	store := newMockStore()
	auth, _, _ := newTestServices(store)
	user := seedUser(store, "runner@raceday.mx")
	seedCredential(t, store, user.ID, "correct-horse")

	_, err := auth.SignIn(context.Background(), dto.SignInRequest{Email: "runner@raceday.mx", Password: "wrong"}, ClientInfo{})
	if action.KindOf(err) != action.KindInvalidPassword {
		t.Fatalf("want INVALID_PASSWORD, got %v", err)
	}

	resp, err := auth.SignIn(context.Background(), dto.SignInRequest{Email: "Runner@RaceDay.mx", Password: "correct-horse"}, ClientInfo{})
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if resp.User.ID != user.ID {
		t.Fatalf("wrong user: %+v", resp.User)
	}
}

func TestRefresh_UnknownToken(t *testing.T) {
	store := newMockStore()
	auth, _, _ := newTestServices(store)

	_, err := auth.Refresh(context.Background(), dto.RefreshRequest{SessionToken: "garbage"})
	if action.KindOf(err) != action.KindInvalidToken {
		t.Fatalf("want INVALID_TOKEN, got %v", err)
	}
}

func TestRefresh_ExpiredSessionRemoved(t *testing.T) {
	store := newMockStore()
	auth, _, _ := newTestServices(store)
	user := seedUser(store, "runner@raceday.mx")

	sess := &models.Session{
		ID:        uuid.New(),
		UserID:    user.ID,
		TokenHash: hashToken("stale"),
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	store.sessions.byHash[sess.TokenHash] = sess

	_, err := auth.Refresh(context.Background(), dto.RefreshRequest{SessionToken: "stale"})
	if action.KindOf(err) != action.KindInvalidToken {
		t.Fatalf("want INVALID_TOKEN, got %v", err)
	}
	if len(store.sessions.deletedIDs) != 1 || store.sessions.deletedIDs[0] != sess.ID {
		t.Fatalf("expired session row must be removed on sight")
	}
}

func TestRefresh_KeepsSessionToken(t *testing.T) {
	store := newMockStore()
	auth, _, _ := newTestServices(store)
	user := seedUser(store, "runner@raceday.mx")

	sess := &models.Session{
		ID:        uuid.New(),
		UserID:    user.ID,
		TokenHash: hashToken("live"),
		ExpiresAt: time.Now().Add(time.Hour),
	}
	store.sessions.byHash[sess.TokenHash] = sess

	resp, err := auth.Refresh(context.Background(), dto.RefreshRequest{SessionToken: "live"})
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if resp.SessionToken != "live" {
		t.Fatalf("refresh must keep the session token, got %q", resp.SessionToken)
	}
	if resp.AccessToken == "" {
		t.Fatalf("fresh access token missing")
	}
	if len(store.sessions.deletedIDs) != 0 {
		t.Fatalf("live session must survive refresh")
	}
}

func TestVerifyEmail_Success(t *testing.T) {
	store := newMockStore()
	auth, _, _ := newTestServices(store)
	user := seedUser(store, "runner@raceday.mx")

	v := &models.Verification{
		ID:         uuid.New(),
		Identifier: user.Email,
		TokenHash:  hashToken("verify-me"),
		Kind:       models.VerificationEmail,
		ExpiresAt:  time.Now().Add(time.Hour),
	}
	store.verifications.byHash[v.TokenHash] = v

	if err := auth.VerifyEmail(context.Background(), "verify-me"); err != nil {
		t.Fatalf("VerifyEmail: %v", err)
	}
	if len(store.users.verifiedIDs) != 1 || store.users.verifiedIDs[0] != user.ID {
		t.Fatalf("email not marked verified")
	}
	if len(store.verifications.deletedIDs) != 1 {
		t.Fatalf("consumed token must be deleted")
	}
}

func TestVerifyEmail_ExpiredTokenReissued(t *testing.T) {
	store := newMockStore()
	auth, _, mailer := newTestServices(store)
	user := seedUser(store, "runner@raceday.mx")

	v := &models.Verification{
		ID:         uuid.New(),
		Identifier: user.Email,
		TokenHash:  hashToken("stale-verify"),
		Kind:       models.VerificationEmail,
		ExpiresAt:  time.Now().Add(-time.Hour),
	}
	store.verifications.byHash[v.TokenHash] = v

	err := auth.VerifyEmail(context.Background(), "stale-verify")
	if action.KindOf(err) != action.KindExpiredToken {
		t.Fatalf("want EXPIRED_TOKEN, got %v", err)
	}
	var ae *action.Error
	if !errors.As(err, &ae) || ae.Details["reissued"] != true {
		t.Fatalf("reissue detail missing: %v", err)
	}
	if len(store.verifications.created) != 1 {
		t.Fatalf("fresh verification not issued")
	}
	if len(mailer.verifications) != 1 || mailer.verifications[0].email != user.Email {
		t.Fatalf("reissued mail wrong: %+v", mailer.verifications)
	}
	if len(store.users.verifiedIDs) != 0 {
		t.Fatalf("expired token must not verify the email")
	}
}

func TestVerifyEmail_WrongKind(t *testing.T) {
	store := newMockStore()
	auth, _, _ := newTestServices(store)

	v := &models.Verification{
		ID:         uuid.New(),
		Identifier: "runner@raceday.mx",
		TokenHash:  hashToken("reset-not-verify"),
		Kind:       models.VerificationPasswordReset,
		ExpiresAt:  time.Now().Add(time.Hour),
	}
	store.verifications.byHash[v.TokenHash] = v

	if err := auth.VerifyEmail(context.Background(), "reset-not-verify"); action.KindOf(err) != action.KindInvalidToken {
		t.Fatalf("reset tokens must not verify emails, got %v", err)
	}
}

func TestResendVerification_SilentOnUnknownEmail(t *testing.T) {
	store := newMockStore()
	auth, _, mailer := newTestServices(store)

	if err := auth.ResendVerification(context.Background(), "nobody@raceday.mx"); err != nil {
		t.Fatalf("must not reveal address existence: %v", err)
	}
	if len(mailer.verifications) != 0 {
		t.Fatalf("no mail for unknown addresses")
	}
}

func TestChangePassword_RevokesOtherSessions(t *testing.T) {
	store := newMockStore()
	auth, _, _ := newTestServices(store)
	user := seedUser(store, "runner@raceday.mx")
	account := seedCredential(t, store, user.ID, "old-password-1")

	actor := &access.UserContext{UserID: user.ID}
	sess := &action.Session{UserID: user.ID, SessionID: uuid.New()}
	err := auth.ChangePassword(context.Background(), actor, sess, dto.ChangePasswordRequest{
		CurrentPassword: "old-password-1",
		NewPassword:     "new-password-1",
	})
	if err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	if len(store.accounts.hashUpdates) != 1 || store.accounts.hashUpdates[0] != account.ID {
		t.Fatalf("hash not rotated: %+v", store.accounts.hashUpdates)
	}
	if store.sessions.deleteOthersCalls != 1 {
		t.Fatalf("other sessions must be revoked in the same transaction")
	}
	if bcrypt.CompareHashAndPassword([]byte(*account.PasswordHash), []byte("new-password-1")) != nil {
		t.Fatalf("stored hash does not match new password")
	}
}

func TestChangePassword_WrongCurrent(t *testing.T) {
	store := newMockStore()
	auth, _, _ := newTestServices(store)
	user := seedUser(store, "runner@raceday.mx")
	seedCredential(t, store, user.ID, "old-password-1")

	err := auth.ChangePassword(context.Background(), &access.UserContext{UserID: user.ID},
		&action.Session{UserID: user.ID, SessionID: uuid.New()},
		dto.ChangePasswordRequest{CurrentPassword: "nope", NewPassword: "new-password-1"})
	if action.KindOf(err) != action.KindInvalidPassword {
		t.Fatalf("want INVALID_PASSWORD, got %v", err)
	}
	if len(store.accounts.hashUpdates) != 0 || store.sessions.deleteOthersCalls != 0 {
		t.Fatalf("failed check must not write")
	}
}

func TestResetPassword_ConsumesTokenAndRevokesAllSessions(t *testing.T) {
	store := newMockStore()
	auth, _, _ := newTestServices(store)
	user := seedUser(store, "runner@raceday.mx")
	seedCredential(t, store, user.ID, "forgotten-pass")

	v := &models.Verification{
		ID:         uuid.New(),
		Identifier: user.Email,
		TokenHash:  hashToken("reset-token"),
		Kind:       models.VerificationPasswordReset,
		ExpiresAt:  time.Now().Add(time.Hour),
	}
	store.verifications.byHash[v.TokenHash] = v

	err := auth.ResetPassword(context.Background(), dto.ResetPasswordRequest{
		Token:       "reset-token",
		NewPassword: "brand-new-pass",
	})
	if err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}
	if len(store.verifications.deletedIDs) != 1 {
		t.Fatalf("reset token must be consumed")
	}
	if store.sessions.deleteAllCalls != 1 {
		t.Fatalf("every session must be revoked after a reset")
	}
}

func TestResetPassword_NoCredentialStillConsumesToken(t *testing.T) {
	store := newMockStore()
	auth, _, _ := newTestServices(store)
	user := seedUser(store, "oauth-only@raceday.mx")

	v := &models.Verification{
		ID:         uuid.New(),
		Identifier: user.Email,
		TokenHash:  hashToken("first-password"),
		Kind:       models.VerificationPasswordReset,
		ExpiresAt:  time.Now().Add(time.Hour),
	}
	store.verifications.byHash[v.TokenHash] = v

	err := auth.ResetPassword(context.Background(), dto.ResetPasswordRequest{
		Token:       "first-password",
		NewPassword: "brand-new-pass",
	})
	if err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}
	if len(store.accounts.created) != 1 || store.accounts.created[0].PasswordHash == nil {
		t.Fatalf("credential account missing: %+v", store.accounts.created)
	}
	if len(store.verifications.deletedIDs) != 1 || store.verifications.deletedIDs[0] != v.ID {
		t.Fatalf("reset token must be consumed even on first credential")
	}
	if store.sessions.deleteAllCalls != 1 {
		t.Fatalf("every session must be revoked after a reset")
	}

	// The consumed token cannot set a second password.
	err = auth.ResetPassword(context.Background(), dto.ResetPasswordRequest{
		Token:       "first-password",
		NewPassword: "attacker-pass",
	})
	if action.KindOf(err) != action.KindInvalidToken {
		t.Fatalf("consumed token must be rejected, got %v", err)
	}
}

func TestForgotPassword_SilentOnUnknownEmail(t *testing.T) {
	store := newMockStore()
	auth, _, mailer := newTestServices(store)

	if err := auth.ForgotPassword(context.Background(), "nobody@raceday.mx"); err != nil {
		t.Fatalf("must not reveal address existence: %v", err)
	}
	if len(mailer.resets) != 0 || len(store.verifications.created) != 0 {
		t.Fatalf("no token for unknown addresses")
	}
}
