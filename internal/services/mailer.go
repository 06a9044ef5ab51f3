package services

import (
	"context"
	"log/slog"
)

// Mailer delivers transactional mail. The platform's real delivery runs
// outside this service; LogMailer stands in for development and tests.
type Mailer interface {
	SendVerification(ctx context.Context, email, token string) error
	SendPasswordReset(ctx context.Context, email, token string) error
}

type LogMailer struct{}

func (LogMailer) SendVerification(_ context.Context, email, token string) error {
	slog.Info("verification mail issued", "email", email, "token", token)
	return nil
}

func (LogMailer) SendPasswordReset(_ context.Context, email, token string) error {
	slog.Info("password reset mail issued", "email", email, "token", token)
	return nil
}
