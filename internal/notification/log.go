package notification

import (
	"context"
	"log/slog"
)

// LogNotifier records notifications in the log instead of delivering them.
// Codes and tokens are left out of the log.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// SendVerificationCode logs that a code would have been sent.
func (n *LogNotifier) SendVerificationCode(ctx context.Context, email, _, _ string) error {
	n.logger.InfoContext(ctx, "notification not delivered", "kind", "verification_code", "email", email)
	return nil
}

// SendPasswordReset logs that a reset link would have been sent.
func (n *LogNotifier) SendPasswordReset(ctx context.Context, email, _, _ string) error {
	n.logger.InfoContext(ctx, "notification not delivered", "kind", "password_reset", "email", email)
	return nil
}

// SendWelcome logs that a welcome message would have been sent.
func (n *LogNotifier) SendWelcome(ctx context.Context, email, _ string) error {
	n.logger.InfoContext(ctx, "notification not delivered", "kind", "welcome", "email", email)
	return nil
}
