package auth

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

type clientInfoKey struct{}

// ClientInfo identifies the caller of an account operation for audit logging.
type ClientInfo struct {
	IP        string
	UserAgent string
}

// WithClientInfo attaches caller details to ctx.
func WithClientInfo(ctx context.Context, info ClientInfo) context.Context {
	return context.WithValue(ctx, clientInfoKey{}, info)
}

// ClientInfoFromContext returns the caller details attached to ctx, if any.
func ClientInfoFromContext(ctx context.Context) ClientInfo {
	info, _ := ctx.Value(clientInfoKey{}).(ClientInfo)
	return info
}

// logAuth records an authentication event. Credentials and tokens are never logged.
func (s *AccountService) logAuth(ctx context.Context, event string, accountID uuid.UUID, email string) {
	info := ClientInfoFromContext(ctx)
	attrs := []any{"event", event}
	if accountID != uuid.Nil {
		attrs = append(attrs, "account_id", accountID)
	}
	if email != "" {
		attrs = append(attrs, "email", email)
	}
	if info.IP != "" {
		attrs = append(attrs, "ip", info.IP)
	}
	if info.UserAgent != "" {
		attrs = append(attrs, "user_agent", info.UserAgent)
	}
	if device := info.Fingerprint(); device != "" {
		attrs = append(attrs, "device", device)
	}
	s.logger.InfoContext(ctx, "auth event", attrs...)
}

func trimSpace(s string) string {
	return strings.TrimSpace(s)
}
