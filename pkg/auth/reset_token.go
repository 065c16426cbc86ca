package auth

import (
	"fmt"
	"time"
)

const (
	// DefaultPasswordResetTTL is how long a reset token stays valid.
	DefaultPasswordResetTTL = 10 * time.Minute

	resetTokenLen = 32
)

// ResetTokenIssuer issues password reset tokens. Only the SHA-256 digest is persisted.
type ResetTokenIssuer struct {
	ttl time.Duration
}

// NewResetTokenIssuer creates a reset token issuer. A non-positive ttl uses DefaultPasswordResetTTL.
func NewResetTokenIssuer(ttl time.Duration) *ResetTokenIssuer {
	if ttl <= 0 {
		ttl = DefaultPasswordResetTTL
	}
	return &ResetTokenIssuer{ttl: ttl}
}

// Issue returns the plaintext token for delivery, its hash for storage and its expiry.
func (r *ResetTokenIssuer) Issue(now time.Time) (token, tokenHash string, expiresAt time.Time, err error) {
	token, err = GenerateToken(resetTokenLen)
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("generate reset token: %w", err)
	}
	return token, HashToken(token), now.Add(r.ttl), nil
}

// Consume reports whether submitted matches the stored hash and is unexpired.
// Clearing the stored fields is the caller's job, in the same update as the new credential.
func (r *ResetTokenIssuer) Consume(submitted string, storedHash *string, expiresAt *time.Time, now time.Time) bool {
	if storedHash == nil || expiresAt == nil || submitted == "" {
		return false
	}
	match := constantTimeCompare([]byte(HashToken(submitted)), []byte(*storedHash))
	return match && now.Before(*expiresAt)
}
