package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

const (
	// DefaultVerificationCodeTTL is how long an emailed code stays valid.
	DefaultVerificationCodeTTL = time.Hour

	codeMin = 100000
	codeMax = 999999
)

// CodeIssuer issues and checks 6-digit email verification codes.
type CodeIssuer struct {
	ttl time.Duration
}

// NewCodeIssuer creates a code issuer. A non-positive ttl uses DefaultVerificationCodeTTL.
func NewCodeIssuer(ttl time.Duration) *CodeIssuer {
	if ttl <= 0 {
		ttl = DefaultVerificationCodeTTL
	}
	return &CodeIssuer{ttl: ttl}
}

// TTL returns the code validity window.
func (c *CodeIssuer) TTL() time.Duration {
	return c.ttl
}

// Issue returns a uniformly random code in [100000, 999999] and its expiry.
func (c *CodeIssuer) Issue(now time.Time) (string, time.Time, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeMax-codeMin+1))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generate verification code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+codeMin), now.Add(c.ttl), nil
}

// Validate reports whether submitted matches the stored code and the code has not expired.
// A mismatch and an expired code are indistinguishable to the caller.
func (c *CodeIssuer) Validate(submitted string, stored *string, expiresAt *time.Time, now time.Time) bool {
	if stored == nil || expiresAt == nil {
		return false
	}
	match := constantTimeEqual(submitted, *stored)
	return match && now.Before(*expiresAt)
}
