package auth

import (
	"time"

	"github.com/tendant/simple-onboarding/pkg/domain"
)

const (
	// DefaultMaxFailedAttempts is the number of consecutive failures that locks an account.
	DefaultMaxFailedAttempts = 5
	// DefaultLockoutDuration is how long a lock lasts.
	DefaultLockoutDuration = 2 * time.Hour
)

// Lockout applies brute-force lockout transitions to an account.
// Callers run these inside AccountStore.AtomicUpdate.
type Lockout struct {
	maxAttempts int
	duration    time.Duration
}

// NewLockout creates a lockout tracker. Non-positive values use the defaults.
func NewLockout(maxAttempts int, duration time.Duration) *Lockout {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxFailedAttempts
	}
	if duration <= 0 {
		duration = DefaultLockoutDuration
	}
	return &Lockout{maxAttempts: maxAttempts, duration: duration}
}

// IsLocked reports whether login attempts are currently refused.
func (l *Lockout) IsLocked(a *domain.Account, now time.Time) bool {
	return a.IsLocked(now)
}

// RecordFailure counts a failed attempt. An expired lock restarts the count at 1.
// It returns true when this failure locked the account.
func (l *Lockout) RecordFailure(a *domain.Account, now time.Time) bool {
	if a.LockedUntil != nil && !a.LockedUntil.After(now) {
		a.FailedLoginCount = 1
		a.LockedUntil = nil
		return false
	}

	a.FailedLoginCount++
	if a.FailedLoginCount >= l.maxAttempts && a.LockedUntil == nil {
		until := now.Add(l.duration)
		a.LockedUntil = &until
		return true
	}
	return false
}

// RecordSuccess clears the failure count and any lock, and stamps the login time.
func (l *Lockout) RecordSuccess(a *domain.Account, now time.Time) {
	a.FailedLoginCount = 0
	a.LockedUntil = nil
	loginAt := now
	a.LastLoginAt = &loginAt
}
