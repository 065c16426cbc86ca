package domain

import (
	"time"

	"github.com/google/uuid"
)

// Account represents a registered identity.
type Account struct {
	ID              uuid.UUID
	Email           string
	CredentialHash  string `json:"-"`
	DisplayName     string
	ProfileImageURL *string
	Verified        bool

	VerificationCode          *string    `json:"-"`
	VerificationCodeExpiresAt *time.Time `json:"-"`

	FailedLoginCount int        `json:"-"`
	LockedUntil      *time.Time `json:"-"`
	LastLoginAt      *time.Time

	ResetTokenHash      *string    `json:"-"`
	ResetTokenExpiresAt *time.Time `json:"-"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsLocked returns true if the account is locked at the given time.
func (a *Account) IsLocked(now time.Time) bool {
	if a.LockedUntil == nil {
		return false
	}
	return now.Before(*a.LockedUntil)
}

// HasActiveVerificationCode reports whether an unexpired code is outstanding.
// Expired codes are treated as absent.
func (a *Account) HasActiveVerificationCode(now time.Time) bool {
	if a.VerificationCode == nil || a.VerificationCodeExpiresAt == nil {
		return false
	}
	return now.Before(*a.VerificationCodeExpiresAt)
}

// ClearVerificationCode removes the outstanding verification code.
func (a *Account) ClearVerificationCode() {
	a.VerificationCode = nil
	a.VerificationCodeExpiresAt = nil
}

// ClearResetToken removes the outstanding password reset token.
func (a *Account) ClearResetToken() {
	a.ResetTokenHash = nil
	a.ResetTokenExpiresAt = nil
}

// Clone returns a deep copy of the account.
func (a *Account) Clone() *Account {
	c := *a
	c.ProfileImageURL = cloneString(a.ProfileImageURL)
	c.VerificationCode = cloneString(a.VerificationCode)
	c.VerificationCodeExpiresAt = cloneTime(a.VerificationCodeExpiresAt)
	c.LockedUntil = cloneTime(a.LockedUntil)
	c.LastLoginAt = cloneTime(a.LastLoginAt)
	c.ResetTokenHash = cloneString(a.ResetTokenHash)
	c.ResetTokenExpiresAt = cloneTime(a.ResetTokenExpiresAt)
	return &c
}

// PublicAccount is the non-sensitive projection of an account.
type PublicAccount struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	ProfileImage *string    `json:"profileImage"`
	IsVerified   bool       `json:"isVerified"`
	LastLogin    *time.Time `json:"lastLogin,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// Public builds the public projection of the account.
func (a *Account) Public() PublicAccount {
	return PublicAccount{
		ID:           a.ID.String(),
		Name:         a.DisplayName,
		Email:        a.Email,
		ProfileImage: cloneString(a.ProfileImageURL),
		IsVerified:   a.Verified,
		LastLogin:    cloneTime(a.LastLoginAt),
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
