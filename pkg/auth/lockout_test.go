package auth

import (
	"testing"
	"time"

	"github.com/tendant/simple-onboarding/pkg/domain"
)

func TestLockout_RecordFailure(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	expired := now.Add(-time.Minute)
	active := now.Add(time.Hour)

	tests := []struct {
		name        string
		count       int
		lockedUntil *time.Time
		wantCount   int
		wantLocked  bool
		wantLockNow bool
	}{
		{name: "first failure", count: 0, wantCount: 1},
		{name: "fourth failure", count: 3, wantCount: 4},
		{name: "fifth failure locks", count: 4, wantCount: 5, wantLocked: true, wantLockNow: true},
		{name: "expired lock restarts count", count: 5, lockedUntil: &expired, wantCount: 1},
		{name: "active lock is not extended", count: 5, lockedUntil: &active, wantCount: 6, wantLocked: true},
	}

	l := NewLockout(0, 0)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &domain.Account{FailedLoginCount: tt.count, LockedUntil: tt.lockedUntil}

			lockedNow := l.RecordFailure(a, now)

			if a.FailedLoginCount != tt.wantCount {
				t.Errorf("FailedLoginCount = %d, want %d", a.FailedLoginCount, tt.wantCount)
			}
			if got := a.IsLocked(now); got != tt.wantLocked {
				t.Errorf("IsLocked() = %v, want %v", got, tt.wantLocked)
			}
			if lockedNow != tt.wantLockNow {
				t.Errorf("RecordFailure() = %v, want %v", lockedNow, tt.wantLockNow)
			}
		})
	}
}

func TestLockout_LockDuration(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	l := NewLockout(DefaultMaxFailedAttempts, DefaultLockoutDuration)
	a := &domain.Account{}

	for i := 0; i < DefaultMaxFailedAttempts; i++ {
		l.RecordFailure(a, now)
	}

	if a.LockedUntil == nil || !a.LockedUntil.Equal(now.Add(2*time.Hour)) {
		t.Fatalf("LockedUntil = %v, want %v", a.LockedUntil, now.Add(2*time.Hour))
	}
	if !l.IsLocked(a, now.Add(2*time.Hour-time.Second)) {
		t.Error("account should still be locked just before the lock ends")
	}
	if l.IsLocked(a, now.Add(2*time.Hour)) {
		t.Error("account should be unlocked once the lock ends")
	}
}

func TestLockout_RecordSuccess(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	expired := now.Add(-time.Minute)
	a := &domain.Account{FailedLoginCount: 3, LockedUntil: &expired}

	NewLockout(0, 0).RecordSuccess(a, now)

	if a.FailedLoginCount != 0 || a.LockedUntil != nil {
		t.Errorf("counters not reset: count=%d lockedUntil=%v", a.FailedLoginCount, a.LockedUntil)
	}
	if a.LastLoginAt == nil || !a.LastLoginAt.Equal(now) {
		t.Errorf("LastLoginAt = %v, want %v", a.LastLoginAt, now)
	}
}
