package auth

import (
	"testing"
	"time"
)

func TestResetTokenIssuer_Issue(t *testing.T) {
	issuer := NewResetTokenIssuer(0)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	token, hash, expiresAt, err := issuer.Issue(now)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if len(token) != 64 {
		t.Errorf("token length = %d, want 64 hex chars", len(token))
	}
	if hash == token {
		t.Error("stored hash must differ from the token")
	}
	if hash != HashToken(token) {
		t.Error("hash should be the SHA-256 of the token")
	}
	if !expiresAt.Equal(now.Add(10 * time.Minute)) {
		t.Errorf("expiresAt = %v, want %v", expiresAt, now.Add(10*time.Minute))
	}

	other, _, _, _ := issuer.Issue(now)
	if other == token {
		t.Error("tokens should be unique")
	}
}

func TestResetTokenIssuer_Consume(t *testing.T) {
	issuer := NewResetTokenIssuer(10 * time.Minute)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	token, hash, expiresAt, _ := issuer.Issue(now)

	tests := []struct {
		name      string
		submitted string
		hash      *string
		expiresAt *time.Time
		at        time.Time
		want      bool
	}{
		{"valid", token, &hash, &expiresAt, now.Add(9 * time.Minute), true},
		{"expired", token, &hash, &expiresAt, now.Add(10 * time.Minute), false},
		{"wrong token", flipLast(token), &hash, &expiresAt, now, false},
		{"hash submitted as token", hash, &hash, &expiresAt, now, false},
		{"cleared", token, nil, nil, now, false},
		{"empty", "", &hash, &expiresAt, now, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := issuer.Consume(tt.submitted, tt.hash, tt.expiresAt, tt.at); got != tt.want {
				t.Errorf("Consume() = %v, want %v", got, tt.want)
			}
		})
	}
}

func flipLast(s string) string {
	last := byte('0')
	if s[len(s)-1] == '0' {
		last = '1'
	}
	return s[:len(s)-1] + string(last)
}
