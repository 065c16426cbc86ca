package auth

import (
	"reflect"
	"strings"
	"testing"

	"github.com/tendant/simple-onboarding/internal/config"
)

func onboardingPolicy() *PasswordPolicy {
	return NewPasswordPolicy(config.PasswordPolicyConfig{
		MinLength:        6,
		MaxLength:        128,
		RequireUppercase: true,
		RequireLowercase: true,
		RequireNumber:    true,
	})
}

func TestPasswordPolicy_ValidatePassword(t *testing.T) {
	policy := onboardingPolicy()

	tests := []struct {
		name     string
		password string
		wantErr  string
	}{
		{name: "meets every rule", password: "Passw0rd"},
		{name: "exactly six", password: "Abcde1"},
		{name: "too short", password: "Ab1", wantErr: "password must have at least 6 characters"},
		{name: "no digit", password: "Password", wantErr: "password must have at least one number"},
		{name: "only lowercase", password: "password", wantErr: "password must have at least one uppercase letter and at least one number"},
		{
			name:     "empty",
			password: "",
			wantErr:  "password must have at least 6 characters, at least one uppercase letter, at least one lowercase letter and at least one number",
		},
		{name: "multibyte runes count once", password: "Ünïc0d", wantErr: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := policy.ValidatePassword(tt.password)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("ValidatePassword(%q) = %v, want nil", tt.password, err)
				}
				return
			}
			if err == nil || err.Error() != tt.wantErr {
				t.Fatalf("ValidatePassword(%q) = %v, want %q", tt.password, err, tt.wantErr)
			}
		})
	}
}

func TestPasswordPolicy_MaxLengthCountsRunes(t *testing.T) {
	policy := &PasswordPolicy{MaxLength: 4}

	// Four runes, eight bytes.
	if err := policy.ValidatePassword("éééé"); err != nil {
		t.Errorf("four runes rejected: %v", err)
	}
	if err := policy.ValidatePassword("ééééé"); err == nil {
		t.Error("five runes accepted")
	}
}

func TestPasswordPolicy_MaxBytes(t *testing.T) {
	policy := onboardingPolicy()
	policy.MaxBytes = 72

	if err := policy.ValidatePassword("Aa1" + strings.Repeat("x", 69)); err != nil {
		t.Errorf("72-byte password rejected: %v", err)
	}
	// 40 runes but 77 bytes.
	err := policy.ValidatePassword("Aa1" + strings.Repeat("é", 37))
	if err == nil || err.Error() != "password must have at most 72 bytes" {
		t.Errorf("ValidatePassword() = %v", err)
	}
}

func TestPasswordPolicy_Special(t *testing.T) {
	policy := &PasswordPolicy{RequireSpecial: true}

	for _, pw := range []string{"abc!", "a-b", "x@y"} {
		if err := policy.ValidatePassword(pw); err != nil {
			t.Errorf("ValidatePassword(%q) = %v", pw, err)
		}
	}
	for _, pw := range []string{"abc", "a b c", "123"} {
		if err := policy.ValidatePassword(pw); err == nil {
			t.Errorf("ValidatePassword(%q) accepted without a special character", pw)
		}
	}
}

func TestPasswordPolicy_EmptyPolicyAcceptsAnything(t *testing.T) {
	policy := &PasswordPolicy{}

	if policy.HasRequirements() {
		t.Error("empty policy reports requirements")
	}
	if err := policy.ValidatePassword(""); err != nil {
		t.Errorf("ValidatePassword(\"\") = %v", err)
	}
	if got := policy.GetRequirements(); got != "No password requirements" {
		t.Errorf("GetRequirements() = %q", got)
	}
}

func TestPasswordPolicy_Unmet(t *testing.T) {
	got := onboardingPolicy().Unmet("ABCDEFG")
	want := []string{"at least one lowercase letter", "at least one number"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Unmet() = %v, want %v", got, want)
	}
}

func TestPasswordPolicy_Requirements(t *testing.T) {
	policy := onboardingPolicy()

	want := []string{
		"at least 6 characters",
		"at most 128 characters",
		"one uppercase letter",
		"one lowercase letter",
		"one number",
	}
	if got := policy.Requirements(); !reflect.DeepEqual(got, want) {
		t.Errorf("Requirements() = %v, want %v", got, want)
	}

	desc := "Password must contain at least 6 characters, at most 128 characters, one uppercase letter, one lowercase letter, one number"
	if got := policy.GetRequirements(); got != desc {
		t.Errorf("GetRequirements() = %q, want %q", got, desc)
	}
}

func TestPasswordPolicy_HasRequirements(t *testing.T) {
	tests := []struct {
		name   string
		policy PasswordPolicy
		want   bool
	}{
		{name: "max length only", policy: PasswordPolicy{MaxLength: 64}, want: true},
		{name: "lowercase only", policy: PasswordPolicy{RequireLowercase: true}, want: true},
		{name: "none", policy: PasswordPolicy{}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.policy.HasRequirements(); got != tt.want {
				t.Errorf("HasRequirements() = %v, want %v", got, tt.want)
			}
		})
	}
}
