package auth

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/tendant/simple-onboarding/internal/config"
)

// PasswordPolicy defines password complexity requirements. Lengths count runes;
// MaxBytes bounds the encoded size for hashers with an input limit.
type PasswordPolicy struct {
	MinLength        int
	MaxLength        int
	MaxBytes         int
	RequireUppercase bool
	RequireLowercase bool
	RequireNumber    bool
	RequireSpecial   bool
}

// NewPasswordPolicy creates a PasswordPolicy from config.
func NewPasswordPolicy(cfg config.PasswordPolicyConfig) *PasswordPolicy {
	return &PasswordPolicy{
		MinLength:        cfg.MinLength,
		MaxLength:        cfg.MaxLength,
		RequireUppercase: cfg.RequireUppercase,
		RequireLowercase: cfg.RequireLowercase,
		RequireNumber:    cfg.RequireNumber,
		RequireSpecial:   cfg.RequireSpecial,
	}
}

// passwordRule is one requirement: need is what the policy asks for, failure is
// reported when ok returns false.
type passwordRule struct {
	need    string
	failure string
	ok      func(string) bool
}

func (p *PasswordPolicy) rules() []passwordRule {
	var rules []passwordRule
	if p.MinLength > 0 {
		rules = append(rules, passwordRule{
			need:    fmt.Sprintf("at least %d characters", p.MinLength),
			failure: fmt.Sprintf("at least %d characters", p.MinLength),
			ok:      func(s string) bool { return utf8.RuneCountInString(s) >= p.MinLength },
		})
	}
	if p.MaxLength > 0 {
		rules = append(rules, passwordRule{
			need:    fmt.Sprintf("at most %d characters", p.MaxLength),
			failure: fmt.Sprintf("at most %d characters", p.MaxLength),
			ok:      func(s string) bool { return utf8.RuneCountInString(s) <= p.MaxLength },
		})
	}
	if p.MaxBytes > 0 {
		rules = append(rules, passwordRule{
			need:    fmt.Sprintf("at most %d bytes", p.MaxBytes),
			failure: fmt.Sprintf("at most %d bytes", p.MaxBytes),
			ok:      func(s string) bool { return len(s) <= p.MaxBytes },
		})
	}
	if p.RequireUppercase {
		rules = append(rules, classRule("one uppercase letter", unicode.IsUpper))
	}
	if p.RequireLowercase {
		rules = append(rules, classRule("one lowercase letter", unicode.IsLower))
	}
	if p.RequireNumber {
		rules = append(rules, classRule("one number", unicode.IsDigit))
	}
	if p.RequireSpecial {
		rules = append(rules, classRule("one special character", isSpecial))
	}
	return rules
}

func classRule(what string, in func(rune) bool) passwordRule {
	return passwordRule{
		need:    what,
		failure: "at least " + what,
		ok:      func(s string) bool { return strings.IndexFunc(s, in) >= 0 },
	}
}

func isSpecial(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsSpace(r)
}

// Unmet lists every requirement the password fails, in policy order.
func (p *PasswordPolicy) Unmet(password string) []string {
	var unmet []string
	for _, rule := range p.rules() {
		if !rule.ok(password) {
			unmet = append(unmet, rule.failure)
		}
	}
	return unmet
}

// ValidatePassword reports all unmet requirements in a single error.
func (p *PasswordPolicy) ValidatePassword(password string) error {
	unmet := p.Unmet(password)
	if len(unmet) == 0 {
		return nil
	}
	return errors.New("password must have " + joinRequirements(unmet))
}

// Requirements lists the policy's requirements for display.
func (p *PasswordPolicy) Requirements() []string {
	rules := p.rules()
	needs := make([]string, 0, len(rules))
	for _, rule := range rules {
		needs = append(needs, rule.need)
	}
	return needs
}

// GetRequirements returns a human-readable description of the policy.
func (p *PasswordPolicy) GetRequirements() string {
	if !p.HasRequirements() {
		return "No password requirements"
	}
	return "Password must contain " + strings.Join(p.Requirements(), ", ")
}

// HasRequirements reports whether the policy restricts passwords at all.
func (p *PasswordPolicy) HasRequirements() bool {
	return len(p.rules()) > 0
}

// joinRequirements renders "a", "a and b" or "a, b and c".
func joinRequirements(items []string) string {
	switch len(items) {
	case 1:
		return items[0]
	case 2:
		return items[0] + " and " + items[1]
	default:
		return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
	}
}
