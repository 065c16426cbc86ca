package auth

import (
	"errors"
	"net/mail"
	"regexp"
	"strings"
)

// Account emails are capped well below the RFC limits.
const (
	MaxEmailLength     = 100
	maxEmailLocalPart  = 64
	maxEmailLabelCount = 10
)

var (
	errEmailRequired   = errors.New("email address is required")
	errEmailTooLong    = errors.New("email address is too long (max 100 characters)")
	errEmailFormat     = errors.New("invalid email address format")
	errEmailDisposable = errors.New("disposable email addresses are not allowed")
)

// Throwaway mailbox providers. Subdomains of these match as well.
var disposableDomains = map[string]struct{}{
	"10minutemail.com":  {},
	"guerrillamail.com": {},
	"mailinator.com":    {},
	"sharklasers.com":   {},
	"tempmail.com":      {},
	"throwaway.email":   {},
	"trashmail.com":     {},
	"yopmail.com":       {},
}

var (
	strictLocalPart = regexp.MustCompile(`^[a-z0-9!#$%&'*+/=?^_{|}~-]+(\.[a-z0-9!#$%&'*+/=?^_{|}~-]+)*$`)
	domainLabel     = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)
)

// NormalizeEmail lowercases and trims an address. Accounts are keyed on this form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail checks a normalized address. Display names ("Ada <a@b.c>") are
// rejected. strict additionally requires a dot-atom local part and a dotted
// hostname; blockDisposable rejects throwaway providers.
func ValidateEmail(email string, strict bool, blockDisposable bool) error {
	email = NormalizeEmail(email)
	if email == "" {
		return errEmailRequired
	}
	if len(email) > MaxEmailLength {
		return errEmailTooLong
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return errEmailFormat
	}

	local, domainPart, _ := strings.Cut(email, "@")
	if strict && !strictAddress(local, domainPart) {
		return errEmailFormat
	}
	if blockDisposable && isDisposableDomain(domainPart) {
		return errEmailDisposable
	}
	return nil
}

func strictAddress(local, host string) bool {
	if len(local) > maxEmailLocalPart || !strictLocalPart.MatchString(local) {
		return false
	}
	labels := strings.Split(host, ".")
	if len(labels) < 2 || len(labels) > maxEmailLabelCount {
		return false
	}
	for _, label := range labels {
		if !domainLabel.MatchString(label) {
			return false
		}
	}
	return true
}

// isDisposableDomain matches the domain or any parent of it against the block list.
func isDisposableDomain(host string) bool {
	for host != "" {
		if _, ok := disposableDomains[host]; ok {
			return true
		}
		_, parent, found := strings.Cut(host, ".")
		if !found {
			return false
		}
		host = parent
	}
	return false
}
