package notification

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"
)

type sentMail struct {
	addr string
	auth smtp.Auth
	from string
	to   []string
	msg  string
}

func newTestEmailService(sent *[]sentMail, err error) *EmailService {
	s := NewEmailService(EmailConfig{
		Host:     "smtp.example.com",
		Port:     587,
		User:     "mailer",
		Password: "secret",
		From:     "noreply@example.com",
		FromName: "User Onboarding",
	})
	s.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		*sent = append(*sent, sentMail{addr: addr, auth: a, from: from, to: to, msg: string(msg)})
		return err
	}
	return s
}

func TestEmailService_Messages(t *testing.T) {
	tests := []struct {
		name     string
		send     func(*EmailService) error
		subject  string
		contains []string
	}{
		{
			name:     "verification code",
			send:     func(s *EmailService) error { return s.SendVerificationCode(context.Background(), "jane@example.com", "Jane", "123456") },
			subject:  "Verify Your Email Address",
			contains: []string{"123456", "1 hour", "Hi Jane"},
		},
		{
			name:     "password reset",
			send:     func(s *EmailService) error { return s.SendPasswordReset(context.Background(), "jane@example.com", "Jane", "abcdef") },
			subject:  "Reset Your Password",
			contains: []string{"abcdef", "10 minutes"},
		},
		{
			name:     "welcome",
			send:     func(s *EmailService) error { return s.SendWelcome(context.Background(), "jane@example.com", "Jane") },
			subject:  "Welcome!",
			contains: []string{"Welcome, Jane!"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sent []sentMail
			s := newTestEmailService(&sent, nil)

			if err := tt.send(s); err != nil {
				t.Fatalf("send failed: %v", err)
			}
			if len(sent) != 1 {
				t.Fatalf("sent %d messages, want 1", len(sent))
			}
			m := sent[0]
			if m.addr != "smtp.example.com:587" {
				t.Errorf("addr = %q", m.addr)
			}
			if m.from != "noreply@example.com" || len(m.to) != 1 || m.to[0] != "jane@example.com" {
				t.Errorf("envelope = %q -> %v", m.from, m.to)
			}
			if m.auth == nil {
				t.Error("expected SMTP auth when a user is configured")
			}
			if !strings.Contains(m.msg, "From: User Onboarding <noreply@example.com>\r\n") {
				t.Errorf("missing From header in %q", m.msg)
			}
			if !strings.Contains(m.msg, "Subject: "+tt.subject+"\r\n") {
				t.Errorf("missing subject %q", tt.subject)
			}
			for _, want := range tt.contains {
				if !strings.Contains(m.msg, want) {
					t.Errorf("message does not contain %q", want)
				}
			}
		})
	}
}

func TestEmailService_EscapesName(t *testing.T) {
	var sent []sentMail
	s := newTestEmailService(&sent, nil)

	if err := s.SendWelcome(context.Background(), "jane@example.com", "<b>Jane</b>"); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if strings.Contains(sent[0].msg, "<b>Jane</b>") {
		t.Error("name should be HTML escaped")
	}
}

func TestEmailService_Errors(t *testing.T) {
	var sent []sentMail
	s := newTestEmailService(&sent, errors.New("connection refused"))

	err := s.SendWelcome(context.Background(), "jane@example.com", "Jane")
	if err == nil || !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("error = %v, want wrapped send error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sent = nil
	if err := s.SendWelcome(ctx, "jane@example.com", "Jane"); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want %v", err, context.Canceled)
	}
	if len(sent) != 0 {
		t.Error("nothing should be sent for a cancelled context")
	}
}

func TestHumanDuration(t *testing.T) {
	tests := map[time.Duration]string{
		time.Hour:        "1 hour",
		2 * time.Hour:    "2 hours",
		10 * time.Minute: "10 minutes",
		90 * time.Second: "1m30s",
	}
	for d, want := range tests {
		if got := humanDuration(d); got != want {
			t.Errorf("humanDuration(%v) = %q, want %q", d, got, want)
		}
	}
}
