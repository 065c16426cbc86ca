package notification

import (
	"context"
	"fmt"
	"html"
	"net/smtp"
	"time"
)

type EmailConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	FromName string

	// CodeTTL and ResetTTL are quoted in the message bodies.
	CodeTTL  time.Duration
	ResetTTL time.Duration
}

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailService delivers account emails over SMTP.
type EmailService struct {
	config   EmailConfig
	sendMail sendMailFunc
}

func NewEmailService(config EmailConfig) *EmailService {
	if config.CodeTTL == 0 {
		config.CodeTTL = time.Hour
	}
	if config.ResetTTL == 0 {
		config.ResetTTL = 10 * time.Minute
	}
	return &EmailService{config: config, sendMail: smtp.SendMail}
}

func (s *EmailService) SendVerificationCode(ctx context.Context, to, name, code string) error {
	subject := "Verify Your Email Address"
	body := fmt.Sprintf(`<html><body>
		<h2>Verify Your Email Address</h2>
		<p>Hi %s,</p>
		<p>Thank you for registering! Enter this code to verify your email address:</p>
		<p style="font-size:24px;letter-spacing:4px"><strong>%s</strong></p>
		<p>This code will expire in %s.</p>
	</body></html>`, html.EscapeString(name), code, humanDuration(s.config.CodeTTL))
	return s.sendEmail(ctx, to, subject, body)
}

func (s *EmailService) SendPasswordReset(ctx context.Context, to, name, token string) error {
	subject := "Reset Your Password"
	body := fmt.Sprintf(`<html><body>
		<h2>Reset Your Password</h2>
		<p>Hi %s,</p>
		<p>A password reset has been requested for your account. Use this token to choose a new password:</p>
		<p><code>%s</code></p>
		<p>This token will expire in %s.</p>
		<p>If you did not request this password reset, please ignore this email.</p>
	</body></html>`, html.EscapeString(name), token, humanDuration(s.config.ResetTTL))
	return s.sendEmail(ctx, to, subject, body)
}

func (s *EmailService) SendWelcome(ctx context.Context, to, name string) error {
	subject := "Welcome!"
	body := fmt.Sprintf(`<html><body>
		<h2>Welcome, %s!</h2>
		<p>Your email address has been verified and your account is ready to use.</p>
	</body></html>`, html.EscapeString(name))
	return s.sendEmail(ctx, to, subject, body)
}

func (s *EmailService) sendEmail(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	from := s.config.From
	if s.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.config.FromName, s.config.From)
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		from, to, subject, body)

	var auth smtp.Auth
	if s.config.User != "" {
		auth = smtp.PlainAuth("", s.config.User, s.config.Password, s.config.Host)
	}
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	if err := s.sendMail(addr, auth, s.config.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("send %q email: %w", subject, err)
	}
	return nil
}

func humanDuration(d time.Duration) string {
	switch {
	case d%time.Hour == 0:
		if d == time.Hour {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", d/time.Hour)
	case d%time.Minute == 0:
		return fmt.Sprintf("%d minutes", d/time.Minute)
	default:
		return d.String()
	}
}
