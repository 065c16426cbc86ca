package notification

import (
	"context"
	"errors"

	"github.com/tendant/simple-onboarding/pkg/auth"
)

// Fanout delivers every notification to all of its notifiers. Every notifier is
// attempted; the failures are joined.
type Fanout []auth.Notifier

func (f Fanout) SendVerificationCode(ctx context.Context, email, name, code string) error {
	return f.each(func(n auth.Notifier) error { return n.SendVerificationCode(ctx, email, name, code) })
}

func (f Fanout) SendPasswordReset(ctx context.Context, email, name, token string) error {
	return f.each(func(n auth.Notifier) error { return n.SendPasswordReset(ctx, email, name, token) })
}

func (f Fanout) SendWelcome(ctx context.Context, email, name string) error {
	return f.each(func(n auth.Notifier) error { return n.SendWelcome(ctx, email, name) })
}

func (f Fanout) each(send func(auth.Notifier) error) error {
	var errs []error
	for _, n := range f {
		if err := send(n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
