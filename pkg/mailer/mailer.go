// Package mailer sends the transactional mails of the signup and recovery
// flows. The SMTP client is the production implementation; LogMailer stands
// in for local development where no relay is configured.
package mailer

import (
	"context"

	"github.com/meshwork-app/meshwork-api/pkg/model"
)

// Template names, recorded in metrics and used by LogMailer output.
const (
	TemplateSignup  = "signup"
	TemplateRecover = "recover"
)

// Mailer delivers transactional mail.
type Mailer interface {
	// SendSignup greets a new user and carries the email-confirmation link.
	SendSignup(ctx context.Context, user *model.User, confirmToken string) error
	// SendRecover carries the password-reset link.
	SendRecover(ctx context.Context, user *model.User, resetToken string) error
}
