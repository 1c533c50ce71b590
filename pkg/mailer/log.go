package mailer

import (
	"context"

	"github.com/meshwork-app/meshwork-api/pkg/model"
	"github.com/meshwork-app/meshwork-api/pkg/observability"
)

// LogMailer writes mail to the log instead of a relay. Used when no SMTP
// host is configured, and in tests.
type LogMailer struct {
	logger *observability.Logger
}

// NewLogMailer creates the log-only mailer.
func NewLogMailer(logger *observability.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// SendSignup implements Mailer.
func (m *LogMailer) SendSignup(ctx context.Context, user *model.User, confirmToken string) error {
	m.log(TemplateSignup, user, confirmToken)
	return nil
}

// SendRecover implements Mailer.
func (m *LogMailer) SendRecover(ctx context.Context, user *model.User, resetToken string) error {
	m.log(TemplateRecover, user, resetToken)
	return nil
}

func (m *LogMailer) log(template string, user *model.User, token string) {
	observability.MailsSent.WithLabelValues(template, "ok").Inc()
	m.logger.WithFields(map[string]interface{}{
		"template": template,
		"to":       user.Email,
		"token":    token,
	}).Info("mail logged (no SMTP relay configured)")
}
