package mailer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"
	"time"

	"github.com/meshwork-app/meshwork-api/pkg/config"
	"github.com/meshwork-app/meshwork-api/pkg/model"
	"github.com/meshwork-app/meshwork-api/pkg/observability"
)

var signupTmpl = template.Must(template.New(TemplateSignup).Parse(`<!DOCTYPE html>
<html>
<body>
  <p>Hi {{.Username}},</p>
  <p>Welcome to Meshwork. Please confirm your email address by following the
  link below. The link is valid for 24 hours.</p>
  <p><a href="{{.Origin}}/confirm?confirm_token={{.Token}}">Confirm your email</a></p>
  <p>If you did not sign up, you can ignore this mail.</p>
</body>
</html>
`))

var recoverTmpl = template.Must(template.New(TemplateRecover).Parse(`<!DOCTYPE html>
<html>
<body>
  <p>Hi {{.Username}},</p>
  <p>We received a request to reset your password. Follow the link below to
  choose a new one. The link is valid for 24 hours and becomes useless as soon
  as the password changes.</p>
  <p><a href="{{.Origin}}/reset?reset_token={{.Token}}">Reset your password</a></p>
  <p>If you did not request a reset, you can ignore this mail.</p>
</body>
</html>
`))

type mailData struct {
	Username string
	Origin   string
	Token    string
}

// SMTPMailer delivers mail through a plain-auth SMTP relay.
type SMTPMailer struct {
	cfg    config.MailConfig
	origin string
	logger *observability.Logger
}

// NewSMTPMailer creates the production mailer. origin is the public base URL
// embedded in links.
func NewSMTPMailer(cfg config.MailConfig, origin string, logger *observability.Logger) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, origin: origin, logger: logger}
}

// SendSignup implements Mailer.
func (m *SMTPMailer) SendSignup(ctx context.Context, user *model.User, confirmToken string) error {
	return m.send(ctx, TemplateSignup, signupTmpl, "Welcome to Meshwork", user, confirmToken)
}

// SendRecover implements Mailer.
func (m *SMTPMailer) SendRecover(ctx context.Context, user *model.User, resetToken string) error {
	return m.send(ctx, TemplateRecover, recoverTmpl, "Reset your Meshwork password", user, resetToken)
}

func (m *SMTPMailer) send(ctx context.Context, name string, tmpl *template.Template, subject string, user *model.User, token string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	var body bytes.Buffer
	err := tmpl.Execute(&body, mailData{
		Username: user.Username,
		Origin:   m.origin,
		Token:    token,
	})
	if err != nil {
		observability.MailsSent.WithLabelValues(name, "error").Inc()
		return fmt.Errorf("executing %s template: %w", name, err)
	}

	var message bytes.Buffer
	fmt.Fprintf(&message, "From: %s\r\n", m.cfg.From)
	fmt.Fprintf(&message, "To: %s\r\n", user.Email)
	fmt.Fprintf(&message, "Subject: %s\r\n", subject)
	fmt.Fprintf(&message, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	message.WriteString("MIME-Version: 1.0\r\n")
	message.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	message.WriteString("\r\n")
	message.Write(body.Bytes())

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{user.Email}, message.Bytes()); err != nil {
		observability.MailsSent.WithLabelValues(name, "error").Inc()
		return fmt.Errorf("sending %s mail: %w", name, err)
	}

	observability.MailsSent.WithLabelValues(name, "ok").Inc()
	m.logger.WithFields(map[string]interface{}{
		"template": name,
		"to":       user.Email,
	}).Info("mail sent")
	return nil
}
