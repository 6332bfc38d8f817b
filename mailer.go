package accounts

import (
	"context"
	"fmt"
	"net/smtp"
	"strconv"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/jordan-wright/email"
)

// SMTPMailer delivers verification and reset links over a plain SMTP relay.
type SMTPMailer struct {
	cfg     SMTPConfig
	baseURL string
}

// NewSMTPMailer builds a mailer from config. baseURL is the public origin
// used to render links, without a trailing slash.
func NewSMTPMailer(cfg SMTPConfig, baseURL string) *SMTPMailer {
	return &SMTPMailer{
		cfg:     cfg,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (m *SMTPMailer) SendVerification(ctx context.Context, to, token string) error {
	link := m.baseURL + "/verify/" + token
	body := fmt.Sprintf("<p>Welcome! Confirm your email address by following this link:</p><p><a href=%q>%s</a></p>", link, link)
	return m.send(ctx, to, "Verify your email", body)
}

func (m *SMTPMailer) SendReset(ctx context.Context, to, token string) error {
	link := m.baseURL + "/reset-password/" + token
	body := fmt.Sprintf("<p>A password reset was requested for your account. Follow this link to choose a new password:</p><p><a href=%q>%s</a></p>", link, link)
	return m.send(ctx, to, "Reset your password", body)
}

func (m *SMTPMailer) send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e := email.NewEmail()
	e.From = m.cfg.From
	e.To = []string{to}
	e.Subject = subject
	e.HTML = []byte(body)

	addr := strings.Join([]string{m.cfg.Host, strconv.Itoa(m.cfg.Port)}, ":")

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	if err := e.Send(addr, auth); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to deliver mail").
			WithMetadata(map[string]any{"to": to, "subject": subject})
	}

	return nil
}

// LogMailer writes the links to the logger instead of delivering them.
// Useful in development and in tests.
type LogMailer struct {
	Logger Logger
}

func (m LogMailer) SendVerification(_ context.Context, to, token string) error {
	m.logger().Info("verification email for %s: /verify/%s", to, token)
	return nil
}

func (m LogMailer) SendReset(_ context.Context, to, token string) error {
	m.logger().Info("password reset email for %s: /reset-password/%s", to, token)
	return nil
}

func (m LogMailer) logger() Logger {
	if m.Logger == nil {
		return defLogger{}
	}
	return m.Logger
}

var (
	_ Mailer = (*SMTPMailer)(nil)
	_ Mailer = LogMailer{}
)
