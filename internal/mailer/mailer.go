// Package mailer sends transactional email. The SMTP client is constructed
// once at startup and injected where it is needed; there is no lazy global.
package mailer

import (
	"context"
	"fmt"

	"isolate/pkg/config"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

// InvitationEmail carries everything needed to render and address an
// invitation message.
type InvitationEmail struct {
	To         string
	SenderName string
	TenantName string
	Link       string
}

// Mailer dispatches invitation email. Satisfied by *SMTPMailer in
// production and by fakes in tests.
type Mailer interface {
	SendInvitation(ctx context.Context, email InvitationEmail) error
}

// SMTPMailer sends mail through a plain SMTP account.
type SMTPMailer struct {
	client *mail.Client
	from   string
}

// New builds the SMTP client from configuration.
func New(cfg *config.SMTPConfig, log *zap.Logger) (*SMTPMailer, error) {
	if cfg.Username == "" || cfg.Password == "" {
		log.Warn("Email credentials not configured, invitation delivery will fail until set",
			zap.String("host", cfg.Host))
	}

	client, err := mail.NewClient(cfg.Host,
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Username),
		mail.WithPassword(cfg.Password),
		mail.WithTLSPortPolicy(mail.TLSOpportunistic),
	)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}

	return &SMTPMailer{client: client, from: cfg.From}, nil
}

// SendInvitation renders the invitation template and dispatches it.
func (m *SMTPMailer) SendInvitation(ctx context.Context, email InvitationEmail) error {
	body, err := renderInvitation(email)
	if err != nil {
		return fmt.Errorf("render invitation: %w", err)
	}

	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("set from: %w", err)
	}
	if err := msg.To(email.To); err != nil {
		return fmt.Errorf("set to: %w", err)
	}
	msg.Subject(fmt.Sprintf("Invitation to join %s", email.TenantName))
	msg.SetBodyString(mail.TypeTextHTML, body)

	return m.client.DialAndSendWithContext(ctx, msg)
}
