package mailer

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"github.com/personality-predictor/backend/config"
	"github.com/personality-predictor/backend/pkg/logger"
)

// SMTPSender delivers messages over authenticated SMTP with STARTTLS.
type SMTPSender struct {
	client   *mail.Client
	from     string
	fromName string
}

func NewSMTPSender(cfg config.MailConfig) (*SMTPSender, error) {
	client, err := mail.NewClient(cfg.Host,
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Username),
		mail.WithPassword(cfg.Password),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}

	return &SMTPSender{client: client, from: cfg.Username, fromName: cfg.FromName}, nil
}

func (s *SMTPSender) Send(ctx context.Context, msg *Message) error {
	m := mail.NewMsg()
	if err := m.FromFormat(s.fromName, s.from); err != nil {
		return fmt.Errorf("set from: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return fmt.Errorf("set recipient: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextHTML, msg.HTML)

	return s.client.DialAndSendWithContext(ctx, m)
}

// LogSender stands in when no SMTP credentials are configured; it only logs
// that a message would have been sent.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, msg *Message) error {
	logger.GetLogger().Warn("Mail delivery disabled, message dropped",
		zap.String("subject", msg.Subject),
	)
	return nil
}

// NewSender picks the SMTP sender when mail is configured.
func NewSender(cfg config.MailConfig) (Sender, error) {
	if !cfg.Enabled() {
		logger.GetLogger().Warn("EMAIL_USER/EMAIL_PASS not set, outbound mail disabled")
		return LogSender{}, nil
	}
	return NewSMTPSender(cfg)
}
