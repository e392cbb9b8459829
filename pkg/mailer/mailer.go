// Package mailer renders and sends the account emails (password reset and
// address verification).
package mailer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/url"
	"time"

	"github.com/Masterminds/sprig/v3"
	"go.uber.org/zap"

	"github.com/personality-predictor/backend/pkg/circuit"
	"github.com/personality-predictor/backend/pkg/logger"
)

// BreakerName identifies the SMTP dependency in the breaker registry.
const BreakerName = "smtp"

const (
	SubjectPasswordReset = "Password Reset Request"
	SubjectVerifyEmail   = "Verify your email address"
)

// Message is one rendered email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Sender delivers a rendered message.
type Sender interface {
	Send(ctx context.Context, msg *Message) error
}

const resetTemplate = `<p>You requested a password reset for your {{ .AppName }} account.</p>
<p>Click the link below to reset your password. This link is valid for {{ .ValidFor }}.</p>
<a href="{{ .Link }}">{{ .Link }}</a>
<p>The link expires at {{ .Expires | date "Jan 2, 2006 15:04 MST" }}.</p>
<p>If you did not request this, you can ignore this email.</p>`

const verifyTemplate = `<p>Hi {{ .Name | trim | default "there" }},</p>
<p>Thank you for signing up for {{ .AppName }}.</p>
<p>Please verify your email address by clicking the link below:</p>
<a href="{{ .Link }}">{{ .Link }}</a>
<p>If you did not sign up, you can ignore this email.</p>`

type templateData struct {
	AppName  string
	Name     string
	Link     string
	ValidFor string
	Expires  time.Time
}

// Mailer builds account emails and hands them to a Sender through the
// circuit breaker.
type Mailer struct {
	sender      Sender
	breaker     *circuit.Breaker
	frontendURL string
	appName     string
	templates   *template.Template
}

func New(sender Sender, breaker *circuit.Breaker, frontendURL, appName string) *Mailer {
	if breaker == nil {
		breaker = circuit.NewBreaker(BreakerName, circuit.DefaultConfig(), logger.GetLogger())
	}

	tmpl := template.New("mail").Funcs(sprig.HtmlFuncMap())
	template.Must(tmpl.New("reset").Parse(resetTemplate))
	template.Must(tmpl.New("verify").Parse(verifyTemplate))

	return &Mailer{
		sender:      sender,
		breaker:     breaker,
		frontendURL: frontendURL,
		appName:     appName,
		templates:   tmpl,
	}
}

// SendPasswordReset mails the reset link carrying rawToken.
func (m *Mailer) SendPasswordReset(ctx context.Context, to, rawToken string, ttl time.Duration) error {
	link := m.frontendURL + "/reset-password?" + url.Values{"token": {rawToken}}.Encode()

	body, err := m.render("reset", templateData{
		AppName:  m.appName,
		Link:     link,
		ValidFor: humanDuration(ttl),
		Expires:  time.Now().Add(ttl).UTC(),
	})
	if err != nil {
		return err
	}

	return m.send(ctx, &Message{To: to, Subject: SubjectPasswordReset, HTML: body})
}

// SendVerification mails the verification link carrying rawToken.
func (m *Mailer) SendVerification(ctx context.Context, to, name, rawToken string) error {
	link := m.frontendURL + "/verify-email?" + url.Values{"token": {rawToken}, "email": {to}}.Encode()

	body, err := m.render("verify", templateData{
		AppName: m.appName,
		Name:    name,
		Link:    link,
	})
	if err != nil {
		return err
	}

	return m.send(ctx, &Message{To: to, Subject: SubjectVerifyEmail, HTML: body})
}

func (m *Mailer) render(name string, data templateData) (string, error) {
	var buf bytes.Buffer
	if err := m.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s mail: %w", name, err)
	}
	return buf.String(), nil
}

func (m *Mailer) send(ctx context.Context, msg *Message) error {
	err := m.breaker.Execute(ctx, func(ctx context.Context) error {
		return m.sender.Send(ctx, msg)
	})
	if err != nil {
		logger.GetLogger().Error("Failed to send mail",
			zap.String("subject", msg.Subject),
			zap.Error(err),
		)
		return fmt.Errorf("send mail: %w", err)
	}

	logger.GetLogger().Info("Mail sent", zap.String("subject", msg.Subject))
	return nil
}

func humanDuration(d time.Duration) string {
	switch {
	case d == time.Hour:
		return "1 hour"
	case d%time.Hour == 0:
		return fmt.Sprintf("%d hours", int(d/time.Hour))
	case d%time.Minute == 0:
		return fmt.Sprintf("%d minutes", int(d/time.Minute))
	default:
		return d.String()
	}
}
