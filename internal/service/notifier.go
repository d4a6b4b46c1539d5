package service

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/smtp"
	"time"

	"github.com/AquariesX/quick-delivey-sub001/internal/config"
	"github.com/AquariesX/quick-delivey-sub001/internal/observability"
)

type ActivationNotification struct {
	Email       string
	Username    string
	Role        string
	ActivatedAt time.Time
}

type CredentialNotification struct {
	Email    string
	Username string
	// Password is the freshly generated plaintext. It exists only on this
	// delivery path; it is never stored and never returned by the API.
	Password string
}

// Notifier delivers account emails. The orchestrator always calls it
// fire-and-forget; implementations must not be load-bearing.
type Notifier interface {
	SendActivationConfirmation(ctx context.Context, n ActivationNotification) error
	SendVendorCredentials(ctx context.Context, n CredentialNotification) error
}

var activationTemplate = template.Must(template.New("activation").Parse(`<html><body>
<h2>Your account is active</h2>
<p>Hi {{.Username}},</p>
<p>Your email address {{.Email}} has been verified and your {{.Role}} account is now active.</p>
<p>You can sign in to your dashboard now.</p>
</body></html>`))

var credentialsTemplate = template.Must(template.New("credentials").Parse(`<html><body>
<h2>Your new vendor password</h2>
<p>Hi {{.Username}},</p>
<p>A new password was generated for your vendor account:</p>
<p><b>{{.Password}}</b></p>
<p>Please sign in and change it right away.</p>
</body></html>`))

type SMTPNotifier struct {
	cfg    *config.Config
	logger *slog.Logger
}

func NewSMTPNotifier(cfg *config.Config, logger *slog.Logger) *SMTPNotifier {
	return &SMTPNotifier{cfg: cfg, logger: logger}
}

func (n *SMTPNotifier) SendActivationConfirmation(ctx context.Context, note ActivationNotification) error {
	body, err := render(activationTemplate, note)
	if err != nil {
		return err
	}
	return n.send(ctx, note.Email, "Your account is active", body)
}

func (n *SMTPNotifier) SendVendorCredentials(ctx context.Context, note CredentialNotification) error {
	body, err := render(credentialsTemplate, note)
	if err != nil {
		return err
	}
	return n.send(ctx, note.Email, "Your new vendor password", body)
}

func (n *SMTPNotifier) send(ctx context.Context, to, subject, htmlBody string) error {
	addr := n.cfg.SMTPHost + ":" + n.cfg.SMTPPort
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s",
		n.cfg.SMTPFrom, to, subject, htmlBody)

	var auth smtp.Auth
	if n.cfg.SMTPUser != "" {
		auth = smtp.PlainAuth("", n.cfg.SMTPUser, n.cfg.SMTPPassword, n.cfg.SMTPHost)
	}
	if err := smtp.SendMail(addr, auth, n.cfg.SMTPFrom, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	n.logger.InfoContext(ctx, "notification sent", "to", to, "subject", subject)
	return nil
}

func render(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s template: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}

// DevNotifier logs instead of sending. Plaintext passwords are withheld from
// the log line on purpose.
type DevNotifier struct {
	logger *slog.Logger
}

func NewDevNotifier(logger *slog.Logger) *DevNotifier {
	return &DevNotifier{logger: logger}
}

func (n *DevNotifier) SendActivationConfirmation(ctx context.Context, note ActivationNotification) error {
	n.logger.InfoContext(ctx, "activation confirmation (dev, not sent)",
		"email", note.Email,
		"role", note.Role,
		"activated_at", note.ActivatedAt,
	)
	return nil
}

func (n *DevNotifier) SendVendorCredentials(ctx context.Context, note CredentialNotification) error {
	n.logger.InfoContext(ctx, "vendor credentials issued (dev, not sent)",
		"email", note.Email,
		"password_length", len(note.Password),
	)
	return nil
}

// NewNotifier picks the SMTP transport when mail is enabled, the logging
// notifier otherwise.
func NewNotifier(cfg *config.Config, logger *slog.Logger) Notifier {
	if cfg.MailEnabled {
		return NewSMTPNotifier(cfg, logger)
	}
	return NewDevNotifier(logger)
}

// dispatch runs a notification off the request path. A fresh context bounds
// delivery so an already-finished request cannot cancel it.
func dispatch(logger *slog.Logger, kind string, fn func(ctx context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := fn(ctx); err != nil {
			logger.WarnContext(ctx, "notification dispatch failed", "kind", kind, "error", err)
			observability.RecordNotificationDispatch(ctx, kind, "error")
			return
		}
		observability.RecordNotificationDispatch(ctx, kind, "ok")
	}()
}
