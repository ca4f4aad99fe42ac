package notifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/wneessen/go-mail"

	"deltawatch/internal/domain/entity"
	"deltawatch/internal/observability/logging"
)

// EmailConfig configures SMTP submission.
type EmailConfig struct {
	Enabled bool

	Host     string
	Port     int
	Username string

	// Password is never logged.
	Password string

	// From defaults to Username.
	From       string
	Recipients []string

	// Subject overrides DefaultSubject when set.
	Subject string

	Timeout time.Duration
}

// ErrNoRecipients is returned when an enabled email channel has no recipients.
var ErrNoRecipients = errors.New("email: no recipients configured")

// mailSender is the part of *mail.Client used to deliver messages.
type mailSender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// EmailNotifier sends a batch as a plain text email. Each recipient gets an
// individual message; all messages of a batch share one SMTP session.
type EmailNotifier struct {
	config EmailConfig
	sender mailSender
	logger *slog.Logger
}

// NewEmailNotifier returns a notifier that requires STARTTLS and
// authenticates with SMTP AUTH PLAIN.
func NewEmailNotifier(config EmailConfig) (*EmailNotifier, error) {
	if len(config.Recipients) == 0 {
		return nil, ErrNoRecipients
	}
	if config.From == "" {
		config.From = config.Username
	}

	opts := []mail.Option{
		mail.WithPort(config.Port),
		mail.WithTLSPolicy(mail.TLSMandatory),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(config.Username),
		mail.WithPassword(config.Password),
	}
	if config.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(config.Timeout))
	}
	client, err := mail.NewClient(config.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}
	return newEmailNotifier(config, client), nil
}

func newEmailNotifier(config EmailConfig, sender mailSender) *EmailNotifier {
	if config.From == "" {
		config.From = config.Username
	}
	return &EmailNotifier{config: config, sender: sender, logger: slog.Default()}
}

// buildMessages renders one message per recipient. Every message carries
// the same subject and body.
func (e *EmailNotifier) buildMessages(batch entity.NotificationBatch) ([]*mail.Msg, error) {
	subject := e.config.Subject
	if subject == "" {
		subject = DefaultSubject(batch)
	}
	body := RenderPlainText(batch)

	msgs := make([]*mail.Msg, 0, len(e.config.Recipients))
	for _, rcpt := range e.config.Recipients {
		msg := mail.NewMsg()
		if err := msg.From(e.config.From); err != nil {
			return nil, fmt.Errorf("set sender %q: %w", e.config.From, err)
		}
		if err := msg.To(rcpt); err != nil {
			return nil, fmt.Errorf("set recipient %q: %w", rcpt, err)
		}
		msg.Subject(subject)
		msg.SetDate()
		msg.SetMessageID()
		msg.SetBodyString(mail.TypeTextPlain, body)
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// NotifyBatch implements Notifier.
func (e *EmailNotifier) NotifyBatch(ctx context.Context, batch entity.NotificationBatch) error {
	requestID := uuid.New().String()
	logger := e.logger.With(
		slog.String("request_id", requestID),
		slog.String("channel", "email"),
		slog.Int("items", batch.Len()),
		slog.Int("recipients", len(e.config.Recipients)))

	msgs, err := e.buildMessages(batch)
	if err != nil {
		return err
	}

	start := time.Now()
	if err := e.sender.DialAndSendWithContext(ctx, msgs...); err != nil {
		logger.Error("Email notification failed",
			slog.String("smtp_host", e.config.Host),
			logging.Err(err))
		return fmt.Errorf("send email via %s: %w", e.config.Host, err)
	}

	logger.Info("Email notification sent", slog.Duration("duration", time.Since(start)))
	return nil
}
