// Package mail delivers report email through SendGrid with a database
// outbox: every send is recorded first, failures are retried by the worker.
package mail

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"log/slog"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/wickery/storepulse/internal/dependency"
	"github.com/wickery/storepulse/internal/entity"
)

// ErrAPILimitReached stops the retry loop until the next worker tick.
var ErrAPILimitReached = errors.New("mail api rate limit reached")

type Config struct {
	APIKey         string        `mapstructure:"sendgrid_api_key"`
	FromEmail      string        `mapstructure:"from_email"`
	FromName       string        `mapstructure:"from_email_name"`
	ReplyTo        string        `mapstructure:"reply_to"`
	AdminEmail     string        `mapstructure:"admin_email"`
	WorkerInterval time.Duration `mapstructure:"worker_interval"`
}

// Sender is the sendgrid transport, narrowed for tests.
type Sender interface {
	SendWithContext(ctx context.Context, email *sgmail.SGMailV3) (*rest.Response, error)
}

type Mailer struct {
	cli            Sender
	mailRepository dependency.Mail
	c              *Config
	ctx            context.Context
	cancel         context.CancelFunc
}

func New(c *Config, mailRepository dependency.Mail) (dependency.Mailer, error) {
	return newMailer(c, mailRepository, nil)
}

func newMailer(c *Config, mailRepository dependency.Mail, cli Sender) (*Mailer, error) {
	if c.APIKey == "" || c.FromEmail == "" || c.FromName == "" {
		return nil, fmt.Errorf("incomplete mail config: from %q (%q)", c.FromEmail, c.FromName)
	}
	if cli == nil {
		cli = sendgrid.NewSendClient(c.APIKey)
	}
	if c.WorkerInterval == 0 {
		c.WorkerInterval = 5 * time.Minute
	}
	return &Mailer{
		cli:            cli,
		mailRepository: mailRepository,
		c:              c,
	}, nil
}

// SendReport queues the report email and attempts immediate delivery. A
// failed send is left in the outbox for the worker, not surfaced as an
// error.
func (m *Mailer) SendReport(ctx context.Context, rep dependency.Repository, to, subject, body string) error {
	ser := &entity.SendEmailRequest{
		From:    m.c.FromEmail,
		To:      to,
		Body:    body,
		Subject: subject,
		ReplyTo: m.replyTo(),
	}

	id, err := rep.Mail().AddMail(ctx, ser)
	if err != nil {
		return fmt.Errorf("can't insert email: %w", err)
	}

	if err := m.sendRaw(ctx, ser); err != nil {
		// left unsent, the worker retries it
		slog.Default().ErrorContext(ctx, "can't send mail",
			slog.String("to", to),
			slog.String("err", err.Error()),
		)
		return nil
	}

	if err := rep.Mail().UpdateSent(ctx, id); err != nil {
		return fmt.Errorf("can't update sent status: %w", err)
	}
	return nil
}

// SendErrorNotification emails the admin when a report run fails. A missing
// admin address disables the notification.
func (m *Mailer) SendErrorNotification(ctx context.Context, rep dependency.Repository, msg string) error {
	if m.c.AdminEmail == "" {
		return nil
	}
	body := fmt.Sprintf("The weekly report run failed:\n\n%s\n\nTime: %s\n", msg, time.Now().UTC().Format(time.RFC3339))
	return m.SendReport(ctx, rep, m.c.AdminEmail, "Weekly report error", body)
}

func (m *Mailer) sendRaw(ctx context.Context, ser *entity.SendEmailRequest) error {
	msg := sgmail.NewSingleEmailPlainText(
		sgmail.NewEmail(m.c.FromName, ser.From),
		ser.Subject,
		sgmail.NewEmail("", ser.To),
		ser.Body,
	)
	if ser.ReplyTo != "" {
		msg.SetReplyTo(sgmail.NewEmail("", ser.ReplyTo))
	}

	resp, err := m.cli.SendWithContext(ctx, msg)
	if err != nil {
		return fmt.Errorf("can't send email: %w", err)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return ErrAPILimitReached
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("can't send email: status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

func (m *Mailer) replyTo() string {
	if m.c.ReplyTo != "" {
		return m.c.ReplyTo
	}
	return m.c.FromEmail
}
