package notification

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/wneessen/go-mail"
)

const defaultSMTPTimeout = 30 * time.Second

var errNoRecipient = errors.New("mail requires a recipient")

type SMTPConfig struct {
	Host     string
	Port     int
	TLS      bool
	Username string
	Password string
	From     string
	// InsecureSkipVerify disables certificate checks, for local relays only
	InsecureSkipVerify bool
	Timeout            time.Duration
}

// clientOptions turns the config into go-mail options. Authentication is only
// attempted when both credentials are set; TLS is either required or disabled.
func (c SMTPConfig) clientOptions() []mail.Option {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = defaultSMTPTimeout
	}

	policy := mail.NoTLS
	if c.TLS {
		policy = mail.TLSMandatory
	}

	opts := []mail.Option{
		mail.WithPort(c.Port),
		mail.WithTimeout(timeout),
		mail.WithTLSPolicy(policy),
		mail.WithTLSConfig(&tls.Config{
			ServerName:         c.Host,
			InsecureSkipVerify: c.InsecureSkipVerify,
		}),
	}
	if c.Username != "" && c.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthLogin),
			mail.WithUsername(c.Username),
			mail.WithPassword(c.Password),
		)
	}
	return opts
}

// EmailNotifier delivers plain-text mail over SMTP
type EmailNotifier struct {
	config SMTPConfig
	client *mail.Client
}

func NewEmailNotifier(config SMTPConfig) (*EmailNotifier, error) {
	client, err := mail.NewClient(config.Host, config.clientOptions()...)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail client for %s:%d: %w", config.Host, config.Port, err)
	}
	slog.Info("Mail client ready", "host", config.Host, "port", config.Port, "tls", config.TLS,
		"auth", config.Username != "")
	return &EmailNotifier{config: config, client: client}, nil
}

// Send delivers one plain-text message. The connection is opened per message.
func (e *EmailNotifier) Send(ctx context.Context, to, subject, body string) error {
	if to == "" {
		return errNoRecipient
	}

	msg := mail.NewMsg()
	if err := msg.From(e.config.From); err != nil {
		return fmt.Errorf("invalid sender %q: %w", e.config.From, err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("invalid recipient %q: %w", to, err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	if err := e.client.DialAndSendWithContext(ctx, msg); err != nil {
		slog.Error("Failed to send email", "to", to, "host", e.config.Host, "error", err)
		return err
	}

	slog.Info("Email sent", "to", to, "subject", subject)
	return nil
}
