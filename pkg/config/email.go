package config

import (
	"github.com/tendant/devicelimit/pkg/notification"
)

// EmailConfig holds SMTP email configuration
type EmailConfig struct {
	Host     string `env:"EMAIL_HOST" env-default:"localhost" validate:"required"`
	Port     uint16 `env:"EMAIL_PORT" env-default:"1025" validate:"required"`
	Username string `env:"EMAIL_USERNAME"`
	Password string `env:"EMAIL_PASSWORD"`
	From     string `env:"EMAIL_FROM" env-default:"noreply@example.com" validate:"required,email"`
	TLS      bool   `env:"EMAIL_TLS" env-default:"false"`
	// Skip certificate verification, for local relays such as mailpit
	InsecureSkipVerify bool `env:"EMAIL_INSECURE_SKIP_VERIFY" env-default:"false"`
	// Mock logs and captures mail instead of sending it
	Mock bool `env:"EMAIL_MOCK" env-default:"false"`
}

// ToSMTPConfig converts the config to a notification.SMTPConfig
func (e EmailConfig) ToSMTPConfig() notification.SMTPConfig {
	return notification.SMTPConfig{
		Host:               e.Host,
		Port:               int(e.Port),
		Username:           e.Username,
		Password:           e.Password,
		From:               e.From,
		TLS:                e.TLS,
		InsecureSkipVerify: e.InsecureSkipVerify,
	}
}

func (e EmailConfig) validate() ValidationErrors {
	if e.Mock {
		return nil
	}
	return checkStruct(e)
}

// NewMailer returns the mailer the configuration selects
func (e EmailConfig) NewMailer() (notification.Mailer, error) {
	if e.Mock {
		return notification.LogMailer{}, nil
	}
	return notification.NewEmailNotifier(e.ToSMTPConfig())
}
