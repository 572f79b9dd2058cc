package notice

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"text/template"

	"github.com/tendant/devicelimit/pkg/notification"
)

const (
	DeviceCodeSubject = "Verify New Device Login"
	SMTPCheckSubject  = "Device Login Limit: Test Email"
)

//go:embed templates/*
var templateFiles embed.FS

var errNoRecipient = errors.New("account has no email address")

var templates = template.Must(template.ParseFS(templateFiles, "templates/*.txt"))

// DeviceCodeData fills the device code template
type DeviceCodeData struct {
	Name string
	Code string
}

// DeviceCodeMessage renders the subject and plain-text body that carry a verification code
func DeviceCodeMessage(displayName, code string) (string, string, error) {
	body, err := render("device_code.txt", DeviceCodeData{Name: displayName, Code: code})
	if err != nil {
		return "", "", err
	}
	return DeviceCodeSubject, body, nil
}

// SendDeviceCode mails a verification code to the account owner
func SendDeviceCode(ctx context.Context, mailer notification.Mailer, to, displayName, code string) error {
	if to == "" {
		return errNoRecipient
	}
	subject, body, err := DeviceCodeMessage(displayName, code)
	if err != nil {
		return err
	}
	return mailer.Send(ctx, to, subject, body)
}

// SMTPCheck sends a test message to the operator address to confirm mail delivery works
func SMTPCheck(ctx context.Context, mailer notification.Mailer, to string) error {
	body, err := render("smtp_check.txt", nil)
	if err != nil {
		return err
	}
	if err := mailer.Send(ctx, to, SMTPCheckSubject, body); err != nil {
		slog.Error("SMTP test email failed", "to", to, "error", err)
		return fmt.Errorf("smtp test email to %s failed: %w", to, err)
	}
	slog.Info("SMTP test email sent", "to", to)
	return nil
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		slog.Error("Failed to execute template", "template", name, "err", err)
		return "", err
	}
	return buf.String(), nil
}
