package notification

import (
	"context"
	"log/slog"
	"sync"
)

// Mailer delivers a message to one recipient. A nil error means the mail
// service accepted the message.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SentMail is a message captured by MockMailer
type SentMail struct {
	To      string
	Subject string
	Body    string
}

// MockMailer records messages instead of sending them
type MockMailer struct {
	mu   sync.Mutex
	Sent []SentMail
	// Err, when set, is returned from every Send and nothing is recorded
	Err error
}

func (m *MockMailer) Send(ctx context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Sent = append(m.Sent, SentMail{To: to, Subject: subject, Body: body})
	return nil
}

// Count returns how many messages were accepted
func (m *MockMailer) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Sent)
}

// Last returns the most recent accepted message
func (m *MockMailer) Last() (SentMail, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Sent) == 0 {
		return SentMail{}, false
	}
	return m.Sent[len(m.Sent)-1], true
}

// LogMailer writes messages to the log instead of sending them, for local development
type LogMailer struct{}

func (LogMailer) Send(ctx context.Context, to, subject, body string) error {
	slog.Info("Mail not sent (mock mailer)", "to", to, "subject", subject, "body", body)
	return nil
}
