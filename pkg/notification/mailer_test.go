package notification

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockMailer(t *testing.T) {
	m := &MockMailer{}
	_, ok := m.Last()
	assert.False(t, ok)

	require.NoError(t, m.Send(context.Background(), "a@example.com", "subject", "body"))
	assert.Equal(t, 1, m.Count())

	last, ok := m.Last()
	require.True(t, ok)
	assert.Equal(t, SentMail{To: "a@example.com", Subject: "subject", Body: "body"}, last)
}

func TestMockMailer_Failure(t *testing.T) {
	m := &MockMailer{Err: errors.New("relay down")}
	err := m.Send(context.Background(), "a@example.com", "s", "b")
	assert.EqualError(t, err, "relay down")
	assert.Equal(t, 0, m.Count())
}

func TestEmailNotifier_RequiresRecipient(t *testing.T) {
	notifier, err := NewEmailNotifier(SMTPConfig{Host: "localhost", Port: 1025, From: "noreply@example.com"})
	require.NoError(t, err)

	err = notifier.Send(context.Background(), "", "subject", "body")
	assert.ErrorIs(t, err, errNoRecipient)
}

func TestEmailNotifier_InvalidFrom(t *testing.T) {
	notifier, err := NewEmailNotifier(SMTPConfig{Host: "localhost", Port: 1025, From: "not an address"})
	require.NoError(t, err)

	err = notifier.Send(context.Background(), "a@example.com", "subject", "body")
	assert.Error(t, err)
}
