package otp

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/tendant/devicelimit/pkg/account"
	"github.com/tendant/devicelimit/pkg/device"
	"github.com/tendant/devicelimit/pkg/deviceid"
)

const (
	// DefaultTTL is how long an issued code stays verifiable
	DefaultTTL = 10 * time.Minute

	codeMin = 100000
	codeMax = 999999
)

// StatusPending is the only status a stored challenge can have
const StatusPending = "pending"

// Challenge is the single pending OTP slot of an account
type Challenge struct {
	Code             string       `json:"code"`
	ClaimingDeviceID string       `json:"claiming_device_id"`
	Agent            string       `json:"agent"`
	IPAddress        string       `json:"ip_address"`
	Class            device.Class `json:"class"`
	CreatedAt        time.Time    `json:"created_at"`
	Status           string       `json:"status"`
}

// CodeGenerator produces a fresh code for a challenge
type CodeGenerator func() (string, error)

// Manager owns the per-account challenge slot
type Manager struct {
	store    account.Store
	ttl      time.Duration
	now      func() time.Time
	generate CodeGenerator
}

// Option configures a Manager
type Option func(*Manager)

// WithTTL overrides DefaultTTL
func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// WithClock sets the clock used for creation stamps and liveness checks
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// WithCodeGenerator replaces GenerateCode
func WithCodeGenerator(gen CodeGenerator) Option {
	return func(m *Manager) {
		m.generate = gen
	}
}

func NewManager(store account.Store, opts ...Option) *Manager {
	m := &Manager{
		store:    store,
		ttl:      DefaultTTL,
		now:      time.Now,
		generate: GenerateCode,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// TTL returns the configured challenge lifetime
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Issue creates a challenge for the claiming client, overwriting whatever the slot
// held before, and returns the code for delivery.
func (m *Manager) Issue(ctx context.Context, accountID string, client deviceid.ClientInfo) (string, error) {
	code, err := m.generate()
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}

	challenge := Challenge{
		Code:             code,
		ClaimingDeviceID: client.DeviceID,
		Agent:            client.Agent,
		IPAddress:        client.IPAddress,
		Class:            client.Class,
		CreatedAt:        m.now().UTC(),
		Status:           StatusPending,
	}
	raw, err := json.Marshal(challenge)
	if err != nil {
		return "", fmt.Errorf("failed to encode challenge: %w", err)
	}
	if err := m.store.SetAttribute(ctx, accountID, account.AttrDeviceOTP, raw); err != nil {
		return "", fmt.Errorf("failed to store challenge: %w", err)
	}

	slog.Info("Device challenge issued", "accountID", accountID, "deviceID", client.DeviceID)
	return code, nil
}

// Peek returns the current challenge without consuming it, or nil if there is none
func (m *Manager) Peek(ctx context.Context, accountID string) (*Challenge, error) {
	raw, err := m.store.GetAttribute(ctx, accountID, account.AttrDeviceOTP)
	if err != nil {
		if errors.Is(err, account.ErrAttributeNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read challenge: %w", err)
	}

	var challenge Challenge
	if err := json.Unmarshal(raw, &challenge); err != nil || challenge.Code == "" {
		slog.Warn("Ignoring unreadable challenge", "accountID", accountID, "error", err)
		return nil, nil
	}
	return &challenge, nil
}

// IsLive reports whether the challenge is still within its TTL, inclusive of the boundary
func (m *Manager) IsLive(challenge *Challenge) bool {
	if challenge == nil {
		return false
	}
	return m.now().Sub(challenge.CreatedAt) <= m.ttl
}

// Consume deletes the challenge. Deleting an empty slot is fine.
func (m *Manager) Consume(ctx context.Context, accountID string) error {
	if err := m.store.DeleteAttribute(ctx, accountID, account.AttrDeviceOTP); err != nil {
		return fmt.Errorf("failed to delete challenge: %w", err)
	}
	return nil
}

// Verify reports whether a live challenge exists whose code equals submitted.
// A failed verification leaves the challenge in place.
func (m *Manager) Verify(ctx context.Context, accountID, submitted string) (bool, error) {
	challenge, err := m.Peek(ctx, accountID)
	if err != nil {
		return false, err
	}
	return m.Matches(challenge, submitted), nil
}

// Matches is Verify against an already loaded challenge
func (m *Manager) Matches(challenge *Challenge, submitted string) bool {
	if challenge == nil || !m.IsLive(challenge) {
		return false
	}
	submitted = strings.TrimSpace(submitted)
	if submitted == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(submitted), []byte(challenge.Code)) == 1
}

// GenerateCode returns a uniformly random six digit code in [100000, 999999]
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeMax-codeMin+1))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+codeMin, 10), nil
}
