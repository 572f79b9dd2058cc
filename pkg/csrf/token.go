package csrf

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL bounds how long a form or admin action token stays usable
const DefaultTTL = 1 * time.Hour

// Actions protected by tokens
const (
	ActionVerifyDevice = "verify_device"
	ActionDeleteDevice = "delete_device"
	ActionResetDevices = "reset_devices"
	ActionSetLimit     = "set_device_limit"
)

var ErrInvalidToken = errors.New("invalid forgery-prevention token")

type claims struct {
	Action string `json:"act"`
	jwt.RegisteredClaims
}

// Tokens issues and checks signed tokens bound to an action and a subject
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokens(secret string, ttl time.Duration) *Tokens {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// WithClock replaces the clock, mainly for tests
func (t *Tokens) WithClock(now func() time.Time) *Tokens {
	t.now = now
	return t
}

// Issue returns a token for action performed by subject
func (t *Tokens) Issue(action, subject string) (string, error) {
	now := t.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Action: action,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	})
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify checks that raw is an unexpired token for action and subject
func (t *Tokens) Verify(raw, action, subject string) error {
	if raw == "" {
		return ErrInvalidToken
	}
	var c claims
	_, err := jwt.ParseWithClaims(raw, &c, func(token *jwt.Token) (interface{}, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if c.Action != action || c.Subject != subject {
		return ErrInvalidToken
	}
	return nil
}
