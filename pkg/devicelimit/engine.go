package devicelimit

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tendant/devicelimit/pkg/account"
	"github.com/tendant/devicelimit/pkg/device"
	"github.com/tendant/devicelimit/pkg/deviceid"
	dlerrors "github.com/tendant/devicelimit/pkg/errors"
	"github.com/tendant/devicelimit/pkg/notice"
	"github.com/tendant/devicelimit/pkg/notification"
	"github.com/tendant/devicelimit/pkg/otp"
	"github.com/tendant/devicelimit/pkg/policy"
)

// DefaultVerifyPath is where Redirect outcomes point unless configured otherwise
const DefaultVerifyPath = "/verify-device"

// LoginAttempt is one password-verified login awaiting a device decision
type LoginAttempt struct {
	Account  account.Account
	Username string
	Client   deviceid.ClientInfo
	// DeviceLimit is resolved once by the caller for this attempt
	DeviceLimit int
}

// Engine decides whether a password-verified login may proceed from its device
type Engine struct {
	registry   *device.Registry
	challenges *otp.Manager
	mailer     notification.Mailer
	verifyPath string
}

// EngineOption configures an Engine
type EngineOption func(*Engine)

// WithVerifyPath sets the verification page path used in Redirect outcomes
func WithVerifyPath(path string) EngineOption {
	return func(e *Engine) {
		if path != "" {
			e.verifyPath = path
		}
	}
}

// NewEngine creates an Engine that mails codes through mailer
func NewEngine(registry *device.Registry, challenges *otp.Manager, mailer notification.Mailer, opts ...EngineOption) *Engine {
	e := &Engine{
		registry:   registry,
		challenges: challenges,
		mailer:     mailer,
		verifyPath: DefaultVerifyPath,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// VerifyPath returns the verification page path
func (e *Engine) VerifyPath() string {
	return e.verifyPath
}

// Enforce runs the device checks in order and stops at the first that decides:
// known device, live challenge, stale challenge cleanup, capacity, limit reached.
// A returned error means the account store could not be used; the outcome is then meaningless.
func (e *Engine) Enforce(ctx context.Context, attempt LoginAttempt) (Outcome, error) {
	acct := attempt.Account
	username := attempt.Username
	if username == "" {
		username = acct.Username
	}
	limit := attempt.DeviceLimit
	if limit < 1 {
		limit = policy.DefaultDeviceLimit
	}
	deviceID := attempt.Client.DeviceID

	known, err := e.registry.Contains(ctx, acct.ID, deviceID)
	if err != nil {
		return Outcome{}, err
	}
	if known {
		slog.Debug("Known device, login allowed", "accountID", acct.ID, "deviceID", deviceID)
		return allowed(), nil
	}

	challenge, err := e.challenges.Peek(ctx, acct.ID)
	if err != nil {
		return Outcome{}, err
	}
	if challenge != nil {
		if e.challenges.IsLive(challenge) {
			slog.Info("Pending challenge, redirecting to verification", "accountID", acct.ID)
			return redirectTo(e.verifyPath, username), nil
		}
		if err := e.challenges.Consume(ctx, acct.ID); err != nil {
			return Outcome{}, err
		}
		slog.Info("Discarded expired challenge", "accountID", acct.ID)
	}

	records, err := e.registry.List(ctx, acct.ID)
	if err != nil {
		return Outcome{}, err
	}
	if len(records) >= limit {
		slog.Warn("Device limit reached", "accountID", acct.ID, "devices", len(records), "limit", limit)
		return rejected(dlerrors.DeviceLimitReached()), nil
	}

	code, err := e.challenges.Issue(ctx, acct.ID, attempt.Client)
	if err != nil {
		return Outcome{}, err
	}

	if err := notice.SendDeviceCode(ctx, e.mailer, acct.Email, acct.Name(), code); err != nil {
		slog.Error("Failed to deliver verification code", "accountID", acct.ID, "error", err)
		if cerr := e.challenges.Consume(ctx, acct.ID); cerr != nil {
			return Outcome{}, fmt.Errorf("failed to roll back challenge after mail failure: %w", cerr)
		}
		return rejected(dlerrors.EmailDeliveryFailed(err)), nil
	}

	return redirectTo(e.verifyPath, username), nil
}
