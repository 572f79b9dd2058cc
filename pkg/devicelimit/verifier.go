package devicelimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tendant/devicelimit/pkg/account"
	"github.com/tendant/devicelimit/pkg/device"
	dlerrors "github.com/tendant/devicelimit/pkg/errors"
	"github.com/tendant/devicelimit/pkg/otp"
)

// InvalidCodeMessage is shown when a submitted code does not verify
const InvalidCodeMessage = "Invalid or expired code."

// VerifyState says what the verification page should do next
type VerifyState int

const (
	// StateInert means the page renders nothing; the username is unknown
	StateInert VerifyState = iota
	// StatePrompt means the code entry form should be shown
	StatePrompt
	// StateAlreadyApproved means the caller is signed in from an approved device
	StateAlreadyApproved
	// StateApproved means the code verified and the device was added
	StateApproved
	// StateRetry means the code did not verify; the form is shown again with Message
	StateRetry
)

// VerifyResult is what the verification page should show next
type VerifyResult struct {
	State   VerifyState
	Account account.Account
	Record  *device.Record
	Message string
	Err     *dlerrors.Error
}

// Verifier drives the verification page: showing the form and accepting codes
type Verifier struct {
	store      account.Store
	registry   *device.Registry
	challenges *otp.Manager
	now        func() time.Time
}

// VerifierOption configures a Verifier
type VerifierOption func(*Verifier)

// WithVerifierClock sets the clock used to stamp approvals
func WithVerifierClock(now func() time.Time) VerifierOption {
	return func(v *Verifier) {
		v.now = now
	}
}

// NewVerifier creates a Verifier over the account store, registry and challenge manager
func NewVerifier(store account.Store, registry *device.Registry, challenges *otp.Manager, opts ...VerifierOption) *Verifier {
	v := &Verifier{
		store:      store,
		registry:   registry,
		challenges: challenges,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (v *Verifier) lookup(ctx context.Context, username string) (account.Account, bool, error) {
	if username == "" {
		return account.Account{}, false, nil
	}
	acct, err := v.store.GetByName(ctx, username)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound) {
			return account.Account{}, false, nil
		}
		return account.Account{}, false, fmt.Errorf("failed to look up account: %w", err)
	}
	return acct, true, nil
}

// Prepare decides what the verification page shows for username.
// deviceID is whatever the client presented, without minting a new one.
// authenticatedAs is the account id of the current session, empty when signed out.
func (v *Verifier) Prepare(ctx context.Context, username, deviceID, authenticatedAs string) (VerifyResult, error) {
	acct, ok, err := v.lookup(ctx, username)
	if err != nil {
		return VerifyResult{}, err
	}
	if !ok {
		return VerifyResult{State: StateInert}, nil
	}

	if authenticatedAs != "" && authenticatedAs == acct.ID && deviceID != "" {
		approved, err := v.registry.Contains(ctx, acct.ID, deviceID)
		if err != nil {
			return VerifyResult{}, err
		}
		if approved {
			return VerifyResult{State: StateAlreadyApproved, Account: acct}, nil
		}
	}

	return VerifyResult{State: StatePrompt, Account: acct}, nil
}

// Submit checks code against the account's challenge. On success the device captured
// in the challenge is approved and the challenge is consumed; the caller then
// establishes the session. On failure the challenge is left untouched.
func (v *Verifier) Submit(ctx context.Context, username, code string) (VerifyResult, error) {
	acct, ok, err := v.lookup(ctx, username)
	if err != nil {
		return VerifyResult{}, err
	}
	if !ok {
		return VerifyResult{State: StateInert}, nil
	}

	challenge, err := v.challenges.Peek(ctx, acct.ID)
	if err != nil {
		return VerifyResult{}, err
	}
	if !v.challenges.Matches(challenge, code) {
		slog.Info("Device verification failed", "accountID", acct.ID)
		return VerifyResult{
			State:   StateRetry,
			Account: acct,
			Message: InvalidCodeMessage,
			Err:     dlerrors.New(dlerrors.ErrCodeOTPInvalid, InvalidCodeMessage),
		}, nil
	}

	rec := device.Record{
		ID:         challenge.ClaimingDeviceID,
		Agent:      challenge.Agent,
		ApprovedAt: v.now().UTC(),
		IPAddress:  challenge.IPAddress,
		Class:      challenge.Class,
		Status:     device.StatusApproved,
	}
	if err := v.registry.Approve(ctx, acct.ID, rec); err != nil {
		return VerifyResult{}, err
	}
	if err := v.challenges.Consume(ctx, acct.ID); err != nil {
		return VerifyResult{}, err
	}

	return VerifyResult{State: StateApproved, Account: acct, Record: &rec}, nil
}
