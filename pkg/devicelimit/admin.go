package devicelimit

import (
	"context"
	"errors"
	"log/slog"

	"github.com/tendant/devicelimit/pkg/account"
	"github.com/tendant/devicelimit/pkg/device"
	dlerrors "github.com/tendant/devicelimit/pkg/errors"
	"github.com/tendant/devicelimit/pkg/otp"
)

const (
	MsgMissingData   = "Missing data"
	MsgNoDevices     = "No devices found"
	MsgDeviceDeleted = "Device deleted successfully"
	MsgDevicesReset  = "Devices reset successfully"
)

// Admin holds the device operations exposed to privileged callers.
// Privilege and forgery checks belong to the caller.
type Admin struct {
	store      account.Store
	registry   *device.Registry
	challenges *otp.Manager
}

// NewAdmin creates an Admin over the account store, registry and challenge manager
func NewAdmin(store account.Store, registry *device.Registry, challenges *otp.Manager) *Admin {
	return &Admin{store: store, registry: registry, challenges: challenges}
}

func (a *Admin) account(ctx context.Context, accountID string) (account.Account, error) {
	acct, err := a.store.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound) {
			return account.Account{}, dlerrors.NotFound("account", accountID)
		}
		return account.Account{}, dlerrors.InternalWrap(err, "failed to look up account")
	}
	return acct, nil
}

// ListDevices returns the approved devices of an account
func (a *Admin) ListDevices(ctx context.Context, accountID string) ([]device.Record, error) {
	if _, err := a.account(ctx, accountID); err != nil {
		return nil, err
	}
	records, err := a.registry.List(ctx, accountID)
	if err != nil {
		return nil, dlerrors.InternalWrap(err, "failed to list devices")
	}
	return records, nil
}

// RemoveDevice drops every record with deviceID from the account's list.
// An id that is not listed still succeeds once the account has any devices.
func (a *Admin) RemoveDevice(ctx context.Context, accountID, deviceID string) error {
	if accountID == "" || deviceID == "" {
		return dlerrors.New(dlerrors.ErrCodeInvalidInput, MsgMissingData)
	}

	records, err := a.registry.List(ctx, accountID)
	if err != nil {
		return dlerrors.InternalWrap(err, "failed to list devices")
	}
	if len(records) == 0 {
		return dlerrors.New(dlerrors.ErrCodeNotFound, MsgNoDevices)
	}

	if _, err := a.registry.Remove(ctx, accountID, deviceID); err != nil {
		return dlerrors.InternalWrap(err, "failed to remove device")
	}
	slog.Info("Admin removed device", "accountID", accountID, "deviceID", deviceID)
	return nil
}

// ResetAccount clears both the device list and any pending challenge
func (a *Admin) ResetAccount(ctx context.Context, accountID string) error {
	if _, err := a.account(ctx, accountID); err != nil {
		return err
	}
	if err := a.registry.ResetAll(ctx, accountID); err != nil {
		return dlerrors.InternalWrap(err, "failed to reset devices")
	}
	if err := a.challenges.Consume(ctx, accountID); err != nil {
		return dlerrors.InternalWrap(err, "failed to clear pending challenge")
	}
	slog.Info("Admin reset account devices", "accountID", accountID)
	return nil
}
