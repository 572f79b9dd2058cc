package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tendant/devicelimit/pkg/account"
	"github.com/tendant/devicelimit/pkg/device"
	"github.com/tendant/devicelimit/pkg/deviceid"
)

// DeviceBootstrapConfig contains the services needed to approve the first device
type DeviceBootstrapConfig struct {
	Registry *device.Registry
	Resolver *deviceid.Resolver
	// Now stamps the approval; defaults to time.Now
	Now func() time.Time
}

// DeviceBootstrapResult describes what the bootstrap step did
type DeviceBootstrapResult struct {
	AccountID string
	Username  string
	DeviceID  string
	// Approved is false when the account already had an approved device
	Approved bool
}

// ApproveFirstDevice approves the acting client's device for acct without an OTP
// challenge, so the operator cannot be locked out on first install. It does nothing
// if the account already has an approved device.
func ApproveFirstDevice(ctx context.Context, cfg DeviceBootstrapConfig, acct account.Account, tokens deviceid.TokenStore, client deviceid.ClientInfo) (*DeviceBootstrapResult, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid bootstrap configuration: %w", err)
	}

	result := &DeviceBootstrapResult{AccountID: acct.ID, Username: acct.Username}

	approved, err := cfg.Registry.CountApproved(ctx, acct.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count approved devices: %w", err)
	}
	if approved > 0 {
		slog.Info("Account already has an approved device - skipping device bootstrap", "accountID", acct.ID)
		return result, nil
	}

	deviceID := cfg.Resolver.Resolve(tokens, client.Agent)
	if deviceID == "" {
		return nil, fmt.Errorf("failed to resolve a device id")
	}

	now := time.Now
	if cfg.Now != nil {
		now = cfg.Now
	}

	rec := device.Record{
		ID:         deviceID,
		Agent:      client.Agent,
		ApprovedAt: now().UTC(),
		IPAddress:  client.IPAddress,
		Class:      client.Class,
		Status:     device.StatusApproved,
	}
	if rec.Class == "" {
		rec.Class = device.ClassifyAgent(client.Agent)
	}
	if err := cfg.Registry.Approve(ctx, acct.ID, rec); err != nil {
		return nil, fmt.Errorf("failed to approve first device: %w", err)
	}

	result.DeviceID = deviceID
	result.Approved = true
	slog.Info("Device bootstrap completed successfully", "accountID", acct.ID, "deviceID", deviceID)
	return result, nil
}

func validateConfig(cfg DeviceBootstrapConfig) error {
	if cfg.Registry == nil {
		return fmt.Errorf("Registry is required")
	}
	if cfg.Resolver == nil {
		return fmt.Errorf("Resolver is required")
	}
	return nil
}
