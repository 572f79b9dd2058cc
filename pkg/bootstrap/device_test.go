package bootstrap

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/devicelimit/pkg/account"
	"github.com/tendant/devicelimit/pkg/device"
	"github.com/tendant/devicelimit/pkg/deviceid"
)

func setup(t *testing.T) (DeviceBootstrapConfig, account.Account) {
	store := account.NewInMemStore()
	acct, err := store.CreateAccount(context.Background(), account.Account{Username: "admin", Email: "admin@example.com", Admin: true})
	require.NoError(t, err)

	fixed := time.Date(2024, 2, 2, 2, 2, 2, 0, time.UTC)
	return DeviceBootstrapConfig{
		Registry: device.NewRegistry(store),
		Resolver: deviceid.NewResolver(),
		Now:      func() time.Time { return fixed },
	}, acct
}

func TestApproveFirstDevice(t *testing.T) {
	ctx := context.Background()
	cfg, acct := setup(t)
	tokens := &deviceid.MemoryTokenStore{}
	client := deviceid.ClientInfo{Agent: "devicelimit-bootstrap", IPAddress: "127.0.0.1"}

	result, err := ApproveFirstDevice(ctx, cfg, acct, tokens, client)
	require.NoError(t, err)
	assert.True(t, result.Approved)
	assert.Len(t, result.DeviceID, 64)
	assert.Equal(t, result.DeviceID, tokens.Value)

	records, err := cfg.Registry.List(ctx, acct.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, result.DeviceID, records[0].ID)
	assert.Equal(t, device.StatusApproved, records[0].Status)
	assert.Equal(t, device.ClassDesktop, records[0].Class)
	assert.Equal(t, time.Date(2024, 2, 2, 2, 2, 2, 0, time.UTC), records[0].ApprovedAt)
}

func TestApproveFirstDevice_UsesPresentedToken(t *testing.T) {
	ctx := context.Background()
	cfg, acct := setup(t)

	result, err := ApproveFirstDevice(ctx, cfg, acct, &deviceid.MemoryTokenStore{Value: "existing-browser"}, deviceid.ClientInfo{})
	require.NoError(t, err)
	assert.Equal(t, "existing-browser", result.DeviceID)
}

func TestApproveFirstDevice_NoopWhenApproved(t *testing.T) {
	ctx := context.Background()
	cfg, acct := setup(t)
	require.NoError(t, cfg.Registry.Approve(ctx, acct.ID, device.Record{ID: "laptop"}))

	result, err := ApproveFirstDevice(ctx, cfg, acct, &deviceid.MemoryTokenStore{}, deviceid.ClientInfo{})
	require.NoError(t, err)
	assert.False(t, result.Approved)
	assert.Empty(t, result.DeviceID)

	records, err := cfg.Registry.List(ctx, acct.ID)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestApproveFirstDevice_RunTwice(t *testing.T) {
	ctx := context.Background()
	cfg, acct := setup(t)

	first, err := ApproveFirstDevice(ctx, cfg, acct, &deviceid.MemoryTokenStore{}, deviceid.ClientInfo{})
	require.NoError(t, err)
	require.True(t, first.Approved)

	second, err := ApproveFirstDevice(ctx, cfg, acct, &deviceid.MemoryTokenStore{}, deviceid.ClientInfo{})
	require.NoError(t, err)
	assert.False(t, second.Approved)
}

func TestApproveFirstDevice_InvalidConfig(t *testing.T) {
	_, err := ApproveFirstDevice(context.Background(), DeviceBootstrapConfig{}, account.Account{}, nil, deviceid.ClientInfo{})
	assert.ErrorContains(t, err, "Registry is required")
}

func TestPrintDeviceBootstrapResult(t *testing.T) {
	var buf bytes.Buffer
	PrintDeviceBootstrapResult(&buf, &DeviceBootstrapResult{Username: "admin", AccountID: "a1", DeviceID: "abc", Approved: true}, "dll_device_id")
	out := buf.String()
	assert.Contains(t, out, "Device ID: abc")
	assert.Contains(t, out, `"dll_device_id"`)

	buf.Reset()
	PrintDeviceBootstrapResult(&buf, &DeviceBootstrapResult{Username: "admin", AccountID: "a1"}, "dll_device_id")
	assert.Contains(t, buf.String(), "skipped")
}
