package devicelimit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	dlerrors "github.com/tendant/devicelimit/pkg/errors"
)

func TestAdmin_ListDevices(t *testing.T) {
	f := newFixture(t)
	f.approve(t, "laptop", "phone")

	records, err := f.admin.ListDevices(context.Background(), f.acct.ID)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	_, err = f.admin.ListDevices(context.Background(), "missing")
	assert.True(t, dlerrors.IsCode(err, dlerrors.ErrCodeNotFound))
}

func TestAdmin_RemoveDevice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.approve(t, "laptop", "phone", "laptop")

	require.NoError(t, f.admin.RemoveDevice(ctx, f.acct.ID, "laptop"))

	records, err := f.registry.List(ctx, f.acct.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "phone", records[0].ID)

	// Absent id is still a success
	assert.NoError(t, f.admin.RemoveDevice(ctx, f.acct.ID, "laptop"))
}

func TestAdmin_RemoveDeviceFreesCapacity(t *testing.T) {
	f := newFixture(t)
	f.approve(t, "laptop")
	require.Equal(t, Reject, f.login(t, "phone", 1).Kind)

	require.NoError(t, f.admin.RemoveDevice(context.Background(), f.acct.ID, "laptop"))
	assert.Equal(t, Redirect, f.login(t, "phone", 1).Kind)
}

func TestAdmin_RemoveDeviceErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.admin.RemoveDevice(ctx, "", "laptop")
	require.Error(t, err)
	assert.True(t, dlerrors.IsCode(err, dlerrors.ErrCodeInvalidInput))
	assert.Contains(t, err.Error(), MsgMissingData)

	err = f.admin.RemoveDevice(ctx, f.acct.ID, "")
	assert.True(t, dlerrors.IsCode(err, dlerrors.ErrCodeInvalidInput))

	err = f.admin.RemoveDevice(ctx, f.acct.ID, "laptop")
	require.Error(t, err)
	assert.True(t, dlerrors.IsCode(err, dlerrors.ErrCodeNotFound))
	assert.Contains(t, err.Error(), MsgNoDevices)
}

func TestAdmin_ResetAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.approve(t, "laptop")
	require.Equal(t, Redirect, f.login(t, "phone", 3).Kind)
	require.NotNil(t, f.pending(t))

	require.NoError(t, f.admin.ResetAccount(ctx, f.acct.ID))

	records, err := f.registry.List(ctx, f.acct.ID)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Nil(t, f.pending(t))

	err = f.admin.ResetAccount(ctx, "missing")
	assert.True(t, dlerrors.IsCode(err, dlerrors.ErrCodeNotFound))
}
