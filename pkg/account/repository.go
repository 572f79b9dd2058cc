package account

import (
	"context"
	"errors"
	"time"
)

var (
	ErrAccountNotFound   = errors.New("account not found")
	ErrAccountExists     = errors.New("account already exists")
	ErrAttributeNotFound = errors.New("attribute not found")
)

// Attribute and setting keys used by the device limit packages.
const (
	AttrAllowedDevices = "allowed_devices"
	AttrDeviceOTP      = "device_otp"

	SettingDeviceLimit = "device_limit"
)

// Account is the host's view of a user that can log in.
type Account struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"display_name"`
	PasswordHash string    `json:"password_hash,omitempty"`
	Admin        bool      `json:"admin"`
	CreatedAt    time.Time `json:"created_at"`
}

// Name returns the display name, falling back to the username.
func (a Account) Name() string {
	if a.DisplayName != "" {
		return a.DisplayName
	}
	return a.Username
}

// Store is the account store consumed by the device registry, the OTP challenge
// manager and the policy service. Attribute values are opaque bytes; every write
// replaces the whole value.
type Store interface {
	GetByName(ctx context.Context, name string) (Account, error)
	GetByID(ctx context.Context, id string) (Account, error)
	CreateAccount(ctx context.Context, acct Account) (Account, error)

	// Per-account attributes
	GetAttribute(ctx context.Context, accountID, key string) ([]byte, error)
	SetAttribute(ctx context.Context, accountID, key string, value []byte) error
	DeleteAttribute(ctx context.Context, accountID, key string) error

	// Global settings
	GetSetting(ctx context.Context, key string) ([]byte, error)
	SetSetting(ctx context.Context, key string, value []byte) error
}
