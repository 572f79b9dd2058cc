package policy

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/tendant/devicelimit/pkg/account"
	dlerrors "github.com/tendant/devicelimit/pkg/errors"
)

// DefaultDeviceLimit applies when no valid limit has been stored
const DefaultDeviceLimit = 3

// Service resolves the global device limit. The limit applies to every account,
// administrators included.
type Service struct {
	store    account.Store
	fallback int
}

func NewService(store account.Store, fallback int) *Service {
	if fallback < 1 {
		fallback = DefaultDeviceLimit
	}
	return &Service{store: store, fallback: fallback}
}

// DeviceLimit returns the stored limit, or the configured fallback when nothing
// usable is stored or the store cannot be read.
func (s *Service) DeviceLimit(ctx context.Context) int {
	raw, err := s.store.GetSetting(ctx, account.SettingDeviceLimit)
	if err != nil {
		if !errors.Is(err, account.ErrAttributeNotFound) {
			slog.Warn("Failed to read device limit, using default", "default", s.fallback, "error", err)
		}
		return s.fallback
	}

	n, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil || n < 1 {
		slog.Warn("Ignoring invalid stored device limit", "value", string(raw))
		return s.fallback
	}
	return n
}

// SetDeviceLimit stores a new limit; it must be a positive integer
func (s *Service) SetDeviceLimit(ctx context.Context, n int) error {
	if n < 1 {
		return dlerrors.InvalidInput("device limit", "must be a positive integer")
	}
	if err := s.store.SetSetting(ctx, account.SettingDeviceLimit, []byte(strconv.Itoa(n))); err != nil {
		return dlerrors.InternalWrap(err, "failed to store device limit")
	}
	slog.Info("Device limit updated", "limit", n)
	return nil
}
