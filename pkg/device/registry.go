package device

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tendant/devicelimit/pkg/account"
)

// Registry is the per-account list of approved devices, stored whole as a
// single account attribute. Every mutation is a read-modify-write of the full list.
type Registry struct {
	store account.Store
}

func NewRegistry(store account.Store) *Registry {
	return &Registry{store: store}
}

// List returns the stored records in approval order, or an empty slice if none exist
func (r *Registry) List(ctx context.Context, accountID string) ([]Record, error) {
	raw, err := r.store.GetAttribute(ctx, accountID, account.AttrAllowedDevices)
	if err != nil {
		if errors.Is(err, account.ErrAttributeNotFound) {
			return []Record{}, nil
		}
		return nil, fmt.Errorf("failed to read device list: %w", err)
	}

	var records []Record
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &records); err != nil {
			slog.Warn("Ignoring unreadable device list", "accountID", accountID, "error", err)
			return []Record{}, nil
		}
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}

// Contains reports whether any record carries deviceID
func (r *Registry) Contains(ctx context.Context, accountID, deviceID string) (bool, error) {
	if deviceID == "" {
		return false, nil
	}
	records, err := r.List(ctx, accountID)
	if err != nil {
		return false, err
	}
	for _, rec := range records {
		if rec.ID == deviceID {
			return true, nil
		}
	}
	return false, nil
}

// Approve appends rec to the list. Re-approving an id appends a second record.
func (r *Registry) Approve(ctx context.Context, accountID string, rec Record) error {
	records, err := r.List(ctx, accountID)
	if err != nil {
		return err
	}
	if rec.Status == "" {
		rec.Status = StatusApproved
	}
	records = append(records, rec)
	if err := r.save(ctx, accountID, records); err != nil {
		return err
	}
	slog.Info("Device approved", "accountID", accountID, "deviceID", rec.ID, "class", rec.Class)
	return nil
}

// Remove drops every record with deviceID and returns how many were removed.
// An absent id is a no-op.
func (r *Registry) Remove(ctx context.Context, accountID, deviceID string) (int, error) {
	records, err := r.List(ctx, accountID)
	if err != nil {
		return 0, err
	}

	kept := make([]Record, 0, len(records))
	for _, rec := range records {
		if rec.ID != deviceID {
			kept = append(kept, rec)
		}
	}
	removed := len(records) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	if err := r.save(ctx, accountID, kept); err != nil {
		return 0, err
	}
	slog.Info("Device removed", "accountID", accountID, "deviceID", deviceID, "removed", removed)
	return removed, nil
}

// ResetAll clears the entire list
func (r *Registry) ResetAll(ctx context.Context, accountID string) error {
	if err := r.store.DeleteAttribute(ctx, accountID, account.AttrAllowedDevices); err != nil {
		return fmt.Errorf("failed to clear device list: %w", err)
	}
	return nil
}

// CountApproved returns the number of records in approved status
func (r *Registry) CountApproved(ctx context.Context, accountID string) (int, error) {
	records, err := r.List(ctx, accountID)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, rec := range records {
		if rec.Status == StatusApproved {
			n++
		}
	}
	return n, nil
}

func (r *Registry) save(ctx context.Context, accountID string, records []Record) error {
	raw, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to encode device list: %w", err)
	}
	if err := r.store.SetAttribute(ctx, accountID, account.AttrAllowedDevices, raw); err != nil {
		return fmt.Errorf("failed to write device list: %w", err)
	}
	return nil
}
