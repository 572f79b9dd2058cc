// Package device provides the per-account device allow-list.
//
// Each account carries an ordered list of approved device records. A device gets onto
// the list by passing an emailed one-time-passcode challenge (see package otp) or by the
// one-time bootstrap approval, and leaves it only through explicit admin removal or an
// account-level reset. Records are never edited once written.
//
// # Basic Usage
//
//	registry := device.NewRegistry(store)
//
//	known, err := registry.Contains(ctx, acct.ID, deviceID)
//	if known {
//		// admit the login
//	}
//
//	err = registry.Approve(ctx, acct.ID, device.Record{
//		ID:         deviceID,
//		Agent:      userAgent,
//		IPAddress:  clientIP,
//		Class:      device.ClassifyAgent(userAgent),
//		ApprovedAt: time.Now().UTC(),
//	})
//
// # Duplicates
//
// Approve never deduplicates. Approving an id that is already listed appends a second
// record, and Remove drops all of them at once.
package device
