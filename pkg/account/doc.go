// Package account is the account store used by the device limit packages.
//
// The device registry, the OTP challenge manager and the device-limit policy all
// keep their state as opaque attribute values on an account (or as global settings),
// read and written whole. Four backends are provided: in-memory, JSON file,
// PostgreSQL and Redis.
//
//	store, err := account.NewStore("postgres", account.StoreConfig{DB: pool})
//	acct, err := store.GetByName(ctx, "admin")
//	raw, err := store.GetAttribute(ctx, acct.ID, account.AttrAllowedDevices)
//	if errors.Is(err, account.ErrAttributeNotFound) {
//		// nothing stored yet
//	}
package account
