// Package devicelimit gates password-verified logins behind a per-account device allow-list.
//
// The host verifies the password, resolves the device id, and calls Engine.Enforce
// with the current device limit. The outcome tells it what to do:
//
//	outcome, err := engine.Enforce(ctx, devicelimit.LoginAttempt{
//		Account:     acct,
//		Username:    username,
//		Client:      deviceid.FromRequest(r, deviceID),
//		DeviceLimit: policySvc.DeviceLimit(ctx),
//	})
//	switch outcome.Kind {
//	case devicelimit.Allow:
//		// establish the session
//	case devicelimit.Redirect:
//		http.Redirect(w, r, outcome.Location(), http.StatusSeeOther)
//	case devicelimit.Reject:
//		// show outcome.Err.Message, stay logged out
//	}
//
// A new device under the limit gets an emailed six digit code. Verifier handles the page
// where that code is entered, and Admin exposes device removal and account reset.
//
// There is no locking. Two new devices logging in to one account at the same time both
// see spare capacity and the later challenge overwrites the earlier one; the loser sees
// an invalid code and has to log in again.
package devicelimit
