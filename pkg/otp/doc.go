// Package otp manages the single pending one-time-passcode challenge of an account.
//
// An account holds at most one challenge. Issuing a new one overwrites the old one, so
// only the most recent code can ever verify. Expiry is checked lazily against the
// creation time whenever the challenge is read; nothing sweeps stale entries.
package otp
