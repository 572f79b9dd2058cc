// Package notification sends mail for the device login flow.
//
// EmailNotifier talks SMTP through go-mail. MockMailer captures messages for tests and
// for local runs without a relay.
package notification
