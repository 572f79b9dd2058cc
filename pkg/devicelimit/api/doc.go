// Package api exposes the device verification page and device administration
// over HTTP. Session, privilege and forgery-prevention checks are delegated to
// the embedding application through Host.
package api
