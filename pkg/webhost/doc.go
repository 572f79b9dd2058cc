// Package webhost is a small host application around the device login limit:
// password login, a signed session cookie and the Host implementation the
// device API needs.
package webhost
