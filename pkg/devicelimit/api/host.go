package api

import (
	"net/http"

	"github.com/tendant/devicelimit/pkg/account"
)

// Host is what the embedding application supplies: who is signed in, what they
// may do, how a session is started and how forgery-prevention tokens work.
type Host interface {
	// AccountID returns the signed-in account id, or "" when signed out
	AccountID(r *http.Request) string
	// CanManageDevices reports whether the caller may use the admin endpoints
	CanManageDevices(r *http.Request) bool
	// SignIn starts a session for acct after its device has been verified
	SignIn(w http.ResponseWriter, r *http.Request, acct account.Account) error

	IssueToken(action, subject string) (string, error)
	VerifyToken(raw, action, subject string) error
}
