package devicelimit

import (
	"net/url"

	dlerrors "github.com/tendant/devicelimit/pkg/errors"
)

// Kind is the decision the engine hands back to the host login pipeline
type Kind int

const (
	// Allow admits the login
	Allow Kind = iota
	// Redirect sends the client to the verification page
	Redirect
	// Reject refuses the login with a user-visible error
	Reject
)

func (k Kind) String() string {
	switch k {
	case Allow:
		return "allow"
	case Redirect:
		return "redirect"
	case Reject:
		return "reject"
	default:
		return "unknown"
	}
}

// Outcome of a login attempt
type Outcome struct {
	Kind   Kind
	Target string
	Query  url.Values
	Err    *dlerrors.Error
}

// Location is Target with Query appended, for use in a Location header
func (o Outcome) Location() string {
	if len(o.Query) == 0 {
		return o.Target
	}
	return o.Target + "?" + o.Query.Encode()
}

func allowed() Outcome {
	return Outcome{Kind: Allow}
}

func redirectTo(path, username string) Outcome {
	return Outcome{
		Kind:   Redirect,
		Target: path,
		Query:  url.Values{"log": []string{username}},
	}
}

func rejected(err *dlerrors.Error) Outcome {
	return Outcome{Kind: Reject, Err: err}
}
