package webhost

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tendant/devicelimit/pkg/devicelimit/api"
)

// Mount wires the login pipeline and the device API behind the session verifier.
// limit, when non-nil, throttles the login and code submission endpoints.
func Mount(r chi.Router, session *Session, login *LoginHandle, devices *api.Handle, limit func(http.Handler) http.Handler) {
	var throttle []func(http.Handler) http.Handler
	if limit != nil {
		throttle = append(throttle, limit)
	}

	r.Group(func(r chi.Router) {
		r.Use(session.Verifier())
		login.Routes(r, throttle...)
		devices.Routes(r, throttle...)
	})
}
