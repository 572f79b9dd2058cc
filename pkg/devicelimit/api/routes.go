package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes mounts the verification page and the device API on r. limit, when
// given, wraps the code submission endpoint.
func (h *Handle) Routes(r chi.Router, limit ...func(http.Handler) http.Handler) {
	r.Get(h.verifyPath, h.GetVerify)
	r.With(limit...).Post(h.verifyPath, h.PostVerify)

	r.Route("/api/admin", func(r chi.Router) {
		r.Get("/accounts/{accountID}/devices", h.ListAccountDevices)
		r.Post("/accounts/{accountID}/reset", h.ResetDevices)
		r.Post("/devices/delete", h.DeleteDevice)
		r.Get("/settings/device-limit", h.GetDeviceLimit)
		r.Put("/settings/device-limit", h.PutDeviceLimit)
	})

	r.Get("/api/me/devices", h.ListMyDevices)
}

// Handler returns a standalone router serving h
func Handler(h *Handle) http.Handler {
	r := chi.NewRouter()
	h.Routes(r)
	return r
}
