package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/tendant/devicelimit/pkg/csrf"
	"github.com/tendant/devicelimit/pkg/device"
	"github.com/tendant/devicelimit/pkg/devicelimit"
	"github.com/tendant/devicelimit/pkg/deviceid"
	dlerrors "github.com/tendant/devicelimit/pkg/errors"
	"github.com/tendant/devicelimit/pkg/policy"
)

// DefaultLandingURL is where a verified or already-approved caller is sent
const DefaultLandingURL = "/admin"

var validate = validator.New()

// Handle serves the verification page and the device administration endpoints
type Handle struct {
	host       Host
	verifier   *devicelimit.Verifier
	admin      *devicelimit.Admin
	registry   *device.Registry
	limits     *policy.Service
	verifyPath string
	landingURL string
	cookieName string
}

// Option configures a Handle
type Option func(*Handle)

func WithVerifyPath(path string) Option {
	return func(h *Handle) {
		if path != "" {
			h.verifyPath = path
		}
	}
}

func WithLandingURL(url string) Option {
	return func(h *Handle) {
		if url != "" {
			h.landingURL = url
		}
	}
}

// WithDeviceCookie names the cookie the device id is read from
func WithDeviceCookie(name string) Option {
	return func(h *Handle) {
		if name != "" {
			h.cookieName = name
		}
	}
}

func NewHandle(host Host, verifier *devicelimit.Verifier, admin *devicelimit.Admin, registry *device.Registry, limits *policy.Service, opts ...Option) *Handle {
	h := &Handle{
		host:       host,
		verifier:   verifier,
		admin:      admin,
		registry:   registry,
		limits:     limits,
		verifyPath: devicelimit.DefaultVerifyPath,
		landingURL: DefaultLandingURL,
		cookieName: deviceid.DefaultCookieName,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// presentedDeviceID reads the device cookie without minting a new one
func (h *Handle) presentedDeviceID(r *http.Request) string {
	store := deviceid.CookieTokenStore{Request: r, Name: h.cookieName}
	raw, ok := store.Token()
	if !ok {
		return ""
	}
	return deviceid.Normalize(raw)
}

func (h *Handle) renderPrompt(w http.ResponseWriter, r *http.Request, status int, result devicelimit.VerifyResult) {
	token, err := h.host.IssueToken(csrf.ActionVerifyDevice, result.Account.ID)
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.Status(r, status)
	render.JSON(w, r, VerifyResponse{
		Username:  result.Account.Username,
		CSRFToken: token,
		Message:   result.Message,
	})
}

// GetVerify renders the code entry form state
// (GET {verifyPath}?log=username). The form token is handed to any caller
// naming a pending account, so it guards against cross-site submission only.
// The emailed code is what authorizes the device.
func (h *Handle) GetVerify(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("log")
	result, err := h.verifier.Prepare(r.Context(), username, h.presentedDeviceID(r), h.host.AccountID(r))
	if err != nil {
		renderError(w, r, err)
		return
	}

	switch result.State {
	case devicelimit.StateInert:
		w.WriteHeader(http.StatusNoContent)
	case devicelimit.StateAlreadyApproved:
		http.Redirect(w, r, h.landingURL, http.StatusSeeOther)
	default:
		h.renderPrompt(w, r, http.StatusOK, result)
	}
}

// PostVerify accepts a submitted code
// (POST {verifyPath}, form fields log, code, csrf_token)
func (h *Handle) PostVerify(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		renderErrorResponse(w, r, http.StatusBadRequest, dlerrors.ErrCodeInvalidInput, "Invalid form")
		return
	}
	username := r.PostFormValue("log")

	prepared, err := h.verifier.Prepare(r.Context(), username, "", "")
	if err != nil {
		renderError(w, r, err)
		return
	}
	if prepared.State == devicelimit.StateInert {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if err := h.host.VerifyToken(r.PostFormValue("csrf_token"), csrf.ActionVerifyDevice, prepared.Account.ID); err != nil {
		slog.Warn("Rejected device verification with bad token", "accountID", prepared.Account.ID, "error", err)
		renderErrorResponse(w, r, http.StatusForbidden, dlerrors.ErrCodeTokenInvalid, "Security check failed")
		return
	}

	result, err := h.verifier.Submit(r.Context(), username, r.PostFormValue("code"))
	if err != nil {
		renderError(w, r, err)
		return
	}

	switch result.State {
	case devicelimit.StateApproved:
		if err := h.host.SignIn(w, r, result.Account); err != nil {
			renderError(w, r, err)
			return
		}
		slog.Info("Device verified", "accountID", result.Account.ID, "deviceID", result.Record.ID)
		http.Redirect(w, r, h.landingURL, http.StatusSeeOther)
	case devicelimit.StateRetry:
		h.renderPrompt(w, r, http.StatusUnauthorized, result)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

// requireAdmin returns the caller's account id, or writes 401/403 and returns ""
func (h *Handle) requireAdmin(w http.ResponseWriter, r *http.Request) string {
	callerID := h.host.AccountID(r)
	if callerID == "" {
		renderErrorResponse(w, r, http.StatusUnauthorized, dlerrors.ErrCodeUnauthorized, "Authentication required")
		return ""
	}
	if !h.host.CanManageDevices(r) {
		renderErrorResponse(w, r, http.StatusForbidden, dlerrors.ErrCodeForbidden, "Insufficient permissions")
		return ""
	}
	return callerID
}

func (h *Handle) listResponse(accountID string, records []device.Record) (ListDevicesResponse, error) {
	devices, err := toDeviceResponses(records)
	if err != nil {
		return ListDevicesResponse{}, err
	}
	return ListDevicesResponse{AccountID: accountID, Devices: devices}, nil
}

// ListAccountDevices lists the approved devices of any account
// (GET /api/admin/accounts/{accountID}/devices)
func (h *Handle) ListAccountDevices(w http.ResponseWriter, r *http.Request) {
	callerID := h.requireAdmin(w, r)
	if callerID == "" {
		return
	}
	accountID := chi.URLParam(r, "accountID")

	records, err := h.admin.ListDevices(r.Context(), accountID)
	if err != nil {
		renderError(w, r, err)
		return
	}
	response, err := h.listResponse(accountID, records)
	if err != nil {
		renderError(w, r, err)
		return
	}
	if response.DeleteToken, err = h.host.IssueToken(csrf.ActionDeleteDevice, callerID); err != nil {
		renderError(w, r, err)
		return
	}
	if response.ResetToken, err = h.host.IssueToken(csrf.ActionResetDevices, callerID); err != nil {
		renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, response)
}

// DeleteDevice removes one device from an account
// (POST /api/admin/devices/delete)
func (h *Handle) DeleteDevice(w http.ResponseWriter, r *http.Request) {
	callerID := h.host.AccountID(r)
	if callerID == "" {
		renderAction(w, r, http.StatusUnauthorized, false, "Authentication required")
		return
	}

	var req DeleteDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderAction(w, r, http.StatusBadRequest, false, "Invalid request body")
		return
	}

	// Forgery and privilege checks come before anything is read or changed
	if err := h.host.VerifyToken(req.CSRFToken, csrf.ActionDeleteDevice, callerID); err != nil {
		slog.Warn("Rejected device removal with bad token", "callerID", callerID, "error", err)
		renderAction(w, r, http.StatusForbidden, false, "Security check failed")
		return
	}
	if !h.host.CanManageDevices(r) {
		renderAction(w, r, http.StatusForbidden, false, "Insufficient permissions")
		return
	}

	if err := validate.Struct(&req); err != nil {
		renderAction(w, r, http.StatusBadRequest, false, devicelimit.MsgMissingData)
		return
	}

	if err := h.admin.RemoveDevice(r.Context(), req.AccountID, req.DeviceID); err != nil {
		var e *dlerrors.Error
		if errors.As(err, &e) && e.Code != dlerrors.ErrCodeInternal {
			renderAction(w, r, e.HTTPStatusCode(), false, e.Message)
			return
		}
		slog.Error("Failed to delete device", "accountID", req.AccountID, "error", err)
		renderAction(w, r, http.StatusInternalServerError, false, "Failed to delete device")
		return
	}

	renderAction(w, r, http.StatusOK, true, devicelimit.MsgDeviceDeleted)
}

// ResetDevices clears an account's devices and pending challenge
// (POST /api/admin/accounts/{accountID}/reset)
func (h *Handle) ResetDevices(w http.ResponseWriter, r *http.Request) {
	callerID := h.requireAdmin(w, r)
	if callerID == "" {
		return
	}

	var req ResetDevicesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderAction(w, r, http.StatusBadRequest, false, "Invalid request body")
		return
	}
	if err := h.host.VerifyToken(req.CSRFToken, csrf.ActionResetDevices, callerID); err != nil {
		renderAction(w, r, http.StatusForbidden, false, "Security check failed")
		return
	}

	if err := h.admin.ResetAccount(r.Context(), chi.URLParam(r, "accountID")); err != nil {
		renderError(w, r, err)
		return
	}
	renderAction(w, r, http.StatusOK, true, devicelimit.MsgDevicesReset)
}

// GetDeviceLimit reports the global device limit
// (GET /api/admin/settings/device-limit)
func (h *Handle) GetDeviceLimit(w http.ResponseWriter, r *http.Request) {
	callerID := h.requireAdmin(w, r)
	if callerID == "" {
		return
	}
	token, err := h.host.IssueToken(csrf.ActionSetLimit, callerID)
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.Status(r, http.StatusOK)
	render.JSON(w, r, DeviceLimitResponse{
		DeviceLimit: h.limits.DeviceLimit(r.Context()),
		CSRFToken:   token,
	})
}

// PutDeviceLimit stores a new global device limit
// (PUT /api/admin/settings/device-limit)
func (h *Handle) PutDeviceLimit(w http.ResponseWriter, r *http.Request) {
	callerID := h.requireAdmin(w, r)
	if callerID == "" {
		return
	}

	var req DeviceLimitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderErrorResponse(w, r, http.StatusBadRequest, dlerrors.ErrCodeInvalidInput, "Invalid request body")
		return
	}
	if err := h.host.VerifyToken(req.CSRFToken, csrf.ActionSetLimit, callerID); err != nil {
		renderErrorResponse(w, r, http.StatusForbidden, dlerrors.ErrCodeTokenInvalid, "Security check failed")
		return
	}
	if err := validate.Struct(&req); err != nil {
		renderErrorResponse(w, r, http.StatusBadRequest, dlerrors.ErrCodeInvalidInput, "Device limit must be a positive integer")
		return
	}

	if err := h.limits.SetDeviceLimit(r.Context(), req.DeviceLimit); err != nil {
		renderError(w, r, err)
		return
	}
	slog.Info("Device limit updated", "limit", req.DeviceLimit, "callerID", callerID)

	render.Status(r, http.StatusOK)
	render.JSON(w, r, DeviceLimitResponse{DeviceLimit: h.limits.DeviceLimit(r.Context())})
}

// ListMyDevices lists the caller's own approved devices
// (GET /api/me/devices)
func (h *Handle) ListMyDevices(w http.ResponseWriter, r *http.Request) {
	callerID := h.host.AccountID(r)
	if callerID == "" {
		renderErrorResponse(w, r, http.StatusUnauthorized, dlerrors.ErrCodeUnauthorized, "Authentication required")
		return
	}

	records, err := h.registry.List(r.Context(), callerID)
	if err != nil {
		renderError(w, r, dlerrors.InternalWrap(err, "failed to list devices"))
		return
	}
	response, err := h.listResponse(callerID, records)
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.Status(r, http.StatusOK)
	render.JSON(w, r, response)
}
