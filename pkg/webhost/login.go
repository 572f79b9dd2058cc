package webhost

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"golang.org/x/crypto/bcrypt"

	"github.com/tendant/devicelimit/pkg/account"
	"github.com/tendant/devicelimit/pkg/devicelimit"
	"github.com/tendant/devicelimit/pkg/deviceid"
	dlerrors "github.com/tendant/devicelimit/pkg/errors"
	"github.com/tendant/devicelimit/pkg/policy"
)

const msgInvalidCredentials = "Invalid username or password"

// LoginResponse is returned when a login is refused
type LoginResponse struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// LoginHandle is the host login pipeline: password check, then the device decision
type LoginHandle struct {
	store        account.Store
	session      *Session
	engine       *devicelimit.Engine
	limits       *policy.Service
	resolver     *deviceid.Resolver
	deviceCookie string
	secure       bool
	landingURL   string
}

// LoginOption configures a LoginHandle
type LoginOption func(*LoginHandle)

func WithDeviceCookie(name string, secure bool) LoginOption {
	return func(h *LoginHandle) {
		if name != "" {
			h.deviceCookie = name
		}
		h.secure = secure
	}
}

func WithLandingURL(url string) LoginOption {
	return func(h *LoginHandle) {
		if url != "" {
			h.landingURL = url
		}
	}
}

func NewLoginHandle(store account.Store, session *Session, engine *devicelimit.Engine, limits *policy.Service, resolver *deviceid.Resolver, opts ...LoginOption) *LoginHandle {
	h := &LoginHandle{
		store:        store,
		session:      session,
		engine:       engine,
		limits:       limits,
		resolver:     resolver,
		deviceCookie: deviceid.DefaultCookieName,
		landingURL:   "/admin",
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func renderRefused(w http.ResponseWriter, r *http.Request, code dlerrors.ErrorCode, message string) {
	render.Status(r, http.StatusUnauthorized)
	render.JSON(w, r, LoginResponse{Status: "error", Code: string(code), Message: message})
}

// checkPassword returns the account when username and password match
func (h *LoginHandle) checkPassword(r *http.Request, username, password string) (account.Account, bool, error) {
	acct, err := h.store.GetByName(r.Context(), username)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound) {
			return account.Account{}, false, nil
		}
		return account.Account{}, false, err
	}
	if acct.PasswordHash == "" {
		return account.Account{}, false, nil
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)); err != nil {
		return account.Account{}, false, nil
	}
	return acct, true, nil
}

// Login handles password logins
// (POST /login, form fields username, password)
func (h *LoginHandle) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		renderRefused(w, r, dlerrors.ErrCodeInvalidInput, "Invalid form")
		return
	}
	username := r.PostFormValue("username")
	password := r.PostFormValue("password")
	if username == "" || password == "" {
		renderRefused(w, r, dlerrors.ErrCodeInvalidCredentials, msgInvalidCredentials)
		return
	}

	acct, ok, err := h.checkPassword(r, username, password)
	if err != nil {
		slog.Error("Failed to look up account", "username", username, "error", err)
		renderRefused(w, r, dlerrors.ErrCodeInternal, "Login is unavailable")
		return
	}
	if !ok {
		slog.Info("Password check failed", "username", username)
		renderRefused(w, r, dlerrors.ErrCodeInvalidCredentials, msgInvalidCredentials)
		return
	}

	tokens := deviceid.NewCookieTokenStore(w, r, h.deviceCookie, h.secure)
	deviceID := h.resolver.Resolve(tokens, r.UserAgent())
	if deviceID == "" {
		renderRefused(w, r, dlerrors.ErrCodeInternal, "Login is unavailable")
		return
	}

	outcome, err := h.engine.Enforce(r.Context(), devicelimit.LoginAttempt{
		Account:     acct,
		Username:    username,
		Client:      deviceid.FromRequest(r, deviceID),
		DeviceLimit: h.limits.DeviceLimit(r.Context()),
	})
	if err != nil {
		slog.Error("Device check failed", "accountID", acct.ID, "error", err)
		renderRefused(w, r, dlerrors.ErrCodeInternal, "Login is unavailable")
		return
	}

	switch outcome.Kind {
	case devicelimit.Allow:
		if err := h.session.SignIn(w, r, acct); err != nil {
			slog.Error("Failed to start session", "accountID", acct.ID, "error", err)
			renderRefused(w, r, dlerrors.ErrCodeInternal, "Login is unavailable")
			return
		}
		http.Redirect(w, r, h.landingURL, http.StatusSeeOther)
	case devicelimit.Redirect:
		http.Redirect(w, r, outcome.Location(), http.StatusSeeOther)
	default:
		renderRefused(w, r, outcome.Err.Code, outcome.Err.Message)
	}
}

// Logout ends the session
// (POST /logout)
func (h *LoginHandle) Logout(w http.ResponseWriter, r *http.Request) {
	h.session.SignOut(w, r)
	w.WriteHeader(http.StatusNoContent)
}

// MeResponse describes the signed-in account
type MeResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Admin    bool   `json:"admin"`
}

// Me returns the signed-in account
// (GET /api/me)
func (h *LoginHandle) Me(w http.ResponseWriter, r *http.Request) {
	accountID := h.session.AccountID(r)
	if accountID == "" {
		renderRefused(w, r, dlerrors.ErrCodeUnauthorized, "Authentication required")
		return
	}
	acct, err := h.store.GetByID(r.Context(), accountID)
	if err != nil {
		renderRefused(w, r, dlerrors.ErrCodeUnauthorized, "Authentication required")
		return
	}
	render.JSON(w, r, MeResponse{ID: acct.ID, Username: acct.Username, Email: acct.Email, Admin: acct.Admin})
}

// Routes mounts login, logout and the current account endpoint on r. limit,
// when given, wraps the login endpoint.
func (h *LoginHandle) Routes(r chi.Router, limit ...func(http.Handler) http.Handler) {
	r.With(limit...).Post("/login", h.Login)
	r.Post("/logout", h.Logout)
	r.Get("/api/me", h.Me)
}
