package deviceid

import (
	"net/http"
	"time"
)

// DefaultCookieName is the name of the cookie holding the device token
const DefaultCookieName = "dll_device_id"

// CookieTokenStore keeps the device token in a long-lived HTTP cookie
type CookieTokenStore struct {
	Request  *http.Request
	Writer   http.ResponseWriter
	Name     string
	Path     string
	HttpOnly bool
	// Secure forces the Secure flag even when the request did not arrive over TLS
	Secure   bool
	SameSite http.SameSite
}

// NewCookieTokenStore creates a cookie store bound to a single request/response pair
func NewCookieTokenStore(w http.ResponseWriter, r *http.Request, name string, secure bool) *CookieTokenStore {
	if name == "" {
		name = DefaultCookieName
	}
	return &CookieTokenStore{
		Request:  r,
		Writer:   w,
		Name:     name,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// Token returns the cookie value if the client presented one
func (c *CookieTokenStore) Token() (string, bool) {
	if c.Request == nil {
		return "", false
	}
	cookie, err := c.Request.Cookie(c.Name)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}

// SetToken writes the device cookie on the response
func (c *CookieTokenStore) SetToken(value string, expires time.Time) error {
	if c.Writer == nil {
		return errNoWriter
	}
	cookie := &http.Cookie{
		Name:     c.Name,
		Path:     c.Path,
		Value:    value,
		Expires:  expires,
		HttpOnly: c.HttpOnly,
		Secure:   c.Secure || (c.Request != nil && c.Request.TLS != nil),
		SameSite: c.SameSite,
	}

	http.SetCookie(c.Writer, cookie)
	return nil
}

// MemoryTokenStore is a TokenStore backed by a plain field, used by tools and tests
type MemoryTokenStore struct {
	Value   string
	Expires time.Time
	Err     error
}

func (m *MemoryTokenStore) Token() (string, bool) {
	return m.Value, m.Value != ""
}

func (m *MemoryTokenStore) SetToken(value string, expires time.Time) error {
	if m.Err != nil {
		return m.Err
	}
	m.Value = value
	m.Expires = expires
	return nil
}
