package webhost

import (
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/tendant/devicelimit/pkg/account"
	"github.com/tendant/devicelimit/pkg/csrf"
	"github.com/tendant/devicelimit/pkg/devicelimit/api"
)

const (
	DefaultSessionCookie = "jwt"
	DefaultSessionTTL    = 12 * time.Hour
)

// tokenType is the typ claim every session token must carry
const tokenType = "session"

var _ api.Host = (*Session)(nil)

// Session signs accounts in with an HS256 cookie and answers the device API's
// questions about the current caller.
type Session struct {
	store      account.Store
	auth       *jwtauth.JWTAuth
	tokens     *csrf.Tokens
	cookieName string
	ttl        time.Duration
	secure     bool
	now        func() time.Time
}

// SessionOption configures a Session
type SessionOption func(*Session)

func WithSessionCookie(name string) SessionOption {
	return func(s *Session) {
		if name != "" {
			s.cookieName = name
		}
	}
}

func WithSessionTTL(ttl time.Duration) SessionOption {
	return func(s *Session) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithSecureCookies forces the Secure flag on the session cookie
func WithSecureCookies(secure bool) SessionOption {
	return func(s *Session) {
		s.secure = secure
	}
}

func NewSession(store account.Store, secret string, opts ...SessionOption) *Session {
	s := &Session{
		store:      store,
		auth:       jwtauth.New("HS256", []byte(secret), nil),
		tokens:     csrf.NewTokens(deriveKey(secret, "csrf"), csrf.DefaultTTL),
		cookieName: DefaultSessionCookie,
		ttl:        DefaultSessionTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// deriveKey gives each token family its own HMAC key from the configured secret
func deriveKey(secret, purpose string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(purpose))
	return string(mac.Sum(nil))
}

// Verifier loads the session token from the Authorization header or the session
// cookie into the request context. Requests without a valid token pass through
// signed out.
func (s *Session) Verifier() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return jwtauth.Verify(s.auth, jwtauth.TokenFromHeader, s.tokenFromCookie)(next)
	}
}

func (s *Session) tokenFromCookie(r *http.Request) string {
	cookie, err := r.Cookie(s.cookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// AccountID returns the subject of a verified session token
func (s *Session) AccountID(r *http.Request) string {
	token, claims, err := jwtauth.FromContext(r.Context())
	if err != nil || token == nil {
		return ""
	}
	if typ, _ := claims["typ"].(string); typ != tokenType {
		return ""
	}
	sub, _ := claims["sub"].(string)
	return sub
}

// CanManageDevices is true for signed-in administrators. The flag is read from
// the store so a revoked administrator loses access before the session expires.
func (s *Session) CanManageDevices(r *http.Request) bool {
	accountID := s.AccountID(r)
	if accountID == "" {
		return false
	}
	acct, err := s.store.GetByID(r.Context(), accountID)
	if err != nil {
		if !errors.Is(err, account.ErrAccountNotFound) {
			slog.Error("Failed to look up session account", "accountID", accountID, "error", err)
		}
		return false
	}
	return acct.Admin
}

// SignIn sets the session cookie for acct
func (s *Session) SignIn(w http.ResponseWriter, r *http.Request, acct account.Account) error {
	now := s.now()
	claims := map[string]interface{}{
		"sub":      acct.ID,
		"username": acct.Username,
		"typ":      tokenType,
	}
	jwtauth.SetIssuedAt(claims, now)
	jwtauth.SetExpiry(claims, now.Add(s.ttl))

	_, tokenString, err := s.auth.Encode(claims)
	if err != nil {
		return fmt.Errorf("failed to sign session token: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    tokenString,
		Path:     "/",
		Expires:  now.Add(s.ttl),
		HttpOnly: true,
		Secure:   s.secure || r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	slog.Info("Session started", "accountID", acct.ID)
	return nil
}

// SignOut expires the session cookie
func (s *Session) SignOut(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure || r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Session) IssueToken(action, subject string) (string, error) {
	return s.tokens.Issue(action, subject)
}

func (s *Session) VerifyToken(raw, action, subject string) error {
	return s.tokens.Verify(raw, action, subject)
}
