package deviceid

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"strings"
	"time"
	"unicode"
)

const (
	// DefaultLifetime is how long a freshly issued device token is kept by the client
	DefaultLifetime = 365 * 24 * time.Hour

	// MaxTokenLength caps the length of a client-presented token after normalization
	MaxTokenLength = 128

	entropyBytes = 32
)

// TokenStore is the client-side slot holding the device token, usually a cookie
type TokenStore interface {
	// Token returns the presented token and whether one was presented at all
	Token() (string, bool)
	// SetToken asks the client to keep value until expires
	SetToken(value string, expires time.Time) error
}

// Resolver derives a stable device id for the client making a request
type Resolver struct {
	lifetime time.Duration
	random   io.Reader
	now      func() time.Time
}

// Option configures a Resolver
type Option func(*Resolver)

// WithLifetime overrides the persisted token lifetime
func WithLifetime(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.lifetime = d
		}
	}
}

// WithRandom sets the entropy source used for new ids
func WithRandom(reader io.Reader) Option {
	return func(r *Resolver) {
		r.random = reader
	}
}

// WithClock sets the clock used to compute token expiry
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		r.now = now
	}
}

func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		lifetime: DefaultLifetime,
		random:   rand.Reader,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the device id presented by store, or mints and persists a new one.
// A failure to persist the new token is logged; the id is still returned for this request.
func (r *Resolver) Resolve(store TokenStore, agent string) string {
	if store != nil {
		if raw, ok := store.Token(); ok {
			if id := Normalize(raw); id != "" {
				return id
			}
		}
	}

	id, err := r.Generate(agent)
	if err != nil {
		// Entropy failure leaves us with nothing stable to hand out
		slog.Error("Failed to generate device id", "error", err)
		return ""
	}

	if store != nil {
		if err := store.SetToken(id, r.now().Add(r.lifetime)); err != nil {
			slog.Warn("Failed to persist device token", "error", err)
		}
	}
	return id
}

// Generate hashes 256 bits of fresh entropy together with the agent into a hex id
func (r *Resolver) Generate(agent string) (string, error) {
	buf := make([]byte, entropyBytes)
	if _, err := io.ReadFull(r.random, buf); err != nil {
		return "", err
	}

	h := sha256.New()
	h.Write(buf)
	h.Write([]byte(agent))
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Normalize strips whitespace, control and non-printable characters from a
// client-supplied token and caps its length.
func Normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	n := 0
	for _, c := range raw {
		if n >= MaxTokenLength {
			break
		}
		if unicode.IsSpace(c) || unicode.IsControl(c) || !unicode.IsPrint(c) || c == unicode.ReplacementChar {
			continue
		}
		b.WriteRune(c)
		n++
	}
	return b.String()
}
