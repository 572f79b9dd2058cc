package ratelimit

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/render"
)

// Config holds rate limiting configuration
type Config struct {
	// Per-IP rate limiting
	PerIPEnabled bool
	PerIPBurst   int
	PerIPRate    float64 // Requests per second

	// Bucket TTL (how long to keep inactive buckets in memory)
	BucketTTL time.Duration

	// Headers to include in response
	IncludeHeaders bool
}

// DefaultConfig limits each client to a burst of 10 and one request every six seconds after that
func DefaultConfig() *Config {
	return &Config{
		PerIPEnabled:   true,
		PerIPBurst:     10,
		PerIPRate:      10.0 / 60.0,
		BucketTTL:      1 * time.Hour,
		IncludeHeaders: true,
	}
}

// Middleware holds the rate limiting middleware state
type Middleware struct {
	config    *Config
	ipLimiter *RateLimiter
}

// NewMiddleware creates a new rate limiting middleware
func NewMiddleware(config *Config) *Middleware {
	if config == nil {
		config = DefaultConfig()
	}

	m := &Middleware{config: config}
	if config.PerIPEnabled {
		m.ipLimiter = NewRateLimiter(config.PerIPBurst, config.PerIPRate, config.BucketTTL)
	}
	return m
}

// Stop releases the limiter's background cleanup
func (m *Middleware) Stop() {
	if m.ipLimiter != nil {
		m.ipLimiter.Stop()
	}
}

// Handler returns the rate limiting middleware handler
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if m.ipLimiter != nil && ip != "" && !m.ipLimiter.Allow(ip) {
			m.rateLimitExceeded(w, r, ip)
			return
		}

		if m.config.IncludeHeaders && m.ipLimiter != nil {
			w.Header().Set("X-RateLimit-Limit-IP", fmt.Sprintf("%d", m.config.PerIPBurst))
		}

		next.ServeHTTP(w, r)
	})
}

type exceededResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (m *Middleware) rateLimitExceeded(w http.ResponseWriter, r *http.Request, ip string) {
	slog.Warn("Rate limit exceeded",
		"ip", ip,
		"path", r.URL.Path,
		"method", r.Method,
	)

	w.Header().Set("Retry-After", "60")
	render.Status(r, http.StatusTooManyRequests)
	render.JSON(w, r, exceededResponse{
		Error:   "rate_limit_exceeded",
		Message: "Too many requests. Please try again later.",
	})
}

// clientIP is the request's remote address without the port
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
