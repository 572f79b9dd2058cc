package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"github.com/tendant/devicelimit/pkg/ratelimit"
)

// StoreConfig selects the account store backend
type StoreConfig struct {
	Type    string `env:"STORE_TYPE" env-default:"inmem" validate:"oneof=inmem memory file postgres postgresql redis"`
	DataDir string `env:"DATA_DIR" env-default:"./data" validate:"required_if=Type file"`
}

// DeviceLimitConfig holds the device login policy and page locations
type DeviceLimitConfig struct {
	// DefaultLimit applies until an administrator stores a different value
	DefaultLimit int           `env:"DEVICE_LIMIT" env-default:"3" validate:"min=1"`
	VerifyPath   string        `env:"VERIFY_PATH" env-default:"/verify-device" validate:"required,startswith=/"`
	LandingURL   string        `env:"LANDING_URL" env-default:"/admin" validate:"required"`
	CookieName   string        `env:"DEVICE_COOKIE_NAME" env-default:"dll_device_id" validate:"required"`
	OTPTTL       time.Duration `env:"DEVICE_OTP_TTL" env-default:"10m" validate:"gt=0"`
}

// CookieConfig controls flags on cookies set by the server
type CookieConfig struct {
	Secure   bool `env:"COOKIE_SECURE" env-default:"false"`
	HttpOnly bool `env:"COOKIE_HTTP_ONLY" env-default:"true"`
}

// SessionConfig signs session and forgery-prevention tokens
type SessionConfig struct {
	Secret     string        `env:"SESSION_SECRET" env-default:"change-me-in-production" validate:"min=16"`
	TTL        time.Duration `env:"SESSION_TTL" env-default:"12h" validate:"gt=0"`
	CookieName string        `env:"SESSION_COOKIE_NAME" env-default:"jwt" validate:"required"`
}

// RateLimitConfig limits login and verification attempts per client address
type RateLimitConfig struct {
	Enabled bool    `env:"RATE_LIMIT_ENABLED" env-default:"true"`
	RPS     float64 `env:"RATE_LIMIT_RPS" env-default:"0.2" validate:"gt=0"`
	Burst   int     `env:"RATE_LIMIT_BURST" env-default:"10" validate:"min=1"`
}

// ToMiddlewareConfig converts the config to a ratelimit.Config
func (r RateLimitConfig) ToMiddlewareConfig() *ratelimit.Config {
	return &ratelimit.Config{
		PerIPEnabled:   r.Enabled,
		PerIPBurst:     r.Burst,
		PerIPRate:      r.RPS,
		BucketTTL:      time.Hour,
		IncludeHeaders: true,
	}
}

// ServerConfig holds HTTP listener settings
type ServerConfig struct {
	Port int `env:"PORT" env-default:"4000" validate:"min=1,max=65535"`
}

// Config is the full server configuration
type Config struct {
	Server      ServerConfig
	Store       StoreConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Email       EmailConfig
	DeviceLimit DeviceLimitConfig
	Cookie      CookieConfig
	Session     SessionConfig
	RateLimit   RateLimitConfig
}

// Load reads an optional .env file and then the environment into a validated Config
func Load() (Config, error) {
	LoadEnvFile()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every group plus the backend groups the selected store needs
func (c Config) Validate() error {
	var errs ValidationErrors
	for _, group := range []any{c.Server, c.Store, c.DeviceLimit, c.Session} {
		errs = append(errs, checkStruct(group)...)
	}
	errs = append(errs, c.Email.validate()...)

	switch c.Store.Type {
	case "postgres", "postgresql":
		errs = append(errs, c.Database.validate()...)
	case "redis":
		errs = append(errs, c.Redis.validate()...)
	}

	if c.RateLimit.Enabled {
		errs = append(errs, checkStruct(c.RateLimit)...)
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// LoadEnvFile loads .env from the executable's directory or the working directory, if present
func LoadEnvFile() {
	envFile := ".env"
	if execPath, err := os.Executable(); err == nil {
		envFile = filepath.Join(filepath.Dir(execPath), ".env")
	}

	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		cwd, _ := os.Getwd()
		envFile = filepath.Join(cwd, ".env")
	}

	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		slog.Debug("No .env file found (using environment variables or defaults)")
		return
	}

	slog.Info("Loading configuration from .env file", "path", envFile)
	if err := godotenv.Load(envFile); err != nil {
		slog.Warn("Failed to load .env file", "error", err)
	}
}
