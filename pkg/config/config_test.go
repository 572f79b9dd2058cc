package config

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/devicelimit/pkg/account"
	"github.com/tendant/devicelimit/pkg/notification"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "inmem", cfg.Store.Type)
	assert.Equal(t, 3, cfg.DeviceLimit.DefaultLimit)
	assert.Equal(t, "/verify-device", cfg.DeviceLimit.VerifyPath)
	assert.Equal(t, "/admin", cfg.DeviceLimit.LandingURL)
	assert.Equal(t, "dll_device_id", cfg.DeviceLimit.CookieName)
	assert.Equal(t, 10*time.Minute, cfg.DeviceLimit.OTPTTL)
	assert.Equal(t, 12*time.Hour, cfg.Session.TTL)
	assert.True(t, cfg.Cookie.HttpOnly)
	assert.Equal(t, 4000, cfg.Server.Port)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("DEVICE_LIMIT", "5")
	t.Setenv("STORE_TYPE", "redis")
	t.Setenv("REDIS_ADDR", "cache:6379")
	t.Setenv("EMAIL_HOST", "smtp.example.com")
	t.Setenv("EMAIL_PORT", "587")
	t.Setenv("RATE_LIMIT_BURST", "3")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.DeviceLimit.DefaultLimit)
	assert.Equal(t, "redis", cfg.Store.Type)
	assert.Equal(t, "cache:6379", cfg.Redis.ToOptions().Addr)

	smtp := cfg.Email.ToSMTPConfig()
	assert.Equal(t, "smtp.example.com", smtp.Host)
	assert.Equal(t, 587, smtp.Port)

	rl := cfg.RateLimit.ToMiddlewareConfig()
	assert.Equal(t, 3, rl.PerIPBurst)
	assert.True(t, rl.PerIPEnabled)
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Setenv("DEVICE_LIMIT", "0")
	t.Setenv("STORE_TYPE", "mysql")
	t.Setenv("SESSION_SECRET", "short")

	_, err := Load()
	require.Error(t, err)

	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	fields := make([]string, 0, len(verrs))
	for _, e := range verrs {
		fields = append(fields, e.Field)
	}
	assert.Contains(t, fields, "DEVICE_LIMIT")
	assert.Contains(t, fields, "STORE_TYPE")
	assert.Contains(t, fields, "SESSION_SECRET")
}

func TestValidate_PostgresGroup(t *testing.T) {
	t.Setenv("STORE_TYPE", "postgres")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "localhost", cfg.Database.ToDbConfig().Host)

	cfg.Database.Host = ""
	cfg.Database.Port = 0
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DEVICELIMIT_PG_HOST")
	assert.Contains(t, err.Error(), "DEVICELIMIT_PG_PORT")

	// The redis group is not checked for a postgres store
	cfg.Database = DatabaseConfig{Host: "db", Port: 5432, Database: "dl", User: "u"}
	cfg.Redis.Addr = ""
	assert.NoError(t, cfg.Validate())
}

func TestDatabaseURL(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, Database: "dl", User: "u", Password: "p", Schema: "public"}
	assert.Equal(t, "postgres://u:p@db:5432/dl?sslmode=disable&search_path=public,public", d.ToDatabaseURL())
}

func TestEmailValidation(t *testing.T) {
	e := EmailConfig{Host: "smtp", Port: 25, From: "not-an-email"}
	errs := e.validate()
	require.Len(t, errs, 1)
	assert.Equal(t, "EMAIL_FROM", errs[0].Field)

	e.Mock = true
	assert.Empty(t, e.validate())
}

func TestValidationErrors_Messages(t *testing.T) {
	errs := checkStruct(DeviceLimitConfig{DefaultLimit: 0, VerifyPath: "verify", LandingURL: "/", CookieName: "c"})
	require.Len(t, errs, 3)
	assert.True(t, errs.HasErrors())

	byField := map[string]string{}
	for _, e := range errs {
		byField[e.Field] = e.Message
	}
	assert.Equal(t, "must be at least 1, got 0", byField["DEVICE_LIMIT"])
	assert.Contains(t, byField, "VERIFY_PATH")
	assert.Contains(t, byField["DEVICE_OTP_TTL"], "must be greater than 0")

	assert.Contains(t, errs.Error(), "configuration validation failed:")
	assert.Equal(t, "DEVICE_LIMIT: must be at least 1, got 0", errs[:1].Error())
	assert.Nil(t, checkStruct(ServerConfig{Port: 8080}))
}

func TestValidate_FileStoreNeedsDataDir(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	cfg.Store = StoreConfig{Type: "file"}
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATA_DIR: is required")

	cfg.Store.Type = "inmem"
	assert.NoError(t, cfg.Validate())
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	cfg := Config{Store: StoreConfig{Type: "inmem"}}
	store, closeFn, err := cfg.OpenStore(ctx)
	require.NoError(t, err)
	defer closeFn()
	assert.IsType(t, &account.InMemStore{}, store)

	cfg.Store = StoreConfig{Type: "file", DataDir: t.TempDir()}
	store, closeFn, err = cfg.OpenStore(ctx)
	require.NoError(t, err)
	defer closeFn()
	assert.IsType(t, &account.FileStore{}, store)

	cfg.Store = StoreConfig{Type: "mysql"}
	_, closeFn, err = cfg.OpenStore(ctx)
	require.Error(t, err)
	closeFn()
}

func TestNewMailer_Mock(t *testing.T) {
	mailer, err := EmailConfig{Mock: true}.NewMailer()
	require.NoError(t, err)
	assert.IsType(t, notification.LogMailer{}, mailer)
	assert.NoError(t, mailer.Send(context.Background(), "a@example.com", "s", "b"))
}
