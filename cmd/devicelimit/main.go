// Package main runs the device login limit server: password login gated by a
// per-account device allow-list, e-mailed verification codes for new devices and
// the device administration API.
//
// Configuration is read from the environment (see pkg/config). The default
// in-memory store loses all data on restart; set STORE_TYPE to file, postgres or
// redis for anything else.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/tendant/chi-demo/app"

	"github.com/tendant/devicelimit/pkg/config"
	"github.com/tendant/devicelimit/pkg/device"
	"github.com/tendant/devicelimit/pkg/devicelimit"
	"github.com/tendant/devicelimit/pkg/devicelimit/api"
	"github.com/tendant/devicelimit/pkg/deviceid"
	"github.com/tendant/devicelimit/pkg/otp"
	"github.com/tendant/devicelimit/pkg/policy"
	"github.com/tendant/devicelimit/pkg/ratelimit"
	"github.com/tendant/devicelimit/pkg/webhost"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: true,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	store, closeStore, err := cfg.OpenStore(ctx)
	if err != nil {
		slog.Error("Failed to open account store", "type", cfg.Store.Type, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	mailer, err := cfg.Email.NewMailer()
	if err != nil {
		slog.Error("Failed to create mailer", "host", cfg.Email.Host, "error", err)
		os.Exit(1)
	}

	// Device login services
	registry := device.NewRegistry(store)
	challenges := otp.NewManager(store, otp.WithTTL(cfg.DeviceLimit.OTPTTL))
	limits := policy.NewService(store, cfg.DeviceLimit.DefaultLimit)
	engine := devicelimit.NewEngine(registry, challenges, mailer,
		devicelimit.WithVerifyPath(cfg.DeviceLimit.VerifyPath))
	verifier := devicelimit.NewVerifier(store, registry, challenges)
	admin := devicelimit.NewAdmin(store, registry, challenges)

	// Host application
	session := webhost.NewSession(store, cfg.Session.Secret,
		webhost.WithSessionCookie(cfg.Session.CookieName),
		webhost.WithSessionTTL(cfg.Session.TTL),
		webhost.WithSecureCookies(cfg.Cookie.Secure),
	)
	login := webhost.NewLoginHandle(store, session, engine, limits, deviceid.NewResolver(),
		webhost.WithDeviceCookie(cfg.DeviceLimit.CookieName, cfg.Cookie.Secure),
		webhost.WithLandingURL(cfg.DeviceLimit.LandingURL),
	)
	devices := api.NewHandle(session, verifier, admin, registry, limits,
		api.WithVerifyPath(cfg.DeviceLimit.VerifyPath),
		api.WithLandingURL(cfg.DeviceLimit.LandingURL),
		api.WithDeviceCookie(cfg.DeviceLimit.CookieName),
	)

	server := app.NewApp(app.WithPort(cfg.Server.Port))
	app.RoutesHealthz(server.R)
	app.RoutesHealthzReady(server.R)

	var limit func(http.Handler) http.Handler
	if cfg.RateLimit.Enabled {
		rateLimiter := ratelimit.NewMiddleware(cfg.RateLimit.ToMiddlewareConfig())
		defer rateLimiter.Stop()
		limit = rateLimiter.Handler
		slog.Info("Rate limiting configured", "rps", cfg.RateLimit.RPS, "burst", cfg.RateLimit.Burst)
	}

	webhost.Mount(server.R, session, login, devices, limit)

	slog.Info("Device login limit service ready",
		"port", cfg.Server.Port,
		"store", cfg.Store.Type,
		"deviceLimit", limits.DeviceLimit(ctx),
		"verifyPath", cfg.DeviceLimit.VerifyPath,
	)
	server.Run()
}
