// Package main is the one-time activation step for a new installation. It approves
// a first device for the operator account, so the operator can sign in before any
// verification mail has been delivered, and prints the device id to install as
// the device cookie.
//
//	go run ./cmd/bootstrap -username admin
//	go run ./cmd/bootstrap -username admin -device-id <existing cookie value>
//	go run ./cmd/bootstrap -username admin -check-smtp
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/tendant/devicelimit/pkg/bootstrap"
	"github.com/tendant/devicelimit/pkg/config"
	"github.com/tendant/devicelimit/pkg/device"
	"github.com/tendant/devicelimit/pkg/deviceid"
	"github.com/tendant/devicelimit/pkg/notice"
)

func main() {
	username := flag.String("username", "", "Operator account to approve a first device for (required)")
	deviceID := flag.String("device-id", "", "Approve this device id instead of generating one")
	agent := flag.String("agent", "devicelimit-bootstrap", "User agent recorded for the approved device")
	checkSMTP := flag.Bool("check-smtp", false, "Send a test email to the operator account")
	flag.Parse()

	if *username == "" {
		fmt.Println("Error: username is required")
		flag.Usage()
		os.Exit(1)
	}

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

	acct, err := store.GetByName(ctx, *username)
	if err != nil {
		slog.Error("Failed to find operator account", "username", *username, "error", err)
		os.Exit(1)
	}

	if *checkSMTP {
		mailer, err := cfg.Email.NewMailer()
		if err != nil {
			slog.Error("Failed to create mailer", "host", cfg.Email.Host, "error", err)
			os.Exit(1)
		}
		if err := notice.SMTPCheck(ctx, mailer, acct.Email); err != nil {
			slog.Error("SMTP check failed", "to", acct.Email, "error", err)
			os.Exit(1)
		}
		fmt.Printf("Test email sent to %s\n", acct.Email)
	}

	tokens := &deviceid.MemoryTokenStore{Value: *deviceID}
	client := deviceid.ClientInfo{
		Agent:     *agent,
		IPAddress: deviceid.Unknown,
		Class:     device.ClassifyAgent(*agent),
	}

	result, err := bootstrap.ApproveFirstDevice(ctx, bootstrap.DeviceBootstrapConfig{
		Registry: device.NewRegistry(store),
		Resolver: deviceid.NewResolver(),
	}, acct, tokens, client)
	if err != nil {
		slog.Error("Device bootstrap failed", "username", acct.Username, "error", err)
		os.Exit(1)
	}

	bootstrap.PrintDeviceBootstrapResult(os.Stdout, result, cfg.DeviceLimit.CookieName)
	bootstrap.LogDeviceBootstrapSummary(result)
}
