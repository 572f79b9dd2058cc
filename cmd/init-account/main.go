// Package main creates an account in the configured store.
//
//	go run ./cmd/init-account -username admin -password secret -email admin@example.com -admin
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/crypto/bcrypt"

	"github.com/tendant/devicelimit/pkg/account"
	"github.com/tendant/devicelimit/pkg/config"
)

func main() {
	username := flag.String("username", "", "Username for the new account (required)")
	password := flag.String("password", "", "Password for the new account (required)")
	email := flag.String("email", "", "Email that verification codes are sent to (required)")
	name := flag.String("name", "", "Display name used in emails")
	admin := flag.Bool("admin", false, "Allow the account to manage devices")
	flag.Parse()

	if *username == "" || *password == "" || *email == "" {
		fmt.Println("Error: username, password, and email are required")
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

	hash, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
	if err != nil {
		slog.Error("Failed to hash password", "error", err)
		os.Exit(1)
	}

	acct, err := store.CreateAccount(ctx, account.Account{
		Username:     *username,
		Email:        *email,
		DisplayName:  *name,
		PasswordHash: string(hash),
		Admin:        *admin,
	})
	if err != nil {
		slog.Error("Failed to create account", "username", *username, "error", err)
		os.Exit(1)
	}

	slog.Info("Account created", "id", acct.ID, "username", acct.Username, "admin", acct.Admin)
	fmt.Printf("Account %s created with id %s\n", acct.Username, acct.ID)
}
