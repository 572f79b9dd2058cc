// Package config loads the devicelimit server configuration.
//
// Settings come from environment variables, optionally seeded from a .env file, and are
// read with cleanenv into grouped structs. Each group converts itself into the option
// type its consumer expects.
//
//	cfg, err := config.Load()
//	if err != nil {
//		slog.Error("Invalid configuration", "error", err)
//		os.Exit(1)
//	}
//	pool, err := dbutils.NewDbPool(ctx, cfg.Database.ToDbConfig())
//
// # Validation
//
// Each group declares its constraints as validator tags next to the env tags.
// Validate reports every problem at once as ValidationErrors, naming each field by
// its environment variable:
//
//	configuration validation failed:
//	  - DEVICE_LIMIT: must be at least 1, got 0
//	  - SESSION_SECRET: must be at least 16 characters
package config
